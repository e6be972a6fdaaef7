package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seobando/agentkit/core"
)

type createSessionRequest struct {
	SessionID string         `json:"session_id,omitempty"`
	State     map[string]any `json:"state,omitempty"`
}

// sessionKey reads the path parameters and checks that the app is
// registered.
func (s *Server) sessionKey(w http.ResponseWriter, r *http.Request) (core.SessionKey, bool) {
	key := core.SessionKey{
		AppName:   chi.URLParam(r, "app"),
		UserID:    chi.URLParam(r, "user"),
		SessionID: chi.URLParam(r, "session"),
	}
	if _, err := s.app.Runner(key.AppName); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return key, false
	}
	return key, true
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	key, ok := s.sessionKey(w, r)
	if !ok {
		return
	}
	sessions, err := s.app.Sessions().List(r.Context(), key.AppName, key.UserID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	key, ok := s.sessionKey(w, r)
	if !ok {
		return
	}

	var body createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if key.SessionID == "" {
		key.SessionID = body.SessionID
	}

	sess, err := s.app.Sessions().Create(r.Context(), core.CreateSessionRequest{
		AppName:   key.AppName,
		UserID:    key.UserID,
		SessionID: key.SessionID,
		State:     body.State,
	})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	key, ok := s.sessionKey(w, r)
	if !ok {
		return
	}
	sess, err := s.app.Sessions().Get(r.Context(), key)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	key, ok := s.sessionKey(w, r)
	if !ok {
		return
	}
	if err := s.app.Sessions().Delete(r.Context(), key); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
