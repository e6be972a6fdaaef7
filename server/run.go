package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/seobando/agentkit/core"
)

// RunRequest starts a run. NewMessage takes precedence over Text.
type RunRequest struct {
	AppName    string        `json:"app_name"`
	UserID     string        `json:"user_id"`
	SessionID  string        `json:"session_id,omitempty"`
	Text       string        `json:"text,omitempty"`
	NewMessage *core.Content `json:"new_message,omitempty"`
}

func (req RunRequest) content() (core.Content, error) {
	if req.AppName == "" || req.UserID == "" {
		return core.Content{}, errors.New("app_name and user_id are required")
	}
	if req.NewMessage != nil {
		c := *req.NewMessage
		if c.Role == "" {
			c.Role = core.RoleUser
		}
		return c, nil
	}
	if strings.TrimSpace(req.Text) == "" {
		return core.Content{}, errors.New("text or new_message is required")
	}
	return *core.NewTextContent(core.RoleUser, req.Text), nil
}

// SessionHeader carries the session id of a /run or /run_sse response. It is
// the only way to learn the id of a session the server created.
const SessionHeader = "X-Session-ID"

// liveMessage is sent after every websocket run. Events themselves are sent
// as plain event objects.
type liveMessage struct {
	Done      bool   `json:"done,omitempty"`
	RunID     string `json:"run_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

func decodeRunRequest(w http.ResponseWriter, r *http.Request) (RunRequest, core.Content, bool) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return req, core.Content{}, false
	}
	content, err := req.content()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, core.Content{}, false
	}
	return req, content, true
}

// ensureSession creates a session when req has none and writes an error
// response on failure.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request, req *RunRequest) bool {
	if req.SessionID != "" {
		return true
	}
	id, err := s.newSession(r, *req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return false
	}
	req.SessionID = id
	return true
}

// handleRun blocks until the run ends and returns its non-partial events.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	req, content, ok := decodeRunRequest(w, r)
	if !ok || !s.ensureSession(w, r, &req) {
		return
	}
	events, err := s.app.InvokeSync(r.Context(), req.AppName, req.UserID, req.SessionID, content)
	if err != nil && len(events) == 0 {
		writeError(w, statusFor(err), err.Error())
		return
	}
	out := make([]core.Event, 0, len(events))
	for _, ev := range events {
		if !ev.Partial {
			out = append(out, ev)
		}
	}
	if err != nil {
		s.logger.Warn("run.failed", "app", req.AppName, "error", err.Error())
	}
	w.Header().Set(SessionHeader, req.SessionID)
	writeJSON(w, http.StatusOK, out)
}

// handleRunSSE streams every event, partial ones included, as server-sent
// events after a leading "session" event. A failure is sent as an "error"
// event.
func (s *Server) handleRunSSE(w http.ResponseWriter, r *http.Request) {
	req, content, ok := decodeRunRequest(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	if !s.ensureSession(w, r, &req) {
		return
	}

	_, events, errs, err := s.app.Invoke(r.Context(), req.AppName, req.UserID, req.SessionID, content)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set(SessionHeader, req.SessionID)
	w.WriteHeader(http.StatusOK)
	data, _ := json.Marshal(map[string]string{"session_id": req.SessionID})
	fmt.Fprintf(w, "event: session\ndata: %s\n\n", data)
	flusher.Flush()

	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			s.logger.Error("sse.marshal", "error", err.Error())
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
	if err, ok := <-errs; ok && err != nil {
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
		flusher.Flush()
	}
}

// handleRunLive upgrades to a websocket. Each client message starts a run on
// the connection; its events are written back followed by a done message.
func (s *Server) handleRunLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("live.upgrade", "error", err.Error())
		return
	}
	defer conn.Close()

	ctx := r.Context()
	for {
		var req RunRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("live.read", "error", err.Error())
			}
			return
		}
		content, err := req.content()
		if err != nil {
			if conn.WriteJSON(liveMessage{Error: err.Error()}) != nil {
				return
			}
			continue
		}

		if req.SessionID == "" {
			if req.SessionID, err = s.newSession(r, req); err != nil {
				if conn.WriteJSON(liveMessage{Error: err.Error()}) != nil {
					return
				}
				continue
			}
		}

		runID, events, errs, err := s.app.Invoke(ctx, req.AppName, req.UserID, req.SessionID, content)
		if err != nil {
			if conn.WriteJSON(liveMessage{Error: err.Error()}) != nil {
				return
			}
			continue
		}

		for ev := range events {
			if err := conn.WriteJSON(ev); err != nil {
				s.cancelRun(req.AppName, runID)
				for range events {
				}
				return
			}
		}
		msg := liveMessage{Done: true, RunID: runID, SessionID: req.SessionID}
		if err, ok := <-errs; ok && err != nil {
			msg.Error = err.Error()
		}
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// newSession creates a session so the live client learns its id.
func (s *Server) newSession(r *http.Request, req RunRequest) (string, error) {
	if _, err := s.app.Runner(req.AppName); err != nil {
		return "", err
	}
	sess, err := s.app.Sessions().Create(r.Context(), core.CreateSessionRequest{AppName: req.AppName, UserID: req.UserID})
	if err != nil {
		return "", err
	}
	return sess.ID, nil
}

func (s *Server) cancelRun(appName, runID string) {
	if rn, err := s.app.Runner(appName); err == nil {
		_ = rn.Cancel(runID)
	}
}
