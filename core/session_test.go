package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSession_ApplyStateDelta(t *testing.T) {
	s := NewSession(SessionKey{AppName: "app", UserID: "u", SessionID: "s"})
	s.ApplyStateDelta(map[string]any{"a": 1, "temp:scratch": true, "b": "x"})
	s.ApplyStateDelta(map[string]any{"b": nil})

	v, ok := s.GetState("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = s.GetState("temp:scratch")
	assert.False(t, ok)
	_, ok = s.GetState("b")
	assert.False(t, ok)
}

func TestSession_CloneIsDeep(t *testing.T) {
	s := NewSession(SessionKey{SessionID: "s"})
	s.ApplyStateDelta(map[string]any{"list": []any{"a"}, "obj": map[string]any{"k": 1}})
	s.AddEvent(NewMessageEvent("inv", "agent", "hi"))

	c := s.Clone()
	c.State["list"].([]any)[0] = "changed"
	c.State["obj"].(map[string]any)["k"] = 2
	c.Events[0].Author = "other"

	orig, _ := s.GetState("list")
	assert.Equal(t, "a", orig.([]any)[0])
	obj, _ := s.GetState("obj")
	assert.Equal(t, 1, obj.(map[string]any)["k"])
	assert.Equal(t, "agent", s.GetEvents()[0].Author)
}

func TestSplitAndMergeState(t *testing.T) {
	app, user, sess := SplitStateDelta(map[string]any{
		"app:theme":  "dark",
		"user:name":  "alice",
		"count":      1,
		"temp:trace": "x",
	})
	assert.Equal(t, map[string]any{"theme": "dark"}, app)
	assert.Equal(t, map[string]any{"name": "alice"}, user)
	assert.Equal(t, map[string]any{"count": 1}, sess)

	merged := MergeState(app, user, sess)
	assert.Equal(t, map[string]any{"app:theme": "dark", "user:name": "alice", "count": 1}, merged)
}
