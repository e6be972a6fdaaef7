package agentkit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seobando/agentkit/agent"
	"github.com/seobando/agentkit/config"
	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/logging"
	"github.com/seobando/agentkit/model"
	"github.com/seobando/agentkit/session/sqlite"
)

func userText(s string) core.Content { return *core.NewTextContent(core.RoleUser, s) }

func TestApp_RegisterAndInvoke(t *testing.T) {
	app := New()
	greeter := agent.NewModelAgent("greeter", model.NewMockModel("mock", "mock"))
	helper := agent.NewModelAgent("helper", model.NewMockModel("mock", "mock"))
	require.NoError(t, app.Register(helper, greeter))
	assert.Equal(t, []string{"greeter", "helper"}, app.Agents())

	err := app.Register(agent.NewModelAgent("greeter", model.NewMockModel("mock", "mock")))
	require.ErrorIs(t, err, ErrAgentRegistered)

	ctx := context.Background()
	events, err := app.InvokeSync(ctx, "greeter", "u1", "s1", userText("hello"))
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, "Mock response to: hello", events[len(events)-1].Text())

	sess, err := app.Sessions().Get(ctx, core.SessionKey{AppName: "greeter", UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(sess.Events), 2)

	_, err = app.InvokeSync(ctx, "nobody", "u1", "", userText("hello"))
	require.ErrorIs(t, err, core.ErrAgentNotFound)
}

func TestApp_InvokeStreams(t *testing.T) {
	app := New()
	require.NoError(t, app.Register(agent.NewModelAgent("echo", model.NewMockModel("mock", "mock"))))

	runID, events, errs, err := app.Invoke(context.Background(), "echo", "u", "", userText("ping"))
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	var texts []string
	for ev := range events {
		texts = append(texts, ev.Text())
	}
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Contains(t, texts, "Mock response to: ping")

	r, err := app.Runner("echo")
	require.NoError(t, err)
	assert.Empty(t, r.ActiveRuns())
}

func TestOpenStores_FromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.SessionBackend = "sqlite"
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "sessions.db")
	cfg.Storage.MemoryBackend = "badger"
	cfg.Storage.BadgerDir = filepath.Join(t.TempDir(), "memory")

	app, stores, err := NewFromConfig(cfg, logging.NoOpLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = stores.Close() })

	_, ok := stores.Sessions.(*sqlite.Store)
	assert.True(t, ok)
	assert.Same(t, stores.Sessions, app.Sessions())

	require.NoError(t, app.Register(agent.NewModelAgent("assistant", model.NewMockModel("mock", "mock"))))
	_, err = app.InvokeSync(context.Background(), "assistant", "u", "s", userText("hi"))
	require.NoError(t, err)

	list, err := app.Sessions().List(context.Background(), "assistant", "u")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestNewModel(t *testing.T) {
	m, err := NewModel(context.Background(), config.ModelConfig{Provider: "mock", RateLimit: 100, Burst: 1}, logging.NoOpLogger{})
	require.NoError(t, err)
	assert.Equal(t, "mock", m.Info().Provider)

	resp, err := model.Collect(context.Background(), m, model.Request{Contents: []core.Content{userText("2+2")}})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: 2+2", resp.Content.Text())

	_, err = NewModel(context.Background(), config.ModelConfig{Provider: "llama"}, nil)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}
