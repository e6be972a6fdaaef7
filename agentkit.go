// Package agentkit is the entry point for building agent applications. An App
// owns the shared session, artifact and memory stores and one runner.Runner
// per registered root agent. The agent name doubles as the app name that
// sessions are scoped by.
//
// Typical use:
//
//	app := agentkit.New()
//	_ = app.Register(myAgent)
//	events, err := app.InvokeSync(ctx, "my_agent", "user", "", *core.NewTextContent(core.RoleUser, "hi"))
package agentkit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/seobando/agentkit/artifact"
	"github.com/seobando/agentkit/callback"
	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/logging"
	"github.com/seobando/agentkit/memory"
	"github.com/seobando/agentkit/runner"
	"github.com/seobando/agentkit/session"
)

// ErrAgentRegistered is returned when registering a second agent under a
// name already in use.
var ErrAgentRegistered = errors.New("agent already registered")

// Options configures the App. Unset stores default to in-memory
// implementations.
type Options struct {
	MaxConcurrentRuns int
	EventBufferSize   int
	MaxModelCalls     int
	IngestMemory      bool

	SessionStore  core.SessionStore
	ArtifactStore core.ArtifactStore
	MemoryStore   core.MemoryStore

	// Callbacks is shared by every runner of the App.
	Callbacks *callback.Manager
	Logger    logging.Logger
}

// App is a registry of root agents sharing one set of stores.
type App struct {
	opts Options

	mu      sync.RWMutex
	runners map[string]*runner.Runner
}

// New creates an App with optional overrides.
func New(optFns ...func(o *Options)) *App {
	opts := Options{
		EventBufferSize: 100,
		MaxModelCalls:   100,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.SessionStore == nil {
		opts.SessionStore = session.NewInMemoryStore()
	}
	if opts.ArtifactStore == nil {
		opts.ArtifactStore = artifact.NewInMemoryStore()
	}
	if opts.MemoryStore == nil {
		opts.MemoryStore = memory.NewInMemoryStore()
	}
	if opts.Callbacks == nil {
		opts.Callbacks = callback.NewManager()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &App{opts: opts, runners: map[string]*runner.Runner{}}
}

// Register adds root agents. Each one gets its own runner over the shared
// stores.
func (a *App) Register(agents ...core.Agent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ag := range agents {
		name := ag.Name()
		if _, ok := a.runners[name]; ok {
			return fmt.Errorf("register %s: %w", name, ErrAgentRegistered)
		}
		a.runners[name] = runner.New(name, ag, func(o *runner.Options) {
			o.MaxConcurrentRuns = a.opts.MaxConcurrentRuns
			if a.opts.EventBufferSize > 0 {
				o.EventBufferSize = a.opts.EventBufferSize
			}
			o.MaxModelCalls = a.opts.MaxModelCalls
			o.IngestMemory = a.opts.IngestMemory
			o.SessionStore = a.opts.SessionStore
			o.ArtifactStore = a.opts.ArtifactStore
			o.MemoryStore = a.opts.MemoryStore
			o.Callbacks = a.opts.Callbacks
			o.Logger = a.opts.Logger
		})
	}
	return nil
}

// Agents returns the registered agent names, sorted.
func (a *App) Agents() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.runners))
	for name := range a.runners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Runner returns the runner serving the named agent.
func (a *App) Runner(agentName string) (*runner.Runner, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.runners[agentName]
	if !ok {
		return nil, fmt.Errorf("%s: %w", agentName, core.ErrAgentNotFound)
	}
	return r, nil
}

// Invoke starts an asynchronous run of the named agent. An empty sessionID
// creates a new session.
func (a *App) Invoke(ctx context.Context, agentName, userID, sessionID string, content core.Content) (string, <-chan core.Event, <-chan error, error) {
	r, err := a.Runner(agentName)
	if err != nil {
		return "", nil, nil, err
	}
	return r.Run(ctx, userID, sessionID, content)
}

// InvokeSync runs the named agent to completion and returns all events.
func (a *App) InvokeSync(ctx context.Context, agentName, userID, sessionID string, content core.Content) ([]core.Event, error) {
	r, err := a.Runner(agentName)
	if err != nil {
		return nil, err
	}
	return r.RunSync(ctx, userID, sessionID, content)
}

// Sessions returns the shared session store.
func (a *App) Sessions() core.SessionStore { return a.opts.SessionStore }

// Artifacts returns the shared artifact store.
func (a *App) Artifacts() core.ArtifactStore { return a.opts.ArtifactStore }

// Memory returns the shared memory store.
func (a *App) Memory() core.MemoryStore { return a.opts.MemoryStore }

// Callbacks returns the lifecycle callback manager shared by all runners.
func (a *App) Callbacks() *callback.Manager { return a.opts.Callbacks }

// Logger returns the App logger.
func (a *App) Logger() logging.Logger { return a.opts.Logger }
