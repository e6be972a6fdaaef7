package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/seobando/agentkit/artifact"
	"github.com/seobando/agentkit/callback"
	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/logging"
	"github.com/seobando/agentkit/memory"
	"github.com/seobando/agentkit/session"
	"github.com/seobando/agentkit/telemetry"
)

// ErrRunNotFound is returned by Cancel for unknown run ids.
var ErrRunNotFound = errors.New("run not found")

// ErrTooManyRuns is returned when MaxConcurrentRuns is reached.
var ErrTooManyRuns = errors.New("too many concurrent runs")

// Options holds dependency and configuration overrides passed to New.
type Options struct {
	// MaxConcurrentRuns caps simultaneous runs; 0 means unlimited.
	MaxConcurrentRuns int
	// EventBufferSize sets the buffer of the caller-facing event channel.
	EventBufferSize int
	// MaxModelCalls limits model calls per run; 0 means unlimited.
	MaxModelCalls int
	// AutoCreateSession creates missing sessions instead of failing.
	AutoCreateSession bool
	// IngestMemory adds the session to the memory store after a successful run.
	IngestMemory bool

	SessionStore  core.SessionStore
	ArtifactStore core.ArtifactStore
	MemoryStore   core.MemoryStore
	Callbacks     *callback.Manager
	Tracer        trace.Tracer
	Logger        logging.Logger
}

// Runner coordinates agent execution for one app. Public methods are safe for
// concurrent use.
type Runner struct {
	appName string
	agent   core.Agent
	opts    Options

	mu         sync.Mutex
	activeRuns map[string]context.CancelFunc
}

// New constructs a Runner with in-memory stores unless overridden.
func New(appName string, agent core.Agent, optFns ...func(o *Options)) *Runner {
	opts := Options{
		EventBufferSize:   100,
		MaxModelCalls:     100,
		AutoCreateSession: true,
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
	if opts.Tracer == nil {
		opts.Tracer = telemetry.Tracer("")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	opts.Logger = logging.With(opts.Logger, "app", appName)

	return &Runner{
		appName:    appName,
		agent:      agent,
		opts:       opts,
		activeRuns: make(map[string]context.CancelFunc),
	}
}

// AppName returns the app the runner serves.
func (r *Runner) AppName() string { return r.appName }

// Agent returns the root agent.
func (r *Runner) Agent() core.Agent { return r.agent }

// SessionStore returns the session store used by the runner.
func (r *Runner) SessionStore() core.SessionStore { return r.opts.SessionStore }

// Callbacks returns the lifecycle callback manager.
func (r *Runner) Callbacks() *callback.Manager { return r.opts.Callbacks }

// Run starts an asynchronous run and returns its id plus the event and error
// channels. Both channels are closed when the run ends; at most one error is
// delivered.
func (r *Runner) Run(ctx context.Context, userID, sessionID string, content core.Content) (string, <-chan core.Event, <-chan error, error) {
	sess, err := r.loadSession(ctx, userID, sessionID)
	if err != nil {
		return "", nil, nil, err
	}

	runID := "inv-" + uuid.NewString()
	runCtx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	if limit := r.opts.MaxConcurrentRuns; limit > 0 && len(r.activeRuns) >= limit {
		r.mu.Unlock()
		cancel()
		return "", nil, nil, fmt.Errorf("%w: %d", ErrTooManyRuns, limit)
	}
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	userEvent := core.NewUserContentEvent(runID, content)
	if err := r.opts.SessionStore.AppendEvent(runCtx, sess.Key(), userEvent); err != nil {
		r.finish(runID)
		return "", nil, nil, fmt.Errorf("append user event: %w", err)
	}
	sess.AddEvent(userEvent)

	runCtx, span := r.opts.Tracer.Start(runCtx, "runner.run", trace.WithAttributes(
		telemetry.AttrAppName.String(r.appName),
		telemetry.AttrUserID.String(userID),
		telemetry.AttrSessionID.String(sess.ID),
		telemetry.AttrInvocationID.String(runID),
		telemetry.AttrAgentName.String(r.agent.Name()),
	))

	agentEmit := make(chan core.Event)
	resumeCh := make(chan struct{}, 1)
	eventsCh := make(chan core.Event, r.opts.EventBufferSize)
	errorsCh := make(chan error, 1)
	agentErr := make(chan error, 1)

	ic := core.NewInvocationContext(runCtx, core.InvocationOptions{
		InvocationID:  runID,
		Agent:         core.AgentInfo{Name: r.agent.Name(), Type: "root"},
		UserContent:   content,
		Session:       sess,
		Emit:          agentEmit,
		Resume:        resumeCh,
		SessionStore:  r.opts.SessionStore,
		ArtifactStore: r.opts.ArtifactStore,
		MemoryStore:   r.opts.MemoryStore,
		Limiter:       core.NewModelLimiter(r.opts.MaxModelCalls),
		Logger:        r.opts.Logger,
	})

	activeRuns.WithLabelValues(r.appName).Inc()
	r.opts.Logger.Info("runner.run.start", "invocation_id", runID, "session_id", sess.ID, "user_id", userID)

	go func() {
		defer close(agentEmit)
		if err := r.opts.Callbacks.Execute(runCtx, callback.RunStart, r.cbContext(ic, nil, nil)); err != nil {
			agentErr <- fmt.Errorf("run start callback: %w", err)
			return
		}
		agentErr <- r.runAgent(ic)
	}()

	go func() {
		start := time.Now()
		count, err := r.processEvents(ic, agentEmit, resumeCh, eventsCh, agentErr)
		status := "ok"
		if err != nil {
			status = "error"
			if errors.Is(err, context.Canceled) {
				status = "cancelled"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			_ = r.opts.Callbacks.Execute(context.WithoutCancel(runCtx), callback.OnError, r.cbContext(ic, nil, err))
			r.opts.Logger.Error("runner.run.failed", "invocation_id", runID, "error", err.Error())
			errorsCh <- err
		} else {
			r.opts.Logger.Info("runner.run.done", "invocation_id", runID, "events", count)
		}
		span.SetAttributes(telemetry.AttrEventCount.Int(count))
		span.End()

		runsTotal.WithLabelValues(r.appName, status).Inc()
		runDuration.WithLabelValues(r.appName).Observe(time.Since(start).Seconds())
		activeRuns.WithLabelValues(r.appName).Dec()

		r.finish(runID)
		close(eventsCh)
		close(errorsCh)
	}()

	return runID, eventsCh, errorsCh, nil
}

// RunSync runs to completion and returns every event, partial ones included.
func (r *Runner) RunSync(ctx context.Context, userID, sessionID string, content core.Content) ([]core.Event, error) {
	_, eventsCh, errorsCh, err := r.Run(ctx, userID, sessionID, content)
	if err != nil {
		return nil, err
	}
	var events []core.Event
	for ev := range eventsCh {
		events = append(events, ev)
	}
	if err, ok := <-errorsCh; ok && err != nil {
		return events, err
	}
	return events, nil
}

// Cancel stops a run by id.
func (r *Runner) Cancel(runID string) error {
	r.mu.Lock()
	cancel, ok := r.activeRuns[runID]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("cancel %s: %w", runID, ErrRunNotFound)
	}
	cancel()
	return nil
}

// ActiveRuns returns the ids of running invocations, sorted.
func (r *Runner) ActiveRuns() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.activeRuns))
	for id := range r.activeRuns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Runner) finish(runID string) {
	r.mu.Lock()
	cancel, ok := r.activeRuns[runID]
	delete(r.activeRuns, runID)
	r.mu.Unlock()
	if ok {
		cancel()
	}
}

func (r *Runner) loadSession(ctx context.Context, userID, sessionID string) (*core.Session, error) {
	key := core.SessionKey{AppName: r.appName, UserID: userID, SessionID: sessionID}
	if sessionID != "" {
		sess, err := r.opts.SessionStore.Get(ctx, key)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, core.ErrSessionNotFound) || !r.opts.AutoCreateSession {
			return nil, fmt.Errorf("load session: %w", err)
		}
	} else if !r.opts.AutoCreateSession {
		return nil, fmt.Errorf("load session: empty id: %w", core.ErrSessionNotFound)
	}
	sess, err := r.opts.SessionStore.Create(ctx, core.CreateSessionRequest{AppName: r.appName, UserID: userID, SessionID: sessionID})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	r.opts.Logger.Debug("runner.session.created", "session_id", sess.ID, "user_id", userID)
	return sess, nil
}

func (r *Runner) runAgent(ic *core.InvocationContext) error {
	if err := r.agent.Start(ic); err != nil {
		return fmt.Errorf("start agent %s: %w", r.agent.Name(), err)
	}
	defer func() {
		if err := r.agent.Stop(ic); err != nil {
			r.opts.Logger.Warn("runner.agent.stop_failed", "agent", r.agent.Name(), "error", err.Error())
		}
	}()
	if err := r.agent.Run(ic); err != nil {
		return fmt.Errorf("agent %s: %w", r.agent.Name(), err)
	}
	return nil
}

// processEvents persists and forwards events until the agent finishes. It
// returns the number of events forwarded and the terminal error.
func (r *Runner) processEvents(
	ic *core.InvocationContext,
	agentEmit <-chan core.Event,
	resumeCh chan<- struct{},
	eventsCh chan<- core.Event,
	agentErr <-chan error,
) (int, error) {
	ctx := ic.Context
	key := ic.SessionKey()
	count := 0
	for {
		select {
		case <-ctx.Done():
			return count, ctx.Err()
		case ev, ok := <-agentEmit:
			if !ok {
				if err := <-agentErr; err != nil {
					return count, err
				}
				return count, r.complete(ic)
			}

			cbCtx := r.cbContext(ic, &ev, nil)
			if err := r.opts.Callbacks.Execute(ctx, callback.OnEvent, cbCtx); err != nil {
				return count, fmt.Errorf("event callback: %w", err)
			}
			if len(ev.Actions.StateDelta) > 0 {
				if err := r.opts.Callbacks.Execute(ctx, callback.OnStateChange, cbCtx); err != nil {
					return count, fmt.Errorf("state change callback: %w", err)
				}
			}

			if err := r.opts.SessionStore.AppendEvent(ctx, key, ev); err != nil {
				return count, fmt.Errorf("append event %s: %w", ev.ID, err)
			}
			if !ev.Partial {
				eventsTotal.WithLabelValues(r.appName, ev.Author).Inc()
			}

			select {
			case <-ctx.Done():
				return count, ctx.Err()
			case eventsCh <- ev:
				count++
			}

			if !ev.Partial {
				select {
				case <-ctx.Done():
					return count, ctx.Err()
				case resumeCh <- struct{}{}:
				}
			}
		}
	}
}

// complete runs end-of-run hooks: run_end callbacks and memory ingestion.
func (r *Runner) complete(ic *core.InvocationContext) error {
	if err := r.opts.Callbacks.Execute(ic.Context, callback.RunEnd, r.cbContext(ic, nil, nil)); err != nil {
		return fmt.Errorf("run end callback: %w", err)
	}
	if !r.opts.IngestMemory {
		return nil
	}
	sess, err := r.opts.SessionStore.Get(ic.Context, ic.SessionKey())
	if err != nil {
		return fmt.Errorf("reload session for memory: %w", err)
	}
	if err := r.opts.MemoryStore.AddSession(ic.Context, sess); err != nil {
		return fmt.Errorf("ingest memory: %w", err)
	}
	return nil
}

func (r *Runner) cbContext(ic *core.InvocationContext, ev *core.Event, err error) *callback.Context {
	return &callback.Context{
		InvocationContext: ic,
		Event:             ev,
		AgentName:         r.agent.Name(),
		Err:               err,
		Metadata:          map[string]any{"app_name": r.appName},
	}
}
