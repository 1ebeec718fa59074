package runner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/hupe1980/appforge/core"
	"github.com/hupe1980/appforge/engine"
	"github.com/hupe1980/appforge/logging"
	"github.com/hupe1980/appforge/model"
	"github.com/hupe1980/appforge/session"
	"github.com/hupe1980/appforge/stream"
)

// ErrRunNotFound is returned by Cancel for unknown or finished runs.
var ErrRunNotFound = errors.New("run not found")

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// MaxConcurrentRuns limits chats running at the same time across all
	// sessions. Run waits for a free slot. Zero means unlimited.
	MaxConcurrentRuns int
	// EngineOptions are applied to every engine the runner creates.
	EngineOptions []func(o *engine.Options)
	// Store receives every event and the session snapshot after each chat.
	// Defaults to an in-memory store.
	Store session.Store
	// Sinks returns additional mirrors for the events of sessionID.
	Sinks func(sessionID string) []stream.Sink
	// Logging services.
	Logger logging.Logger
}

// Runner coordinates chats over many sessions. Public methods are safe for
// concurrent use.
type Runner struct {
	model model.Model
	opts  Options
	slots chan struct{}

	engines    map[string]*engine.Engine
	activeRuns map[string]context.CancelFunc
	mu         sync.Mutex
}

// New constructs a Runner with optional overrides.
func New(m model.Model, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxConcurrentRuns: 10,
		Store:             session.NewInMemoryStore(),
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Store == nil {
		opts.Store = session.NewInMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	r := &Runner{
		model:      m,
		opts:       opts,
		engines:    make(map[string]*engine.Engine),
		activeRuns: make(map[string]context.CancelFunc),
	}
	if opts.MaxConcurrentRuns > 0 {
		r.slots = make(chan struct{}, opts.MaxConcurrentRuns)
	}

	return r
}

// Engine returns the engine owning sessionID, creating it on first use.
// An empty id creates a new session with a random id.
func (r *Runner) Engine(sessionID string) *engine.Engine {
	r.mu.Lock()
	defer r.mu.Unlock()

	if eng, ok := r.engines[sessionID]; ok {
		return eng
	}

	if sessionID == "" {
		sessionID = core.NewID()
	}

	optFns := append(slices.Clone(r.opts.EngineOptions), engine.WithSessionID(sessionID))
	eng := engine.New(r.model, optFns...)
	r.engines[sessionID] = eng

	r.opts.Logger.Debug("runner.session.created", "session_id", sessionID)

	return eng
}

// Sessions returns the ids of all sessions hosted by the runner, sorted.
func (r *Runner) Sessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.engines))
	for id := range r.engines {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Store returns the store chats are mirrored to.
func (r *Runner) Store() session.Store { return r.opts.Store }

// Run starts a chat on sessionID and returns its run id and event sequence.
//
// Run blocks while MaxConcurrentRuns chats are running and fails with ctx's
// error if ctx ends first. The sequence behaves like engine.Engine.Chat:
// it ends with done, or is closed early when ctx ends or the run is
// cancelled. Every event is mirrored before it is delivered.
func (r *Runner) Run(ctx context.Context, sessionID, message string) (string, <-chan core.StreamEvent, error) {
	eng := r.Engine(sessionID)
	sid := eng.SessionID()

	if r.slots != nil {
		select {
		case r.slots <- struct{}{}:
		case <-ctx.Done():
			return "", nil, fmt.Errorf("wait for run slot: %w", ctx.Err())
		}
	}

	runID := core.NewID()

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	sinks := []stream.Sink{session.NewSink(r.opts.Store, sid, eng.Session)}
	if r.opts.Sinks != nil {
		sinks = append(sinks, r.opts.Sinks(sid)...)
	}

	teed := stream.Tee(ctx, eng.Chat(ctx, message), sinks, func(o *stream.TeeOptions) {
		o.Logger = r.opts.Logger
	})

	out := make(chan core.StreamEvent)

	go func() {
		defer close(out)
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.activeRuns, runID)
			r.mu.Unlock()
			if r.slots != nil {
				<-r.slots
			}
		}()

		for ev := range teed {
			if ctx.Err() != nil {
				continue
			}
			select {
			case <-ctx.Done():
			case out <- ev:
			}
		}
	}()

	r.opts.Logger.Info("runner.run.start", "run_id", runID, "session_id", sid)

	return runID, out, nil
}

// RunSync runs a chat and collects its events. The error is non-nil when
// the run could not start or ended before done.
func (r *Runner) RunSync(ctx context.Context, sessionID, message string) ([]core.StreamEvent, error) {
	_, ch, err := r.Run(ctx, sessionID, message)
	if err != nil {
		return nil, err
	}

	var events []core.StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}

	if len(events) == 0 || !events[len(events)-1].IsTerminal() {
		if err := ctx.Err(); err != nil {
			return events, err
		}
		return events, context.Canceled
	}

	return events, nil
}

// Cancel cancels a running chat by run id.
func (r *Runner) Cancel(runID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[runID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}

	cancel()

	return nil
}

// Conversation binds the runner to sessionID.
func (r *Runner) Conversation(sessionID string) *Conversation {
	return &Conversation{runner: r, sessionID: r.Engine(sessionID).SessionID()}
}

// Conversation is one session of a Runner seen as a chat endpoint.
type Conversation struct {
	runner    *Runner
	sessionID string
}

// SessionID returns the id of the bound session.
func (c *Conversation) SessionID() string { return c.sessionID }

// Chat runs message on the bound session. A run that cannot start yields a
// single error event.
func (c *Conversation) Chat(ctx context.Context, message string) <-chan core.StreamEvent {
	_, ch, err := c.runner.Run(ctx, c.sessionID, message)
	if err != nil {
		failed := make(chan core.StreamEvent, 1)
		failed <- core.NewErrorEvent("", err.Error())
		close(failed)
		return failed
	}
	return ch
}
