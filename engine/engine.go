package engine

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/appforge/core"
	"github.com/hupe1980/appforge/flow"
	"github.com/hupe1980/appforge/logging"
	"github.com/hupe1980/appforge/model"
	"github.com/hupe1980/appforge/registry"
)

// Config defines tuning parameters for the Engine's operational behavior.
//
// Example:
//
//	cfg := engine.DefaultConfig
//	cfg.SpecialistMaxIterations = 10
//	eng := engine.New(m, engine.WithConfig(cfg))
type Config struct {
	// CoordinatorMaxIterations bounds the coordinator loop of every chat
	// unless the coordinator's AgentConfig sets its own bound.
	CoordinatorMaxIterations int

	// SpecialistMaxIterations bounds every delegated loop unless the target
	// role's AgentConfig sets its own bound.
	SpecialistMaxIterations int

	// SummaryMaxChars caps the child narrative handed back to the parent
	// model as the delegation summary (counted in runes).
	SummaryMaxChars int

	// EventBufferSize sets the buffer of the channel returned by Chat.
	// Zero makes every emission wait for the consumer. A positive size lets
	// the chat run up to that many events (and the model calls behind them)
	// ahead of a consumer that has stopped pulling.
	EventBufferSize int

	// FailedLoopStatus is the terminal status of a role whose loop was
	// ended by a model service failure. StatusCompleted keeps the status
	// model free of failures (agent-end still reports reason "error");
	// StatusError surfaces them.
	FailedLoopStatus core.AgentStatus

	// EnableStreaming requests incremental text from the model. When
	// disabled each model turn yields its narrative as one text-delta.
	EnableStreaming bool
}

// DefaultConfig provides the default configuration values:
//   - CoordinatorMaxIterations: 30
//   - SpecialistMaxIterations: 25
//   - SummaryMaxChars: 500
//   - EventBufferSize: 0
//   - FailedLoopStatus: completed
//   - EnableStreaming: true
var DefaultConfig = Config{
	CoordinatorMaxIterations: 30,
	SpecialistMaxIterations:  25,
	SummaryMaxChars:          500,
	EventBufferSize:          0,
	FailedLoopStatus:         core.StatusCompleted,
	EnableStreaming:          true,
}

// Options configures an Engine instance using the functional options pattern.
type Options struct {
	// Config contains operational parameters for the engine behavior.
	// Defaults to DefaultConfig if not specified.
	Config Config

	// SessionID identifies the session owned by the engine. A random id
	// is generated when empty.
	SessionID string

	// InitialPhase is the phase tag of a new session. Defaults to "planning".
	InitialPhase string

	// Registry maps roles to their configuration. Defaults to the embedded
	// default roster.
	Registry *registry.Registry

	// Tiers resolves role tiers to backend model identifiers. The zero
	// table lets the provider pick its default model.
	Tiers model.TierTable

	// Logger provides structured logging. Defaults to NoOp logger.
	Logger logging.Logger

	// Observer receives model call, dispatch and loop notifications
	// (metrics, tracing). Optional.
	Observer flow.Observer

	// Clock timestamps session records. Defaults to core.SystemClock.
	Clock core.Clock
}

// WithConfig replaces the engine configuration.
func WithConfig(cfg Config) func(o *Options) {
	return func(o *Options) { o.Config = cfg }
}

// WithSessionID sets the identifier of the owned session.
func WithSessionID(id string) func(o *Options) {
	return func(o *Options) { o.SessionID = id }
}

// WithInitialPhase sets the phase tag of the new session.
func WithInitialPhase(phase string) func(o *Options) {
	return func(o *Options) { o.InitialPhase = phase }
}

// WithRegistry sets the role registry.
func WithRegistry(reg *registry.Registry) func(o *Options) {
	return func(o *Options) { o.Registry = reg }
}

// WithTiers sets the tier table.
func WithTiers(tiers model.TierTable) func(o *Options) {
	return func(o *Options) { o.Tiers = tiers }
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// WithObserver sets the loop observer.
func WithObserver(obs flow.Observer) func(o *Options) {
	return func(o *Options) { o.Observer = obs }
}

// Engine owns exactly one session and runs the coordinator loop for every
// user message it receives.
//
// Concurrency Model:
//   - Each Chat call runs on one goroutine; nested delegated loops run on
//     the same goroutine, so events are produced in strict emission order.
//   - Chat calls on the same engine are serialized: a second chat starts
//     only after the previous event sequence ended.
//   - Accessors (Session, Status, ConfigFor) are safe for concurrent use
//     while a chat is running.
//
// Example:
//
//	eng := engine.New(anthropicModel, engine.WithLogger(logger))
//
//	for ev := range eng.Chat(ctx, "Build a todo app with user accounts") {
//	    switch ev.Type {
//	    case core.EventTextDelta:
//	        fmt.Print(ev.Content)
//	    case core.EventError:
//	        log.Println(ev.Message)
//	    }
//	}
//
//	snapshot := eng.Session()
type Engine struct {
	model    model.Model
	registry *registry.Registry
	session  *core.Session
	loop     *flow.Loop
	config   Config
	logger   logging.Logger

	chatMu sync.Mutex // serializes chats
}

// New creates a new Engine bound to model m.
//
// Examples:
//
//	// Defaults: embedded roster, random session id, no logging
//	eng := engine.New(m)
//
//	// Resume bookkeeping under a known session id with custom bounds
//	eng := engine.New(m,
//	    engine.WithSessionID("sess-42"),
//	    engine.WithConfig(cfg),
//	    engine.WithTiers(model.AnthropicTiers()),
//	)
func New(m model.Model, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config:       DefaultConfig,
		InitialPhase: "planning",
		Logger:       logging.NoOpLogger{},
		Clock:        core.SystemClock,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.SessionID == "" {
		opts.SessionID = core.NewID()
	}
	if opts.Registry == nil {
		opts.Registry = registry.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Clock == nil {
		opts.Clock = core.SystemClock
	}
	if opts.Config.CoordinatorMaxIterations <= 0 {
		opts.Config.CoordinatorMaxIterations = DefaultConfig.CoordinatorMaxIterations
	}
	if opts.Config.SpecialistMaxIterations <= 0 {
		opts.Config.SpecialistMaxIterations = DefaultConfig.SpecialistMaxIterations
	}
	if opts.Config.SummaryMaxChars <= 0 {
		opts.Config.SummaryMaxChars = DefaultConfig.SummaryMaxChars
	}
	if opts.Config.EventBufferSize < 0 {
		opts.Config.EventBufferSize = 0
	}

	sess := core.NewSession(opts.SessionID, func(so *core.SessionOptions) {
		so.Phase = opts.InitialPhase
		so.Clock = opts.Clock
	})

	loop := flow.NewLoop(m, opts.Registry, sess, func(lo *flow.Options) {
		lo.Logger = opts.Logger
		lo.Observer = opts.Observer
		lo.Tiers = opts.Tiers
		lo.SpecialistMaxIterations = opts.Config.SpecialistMaxIterations
		lo.SummaryMaxChars = opts.Config.SummaryMaxChars
		lo.FailedLoopStatus = opts.Config.FailedLoopStatus
		lo.Stream = opts.Config.EnableStreaming
	})

	return &Engine{
		model:    m,
		registry: opts.Registry,
		session:  sess,
		loop:     loop,
		config:   opts.Config,
		logger:   opts.Logger,
	}
}

// Chat starts the coordinator loop with message as its task and returns
// the resulting event sequence.
//
// The channel yields every event of the coordinator loop and of every loop
// it transitively spawns, in emission order, and is closed after the final
// done event. Failures are reported as error events inside the sequence;
// Chat itself never fails.
//
// The sequence is lazy: with the default unbuffered channel each event is
// produced only when the consumer pulls it, so a consumer that stops pulling
// also stops further model calls. To stop early, cancel ctx; the in-flight model call is
// cancelled, no further model call is made and the channel is closed
// without a done event. A consumer that neither drains the channel nor
// cancels ctx blocks the chat (and every later chat on this engine).
func (e *Engine) Chat(ctx context.Context, message string) <-chan core.StreamEvent {
	out := make(chan core.StreamEvent, e.config.EventBufferSize)

	go func() {
		defer close(out)

		e.chatMu.Lock()
		defer e.chatMu.Unlock()

		emit := func(ev core.StreamEvent) error {
			// A buffered send could still succeed after cancellation.
			if err := ctx.Err(); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- ev:
				return nil
			}
		}

		start := time.Now()
		sid := e.session.ID()

		e.logger.Info("engine.chat.start", "session_id", sid, "message_length", len(message))

		res := e.loop.Run(ctx, flow.LoopSpec{
			Role:          core.RoleCoordinator,
			Task:          message,
			MaxIterations: e.coordinatorBound(),
			ForceAction:   false,
		}, emit)

		if err := emit(core.NewDoneEvent()); err != nil {
			e.logger.Warn("engine.chat.cancelled", "session_id", sid, "error", err.Error())
			return
		}

		e.logger.Info("engine.chat.end",
			"session_id", sid,
			"reason", res.Reason,
			"iterations", res.Iterations,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()

	return out
}

// ChatSync runs Chat and collects the whole event sequence.
//
// The returned error is non-nil only when ctx ended before the sequence
// completed; the events produced so far are returned with it.
func (e *Engine) ChatSync(ctx context.Context, message string) ([]core.StreamEvent, error) {
	var events []core.StreamEvent
	for ev := range e.Chat(ctx, message) {
		events = append(events, ev)
	}

	if len(events) == 0 || !events[len(events)-1].IsTerminal() {
		if err := ctx.Err(); err != nil {
			return events, err
		}
	}

	return events, nil
}

func (e *Engine) coordinatorBound() int {
	if cfg := e.registry.ConfigFor(core.RoleCoordinator); cfg.MaxIterations > 0 {
		return cfg.MaxIterations
	}
	return e.config.CoordinatorMaxIterations
}

// SessionID returns the identifier of the owned session.
func (e *Engine) SessionID() string { return e.session.ID() }

// Session returns a deep copy of the owned session. Later mutations by
// the engine are not reflected in the returned snapshot.
func (e *Engine) Session() core.SessionSnapshot { return e.session.Snapshot() }

// Status returns the current status of role.
func (e *Engine) Status(role core.Role) core.AgentStatus { return e.session.Status(role) }

// Statuses returns the current status of every role.
func (e *Engine) Statuses() map[core.Role]core.AgentStatus { return e.session.Statuses() }

// ConfigFor returns the full configuration of role. It panics for roles
// outside the closed role set.
func (e *Engine) ConfigFor(role core.Role) registry.AgentConfig { return e.registry.ConfigFor(role) }

// Registry returns the role registry used by the engine.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Model returns information about the model the engine drives.
func (e *Engine) Model() model.Info { return e.model.Info() }
