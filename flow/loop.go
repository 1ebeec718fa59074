package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/appforge/action"
	"github.com/hupe1980/appforge/core"
	internalutil "github.com/hupe1980/appforge/internal/util"
	"github.com/hupe1980/appforge/logging"
	"github.com/hupe1980/appforge/model"
	"github.com/hupe1980/appforge/registry"
)

// ErrNoFinalResponse is reported when a model closes its response stream
// without a final (non-partial) response and without an error.
var ErrNoFinalResponse = errors.New("model returned no final response")

// Options configures a Loop.
type Options struct {
	Logger   logging.Logger
	Observer Observer
	// Tiers resolves role tiers to backend model ids.
	Tiers model.TierTable
	// Processors build each model request. Defaults to DefaultProcessors.
	Processors []RequestProcessor
	// SpecialistMaxIterations bounds delegated loops unless the role
	// configures its own bound.
	SpecialistMaxIterations int
	// SummaryMaxChars caps the delegation summary handed to the parent (runes).
	SummaryMaxChars int
	// FailedLoopStatus is the terminal status of a loop ended by a model
	// service failure: StatusCompleted (default) or StatusError.
	FailedLoopStatus core.AgentStatus
	// Stream requests incremental text from the model.
	Stream bool
}

// Loop is the recursive agent execution loop bound to one session.
type Loop struct {
	model      model.Model
	registry   *registry.Registry
	session    *core.Session
	dispatcher *Dispatcher
	opts       Options
}

// NewLoop creates a loop over the given model, registry and session.
func NewLoop(m model.Model, reg *registry.Registry, sess *core.Session, optFns ...func(o *Options)) *Loop {
	opts := Options{
		Logger:                  logging.NoOpLogger{},
		SpecialistMaxIterations: 25,
		SummaryMaxChars:         500,
		FailedLoopStatus:        core.StatusCompleted,
		Stream:                  true,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Observer == nil {
		opts.Observer = Observers{}
	}
	if len(opts.Processors) == 0 {
		opts.Processors = DefaultProcessors()
	}
	if opts.FailedLoopStatus != core.StatusError {
		opts.FailedLoopStatus = core.StatusCompleted
	}

	l := &Loop{
		model:    m,
		registry: reg,
		session:  sess,
		opts:     opts,
	}
	l.dispatcher = NewDispatcher(reg, sess, l, opts.Observer, opts.Logger)

	return l
}

// Run executes the loop for spec.Role, emitting every event through emit.
//
// Run never returns an error: model failures become one error event and
// end this loop level only. Consumer cancellation (a failing emit or a done
// ctx) stops further model invocations.
func (l *Loop) Run(ctx context.Context, spec LoopSpec, emit Emitter) (res Result) {
	start := time.Now()
	cfg := l.registry.ConfigFor(spec.Role)
	role := spec.Role

	if spec.MaxIterations <= 0 {
		spec.MaxIterations = l.opts.SpecialistMaxIterations
	}

	if err := l.session.SetStatus(role, core.StatusWorking); err != nil {
		// The state machine only refuses this for roles already on the path.
		l.opts.Logger.Error("loop.start.rejected", "role", role, "error", err.Error())
		_ = emit(core.NewErrorEvent(role, err.Error()))
		res.Reason = core.ReasonError
		return res
	}

	var narrative strings.Builder

	defer func() {
		res.Narrative = narrative.String()

		status := core.StatusCompleted
		if res.Reason == core.ReasonError {
			status = l.opts.FailedLoopStatus
		}
		if err := l.session.SetStatus(role, status); err != nil {
			l.opts.Logger.Error("loop.status.error", "role", role, "error", err.Error())
		}

		_ = emit(core.NewAgentEndEvent(role, cfg.Name, res.Reason))

		l.opts.Observer.OnLoopEnd(role, res.Iterations, res.Reason, time.Since(start))
		l.opts.Logger.Info("loop.end", "role", role, "iterations", res.Iterations, "reason", res.Reason)
	}()

	if err := emit(core.NewAgentStartEvent(role, cfg.Name)); err != nil {
		res.Reason = core.ReasonCancelled
		return res
	}

	transcript := []core.Content{core.NewUserText(spec.Task)}

	for res.Iterations < spec.MaxIterations {
		if ctx.Err() != nil {
			res.Reason = core.ReasonCancelled
			return res
		}
		res.Iterations++

		l.opts.Logger.Debug("loop.iteration.start", "role", role, "iteration", res.Iterations)

		req, err := l.buildRequest(cfg, spec, res.Iterations, transcript)
		if err != nil {
			_ = emit(core.NewErrorEvent(role, err.Error()))
			res.Reason = core.ReasonError
			return res
		}

		turn, err := l.invoke(ctx, req, emit, &narrative)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, errEmit) {
				res.Reason = core.ReasonCancelled
				return res
			}
			l.opts.Logger.Error("loop.model.error", "role", role, "iteration", res.Iterations, "error", err.Error())
			_ = emit(core.NewErrorEvent(role, err.Error()))
			res.Reason = core.ReasonError
			return res
		}

		for _, block := range turn.Content.TextBlocks() {
			l.session.AppendActivity(role, core.ActivityMessage, block, nil)
		}

		calls := turn.Content.ActionCalls()
		if len(calls) == 0 {
			res.Reason = core.ReasonCompleted
			return res
		}

		results, err := l.dispatchAll(ctx, role, calls, emit)
		if err != nil {
			res.Reason = core.ReasonCancelled
			return res
		}

		transcript = append(transcript, turn.Content, core.Content{Role: core.ContentRoleUser, Parts: results})

		if turn.FinishReason != model.FinishToolUse {
			res.Reason = core.ReasonCompleted
			return res
		}
	}

	res.Reason = core.ReasonExhausted
	l.opts.Logger.Warn("loop.iterations.exhausted", "role", role, "max_iterations", spec.MaxIterations)

	return res
}

// errEmit marks a failed emit so it is told apart from model failures.
var errEmit = errors.New("event consumer stopped")

func (l *Loop) buildRequest(cfg registry.AgentConfig, spec LoopSpec, iteration int, transcript []core.Content) (model.Request, error) {
	req := model.Request{
		Role:   spec.Role,
		Model:  l.opts.Tiers.Resolve(cfg.Tier),
		Stream: l.opts.Stream,
	}

	state := &TurnState{
		Config:     cfg,
		Spec:       spec,
		Phase:      l.session.Phase(),
		Iteration:  iteration,
		Transcript: transcript,
	}

	for _, p := range l.opts.Processors {
		if err := p.ProcessRequest(state, &req); err != nil {
			return req, fmt.Errorf("request processor %s failed: %w", p.Name(), err)
		}
	}

	return req, nil
}

// invoke performs one model call, forwarding text fragments as they arrive,
// and returns the final response. The call gets its own cancellable context
// so an abandoned call never leaks the provider goroutine.
func (l *Loop) invoke(ctx context.Context, req model.Request, emit Emitter, narrative *strings.Builder) (model.Response, error) {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	respCh, errCh := l.model.Generate(callCtx, req)

	var (
		final    *model.Response
		streamed bool
		emitErr  error
	)

	for resp := range respCh {
		if emitErr != nil {
			continue // drain until the provider observes the cancellation
		}
		if !resp.Partial {
			r := resp
			final = &r
			continue
		}
		for _, text := range resp.Content.TextBlocks() {
			streamed = true
			narrative.WriteString(text)
			if err := emit(core.NewTextDeltaEvent(req.Role, text)); err != nil {
				emitErr = fmt.Errorf("%w: %v", errEmit, err)
				cancel()
				break
			}
		}
	}

	err := <-errCh
	if emitErr != nil {
		err = emitErr
	} else if err == nil && final == nil {
		err = ErrNoFinalResponse
	}

	var usage *model.TokenUsage
	if final != nil {
		usage = final.Usage
	}
	l.opts.Observer.OnModelCall(req.Role, req.Model, usage, time.Since(start), err)

	if err != nil {
		return model.Response{}, err
	}

	// Providers that do not stream deliver the narrative only in the final response.
	if !streamed {
		for _, text := range final.Content.TextBlocks() {
			narrative.WriteString(text)
			if err := emit(core.NewTextDeltaEvent(req.Role, text)); err != nil {
				return model.Response{}, fmt.Errorf("%w: %v", errEmit, err)
			}
		}
	}

	return *final, nil
}

// dispatchAll dispatches calls in order. Every call receives exactly one
// result; an error is returned only when the consumer stopped pulling.
func (l *Loop) dispatchAll(ctx context.Context, role core.Role, calls []core.ActionCall, emit Emitter) ([]core.Part, error) {
	results := make([]core.Part, 0, len(calls))

	for _, call := range calls {
		l.session.AppendActivity(role, core.ActivityActionCall, map[string]any{
			"action":    call.Name,
			"arguments": call.Arguments,
		}, map[string]any{"actionId": call.ID})

		if err := emit(core.NewActionStartEvent(role, call, eventInput(call))); err != nil {
			return nil, err
		}

		result := l.dispatcher.Dispatch(ctx, role, call, emit)
		results = append(results, core.ActionResultPart{Result: result})

		if err := emit(core.NewActionEndEvent(role, result)); err != nil {
			return nil, err
		}
	}

	return results, nil
}

// eventInput returns the decoded arguments for the action-start event, or
// the raw payload when it cannot be decoded.
func eventInput(call core.ActionCall) any {
	args, _, err := action.ParseArguments(call.Name, call.Arguments)
	if err != nil {
		return call.Arguments
	}
	return args
}

// Delegate implements Delegator by running a nested loop for the target role.
//
// The parent is parked in StatusWaiting while the child runs. A target that
// is already working or waiting (an ancestor on the current delegation path)
// is refused: its status cannot move to working again.
func (l *Loop) Delegate(ctx context.Context, parent core.Role, args action.DelegateArgs, emit Emitter) (map[string]any, error) {
	target, err := core.ParseRole(args.Agent)
	if err != nil {
		return nil, action.NewError(action.DelegateTaskName, fmt.Sprintf("unknown agent %q", args.Agent), action.CodeDelegationDenied)
	}

	parentCfg := l.registry.ConfigFor(parent)
	if !parentCfg.CanDelegateTo(target) {
		return nil, action.NewError(action.DelegateTaskName, fmt.Sprintf("%s may not delegate to %s", parent, target), action.CodeDelegationDenied)
	}

	if l.session.Status(target).IsActive() {
		return nil, action.NewError(action.DelegateTaskName, fmt.Sprintf("%s is already active on the delegation path", target), action.CodeDelegationCycle)
	}

	if err := l.session.SetStatus(parent, core.StatusWaiting); err != nil {
		return nil, action.NewError(action.DelegateTaskName, err.Error(), action.CodeExecution)
	}
	defer func() {
		if err := l.session.SetStatus(parent, core.StatusWorking); err != nil {
			l.opts.Logger.Error("loop.resume.error", "role", parent, "error", err.Error())
		}
	}()

	l.session.AppendActivity(parent, core.ActivityHandoff, map[string]any{
		"from":    string(parent),
		"to":      string(target),
		"task":    args.Task,
		"context": args.Context,
	}, nil)

	targetCfg := l.registry.ConfigFor(target)
	maxIter := targetCfg.MaxIterations
	if maxIter <= 0 {
		maxIter = l.opts.SpecialistMaxIterations
	}

	child := l.Run(ctx, LoopSpec{
		Role:          target,
		Task:          args.Task,
		Context:       args.Context,
		MaxIterations: maxIter,
		ForceAction:   true,
	}, emit)

	return map[string]any{
		"success":    child.Reason == core.ReasonCompleted || child.Reason == core.ReasonExhausted,
		"agent":      string(target),
		"summary":    internalutil.Truncate(child.Narrative, l.opts.SummaryMaxChars),
		"iterations": child.Iterations,
		"reason":     string(child.Reason),
	}, nil
}
