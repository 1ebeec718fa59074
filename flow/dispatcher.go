package flow

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/appforge/action"
	"github.com/hupe1980/appforge/core"
	"github.com/hupe1980/appforge/logging"
	"github.com/hupe1980/appforge/registry"
)

// Delegator starts a nested loop for a delegation action and returns the
// payload handed back to the delegating model.
type Delegator interface {
	Delegate(ctx context.Context, parent core.Role, args action.DelegateArgs, emit Emitter) (map[string]any, error)
}

// Dispatcher executes action calls on behalf of a role. It guarantees:
//   - exactly one ActionResult per ActionCall, error-flagged on failure
//   - panics in handlers are recovered and reported as PANIC results
//   - the call is validated against the issuing role's allowed schema set
//     (after repairing malformed argument JSON)
type Dispatcher struct {
	registry  *registry.Registry
	session   *core.Session
	delegator Delegator
	observer  Observer
	logger    logging.Logger
}

// NewDispatcher creates a dispatcher. observer and logger may be nil.
func NewDispatcher(reg *registry.Registry, sess *core.Session, delegator Delegator, observer Observer, logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	if observer == nil {
		observer = Observers{}
	}
	return &Dispatcher{
		registry:  reg,
		session:   sess,
		delegator: delegator,
		observer:  observer,
		logger:    logger,
	}
}

// Dispatch executes call for role. Side-effect events (structured-output,
// phase-change and the nested events of a delegation) are emitted through
// emit before Dispatch returns.
func (d *Dispatcher) Dispatch(ctx context.Context, role core.Role, call core.ActionCall, emit Emitter) (result core.ActionResult) {
	start := time.Now()

	var (
		kind action.Kind
		err  error
	)

	defer func() {
		if r := recover(); r != nil {
			err = &action.Error{
				Action:  call.Name,
				Message: fmt.Sprintf("panic recovered: %v", r),
				Code:    action.CodePanic,
			}
			d.logger.Error("action.dispatch.panic", "role", role, "action", call.Name, "recover", r, "stack", string(debug.Stack()))
			result = core.NewActionErrorResult(call, err)
		}
		d.observer.OnAction(role, call.Name, kind, time.Since(start), err)
	}()

	var content any
	content, kind, err = d.execute(ctx, role, call, emit)
	if err != nil {
		d.logger.Warn("action.dispatch.error", "role", role, "action", call.Name, "code", action.ErrorCode(err), "error", err.Error())
		return core.NewActionErrorResult(call, err)
	}

	d.logger.Debug("action.dispatch.success", "role", role, "action", call.Name, "kind", kind, "duration_ms", time.Since(start).Milliseconds())

	return core.NewActionResult(call, content)
}

func (d *Dispatcher) execute(ctx context.Context, role core.Role, call core.ActionCall, emit Emitter) (any, action.Kind, error) {
	cfg := d.registry.ConfigFor(role)

	schema, ok := cfg.Actions.Lookup(call.Name)
	if !ok {
		return nil, "", action.NewError(call.Name, fmt.Sprintf("action is not available to role %s", role), action.CodeUnknownAction)
	}

	args, repaired, err := action.ParseArguments(call.Name, call.Arguments)
	if err != nil {
		return nil, schema.Kind, err
	}
	if repaired {
		d.logger.Warn("action.arguments.repaired", "role", role, "action", call.Name)
	}

	if err := schema.Validate(args); err != nil {
		return nil, schema.Kind, err
	}

	switch schema.Kind {
	case action.KindDelegate:
		dArgs, err := action.DecodeDelegate(args)
		if err != nil {
			return nil, schema.Kind, err
		}
		if d.delegator == nil {
			return nil, schema.Kind, action.NewError(call.Name, "delegation is not supported", action.CodeDelegationDenied)
		}
		res, err := d.delegator.Delegate(ctx, role, dArgs, emit)
		return res, schema.Kind, err

	case action.KindPhase:
		pArgs, err := action.DecodePhase(args)
		if err != nil {
			return nil, schema.Kind, err
		}
		prev := d.session.SetPhase(pArgs.Phase)
		d.emitRecorded(role, call, emit(core.NewPhaseChangeEvent(role, pArgs.Phase)))
		return map[string]any{"success": true, "phase": pArgs.Phase, "previous": prev}, schema.Kind, nil

	case action.KindOutput:
		content, err := action.OutputContent(schema, args)
		if err != nil {
			return nil, schema.Kind, action.NewError(call.Name, err.Error(), action.CodeExecution)
		}
		out := d.session.AppendOutput(role, schema.OutputType, action.OutputTitle(schema, args), content, schema.OutputFormat())
		d.session.AppendActivity(role, core.ActivityStructuredOutput, out.ID, map[string]any{
			"actionId": call.ID,
			"type":     string(out.Type),
			"title":    out.Title,
		})
		d.emitRecorded(role, call, emit(core.NewStructuredOutputEvent(role, out)))
		return map[string]any{"success": true, "id": out.ID}, schema.Kind, nil

	default:
		return nil, schema.Kind, action.NewError(call.Name, fmt.Sprintf("unsupported action kind %q", schema.Kind), action.CodeExecution)
	}
}

// emitRecorded handles a failed side-effect emission of an action whose
// session change is already recorded. The action still succeeded; the loop
// stops at its next emission.
func (d *Dispatcher) emitRecorded(role core.Role, call core.ActionCall, err error) {
	if err != nil {
		d.logger.Debug("action.dispatch.emit_stopped", "role", role, "action", call.Name, "error", err.Error())
	}
}
