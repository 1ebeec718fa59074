package flow

import (
	"time"

	"github.com/hupe1980/appforge/action"
	"github.com/hupe1980/appforge/core"
	"github.com/hupe1980/appforge/logging"
	"github.com/hupe1980/appforge/model"
)

// Observer receives lifecycle notifications from loops and the dispatcher.
// Callbacks run synchronously on the loop goroutine and must be fast; they
// cannot influence control flow.
type Observer interface {
	// OnModelCall fires after every model invocation.
	OnModelCall(role core.Role, modelID string, usage *model.TokenUsage, dur time.Duration, err error)
	// OnAction fires after every dispatched action call.
	OnAction(role core.Role, name string, kind action.Kind, dur time.Duration, err error)
	// OnLoopEnd fires once per loop run.
	OnLoopEnd(role core.Role, iterations int, reason core.TerminationReason, dur time.Duration)
}

// Observers fans notifications out to several observers in order.
type Observers []Observer

// OnModelCall implements Observer.
func (o Observers) OnModelCall(role core.Role, modelID string, usage *model.TokenUsage, dur time.Duration, err error) {
	for _, obs := range o {
		obs.OnModelCall(role, modelID, usage, dur, err)
	}
}

// OnAction implements Observer.
func (o Observers) OnAction(role core.Role, name string, kind action.Kind, dur time.Duration, err error) {
	for _, obs := range o {
		obs.OnAction(role, name, kind, dur, err)
	}
}

// OnLoopEnd implements Observer.
func (o Observers) OnLoopEnd(role core.Role, iterations int, reason core.TerminationReason, dur time.Duration) {
	for _, obs := range o {
		obs.OnLoopEnd(role, iterations, reason, dur)
	}
}

// LogObserver reports lifecycle notifications through the domain helpers
// of an AppForgeLogger.
type LogObserver struct {
	Logger *logging.AppForgeLogger
}

// OnModelCall implements Observer.
func (o LogObserver) OnModelCall(role core.Role, modelID string, usage *model.TokenUsage, dur time.Duration, err error) {
	tokens := 0
	if usage != nil {
		tokens = usage.TotalTokens
	}
	o.Logger.LogModelCall(string(role), modelID, tokens, dur, err)
}

// OnAction implements Observer.
func (o LogObserver) OnAction(role core.Role, name string, kind action.Kind, dur time.Duration, err error) {
	o.Logger.LogActionDispatch(string(role), name, string(kind), dur, err)
}

// OnLoopEnd implements Observer.
func (o LogObserver) OnLoopEnd(role core.Role, iterations int, reason core.TerminationReason, dur time.Duration) {
	o.Logger.LogLoopExecution(string(role), iterations, string(reason), dur)
}
