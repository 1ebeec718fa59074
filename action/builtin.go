package action

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/appforge/core"
	"github.com/hupe1980/appforge/internal/util"
)

// Names of the built-in actions.
const (
	DelegateTaskName = "delegate_task"
	SetPhaseName     = "set_phase"
)

// DelegateArgs is the payload of a delegation action.
type DelegateArgs struct {
	Agent   string `json:"agent" description:"Role identifier of the specialist that should perform the task"`
	Task    string `json:"task" description:"Self-contained description of the work to perform"`
	Context string `json:"context,omitempty" description:"Optional background the specialist needs"`
}

// PhaseArgs is the payload of a phase transition action.
type PhaseArgs struct {
	Phase string `json:"phase" description:"Name of the phase the session enters"`
}

// DelegateTask returns the delegation schema. When targets are given the
// agent parameter is restricted to them.
func DelegateTask(targets ...core.Role) Schema {
	params := util.CreateSchema(DelegateArgs{})
	if len(targets) > 0 {
		enum := make([]any, len(targets))
		for i, t := range targets {
			enum[i] = string(t)
		}
		props := params["properties"].(map[string]any)
		agent := props["agent"].(map[string]any)
		agent["enum"] = enum
	}

	return Schema{
		Name:        DelegateTaskName,
		Description: "Delegate a task to a specialist agent and wait for its summary.",
		Kind:        KindDelegate,
		Parameters:  params,
	}
}

// SetPhase returns the phase transition schema. When phases are given the
// phase parameter is restricted to them.
func SetPhase(phases ...string) Schema {
	params := util.CreateSchema(PhaseArgs{})
	if len(phases) > 0 {
		enum := make([]any, len(phases))
		for i, p := range phases {
			enum[i] = p
		}
		props := params["properties"].(map[string]any)
		phase := props["phase"].(map[string]any)
		phase["enum"] = enum
	}

	return Schema{
		Name:        SetPhaseName,
		Description: "Move the session to another phase.",
		Kind:        KindPhase,
		Parameters:  params,
	}
}

// DecodeDelegate converts validated arguments into DelegateArgs.
func DecodeDelegate(args map[string]any) (DelegateArgs, error) {
	var d DelegateArgs
	if err := remarshal(args, &d); err != nil {
		return d, err
	}
	if d.Agent == "" {
		return d, NewError(DelegateTaskName, "agent is required", CodeValidation)
	}
	return d, nil
}

// DecodePhase converts validated arguments into PhaseArgs.
func DecodePhase(args map[string]any) (PhaseArgs, error) {
	var p PhaseArgs
	if err := remarshal(args, &p); err != nil {
		return p, err
	}
	if p.Phase == "" {
		return p, NewError(SetPhaseName, "phase is required", CodeValidation)
	}
	return p, nil
}

// OutputTitle derives the title of a structured output from its payload:
// the "title" field, then "name", then "path", falling back to the action name.
func OutputTitle(schema Schema, args map[string]any) string {
	for _, key := range []string{"title", "name", "path"} {
		if s, ok := args[key].(string); ok && s != "" {
			return s
		}
	}
	return schema.Name
}

// OutputContent renders the payload of a structured output. Non-json formats
// take the "content" field verbatim when present.
func OutputContent(schema Schema, args map[string]any) (string, error) {
	if schema.OutputFormat() != core.FormatJSON {
		if s, ok := args["content"].(string); ok {
			return s, nil
		}
	}

	// encoding/json sorts map keys, keeping content deterministic.
	b, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode output payload: %w", err)
	}
	return string(b), nil
}

func remarshal(in map[string]any, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
