package action

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hupe1980/appforge/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entitySchema() Schema {
	return Schema{
		Name:        "define_entity",
		Description: "Define a data entity",
		Kind:        KindOutput,
		OutputType:  core.OutputDesign,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":   map[string]any{"type": "string"},
				"fields": map[string]any{"type": "array"},
			},
			"required": []any{"name", "fields"},
		},
	}
}

func TestSchema_Check(t *testing.T) {
	assert.NoError(t, entitySchema().Check())
	assert.Error(t, Schema{Kind: KindOutput}.Check())
	assert.Error(t, Schema{Name: "x", Kind: "weird"}.Check())
	assert.Error(t, Schema{Name: "x", Kind: KindOutput}.Check(), "output actions need a type")
	assert.NoError(t, DelegateTask().Check())
	assert.NoError(t, SetPhase().Check())
}

func TestSchema_Validate(t *testing.T) {
	s := entitySchema()
	assert.NoError(t, s.Validate(map[string]any{"name": "User", "fields": []any{"id"}}))

	err := s.Validate(map[string]any{"name": "User"})
	require.Error(t, err)
	assert.Equal(t, CodeValidation, ErrorCode(err))

	var aErr *Error
	require.True(t, errors.As(err, &aErr))
	assert.Equal(t, "define_entity", aErr.Action)
	assert.Contains(t, aErr.Error(), "VALIDATION_ERROR")
}

func TestNewSet(t *testing.T) {
	set, err := NewSet(DelegateTask(), entitySchema())
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []string{"delegate_task", "define_entity"}, set.Names())

	s, ok := set.Lookup("define_entity")
	assert.True(t, ok)
	assert.Equal(t, KindOutput, s.Kind)

	_, ok = set.Lookup("missing")
	assert.False(t, ok)

	_, err = NewSet(entitySchema(), entitySchema())
	assert.Error(t, err)

	var nilSet *Set
	assert.Equal(t, 0, nilSet.Len())
	_, ok = nilSet.Lookup("x")
	assert.False(t, ok)
}

func TestParseArguments(t *testing.T) {
	args, repaired, err := ParseArguments("a", `{"name":"User"}`)
	require.NoError(t, err)
	assert.False(t, repaired)
	assert.Equal(t, "User", args["name"])

	args, _, err = ParseArguments("a", "")
	require.NoError(t, err)
	assert.Empty(t, args)

	args, repaired, err = ParseArguments("a", `{"name": "User",}`)
	require.NoError(t, err)
	assert.True(t, repaired)
	assert.Equal(t, "User", args["name"])

	_, _, err = ParseArguments("a", `[1,2]`)
	require.Error(t, err)
	assert.Equal(t, CodeInvalidArguments, ErrorCode(err))
}

func TestDelegateTask_Enum(t *testing.T) {
	s := DelegateTask(core.RoleDataArchitect, core.RoleUXDesigner)
	assert.NoError(t, s.Validate(map[string]any{"agent": "data_architect", "task": "model users"}))

	err := s.Validate(map[string]any{"agent": "qa_engineer", "task": "x"})
	assert.Equal(t, CodeValidation, ErrorCode(err))

	err = s.Validate(map[string]any{"agent": "data_architect"})
	assert.Error(t, err, "task is required")
}

func TestDecodeBuiltins(t *testing.T) {
	d, err := DecodeDelegate(map[string]any{"agent": "ux_designer", "task": "screens", "context": "crm"})
	require.NoError(t, err)
	assert.Equal(t, DelegateArgs{Agent: "ux_designer", Task: "screens", Context: "crm"}, d)

	_, err = DecodeDelegate(map[string]any{"task": "x"})
	assert.Error(t, err)

	p, err := DecodePhase(map[string]any{"phase": "generation"})
	require.NoError(t, err)
	assert.Equal(t, "generation", p.Phase)

	_, err = DecodePhase(map[string]any{})
	assert.Error(t, err)
}

func TestOutputHelpers(t *testing.T) {
	s := entitySchema()
	assert.Equal(t, "User", OutputTitle(s, map[string]any{"name": "User"}))
	assert.Equal(t, "T", OutputTitle(s, map[string]any{"title": "T", "name": "N"}))
	assert.Equal(t, "define_entity", OutputTitle(s, map[string]any{}))

	content, err := OutputContent(s, map[string]any{"b": 1, "a": "x"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1}`, content)

	file := Schema{Name: "write_file", Kind: KindOutput, OutputType: core.OutputCode, Format: core.FormatText}
	content, err = OutputContent(file, map[string]any{"path": "main.go", "content": "package main"})
	require.NoError(t, err)
	assert.Equal(t, "package main", content)
	assert.Equal(t, "main.go", OutputTitle(file, map[string]any{"path": "main.go"}))
}

func TestErrorCode_Fallback(t *testing.T) {
	assert.Equal(t, CodeExecution, ErrorCode(errors.New("plain")))
	wrapped := fmt.Errorf("wrap: %w", NewError("x", "denied", CodeDelegationDenied))
	assert.Equal(t, CodeDelegationDenied, ErrorCode(wrapped))
}
