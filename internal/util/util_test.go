package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleSchema struct {
	A string `json:"a" description:"Field A"`
	B *int   `json:"b" description:"Optional pointer field"`
	C int    `json:"c,omitempty" enum:"1,2"`
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(sampleSchema{})
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")
	assert.Contains(t, props, "c")
	assert.Equal(t, []string{"a"}, schema["required"])

	c := props["c"].(map[string]any)
	assert.Equal(t, []any{"1", "2"}, c["enum"])
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x":    map[string]any{"type": "integer"},
			"kind": map[string]any{"type": "string", "enum": []any{"a", "b"}},
			"tags": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []any{"x"},
	}

	assert.NoError(t, ValidateParameters(map[string]any{"x": float64(5), "kind": "a", "tags": []any{"t"}}, schema))

	err := ValidateParameters(map[string]any{}, schema)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "x", vErr.Field)

	err = ValidateParameters(map[string]any{"x": "not-int"}, schema)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "expected type integer")

	err = ValidateParameters(map[string]any{"x": 1, "kind": "c"}, schema)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "kind", vErr.Field)

	err = ValidateParameters(map[string]any{"x": 1, "tags": []any{"ok", 3.0}}, schema)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "tags[1]", vErr.Field)
}

func TestValidateParameters_RequiredAsStrings(t *testing.T) {
	schema := CreateSchema(sampleSchema{})
	err := ValidateParameters(map[string]any{"b": 1}, schema)
	assert.Error(t, err)
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("plain", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain", out)

	out, err = RenderTemplate("Task: {{.task}} Ctx: {{.context}}", map[string]any{"task": "build"})
	require.NoError(t, err)
	assert.Equal(t, "Task: build Ctx: ", out)

	out, err = RenderTemplate(`{{default "none" .x}}`, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "none", out)

	_, err = RenderTemplate("{{.broken", nil)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "äö", Truncate("äöü", 2))
	assert.Equal(t, "abc", Truncate("abc", 0))
}
