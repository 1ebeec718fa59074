package action

import (
	"fmt"
	"maps"

	"github.com/hupe1980/appforge/core"
	"github.com/hupe1980/appforge/internal/util"
)

// Kind selects how the dispatcher handles an action.
type Kind string

const (
	KindDelegate Kind = "delegate"
	KindPhase    Kind = "phase"
	KindOutput   Kind = "output"
)

// Valid reports whether k is a known action kind.
func (k Kind) Valid() bool {
	switch k {
	case KindDelegate, KindPhase, KindOutput:
		return true
	}
	return false
}

// Schema declares one structured action a role may call.
type Schema struct {
	// Name is the identifier the model uses to call the action (snake_case).
	Name string `yaml:"name" json:"name"`
	// Description is shown to the model.
	Description string `yaml:"description" json:"description"`
	// Kind selects the dispatch behaviour.
	Kind Kind `yaml:"kind" json:"kind"`
	// OutputType tags the Output recorded by output actions.
	OutputType core.OutputType `yaml:"output_type,omitempty" json:"output_type,omitempty"`
	// Format is the content format of the recorded Output (defaults to json).
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
	// Parameters is a minimal JSON schema describing the accepted arguments.
	Parameters map[string]any `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// Check verifies that the schema declaration itself is usable.
func (s Schema) Check() error {
	if s.Name == "" {
		return fmt.Errorf("action schema without name")
	}
	if !s.Kind.Valid() {
		return fmt.Errorf("action %q: unknown kind %q", s.Name, s.Kind)
	}
	if s.Kind == KindOutput && s.OutputType == "" {
		return fmt.Errorf("action %q: output actions require an output_type", s.Name)
	}
	return nil
}

// OutputFormat returns the declared format, falling back to json.
func (s Schema) OutputFormat() string {
	if s.Format == "" {
		return core.FormatJSON
	}
	return s.Format
}

// JSONSchema returns the parameter schema, substituting an empty object
// schema when none was declared.
func (s Schema) JSONSchema() map[string]any {
	if len(s.Parameters) == 0 {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return maps.Clone(s.Parameters)
}

// Validate checks args against the parameter schema. Failures are returned
// as *Error with CodeValidation.
func (s Schema) Validate(args map[string]any) error {
	if err := util.ValidateParameters(args, s.JSONSchema()); err != nil {
		return &Error{
			Action:  s.Name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
		}
	}
	return nil
}

// Set is the ordered, name-indexed collection of schemas available to a role.
// A Set is immutable after construction and safe for concurrent use.
type Set struct {
	ordered []Schema
	byName  map[string]Schema
}

// NewSet builds a Set. Schemas failing Check and duplicate names are rejected.
func NewSet(schemas ...Schema) (*Set, error) {
	set := &Set{
		ordered: make([]Schema, 0, len(schemas)),
		byName:  make(map[string]Schema, len(schemas)),
	}

	for _, s := range schemas {
		if err := s.Check(); err != nil {
			return nil, err
		}
		if _, dup := set.byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate action %q", s.Name)
		}
		set.ordered = append(set.ordered, s)
		set.byName[s.Name] = s
	}

	return set, nil
}

// Lookup returns the schema registered under name.
func (s *Set) Lookup(name string) (Schema, bool) {
	if s == nil {
		return Schema{}, false
	}
	schema, ok := s.byName[name]
	return schema, ok
}

// Schemas returns the schemas in declaration order.
func (s *Set) Schemas() []Schema {
	if s == nil {
		return nil
	}
	res := make([]Schema, len(s.ordered))
	copy(res, s.ordered)
	return res
}

// Names returns the action names in declaration order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.ordered))
	for i, schema := range s.ordered {
		names[i] = schema.Name
	}
	return names
}

// Len returns the number of schemas.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ordered)
}
