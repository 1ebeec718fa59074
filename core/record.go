package core

import "time"

// ActivityKind categorizes an entry of the session activity log.
type ActivityKind string

const (
	ActivityMessage          ActivityKind = "message"
	ActivityActionCall       ActivityKind = "action-call"
	ActivityHandoff          ActivityKind = "handoff"
	ActivityStructuredOutput ActivityKind = "structured-output"
)

// Activity is an immutable entry of the append-only activity log. Ordering of
// the log reflects causal emission order.
type Activity struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Timestamp time.Time      `json:"timestamp"`
	Kind      ActivityKind   `json:"kind"`
	Payload   any            `json:"payload,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// OutputType tags the artifact category a role produced.
type OutputType string

const (
	OutputRequirement OutputType = "requirement"
	OutputDesign      OutputType = "design"
	OutputCode        OutputType = "code"
	OutputTest        OutputType = "test"
	OutputEvaluation  OutputType = "evaluation"
	OutputPlan        OutputType = "plan"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// Output is a durable artifact a role produced through a structured action.
// It is distinct from narrative text.
type Output struct {
	ID      string     `json:"id"`
	Role    Role       `json:"role"`
	Type    OutputType `json:"type"`
	Title   string     `json:"title"`
	Content string     `json:"content"`
	Format  string     `json:"format"`
}
