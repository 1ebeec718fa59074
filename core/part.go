package core

// Transcript roles.
const (
	ContentRoleUser      = "user"
	ContentRoleAssistant = "assistant"
)

// Part represents a polymorphic segment of transcript content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain narrative segment.
type TextPart struct {
	Text string
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// ActionCallPart wraps an ActionCall emitted by the model.
type ActionCallPart struct {
	Call ActionCall
}

// isPart implements the Part interface for ActionCallPart.
func (ActionCallPart) isPart() {}

// ActionResultPart wraps the result returned for a previous ActionCall.
type ActionResultPart struct {
	Result ActionResult
}

// isPart implements the Part interface for ActionResultPart.
func (ActionResultPart) isPart() {}

// Content holds a transcript role plus ordered parts.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// NewUserText creates a user turn with a single text part.
func NewUserText(text string) Content {
	return Content{Role: ContentRoleUser, Parts: []Part{TextPart{Text: text}}}
}

// Text concatenates all text parts.
func (c Content) Text() string {
	var s string
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok {
			s += tp.Text
		}
	}
	return s
}

// TextBlocks returns the non-empty text parts in order.
func (c Content) TextBlocks() []string {
	var blocks []string
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok && tp.Text != "" {
			blocks = append(blocks, tp.Text)
		}
	}
	return blocks
}

// ActionCalls returns the action call parts preserving their order.
func (c Content) ActionCalls() []ActionCall {
	var calls []ActionCall
	for _, p := range c.Parts {
		if cp, ok := p.(ActionCallPart); ok {
			calls = append(calls, cp.Call)
		}
	}
	return calls
}

// ActionResults returns the action result parts preserving their order.
func (c Content) ActionResults() []ActionResult {
	var results []ActionResult
	for _, p := range c.Parts {
		if rp, ok := p.(ActionResultPart); ok {
			results = append(results, rp.Result)
		}
	}
	return results
}
