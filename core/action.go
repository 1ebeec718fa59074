package core

// ActionCall is a single structured request emitted by a model completion.
// Arguments holds the raw JSON payload exactly as produced by the model; it
// is parsed and validated by the dispatcher against the issuing role's
// allowed schema set.
type ActionCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// ActionResult is the outcome of one ActionCall handed back to the model.
// Every dispatched call receives exactly one result, error-flagged on failure.
type ActionResult struct {
	CallID  string `json:"callId"`
	Name    string `json:"name"`
	Content any    `json:"content,omitempty"`
	IsError bool   `json:"isError,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewActionResult builds a successful result for call.
func NewActionResult(call ActionCall, content any) ActionResult {
	return ActionResult{CallID: call.ID, Name: call.Name, Content: content}
}

// NewActionErrorResult builds an error-flagged result for call.
func NewActionErrorResult(call ActionCall, err error) ActionResult {
	return ActionResult{
		CallID:  call.ID,
		Name:    call.Name,
		IsError: true,
		Error:   err.Error(),
		Content: map[string]any{"success": false, "error": err.Error()},
	}
}
