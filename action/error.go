package action

import (
	"errors"
	"fmt"
)

// Error codes attached to *Error.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeUnknownAction    = "UNKNOWN_ACTION"
	CodeInvalidArguments = "INVALID_ARGUMENTS"
	CodeDelegationDenied = "DELEGATION_DENIED"
	CodeDelegationCycle  = "DELEGATION_CYCLE"
	CodeExecution        = "EXECUTION_ERROR"
	CodePanic            = "PANIC"
)

// Error represents a failure to parse, validate or execute an action call.
type Error struct {
	Action  string `json:"action"`            // Name of the action that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("action error [%s] in %s: %s", e.Code, e.Action, e.Message)
	}
	return fmt.Sprintf("action error in %s: %s", e.Action, e.Message)
}

// NewError creates a new Error with the specified details.
func NewError(action, message, code string) *Error {
	return &Error{
		Action:  action,
		Message: message,
		Code:    code,
	}
}

// ErrorCode extracts the code of an *Error anywhere in err's chain.
// Errors of other types report CodeExecution.
func ErrorCode(err error) string {
	var aErr *Error
	if errors.As(err, &aErr) {
		return aErr.Code
	}
	return CodeExecution
}
