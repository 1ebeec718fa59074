package action

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseArguments decodes the raw JSON argument payload of an action call.
//
// An empty payload decodes to an empty map. Payloads that are not valid JSON
// are passed through jsonrepair once (models regularly emit trailing commas,
// single quotes or truncated objects); the second return value reports
// whether a repair was necessary. Anything that still does not decode to a
// JSON object yields an *Error with CodeInvalidArguments.
func ParseArguments(name, raw string) (map[string]any, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, false, nil
	}

	args, err := decodeObject(raw)
	if err == nil {
		return args, false, nil
	}

	fixed, repairErr := jsonrepair.JSONRepair(raw)
	if repairErr != nil {
		return nil, false, &Error{
			Action:  name,
			Message: fmt.Sprintf("malformed arguments: %v", err),
			Code:    CodeInvalidArguments,
		}
	}

	args, err = decodeObject(fixed)
	if err != nil {
		return nil, false, &Error{
			Action:  name,
			Message: fmt.Sprintf("malformed arguments: %v", err),
			Code:    CodeInvalidArguments,
		}
	}

	return args, true, nil
}

func decodeObject(raw string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %T", v)
	}

	return obj, nil
}
