package telemetry

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// SerializeForLog prepares an arbitrary detail value for transmission.
// Errors become {message, stack}; JSON-safe values pass through untouched;
// anything whose serialization fails degrades to a marker map instead of
// propagating the failure into the logging path.
func SerializeForLog(value any) any {
	if value == nil {
		return nil
	}

	if err, ok := value.(error); ok {
		return map[string]any{
			"message": err.Error(),
			"stack":   fmt.Sprintf("%+v", err),
		}
	}

	if _, err := sonic.Marshal(value); err != nil {
		return map[string]any{
			"type": "object",
			"note": "unserializable",
		}
	}
	return value
}
