package logger

import "time"

// Standard field keys.
const (
	FieldComponent = "component"
	FieldContract  = "contract"
	FieldOperation = "operation"
	FieldStage     = "stage"
	FieldMethod    = "method"
	FieldURL       = "url"
	FieldStatus    = "status"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
	FieldRequestID = "request_id"
	FieldCacheKey  = "cache_key"
	FieldCacheHit  = "cache_hit"
	FieldHandleKey = "handle_key"
	FieldAttempt   = "attempt"
)

// Fields builds a field map from alternating key-value pairs.
//
//	log.Info("done", logger.Fields("op", "save", "id", 42))
func Fields(kvs ...any) map[string]any {
	m := make(map[string]any, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// CallFields creates fields identifying a single operation call.
func CallFields(contract, operation string) map[string]any {
	return map[string]any{FieldContract: contract, FieldOperation: operation}
}

// WithDuration adds a duration field to fields, allocating when nil.
func WithDuration(fields map[string]any, d time.Duration) map[string]any {
	if fields == nil {
		fields = make(map[string]any)
	}
	fields[FieldDuration] = d.Milliseconds()
	return fields
}
