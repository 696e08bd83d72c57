package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields propagated through the call chain.
const (
	// FieldRequestID is the HTTP request ID (UUID).
	FieldRequestID = "request_id"

	// FieldSessionID is the analysis session ID.
	FieldSessionID = "session_id"

	// FieldComponent is the component/module name.
	FieldComponent = "component"

	// FieldPhase is the pipeline phase number.
	FieldPhase = "phase"

	// FieldModel is the language model identifier.
	FieldModel = "model"

	// FieldEngine is the OCR engine name.
	FieldEngine = "engine"
)

// Standard metric fields used for aggregation and alerting.
const (
	// FieldDurationMs is the execution duration in milliseconds.
	FieldDurationMs = "duration_ms"

	// FieldStatus is the operation status.
	FieldStatus = "status"

	// FieldSize is the data size in bytes.
	FieldSize = "size"
)
