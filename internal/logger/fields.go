package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, carried on the context logger through a call chain.
const (
	FieldRequestID      = "request_id"
	FieldBatchID        = "batch_id"
	FieldProjectID      = "project_id"
	FieldStructureGroup = "structure_group"
	FieldSectionIndex   = "section_index"
	FieldComponent      = "component"
	FieldModel          = "model"
	FieldCommandID      = "command_id"
)

// Metric fields, attached per entry for aggregation.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldCost       = "cost"
	FieldAttempt    = "attempt"
	FieldStatus     = "status"
	FieldSize       = "size"
)
