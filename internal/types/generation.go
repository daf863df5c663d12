package types

// Generation status values shared by every generatable entity and the
// triggering suggestion. Transitions: pending -> running -> completed|failed,
// and failed -> running when a retry re-enters the workflow.
const (
	GenerationPending   = "pending"
	GenerationRunning   = "running"
	GenerationCompleted = "completed"
	GenerationFailed    = "failed"
)
