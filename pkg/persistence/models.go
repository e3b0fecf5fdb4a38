package persistence

import "time"

// Run is one pipeline execution.
type Run struct {
	ID          string
	ProjectName string
	Prompt      string
	Status      string
	Error       string
	StartedAt   time.Time
	FinishedAt  *time.Time
}

// Checkpoint is the serialized pipeline state after one transition.
type Checkpoint struct {
	ID        int64
	RunID     string
	Step      int
	Status    string
	StateJSON []byte
	CreatedAt time.Time
}
