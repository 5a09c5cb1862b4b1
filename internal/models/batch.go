package models

import (
	"encoding/json"
	"time"
)

// BatchStatus represents the lifecycle of a batch allocation run.
type BatchStatus string

const (
	BatchStatusRunning   BatchStatus = "RUNNING"
	BatchStatusCompleted BatchStatus = "COMPLETED"
	BatchStatusFailed    BatchStatus = "FAILED"
)

// BatchRun is the append-only audit record of a bulk allocation pass.
// A run that crashes mid-flight stays RUNNING; the consistency auditor
// reports stale running batches instead of silently re-running them.
type BatchRun struct {
	ID         string          `db:"id" json:"id"`
	Label      string          `db:"label" json:"label"`
	Status     BatchStatus     `db:"status" json:"status"`
	InvokedBy  string          `db:"invoked_by" json:"invoked_by"`
	StartedAt  time.Time       `db:"started_at" json:"started_at"`
	FinishedAt *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
	Total      int             `db:"total" json:"total"`
	Allocated  int             `db:"allocated" json:"allocated"`
	Waitlisted int             `db:"waitlisted" json:"waitlisted"`
	Errored    int             `db:"errored" json:"errored"`
	Errors     json.RawMessage `db:"errors" json:"errors,omitempty"`
}

// BatchReport is the caller-facing summary of a completed run.
type BatchReport struct {
	BatchID    string   `json:"batch_id"`
	Label      string   `json:"label"`
	Total      int      `json:"total"`
	Allocated  int      `json:"allocated"`
	Waitlisted int      `json:"waitlisted"`
	Errored    int      `json:"errored"`
	Errors     []string `json:"errors,omitempty"`
}
