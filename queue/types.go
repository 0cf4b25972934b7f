package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WorkItem represents a single unit of work submitted to a worker's queue.
// The payload is the same opaque data line a scheduler would send over the
// worker's standard input.
type WorkItem struct {
	// ID uniquely identifies this item.
	ID string `json:"id"`

	// JobID correlates all items submitted as one batch.
	JobID string `json:"job_id"`

	// Index is the position of this item in the batch (0-based).
	Index int `json:"index"`

	// Total is the total number of items in the batch.
	Total int `json:"total"`

	// Payload is the data line for the worker to interpret.
	Payload string `json:"payload"`

	// SubmittedAt is the Unix timestamp in milliseconds when the item was
	// queued.
	SubmittedAt int64 `json:"submitted_at"`
}

// NewWorkItem builds a WorkItem with a fresh ID and submission timestamp.
func NewWorkItem(jobID string, index, total int, payload string) WorkItem {
	return WorkItem{
		ID:          uuid.New().String(),
		JobID:       jobID,
		Index:       index,
		Total:       total,
		Payload:     payload,
		SubmittedAt: time.Now().UnixMilli(),
	}
}

// Validate checks that the item is well-formed enough to execute.
func (w WorkItem) Validate() error {
	if w.ID == "" {
		return fmt.Errorf("work item ID is required")
	}
	if w.Payload == "" {
		return fmt.Errorf("work item payload is required")
	}
	return nil
}

// Result statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Result represents the outcome of executing a WorkItem. It is published to
// a job-specific pub/sub channel for the submitter to collect.
type Result struct {
	// ID is the work item this result answers.
	ID string `json:"id"`

	// JobID correlates the result with its batch.
	JobID string `json:"job_id"`

	// Index mirrors the work item's batch position.
	Index int `json:"index"`

	// WorkerRunID identifies the worker run that executed the item.
	WorkerRunID string `json:"worker_run_id"`

	// Status is StatusCompleted or StatusFailed.
	Status string `json:"status"`

	// Output carries worker-specific result data.
	Output string `json:"output,omitempty"`

	// Error is the failure message when Status is StatusFailed.
	Error string `json:"error,omitempty"`

	// CompletedAt is the Unix timestamp in milliseconds when execution
	// finished.
	CompletedAt int64 `json:"completed_at"`

	// DurationMS is how long execution took.
	DurationMS int64 `json:"duration_ms"`
}

// QueueName returns the canonical queue key for a worker name.
func QueueName(worker string) string {
	return fmt.Sprintf("worker:%s:queue", worker)
}

// ResultChannel returns the canonical pub/sub channel for a job's results.
func ResultChannel(jobID string) string {
	return fmt.Sprintf("job:%s:results", jobID)
}
