package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskgrid/sdk/worker"
)

// Source adapts a Redis work queue to the worker package's pull interface.
// Popping blocks like a scheduler withholding its next line, so the same
// worker loop drives both modes.
type Source struct {
	client Client
	queue  string
	log    *slog.Logger
}

// NewSource creates a Source that drains the named queue.
func NewSource(client Client, queueName string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{client: client, queue: queueName, log: logger}
}

// Next blocks until a work item is available. It reports exhaustion when the
// context is cancelled or the queue becomes unreachable; transient unmarshal
// failures of individual items are skipped.
func (s *Source) Next(ctx context.Context) (worker.Item, bool) {
	for {
		qi, err := s.client.Pop(ctx, s.queue)
		if err != nil {
			if ctx.Err() == nil {
				s.log.Error("queue pop failed", "queue", s.queue, "error", err)
			}
			return worker.Item{}, false
		}
		if qi == nil {
			return worker.Item{}, false
		}
		if err := qi.Validate(); err != nil {
			s.log.Warn("dropping invalid work item", "queue", s.queue, "error", err)
			continue
		}

		id, err := uuid.Parse(qi.ID)
		if err != nil {
			// Preserve the item even when its submitter used a
			// non-UUID ID scheme.
			id = uuid.New()
		}

		return worker.Item{
			ID:         id,
			Payload:    qi.Payload,
			ReceivedAt: time.Now(),
		}, true
	}
}
