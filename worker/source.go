package worker

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LinePuller is the subset of the scheduler connection a line source needs:
// a blocking pull that reports exhaustion. *scheduler.Conn satisfies it.
type LinePuller interface {
	Next() (string, bool)
}

// NewLineSource adapts a line-oriented puller into a work Source. Each data
// line becomes one Item: the line terminator is stripped from the payload
// and an item ID is assigned on receipt.
//
// The underlying read ignores context cancellation; the protocol has no
// cancellation primitive, a paused worker simply waits for its next line.
func NewLineSource(p LinePuller) Source {
	return &lineSource{p: p}
}

type lineSource struct {
	p LinePuller
}

func (s *lineSource) Next(_ context.Context) (Item, bool) {
	line, ok := s.p.Next()
	if !ok {
		return Item{}, false
	}
	return Item{
		ID:         uuid.New(),
		Payload:    strings.TrimRight(line, "\r\n"),
		ReceivedAt: time.Now(),
	}, true
}
