package operations

import (
	"context"

	"eduaudit/pkg/contracts/domain"
)

// WebSocketHub interface for sending WebSocket messages
type WebSocketHub interface {
	BroadcastUpdate(eventType, step, status string, metadata interface{})
}

// ProgressSink receives the percentage and status text of a running task.
type ProgressSink interface {
	Progress(percent int)
	Status(message string)
}

// Task is the body of a run. It reports through sink and returns the
// completion message and the files it wrote.
type Task func(ctx context.Context, sink ProgressSink) (*domain.Result, error)

// SinkFunc adapts a pair of functions to ProgressSink.
type SinkFunc struct {
	OnProgress func(int)
	OnStatus   func(string)
}

// Progress implements ProgressSink.
func (s SinkFunc) Progress(percent int) {
	if s.OnProgress != nil {
		s.OnProgress(percent)
	}
}

// Status implements ProgressSink.
func (s SinkFunc) Status(message string) {
	if s.OnStatus != nil {
		s.OnStatus(message)
	}
}
