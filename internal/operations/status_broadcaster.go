package operations

import (
	"log/slog"
	"sync"
	"time"

	"eduaudit/pkg/contracts/domain"
	"eduaudit/pkg/contracts/events"
)

// SnapshotEvent is the websocket event type carrying run snapshots.
const SnapshotEvent = string(events.MessageTypeRunSnapshot)

// StatusBroadcaster is the single authority for run state. Updates are
// applied one at a time and every change is broadcast as a full snapshot.
type StatusBroadcaster struct {
	mu       sync.RWMutex
	runs     map[string]*domain.RunSnapshot
	latest   string
	hub      WebSocketHub
	logger   *slog.Logger
	updates  chan updateRequest
	stop     chan struct{}
	stopOnce sync.Once
}

type updateRequest struct {
	runID      string
	updateFunc func(*domain.RunSnapshot)
	done       chan struct{}
}

// NewStatusBroadcaster creates a broadcaster. hub may be nil when nobody
// listens, as in the command line tool.
func NewStatusBroadcaster(hub WebSocketHub, logger *slog.Logger) *StatusBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}

	sb := &StatusBroadcaster{
		runs:    make(map[string]*domain.RunSnapshot),
		hub:     hub,
		logger:  logger.With("component", "status_broadcaster"),
		updates: make(chan updateRequest, 100),
		stop:    make(chan struct{}),
	}
	go sb.processUpdates()
	return sb
}

func (sb *StatusBroadcaster) processUpdates() {
	for {
		select {
		case <-sb.stop:
			return
		case req := <-sb.updates:
			sb.handleUpdate(req)
		}
	}
}

func (sb *StatusBroadcaster) handleUpdate(req updateRequest) {
	defer close(req.done)

	sb.mu.Lock()
	snapshot, exists := sb.runs[req.runID]
	if !exists {
		now := time.Now()
		snapshot = &domain.RunSnapshot{
			RunID:     req.runID,
			Status:    domain.RunStatusPending,
			StartedAt: now,
		}
		sb.runs[req.runID] = snapshot
		sb.latest = req.runID
	}

	req.updateFunc(snapshot)
	snapshot.UpdatedAt = time.Now()
	if snapshot.IsTerminal() && snapshot.CompletedAt == nil {
		completed := snapshot.UpdatedAt
		snapshot.CompletedAt = &completed
	}
	copied := copySnapshot(snapshot)
	sb.mu.Unlock()

	sb.broadcast(copied)
}

func (sb *StatusBroadcaster) broadcast(snapshot domain.RunSnapshot) {
	if sb.hub == nil {
		return
	}
	sb.logger.Debug("broadcasting run snapshot",
		slog.String("run_id", snapshot.RunID),
		slog.String("status", string(snapshot.Status)),
		slog.Int("progress", snapshot.Progress))
	sb.hub.BroadcastUpdate(SnapshotEvent, snapshot.RunID, string(snapshot.Status), snapshot)
}

// UpdateStatus applies updateFunc to the run and waits until the change is
// broadcast.
func (sb *StatusBroadcaster) UpdateStatus(runID string, updateFunc func(*domain.RunSnapshot)) {
	req := updateRequest{
		runID:      runID,
		updateFunc: updateFunc,
		done:       make(chan struct{}),
	}

	select {
	case sb.updates <- req:
	case <-sb.stop:
		return
	}
	select {
	case <-req.done:
	case <-sb.stop:
	}
}

// CreateRun registers a pending run.
func (sb *StatusBroadcaster) CreateRun(runID string, kind domain.RunKind) {
	sb.UpdateStatus(runID, func(s *domain.RunSnapshot) {
		s.Kind = kind
		s.Status = domain.RunStatusPending
	})
}

// StartRun marks a run as running.
func (sb *StatusBroadcaster) StartRun(runID string) {
	sb.UpdateStatus(runID, func(s *domain.RunSnapshot) {
		s.Status = domain.RunStatusRunning
	})
}

// SetProgress raises the run progress. Lower values are ignored.
func (sb *StatusBroadcaster) SetProgress(runID string, percent int) {
	sb.UpdateStatus(runID, func(s *domain.RunSnapshot) {
		percent = min(max(percent, 0), 100)
		if percent > s.Progress {
			s.Progress = percent
		}
	})
}

// SetMessage replaces the status text.
func (sb *StatusBroadcaster) SetMessage(runID, message string) {
	sb.UpdateStatus(runID, func(s *domain.RunSnapshot) {
		s.Message = message
	})
}

// CompleteRun marks a run as completed with its result.
func (sb *StatusBroadcaster) CompleteRun(runID string, result *domain.Result) {
	sb.UpdateStatus(runID, func(s *domain.RunSnapshot) {
		s.Status = domain.RunStatusCompleted
		s.Progress = 100
		if result != nil {
			s.Message = result.Message
			s.Outputs = append([]string(nil), result.Files...)
		}
	})
}

// FailRun marks a run as failed. message is the text shown to the user.
func (sb *StatusBroadcaster) FailRun(runID string, err error, message string) {
	sb.UpdateStatus(runID, func(s *domain.RunSnapshot) {
		s.Status = domain.RunStatusFailed
		s.Error = err.Error()
		s.Message = message
	})
}

// GetSnapshot returns a copy of the run state.
func (sb *StatusBroadcaster) GetSnapshot(runID string) (domain.RunSnapshot, bool) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	snapshot, exists := sb.runs[runID]
	if !exists {
		return domain.RunSnapshot{}, false
	}
	return copySnapshot(snapshot), true
}

// Latest returns the most recently created run.
func (sb *StatusBroadcaster) Latest() (domain.RunSnapshot, bool) {
	sb.mu.RLock()
	id := sb.latest
	sb.mu.RUnlock()
	if id == "" {
		return domain.RunSnapshot{}, false
	}
	return sb.GetSnapshot(id)
}

// CleanupOldRuns removes finished runs older than maxAge.
func (sb *StatusBroadcaster) CleanupOldRuns(maxAge time.Duration) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	now := time.Now()
	for id, snapshot := range sb.runs {
		if id == sb.latest || !snapshot.IsTerminal() || snapshot.CompletedAt == nil {
			continue
		}
		if now.Sub(*snapshot.CompletedAt) > maxAge {
			delete(sb.runs, id)
			sb.logger.Info("cleaned up old run",
				slog.String("run_id", id),
				slog.String("status", string(snapshot.Status)))
		}
	}
}

// Stop shuts the update loop down. Later updates are dropped.
func (sb *StatusBroadcaster) Stop() {
	sb.stopOnce.Do(func() { close(sb.stop) })
}

func copySnapshot(s *domain.RunSnapshot) domain.RunSnapshot {
	c := *s
	c.Outputs = append([]string(nil), s.Outputs...)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return c
}
