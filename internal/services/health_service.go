package services

import (
	"context"
	"time"

	"eduaudit/pkg/contracts"
	"eduaudit/pkg/contracts/domain"
)

// HubStats exposes websocket counters.
type HubStats interface {
	Stats() map[string]interface{}
}

// RunLookup returns the latest run.
type RunLookup interface {
	Current() (domain.RunSnapshot, bool)
}

// HealthService reports whether the server is up and what it is doing.
type HealthService struct {
	hub       HubStats
	runs      RunLookup
	gate      interface{ Enabled() bool }
	startTime time.Time
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Version   contracts.VersionInfo  `json:"version"`
	Services  map[string]interface{} `json:"services"`
}

// NewHealthService creates a health service. Any dependency may be nil.
func NewHealthService(hub HubStats, runs RunLookup, gate interface{ Enabled() bool }) *HealthService {
	return &HealthService{hub: hub, runs: runs, gate: gate, startTime: time.Now()}
}

// HealthCheck returns the current status.
func (s *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	services := map[string]interface{}{}
	if s.hub != nil {
		services["websocket"] = s.hub.Stats()
	}
	if s.runs != nil {
		if run, ok := s.runs.Current(); ok {
			services["run"] = map[string]interface{}{
				"run_id":   run.RunID,
				"kind":     run.Kind,
				"status":   run.Status,
				"progress": run.Progress,
			}
		}
	}
	if s.gate != nil {
		services["feature_gate"] = map[string]bool{"enabled": s.gate.Enabled()}
	}
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Version:   contracts.GetVersionInfo(),
		Services:  services,
	}
}
