package app

import (
	"context"
	"fmt"
	"time"

	"qmllink/internal/shared/util"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	// Workspace
	if gen := s.app.workspace.Generation(); gen == 0 {
		status.Status = "degraded"
		status.Components["workspace"] = "not loaded"
	} else {
		status.Components["workspace"] = fmt.Sprintf("ok (%d documents, generation %d)", s.app.workspace.Snapshot().Len(), gen)
	}

	// Engine
	if s.app.engine != nil {
		status.Components["engine"] = fmt.Sprintf("ok (%d packages)", len(s.app.engine.PackageNames()))
	} else {
		status.Status = "degraded"
		status.Components["engine"] = "missing"
	}

	// History
	if s.app.history != nil {
		if s.app.recorder != nil {
			s.app.recorder.Flush()
		}
		if n, err := s.app.history.Count(s.app.projectKey()); err != nil {
			status.Status = "degraded"
			status.Components["history"] = "error: " + err.Error()
		} else {
			status.Components["history"] = fmt.Sprintf("ok (%d searches)", n)
		}
	} else if s.app.Config.History.Enabled {
		status.Status = "degraded"
		status.Components["history"] = "missing but enabled in config"
	} else {
		status.Components["history"] = "disabled"
	}

	status.Components["heap"] = fmt.Sprintf("%d MB", util.HeapAllocMB())
	if ctx.Err() != nil {
		status.Status = "degraded"
	}
	return status
}
