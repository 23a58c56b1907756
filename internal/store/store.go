// Package store persists exposure runs and their result tables.
package store

import (
	"context"

	"github.com/sells-group/exposure-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Kind   model.RunKind   `json:"kind,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
}

// Store defines the persistence interface for exposure runs.
type Store interface {
	CreateRun(ctx context.Context, kind model.RunKind, params model.RunParams) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, rows []model.ExposureRow, errs []model.UnitError) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	ListResults(ctx context.Context, runID string) ([]model.ExposureRow, error)

	Migrate(ctx context.Context) error
	Close() error
}

// StatusFor maps a run outcome onto a stored status: complete when clean,
// partial when some units failed, failed when nothing succeeded.
func StatusFor(rows, errs int) model.RunStatus {
	switch {
	case errs == 0:
		return model.RunStatusComplete
	case rows == 0:
		return model.RunStatusFailed
	default:
		return model.RunStatusPartial
	}
}
