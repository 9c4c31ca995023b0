package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// RunStore persists run metadata.
type RunStore interface {
	Create(ctx context.Context, run Run) error
	Finish(ctx context.Context, run Run) error
	GetByID(ctx context.Context, id string) (Run, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]Run, error)
}

// FillStore persists executed fills.
type FillStore interface {
	InsertBatch(ctx context.Context, fills []Fill) error
	ListByRun(ctx context.Context, runID string, opts ListOpts) ([]Fill, error)
	CountByRun(ctx context.Context, runID string) (int64, error)
}

// EquityStore persists per-tick equity curve points.
type EquityStore interface {
	InsertBatch(ctx context.Context, points []EquityPoint) error
	ListByRun(ctx context.Context, runID string) ([]EquityPoint, error)
}
