package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/ticksim/internal/domain"
)

// RunStore implements domain.RunStore using PostgreSQL.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a new RunStore backed by the given connection pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

const runSelectCols = `id, strategy, data_path, products, ticks,
	start_cash, final_cash, final_pnl, status, started_at, finished_at`

func scanRun(row pgx.Row) (domain.Run, error) {
	var (
		r      domain.Run
		status string
	)
	err := row.Scan(
		&r.ID, &r.Strategy, &r.DataPath, &r.Products, &r.Ticks,
		&r.StartCash, &r.FinalCash, &r.FinalPnL, &status,
		&r.StartedAt, &r.FinishedAt,
	)
	if err != nil {
		return domain.Run{}, err
	}
	r.Status = domain.RunStatus(status)
	return r, nil
}

// Create inserts a freshly started run.
func (s *RunStore) Create(ctx context.Context, run domain.Run) error {
	const query = `
		INSERT INTO runs (id, strategy, data_path, products, ticks,
			start_cash, final_cash, final_pnl, status, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := s.pool.Exec(ctx, query,
		run.ID, run.Strategy, run.DataPath, run.Products, run.Ticks,
		run.StartCash, run.FinalCash, run.FinalPnL, string(run.Status),
		run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create run: %w", err)
	}
	return nil
}

// Finish updates a run's terminal state.
func (s *RunStore) Finish(ctx context.Context, run domain.Run) error {
	const query = `
		UPDATE runs
		SET ticks = $2, final_cash = $3, final_pnl = $4, status = $5, finished_at = $6
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query,
		run.ID, run.Ticks, run.FinalCash, run.FinalPnL, string(run.Status), run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: finish run %s: %w", run.ID, domain.ErrNotFound)
	}
	return nil
}

// GetByID returns the run with the given id.
func (s *RunStore) GetByID(ctx context.Context, id string) (domain.Run, error) {
	query := `SELECT ` + runSelectCols + ` FROM runs WHERE id = $1`
	run, err := scanRun(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Run{}, fmt.Errorf("postgres: run %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Run{}, fmt.Errorf("postgres: get run: %w", err)
	}
	return run, nil
}

// ListRecent returns runs ordered by start time, newest first.
func (s *RunStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.Run, error) {
	query := `SELECT ` + runSelectCols + ` FROM runs ORDER BY started_at DESC`
	args := []any{}
	argIdx := 1

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list runs: %w", err)
	}
	return runs, nil
}
