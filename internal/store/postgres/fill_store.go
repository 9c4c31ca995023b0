package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/ticksim/internal/domain"
)

// FillStore implements domain.FillStore using PostgreSQL.
type FillStore struct {
	pool *pgxpool.Pool
}

// NewFillStore creates a new FillStore backed by the given connection pool.
func NewFillStore(pool *pgxpool.Pool) *FillStore {
	return &FillStore{pool: pool}
}

// InsertBatch inserts multiple fills efficiently using pgx Batch.
func (s *FillStore) InsertBatch(ctx context.Context, fills []domain.Fill) error {
	if len(fills) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO fills (run_id, tick, product, side, price, quantity,
			liquidity, cash_delta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for _, f := range fills {
		batch.Queue(query,
			f.RunID, f.Tick, f.Product, f.Side.String(), f.Price, f.Quantity,
			string(f.Liquidity), f.CashDelta, f.CreatedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range fills {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert fill batch item %d: %w", i, err)
		}
	}
	return nil
}

// ListByRun returns a run's fills in execution order with pagination.
func (s *FillStore) ListByRun(ctx context.Context, runID string, opts domain.ListOpts) ([]domain.Fill, error) {
	query := `
		SELECT id, run_id, tick, product, side, price, quantity,
			liquidity, cash_delta, created_at
		FROM fills WHERE run_id = $1 ORDER BY tick ASC, id ASC`
	args := []any{runID}
	argIdx := 2

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
		return nil, fmt.Errorf("postgres: list fills: %w", err)
	}
	defer rows.Close()

	var fills []domain.Fill
	for rows.Next() {
		var (
			f         domain.Fill
			side      string
			liquidity string
		)
		if err := rows.Scan(
			&f.ID, &f.RunID, &f.Tick, &f.Product, &side, &f.Price,
			&f.Quantity, &liquidity, &f.CashDelta, &f.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan fill: %w", err)
		}
		if s, ok := domain.SideFromString(side); ok {
			f.Side = s
		}
		f.Liquidity = domain.FillLiquidity(liquidity)
		fills = append(fills, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list fills: %w", err)
	}
	return fills, nil
}

// CountByRun returns how many fills a run produced.
func (s *FillStore) CountByRun(ctx context.Context, runID string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM fills WHERE run_id = $1", runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count fills: %w", err)
	}
	return count, nil
}
