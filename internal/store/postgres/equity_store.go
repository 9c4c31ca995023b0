package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/ticksim/internal/domain"
)

// EquityStore implements domain.EquityStore using PostgreSQL.
type EquityStore struct {
	pool *pgxpool.Pool
}

// NewEquityStore creates a new EquityStore backed by the given connection
// pool.
func NewEquityStore(pool *pgxpool.Pool) *EquityStore {
	return &EquityStore{pool: pool}
}

// InsertBatch inserts equity curve points using pgx Batch. Re-inserting the
// same (run, tick) overwrites the previous mark.
func (s *EquityStore) InsertBatch(ctx context.Context, points []domain.EquityPoint) error {
	if len(points) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO equity_points (run_id, tick, cash, pnl, positions)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id, tick) DO UPDATE
		SET cash = EXCLUDED.cash, pnl = EXCLUDED.pnl, positions = EXCLUDED.positions`
	for _, p := range points {
		batch.Queue(query, p.RunID, p.Tick, p.Cash, p.PnL, p.Positions)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range points {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert equity batch item %d: %w", i, err)
		}
	}
	return nil
}

// ListByRun returns a run's full equity curve in tick order.
func (s *EquityStore) ListByRun(ctx context.Context, runID string) ([]domain.EquityPoint, error) {
	const query = `
		SELECT run_id, tick, cash, pnl, positions
		FROM equity_points WHERE run_id = $1 ORDER BY tick ASC`
	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list equity points: %w", err)
	}
	defer rows.Close()

	var points []domain.EquityPoint
	for rows.Next() {
		var p domain.EquityPoint
		if err := rows.Scan(&p.RunID, &p.Tick, &p.Cash, &p.PnL, &p.Positions); err != nil {
			return nil, fmt.Errorf("postgres: scan equity point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list equity points: %w", err)
	}
	return points, nil
}
