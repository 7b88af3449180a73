package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KeyzrSoze/signals/internal/contracts"
	"github.com/KeyzrSoze/signals/pkg/database"
)

// PGStore keeps the registry in PostgreSQL. It implements the same
// Store contract as FileStore, so the ledger itself never knows which
// backend it is running on.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a postgres-backed registry store.
func NewPGStore(db *database.DB) *PGStore {
	return &PGStore{pool: db.Pool}
}

// EnsureSchema creates the registry table if it does not exist.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS prediction_registry (
			prediction_id   UUID PRIMARY KEY,
			prediction_date DATE NOT NULL,
			target_date     DATE NOT NULL,
			entity_id       TEXT NOT NULL,
			drug_name       TEXT NOT NULL DEFAULT '',
			start_price     DOUBLE PRECISION NOT NULL,
			predicted_score DOUBLE PRECISION NOT NULL,
			actual_price    DOUBLE PRECISION,
			outcome_pct     DOUBLE PRECISION,
			status          TEXT NOT NULL,
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure registry schema: %w", err)
	}
	return nil
}

// Load reads every registry row, oldest prediction first.
func (s *PGStore) Load(ctx context.Context) ([]contracts.PredictionRecord, error) {
	query := `
		SELECT prediction_id, prediction_date, target_date, entity_id,
		       drug_name, start_price, predicted_score, actual_price,
		       outcome_pct, status
		FROM prediction_registry
		ORDER BY prediction_date, entity_id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	defer rows.Close()

	var records []contracts.PredictionRecord
	for rows.Next() {
		var rec contracts.PredictionRecord
		if err := rows.Scan(
			&rec.PredictionID, &rec.PredictionDate, &rec.TargetDate,
			&rec.EntityID, &rec.DrugName, &rec.StartPrice,
			&rec.PredictedScore, &rec.ActualPrice, &rec.OutcomePct,
			&rec.Status,
		); err != nil {
			return nil, fmt.Errorf("scan registry row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Save upserts every row keyed by prediction_id. Rows absent from the
// slice are left untouched: the registry is append-only, so a saved
// snapshot is always a superset of the previous one.
func (s *PGStore) Save(ctx context.Context, records []contracts.PredictionRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO prediction_registry (
			prediction_id, prediction_date, target_date, entity_id,
			drug_name, start_price, predicted_score, actual_price,
			outcome_pct, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (prediction_id) DO UPDATE SET
			actual_price = EXCLUDED.actual_price,
			outcome_pct = EXCLUDED.outcome_pct,
			status = EXCLUDED.status,
			updated_at = NOW()
	`

	for _, rec := range records {
		if _, err := s.pool.Exec(ctx, query,
			rec.PredictionID, rec.PredictionDate, rec.TargetDate,
			rec.EntityID, rec.DrugName, rec.StartPrice,
			rec.PredictedScore, rec.ActualPrice, rec.OutcomePct,
			rec.Status,
		); err != nil {
			return fmt.Errorf("save registry row %s: %w", rec.PredictionID, err)
		}
	}
	return nil
}
