package infrastructure

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dropvid/clip-processing-service/domain"
)

// PostgresProcessingRepository persists processing records in a single
// table keyed by id. Writes are last-writer-wins upserts that merge the
// details payload server-side.
type PostgresProcessingRepository struct {
	DB *sql.DB
}

func NewPostgresProcessingRepository(db *sql.DB) *PostgresProcessingRepository {
	return &PostgresProcessingRepository{DB: db}
}

// EnsureSchema creates the processing_records table when absent.
func (r *PostgresProcessingRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS processing_records (
			id         text PRIMARY KEY,
			owner_id   text NOT NULL DEFAULT '',
			status     text NOT NULL,
			details    jsonb NOT NULL DEFAULT '{}',
			created_at timestamptz NOT NULL DEFAULT now(),
			updated_at timestamptz NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure processing_records schema: %w", err)
	}
	return nil
}

func (r *PostgresProcessingRepository) RecordStatus(ctx context.Context, id, ownerID string, status domain.ProcessingStatus, details map[string]string) error {
	if details == nil {
		details = map[string]string{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}

	query := `
		INSERT INTO processing_records (id, owner_id, status, details)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			status     = EXCLUDED.status,
			details    = processing_records.details || EXCLUDED.details,
			owner_id   = CASE WHEN EXCLUDED.owner_id <> '' THEN EXCLUDED.owner_id
			                  ELSE processing_records.owner_id END,
			updated_at = now()`
	_, err = r.DB.ExecContext(ctx, query, id, ownerID, string(status), payload)
	return err
}

func (r *PostgresProcessingRepository) Find(ctx context.Context, id string) (*domain.ProcessingRecord, error) {
	var (
		rec     domain.ProcessingRecord
		status  string
		payload []byte
	)
	query := `SELECT id, owner_id, status, details, created_at, updated_at
	          FROM processing_records WHERE id = $1`
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.OwnerID, &status, &payload, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = domain.ProcessingStatus(status)
	if err := json.Unmarshal(payload, &rec.Details); err != nil {
		return nil, fmt.Errorf("decode details for %s: %w", id, err)
	}
	return &rec, nil
}
