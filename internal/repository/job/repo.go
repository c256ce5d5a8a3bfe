package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wb-go/wbf/dbpg"

	"github.com/imageforge/imageforge/internal/model"
)

var ErrJobNotFound = errors.New("job not found")

// Repository persists completed job records in Postgres. Records are
// append-only and keyed by job id; the core never updates or deletes them.
type Repository struct {
	db *dbpg.DB
}

func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) SaveJob(ctx context.Context, meta model.JobMetadata) error {
	query := `
		INSERT INTO jobs (id, created_at, files, bundle, heic_supported, enhancer_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
   `

	files, err := json.Marshal(meta.Files)
	if err != nil {
		return fmt.Errorf("save: failed to marshal files: %w", err)
	}
	bundle, err := json.Marshal(meta.Bundle)
	if err != nil {
		return fmt.Errorf("save: failed to marshal bundle: %w", err)
	}

	_, err = r.db.ExecContext(
		ctx, query, meta.ID, meta.CreatedAt, files, bundle, meta.HEICSupported, meta.EnhancerStatus,
	)
	if err != nil {
		return fmt.Errorf("save: failed to save job: %w", err)
	}

	return nil
}

func (r *Repository) GetJob(ctx context.Context, id string) (model.JobMetadata, error) {
	query := `
		SELECT created_at, files, bundle, heic_supported, enhancer_status
		FROM jobs
		WHERE id = $1
    `

	var (
		meta   model.JobMetadata
		files  []byte
		bundle []byte
	)
	meta.ID = id
	err := r.db.Master.QueryRowContext(
		ctx, query, id,
	).Scan(&meta.CreatedAt, &files, &bundle, &meta.HEICSupported, &meta.EnhancerStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.JobMetadata{}, ErrJobNotFound
		}

		return model.JobMetadata{}, fmt.Errorf("get: failed to get job: %w", err)
	}

	if err := json.Unmarshal(files, &meta.Files); err != nil {
		return model.JobMetadata{}, fmt.Errorf("get: failed to unmarshal files: %w", err)
	}
	if err := json.Unmarshal(bundle, &meta.Bundle); err != nil {
		return model.JobMetadata{}, fmt.Errorf("get: failed to unmarshal bundle: %w", err)
	}

	return meta, nil
}
