package postgres

import (
	"context"
	"fmt"
)

// Migrate creates the schema. The pgvector column is sized to the
// embedding dimension of the configured model; galleries mixing models
// use one database per model, since embeddings from different models
// are never compared anyway.
func Migrate(ctx context.Context, pool *Pool, embeddingDim int) error {
	if embeddingDim <= 0 {
		return fmt.Errorf("invalid embedding dimension %d", embeddingDim)
	}

	if _, err := pool.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createIdentities := `
		CREATE TABLE IF NOT EXISTS identities (
			id         BIGSERIAL PRIMARY KEY,
			name       VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.db.ExecContext(ctx, createIdentities); err != nil {
		return fmt.Errorf("failed to create identities table: %w", err)
	}

	createSamples := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS face_samples (
			id          BIGSERIAL PRIMARY KEY,
			image_path  TEXT NOT NULL,
			embedding   vector(%d),
			model       VARCHAR(64) NOT NULL DEFAULT '',
			dim         INTEGER NOT NULL DEFAULT 0,
			identity_id BIGINT REFERENCES identities(id) ON DELETE SET NULL,
			confidence  DOUBLE PRECISION,
			assigned_at TIMESTAMPTZ,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, embeddingDim)
	if _, err := pool.db.ExecContext(ctx, createSamples); err != nil {
		return fmt.Errorf("failed to create face_samples table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_face_samples_identity ON face_samples(identity_id)",
		"CREATE INDEX IF NOT EXISTS idx_face_samples_model ON face_samples(model)",
	}
	for _, stmt := range indexes {
		if _, err := pool.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
