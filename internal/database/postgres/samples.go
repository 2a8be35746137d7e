package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-resolver/internal/database"
)

// SampleRepository provides PostgreSQL-backed face sample storage.
type SampleRepository struct {
	pool *Pool
}

// NewSampleRepository creates a new PostgreSQL sample repository.
func NewSampleRepository(pool *Pool) *SampleRepository {
	return &SampleRepository{pool: pool}
}

const sampleColumns = "id, image_path, embedding, model, dim, identity_id, confidence, assigned_at, created_at"

// scanSample reads one sample row.
func scanSample(row interface{ Scan(...any) error }) (*database.FaceSample, error) {
	var s database.FaceSample
	var vec pgvector.Vector
	var identityID sql.NullInt64
	var confidence sql.NullFloat64
	var assignedAt sql.NullTime

	err := row.Scan(
		&s.ID,
		&s.ImagePath,
		&vec,
		&s.Model,
		&s.Dim,
		&identityID,
		&confidence,
		&assignedAt,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Embedding = vec.Slice()
	if identityID.Valid {
		s.IdentityID = &identityID.Int64
	}
	if confidence.Valid {
		s.Confidence = &confidence.Float64
	}
	if assignedAt.Valid {
		s.AssignedAt = &assignedAt.Time
	}
	return &s, nil
}

// SaveSample stores a new sample and returns its ID.
func (r *SampleRepository) SaveSample(ctx context.Context, sample *database.FaceSample) (int64, error) {
	query := `
		INSERT INTO face_samples (image_path, embedding, model, dim)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	err := r.pool.db.QueryRowContext(ctx, query,
		sample.ImagePath,
		pgvector.NewVector(sample.Embedding),
		sample.Model,
		sample.Dim,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert sample: %w", err)
	}
	return id, nil
}

// GetSample retrieves a sample by ID, returns nil if not found.
func (r *SampleRepository) GetSample(ctx context.Context, id int64) (*database.FaceSample, error) {
	query := "SELECT " + sampleColumns + " FROM face_samples WHERE id = $1"
	s, err := scanSample(r.pool.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query sample: %w", err)
	}
	return s, nil
}

// ListUnidentified returns samples without an identity for the given model.
func (r *SampleRepository) ListUnidentified(ctx context.Context, model string, limit int) ([]database.FaceSample, error) {
	query := "SELECT " + sampleColumns + ` FROM face_samples
		WHERE identity_id IS NULL AND ($1 = '' OR model = $1)
		ORDER BY id`
	args := []any{model}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query unidentified samples: %w", err)
	}
	defer rows.Close()

	var samples []database.FaceSample
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		samples = append(samples, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return samples, nil
}

// CountSamples returns the total number of stored samples.
func (r *SampleRepository) CountSamples(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM face_samples").Scan(&count); err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return count, nil
}

// FindSimilarWithDistance finds samples near the query embedding using
// pgvector's cosine distance operator, nearest first.
func (r *SampleRepository) FindSimilarWithDistance(ctx context.Context, embedding []float32, limit int, maxDistance float64) ([]database.FaceSample, []float64, error) {
	query := "SELECT " + sampleColumns + `, embedding <=> $1 AS distance
		FROM face_samples
		WHERE embedding IS NOT NULL AND embedding <=> $1 <= $2
		ORDER BY distance
		LIMIT $3
	`
	rows, err := r.pool.db.QueryContext(ctx, query, pgvector.NewVector(embedding), maxDistance, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("similarity query: %w", err)
	}
	defer rows.Close()

	var samples []database.FaceSample
	var distances []float64
	for rows.Next() {
		var s database.FaceSample
		var vec pgvector.Vector
		var identityID sql.NullInt64
		var confidence sql.NullFloat64
		var assignedAt sql.NullTime
		var distance float64

		err := rows.Scan(
			&s.ID, &s.ImagePath, &vec, &s.Model, &s.Dim,
			&identityID, &confidence, &assignedAt, &s.CreatedAt,
			&distance,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("scan similar sample: %w", err)
		}

		s.Embedding = vec.Slice()
		if identityID.Valid {
			s.IdentityID = &identityID.Int64
		}
		if confidence.Valid {
			s.Confidence = &confidence.Float64
		}
		if assignedAt.Valid {
			s.AssignedAt = &assignedAt.Time
		}
		samples = append(samples, s)
		distances = append(distances, distance)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate similar samples: %w", err)
	}
	return samples, distances, nil
}

// ReplaceEmbedding replaces the vector, model and dimension together, so a
// regenerated embedding can never be half-applied.
func (r *SampleRepository) ReplaceEmbedding(ctx context.Context, sampleID int64, embedding []float32, model string, dim int) error {
	query := `UPDATE face_samples SET embedding = $1, model = $2, dim = $3 WHERE id = $4`
	result, err := r.pool.db.ExecContext(ctx, query, pgvector.NewVector(embedding), model, dim, sampleID)
	if err != nil {
		return fmt.Errorf("replace embedding: %w", err)
	}
	return requireRow(result, sampleID)
}

// RecordAssignment sets the sample's identity and confidence.
func (r *SampleRepository) RecordAssignment(ctx context.Context, sampleID, identityID int64, confidence *float64) error {
	query := `
		UPDATE face_samples
		SET identity_id = $1, confidence = $2, assigned_at = NOW()
		WHERE id = $3
	`
	var conf sql.NullFloat64
	if confidence != nil {
		conf = sql.NullFloat64{Float64: *confidence, Valid: true}
	}
	result, err := r.pool.db.ExecContext(ctx, query, identityID, conf, sampleID)
	if err != nil {
		return fmt.Errorf("record assignment: %w", err)
	}
	return requireRow(result, sampleID)
}

// ClearAssignment removes the sample's identity and confidence.
func (r *SampleRepository) ClearAssignment(ctx context.Context, sampleID int64) error {
	query := `
		UPDATE face_samples
		SET identity_id = NULL, confidence = NULL, assigned_at = NULL
		WHERE id = $1
	`
	result, err := r.pool.db.ExecContext(ctx, query, sampleID)
	if err != nil {
		return fmt.Errorf("clear assignment: %w", err)
	}
	return requireRow(result, sampleID)
}

func requireRow(result sql.Result, sampleID int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("sample %d: %w", sampleID, database.ErrNotFound)
	}
	return nil
}
