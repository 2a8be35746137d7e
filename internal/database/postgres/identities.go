package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-resolver/internal/database"
)

// IdentityRepository provides PostgreSQL-backed identity storage.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// CreateIdentity stores a new identity and returns its ID.
func (r *IdentityRepository) CreateIdentity(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.pool.db.QueryRowContext(ctx,
		"INSERT INTO identities (name) VALUES ($1) RETURNING id", name,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert identity: %w", err)
	}
	return id, nil
}

// GetIdentity retrieves an identity by ID, returns nil if not found.
func (r *IdentityRepository) GetIdentity(ctx context.Context, id int64) (*database.Identity, error) {
	var identity database.Identity
	err := r.pool.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM identities WHERE id = $1", id,
	).Scan(&identity.ID, &identity.Name, &identity.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query identity: %w", err)
	}
	return &identity, nil
}

// FindIdentityByName looks up an identity by normalized name. Normalization
// happens in Go because the diacritics folding must agree exactly with the
// importer's, regardless of the database collation.
func (r *IdentityRepository) FindIdentityByName(ctx context.Context, name string) (*database.Identity, error) {
	identities, err := r.ListIdentities(ctx)
	if err != nil {
		return nil, err
	}

	wanted := database.NormalizeIdentityName(name)
	for i := range identities {
		if database.NormalizeIdentityName(identities[i].Name) == wanted {
			return &identities[i], nil
		}
	}
	return nil, nil
}

// ListIdentities returns all identities ordered by ID.
func (r *IdentityRepository) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM identities ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var identities []database.Identity
	for rows.Next() {
		var identity database.Identity
		if err := rows.Scan(&identity.ID, &identity.Name, &identity.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

// ListIdentityIDs returns the IDs of all known identities.
func (r *IdentityRepository) ListIdentityIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.db.QueryContext(ctx, "SELECT id FROM identities ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query identity ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan identity id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identity ids: %w", err)
	}
	return ids, nil
}

// GetIdentityEmbeddings returns the embeddings of all samples labeled with
// the identity. Samples without embeddings are omitted.
func (r *IdentityRepository) GetIdentityEmbeddings(ctx context.Context, identityID int64) ([][]float32, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT embedding FROM face_samples
		WHERE identity_id = $1 AND embedding IS NOT NULL
		ORDER BY id
	`, identityID)
	if err != nil {
		return nil, fmt.Errorf("query identity embeddings: %w", err)
	}
	defer rows.Close()

	var embeddings [][]float32
	for rows.Next() {
		var vec pgvector.Vector
		if err := rows.Scan(&vec); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		embeddings = append(embeddings, vec.Slice())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	return embeddings, nil
}
