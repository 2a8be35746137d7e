package database

import (
	"context"
)

// ReferenceProvider supplies the raw member embeddings per identity.
// The assignment engine computes the mean itself - it is never handed a
// pre-aggregated vector, so the reference point is always fresh.
type ReferenceProvider interface {
	// ListIdentityIDs returns the IDs of all known identities.
	ListIdentityIDs(ctx context.Context) ([]int64, error)
	// GetIdentityEmbeddings returns the embeddings of all samples already
	// labeled with the identity. Samples without embeddings are omitted.
	GetIdentityEmbeddings(ctx context.Context, identityID int64) ([][]float32, error)
}

// AssignmentSink records the outcome of a successful assignment.
type AssignmentSink interface {
	// RecordAssignment sets the sample's identity and confidence.
	// A nil confidence marks a manual or cluster-based assignment where
	// no similarity score applies.
	RecordAssignment(ctx context.Context, sampleID, identityID int64, confidence *float64) error
}

// SampleReader provides read access to face samples.
type SampleReader interface {
	// GetSample retrieves a sample by ID, returns nil if not found.
	GetSample(ctx context.Context, id int64) (*FaceSample, error)
	// ListUnidentified returns all samples without an identity, limited
	// to samples produced by the given model (embeddings from different
	// models are never mixed). limit 0 means no limit.
	ListUnidentified(ctx context.Context, model string, limit int) ([]FaceSample, error)
	// CountSamples returns the total number of stored samples.
	CountSamples(ctx context.Context) (int, error)
	// FindSimilarWithDistance finds samples with similar embeddings using
	// cosine distance, nearest first.
	FindSimilarWithDistance(ctx context.Context, embedding []float32, limit int, maxDistance float64) ([]FaceSample, []float64, error)
}

// SampleWriter provides write access to face samples.
type SampleWriter interface {
	SampleReader
	AssignmentSink

	// SaveSample stores a new sample and returns its ID.
	SaveSample(ctx context.Context, sample *FaceSample) (int64, error)
	// ReplaceEmbedding replaces a sample's vector, model and dimension
	// together in one statement. Regeneration is wholesale - the three
	// fields never change independently.
	ReplaceEmbedding(ctx context.Context, sampleID int64, embedding []float32, model string, dim int) error
	// ClearAssignment removes the sample's identity and confidence.
	ClearAssignment(ctx context.Context, sampleID int64) error
}

// IdentityStore manages identities.
type IdentityStore interface {
	ReferenceProvider

	// CreateIdentity stores a new identity and returns its ID.
	CreateIdentity(ctx context.Context, name string) (int64, error)
	// GetIdentity retrieves an identity by ID, returns nil if not found.
	GetIdentity(ctx context.Context, id int64) (*Identity, error)
	// FindIdentityByName looks up an identity by name. The comparison is
	// case- and diacritic-insensitive ("jan-novak" matches "Jan Novák").
	FindIdentityByName(ctx context.Context, name string) (*Identity, error)
	// ListIdentities returns all identities ordered by ID.
	ListIdentities(ctx context.Context) ([]Identity, error)
}

// Store is the full persistence surface the resolver works against.
type Store interface {
	SampleWriter
	IdentityStore
}
