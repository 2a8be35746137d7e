package database

import (
	"time"
)

// FaceSample is one face crop with its embedding and assignment state.
// IdentityID is nil until an identification has occurred. Confidence is
// only set when the assignment came from a similarity decision; manual and
// cluster-based assignments leave it nil.
type FaceSample struct {
	ID        int64
	ImagePath string
	Embedding []float32
	Model     string
	Dim       int
	CreatedAt time.Time

	IdentityID *int64
	Confidence *float64
	AssignedAt *time.Time
}

// HasEmbedding reports whether the sample carries an embedding vector.
func (s *FaceSample) HasEmbedding() bool {
	return len(s.Embedding) > 0
}

// Identified reports whether the sample has been assigned to an identity.
func (s *FaceSample) Identified() bool {
	return s.IdentityID != nil
}

// Identity is a distinct person face samples can be assigned to.
type Identity struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}
