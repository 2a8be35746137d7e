package postgres

import (
	"github.com/kozaktomas/face-resolver/internal/database"
)

// Store combines the sample and identity repositories over one pool.
type Store struct {
	*SampleRepository
	*IdentityRepository
}

var _ database.Store = (*Store)(nil)

// NewStore creates the combined store over the connection pool.
func NewStore(pool *Pool) *Store {
	return &Store{
		SampleRepository:   NewSampleRepository(pool),
		IdentityRepository: NewIdentityRepository(pool),
	}
}
