// Package mock provides an in-memory implementation of the database
// interfaces for unit tests and dry runs.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-resolver/internal/database"
)

// Store is an in-memory database.Store with optional error injection.
type Store struct {
	mu         sync.RWMutex
	samples    map[int64]*database.FaceSample
	identities map[int64]*database.Identity
	nextSample int64
	nextID     int64

	// Error injection
	SampleErr     error
	IdentityErr   error
	AssignmentErr error
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		samples:    make(map[int64]*database.FaceSample),
		identities: make(map[int64]*database.Identity),
		nextSample: 1,
		nextID:     1,
	}
}

func (s *Store) SaveSample(ctx context.Context, sample *database.FaceSample) (int64, error) {
	if s.SampleErr != nil {
		return 0, s.SampleErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sample
	cp.ID = s.nextSample
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.samples[cp.ID] = &cp
	s.nextSample++
	return cp.ID, nil
}

func (s *Store) GetSample(ctx context.Context, id int64) (*database.FaceSample, error) {
	if s.SampleErr != nil {
		return nil, s.SampleErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	sample, ok := s.samples[id]
	if !ok {
		return nil, nil
	}
	cp := *sample
	return &cp, nil
}

func (s *Store) ListUnidentified(ctx context.Context, model string, limit int) ([]database.FaceSample, error) {
	if s.SampleErr != nil {
		return nil, s.SampleErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []database.FaceSample
	for _, id := range s.sortedSampleIDs() {
		sample := s.samples[id]
		if sample.IdentityID != nil {
			continue
		}
		if model != "" && sample.Model != model {
			continue
		}
		result = append(result, *sample)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *Store) CountSamples(ctx context.Context) (int, error) {
	if s.SampleErr != nil {
		return 0, s.SampleErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples), nil
}

func (s *Store) FindSimilarWithDistance(ctx context.Context, embedding []float32, limit int, maxDistance float64) ([]database.FaceSample, []float64, error) {
	if s.SampleErr != nil {
		return nil, nil, s.SampleErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		sample   database.FaceSample
		distance float64
	}
	var candidates []scored
	for _, id := range s.sortedSampleIDs() {
		sample := s.samples[id]
		if !sample.HasEmbedding() {
			continue
		}
		d := database.CosineDistance(embedding, sample.Embedding)
		if d > maxDistance {
			continue
		}
		candidates = append(candidates, scored{*sample, d})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	samples := make([]database.FaceSample, len(candidates))
	distances := make([]float64, len(candidates))
	for i, c := range candidates {
		samples[i] = c.sample
		distances[i] = c.distance
	}
	return samples, distances, nil
}

func (s *Store) ReplaceEmbedding(ctx context.Context, sampleID int64, embedding []float32, model string, dim int) error {
	if s.SampleErr != nil {
		return s.SampleErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sample, ok := s.samples[sampleID]
	if !ok {
		return database.ErrNotFound
	}
	sample.Embedding = embedding
	sample.Model = model
	sample.Dim = dim
	return nil
}

func (s *Store) RecordAssignment(ctx context.Context, sampleID, identityID int64, confidence *float64) error {
	if s.AssignmentErr != nil {
		return s.AssignmentErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sample, ok := s.samples[sampleID]
	if !ok {
		return database.ErrNotFound
	}
	now := time.Now()
	sample.IdentityID = &identityID
	sample.Confidence = confidence
	sample.AssignedAt = &now
	return nil
}

func (s *Store) ClearAssignment(ctx context.Context, sampleID int64) error {
	if s.AssignmentErr != nil {
		return s.AssignmentErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sample, ok := s.samples[sampleID]
	if !ok {
		return database.ErrNotFound
	}
	sample.IdentityID = nil
	sample.Confidence = nil
	sample.AssignedAt = nil
	return nil
}

func (s *Store) CreateIdentity(ctx context.Context, name string) (int64, error) {
	if s.IdentityErr != nil {
		return 0, s.IdentityErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.identities[id] = &database.Identity{ID: id, Name: name, CreatedAt: time.Now()}
	s.nextID++
	return id, nil
}

func (s *Store) GetIdentity(ctx context.Context, id int64) (*database.Identity, error) {
	if s.IdentityErr != nil {
		return nil, s.IdentityErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.identities[id]
	if !ok {
		return nil, nil
	}
	cp := *identity
	return &cp, nil
}

func (s *Store) FindIdentityByName(ctx context.Context, name string) (*database.Identity, error) {
	if s.IdentityErr != nil {
		return nil, s.IdentityErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	normalized := database.NormalizeIdentityName(name)
	for _, id := range s.sortedIdentityIDs() {
		identity := s.identities[id]
		if database.NormalizeIdentityName(identity.Name) == normalized {
			cp := *identity
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	if s.IdentityErr != nil {
		return nil, s.IdentityErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]database.Identity, 0, len(s.identities))
	for _, id := range s.sortedIdentityIDs() {
		result = append(result, *s.identities[id])
	}
	return result, nil
}

func (s *Store) ListIdentityIDs(ctx context.Context) ([]int64, error) {
	if s.IdentityErr != nil {
		return nil, s.IdentityErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedIdentityIDs(), nil
}

func (s *Store) GetIdentityEmbeddings(ctx context.Context, identityID int64) ([][]float32, error) {
	if s.IdentityErr != nil {
		return nil, s.IdentityErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var embeddings [][]float32
	for _, id := range s.sortedSampleIDs() {
		sample := s.samples[id]
		if sample.IdentityID == nil || *sample.IdentityID != identityID {
			continue
		}
		if !sample.HasEmbedding() {
			continue
		}
		embeddings = append(embeddings, sample.Embedding)
	}
	return embeddings, nil
}

// sortedSampleIDs returns sample IDs in ascending order so listing
// operations are deterministic. Callers must hold the lock.
func (s *Store) sortedSampleIDs() []int64 {
	ids := make([]int64, 0, len(s.samples))
	for id := range s.samples {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Store) sortedIdentityIDs() []int64 {
	ids := make([]int64, 0, len(s.identities))
	for id := range s.identities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Interface checks
var _ database.Store = (*Store)(nil)
