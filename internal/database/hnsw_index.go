package database

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"
)

// HNSW parameters tuned for 128/512-dim face embeddings.
const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	hnswMaxNeighbors = 16

	// HNSWSearchMultiplier requests extra candidates from the index so
	// enough remain after distance filtering and exact re-ranking.
	HNSWSearchMultiplier = 3
)

// SampleIndex is an in-memory HNSW index over face sample embeddings.
// It pre-filters candidates on large galleries; callers re-rank the
// survivors with exact cosine distance.
type SampleIndex struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[int64]
	idToSample map[int64]*FaceSample
}

// NewSampleIndex creates an empty index.
func NewSampleIndex() *SampleIndex {
	return &SampleIndex{
		idToSample: make(map[int64]*FaceSample),
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance
	return g
}

// Build replaces the index contents with the given samples.
// Samples without embeddings are skipped.
func (x *SampleIndex) Build(samples []FaceSample) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if len(samples) == 0 {
		x.graph = nil
		x.idToSample = make(map[int64]*FaceSample)
		return
	}

	g := newGraph()
	x.idToSample = make(map[int64]*FaceSample, len(samples))
	for i := range samples {
		s := &samples[i]
		if !s.HasEmbedding() {
			continue
		}
		g.Add(hnsw.MakeNode(s.ID, s.Embedding))
		x.idToSample[s.ID] = s
	}
	x.graph = g
}

// Add inserts a single sample into the index.
func (x *SampleIndex) Add(sample *FaceSample) {
	if !sample.HasEmbedding() {
		return
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.graph == nil {
		x.graph = newGraph()
	}
	x.graph.Add(hnsw.MakeNode(sample.ID, sample.Embedding))
	x.idToSample[sample.ID] = sample
}

// Remove drops a sample from lookups. The HNSW graph has no true deletion;
// removed nodes are filtered out of search results instead.
func (x *SampleIndex) Remove(id int64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.idToSample, id)
}

// Search returns up to k samples nearest to the query, with exact cosine
// distances recomputed from the stored embeddings.
func (x *SampleIndex) Search(query []float32, k int) ([]*FaceSample, []float64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil {
		return nil, nil, errors.New("sample index not built")
	}

	// Over-fetch so deleted nodes can be filtered without starving k.
	nodes := x.graph.Search(query, k*HNSWSearchMultiplier)

	samples := make([]*FaceSample, 0, k)
	distances := make([]float64, 0, k)
	for _, n := range nodes {
		s, ok := x.idToSample[n.Key]
		if !ok {
			continue
		}
		samples = append(samples, s)
		distances = append(distances, CosineDistance(query, s.Embedding))
		if len(samples) == k {
			break
		}
	}
	return samples, distances, nil
}

// Count returns the number of searchable samples.
func (x *SampleIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.idToSample)
}
