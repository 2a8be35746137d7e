package identify

import (
	"errors"
	"fmt"
	"sort"
)

// ErrIncompatibleEmbeddings is returned when a query and a reference vector
// have different dimensions. Embeddings from different models must never be
// compared, so this is a hard error rather than a silent similarity of 0.
var ErrIncompatibleEmbeddings = errors.New("incompatible embedding dimensions")

// Reference is a labeled embedding the query is compared against.
// The embedding is typically the mean of all samples for the identity.
type Reference struct {
	IdentityID int64
	Embedding  []float32
}

// Neighbor is one reference ranked by similarity to the query.
type Neighbor struct {
	IdentityID int64
	Similarity float64
}

// FindKNearest returns the k references most similar to the query, sorted
// by descending cosine similarity. References without an embedding are
// skipped. Ties keep the input order. An empty reference list yields an
// empty result, not an error.
func FindKNearest(query []float32, references []Reference, k int) ([]Neighbor, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("empty query embedding: %w", ErrIncompatibleEmbeddings)
	}

	neighbors := make([]Neighbor, 0, len(references))
	for _, ref := range references {
		if len(ref.Embedding) == 0 {
			continue
		}
		if len(ref.Embedding) != len(query) {
			return nil, fmt.Errorf("query has %d dimensions, reference for identity %d has %d: %w",
				len(query), ref.IdentityID, len(ref.Embedding), ErrIncompatibleEmbeddings)
		}
		neighbors = append(neighbors, Neighbor{
			IdentityID: ref.IdentityID,
			Similarity: CosineSimilarity(query, ref.Embedding),
		})
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Similarity > neighbors[j].Similarity
	})

	if k > 0 && len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}
