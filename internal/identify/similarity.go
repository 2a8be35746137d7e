// Package identify decides whether a query face embedding belongs to a
// known identity, using K-nearest-neighbor search over cosine similarity.
package identify

import "math"

// CosineSimilarity computes the cosine similarity between two embedding vectors.
// Returns a value between -1 and 1, where 1 means identical direction.
// Returns 0 for zero vectors or mismatched lengths - never NaN or a division error.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// MeanEmbedding computes the element-wise mean of the given embeddings.
// Nil or empty members are skipped. Returns nil if nothing contributes.
// Used to build an identity's reference vector from all of its samples,
// which keeps the reference point robust to a single noisy sample.
func MeanEmbedding(members [][]float32) []float32 {
	var mean []float32
	count := 0
	for _, m := range members {
		if len(m) == 0 {
			continue
		}
		if mean == nil {
			mean = make([]float32, len(m))
		}
		if len(m) != len(mean) {
			continue
		}
		for i := range mean {
			mean[i] += m[i]
		}
		count++
	}
	if count == 0 {
		return nil
	}
	for i := range mean {
		mean[i] /= float32(count)
	}
	return mean
}
