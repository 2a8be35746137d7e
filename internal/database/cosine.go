package database

import "math"

// CosineDistance computes the cosine distance (1 - cosine similarity)
// between two embedding vectors. Results are in [0, 2]: 0 for identical
// direction, 2 for opposite. Mismatched or zero vectors map to the maximum
// distance so they can never rank as near matches during storage-side search.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp against floating point drift before converting to a distance.
	sim = math.Max(-1, math.Min(1, sim))

	return 1 - sim
}
