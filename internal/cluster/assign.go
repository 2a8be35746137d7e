package cluster

import "github.com/kozaktomas/face-resolver/internal/identify"

// Unassigned marks a new embedding that matched no existing cluster center.
const Unassigned = -1

// AssignToCenters assigns each new embedding to the existing cluster whose
// center it is most similar to, provided that similarity meets the
// threshold; otherwise the embedding is marked Unassigned. Lets newly
// arriving faces join clusters from an earlier batch without re-clustering
// everything. Ties go to the first center, so the result is deterministic.
func AssignToCenters(embeddings [][]float32, centers [][]float32, similarityThreshold float64) []int {
	assignments := make([]int, len(embeddings))
	for i, e := range embeddings {
		assignments[i] = Unassigned
		if len(e) == 0 {
			continue
		}

		best := Unassigned
		bestSim := 0.0
		for ci, center := range centers {
			if len(center) != len(e) {
				continue
			}
			if sim := identify.CosineSimilarity(e, center); best == Unassigned || sim > bestSim {
				best = ci
				bestSim = sim
			}
		}

		if best != Unassigned && bestSim >= similarityThreshold {
			assignments[i] = best
		}
	}
	return assignments
}
