package cluster

import (
	"fmt"
	"sort"
)

// agglomerateThreshold merges groups bottom-up with average linkage until
// the closest remaining pair is farther apart than maxDistance. Clusters
// are returned with members sorted and ordered by their smallest member,
// so the output never depends on iteration order.
func agglomerateThreshold(dist [][]float64, maxDistance float64) [][]int {
	clusters := singletons(len(dist))

	for len(clusters) > 1 {
		a, b, d := closestPair(clusters, dist)
		if d > maxDistance {
			break
		}
		clusters = merge(clusters, a, b)
	}
	return canonical(clusters)
}

// agglomerateFixedK merges until exactly k clusters remain, ignoring the
// distance threshold. Used to force a coarser partition when the
// threshold-driven result exceeds the cluster cap.
func agglomerateFixedK(dist [][]float64, k int) ([][]int, error) {
	n := len(dist)
	if k <= 0 || k > n {
		return nil, fmt.Errorf("invalid cluster count %d for %d points", k, n)
	}

	clusters := singletons(n)
	for len(clusters) > k {
		a, b, _ := closestPair(clusters, dist)
		clusters = merge(clusters, a, b)
	}
	return canonical(clusters), nil
}

func singletons(n int) [][]int {
	clusters := make([][]int, n)
	for i := range clusters {
		clusters[i] = []int{i}
	}
	return clusters
}

// closestPair finds the pair of clusters with the smallest average-linkage
// distance. Scanning in index order with a strict improvement test makes
// tie-breaking deterministic (first minimal pair wins).
func closestPair(clusters [][]int, dist [][]float64) (int, int, float64) {
	bestA, bestB := 0, 1
	bestDist := averageLinkage(clusters[0], clusters[1], dist)
	for i := 0; i < len(clusters)-1; i++ {
		for j := i + 1; j < len(clusters); j++ {
			if i == 0 && j == 1 {
				continue
			}
			if d := averageLinkage(clusters[i], clusters[j], dist); d < bestDist {
				bestA, bestB, bestDist = i, j, d
			}
		}
	}
	return bestA, bestB, bestDist
}

// averageLinkage is the mean pairwise distance between two groups.
func averageLinkage(a, b []int, dist [][]float64) float64 {
	sum := 0.0
	for _, i := range a {
		for _, j := range b {
			sum += dist[i][j]
		}
	}
	return sum / float64(len(a)*len(b))
}

func merge(clusters [][]int, a, b int) [][]int {
	clusters[a] = append(clusters[a], clusters[b]...)
	return append(clusters[:b], clusters[b+1:]...)
}

// canonical sorts members within each cluster and orders clusters by their
// smallest member index.
func canonical(clusters [][]int) [][]int {
	for _, c := range clusters {
		sort.Ints(c)
	}
	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i][0] < clusters[j][0]
	})
	return clusters
}
