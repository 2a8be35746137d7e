package cluster

import "sort"

// ClusterWithNoise is the density-based alternative to ClusterEmbeddings.
// It runs DBSCAN over cosine distance with eps = 1 - SimilarityThreshold
// and MinClusterSize as the minimum dense-region size. Points that fit no
// dense region are reported as noise instead of being force-assigned.
// Cluster indices are renumbered densely from 0 after noise removal, and
// noise indices are returned separately so the caller decides whether to
// leave those samples unassigned or handle them manually.
func ClusterWithNoise(embeddings [][]float32, opts Options) (*Result, []int, error) {
	opts = opts.withDefaults()

	valid, err := validIndices(embeddings)
	if err != nil {
		return nil, nil, err
	}

	dist := distanceMatrix(embeddings, valid)
	eps := 1 - opts.SimilarityThreshold
	labels := dbscan(dist, eps, opts.MinClusterSize)

	var clusters [][]int
	var noise []int
	for local, label := range labels {
		if label < 0 {
			noise = append(noise, valid[local])
			continue
		}
		for label >= len(clusters) {
			clusters = append(clusters, nil)
		}
		clusters[label] = append(clusters[label], local)
	}

	result := buildResult(embeddings, clusters, valid)
	sort.Ints(noise)
	return result, noise, nil
}

const (
	labelUnvisited = -2
	labelNoise     = -1
)

// dbscan labels each point with a dense cluster index or labelNoise.
// Neighborhoods include the point itself, so a core point needs
// minPts total points within eps.
func dbscan(dist [][]float64, eps float64, minPts int) []int {
	n := len(dist)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = labelUnvisited
	}

	nextCluster := 0
	for p := 0; p < n; p++ {
		if labels[p] != labelUnvisited {
			continue
		}

		neighbors := regionQuery(dist, p, eps)
		if len(neighbors) < minPts {
			labels[p] = labelNoise
			continue
		}

		labels[p] = nextCluster
		expandCluster(dist, labels, neighbors, nextCluster, eps, minPts)
		nextCluster++
	}
	return labels
}

// expandCluster grows a cluster from a core point's neighborhood.
// Border points (within eps of a core point but not dense themselves)
// join the cluster; previously noise-labeled points are reclaimed.
func expandCluster(dist [][]float64, labels []int, seeds []int, cluster int, eps float64, minPts int) {
	for i := 0; i < len(seeds); i++ {
		q := seeds[i]
		switch labels[q] {
		case labelNoise:
			labels[q] = cluster
		case labelUnvisited:
			labels[q] = cluster
			qNeighbors := regionQuery(dist, q, eps)
			if len(qNeighbors) >= minPts {
				seeds = append(seeds, qNeighbors...)
			}
		}
	}
}

// regionQuery returns all points within eps of p, including p itself.
func regionQuery(dist [][]float64, p int, eps float64) []int {
	var neighbors []int
	for q := 0; q < len(dist); q++ {
		if dist[p][q] <= eps {
			neighbors = append(neighbors, q)
		}
	}
	return neighbors
}
