// Package cluster groups unlabeled face embeddings into candidate
// identities. The primary path is threshold-driven agglomerative
// clustering; a density-based variant additionally separates noise points.
package cluster

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/face-resolver/internal/identify"
)

// ErrEmptyInput is returned when there is nothing to cluster. An empty
// batch is a hard error, never an empty successful result.
var ErrEmptyInput = errors.New("no embeddings to cluster")

// Default clustering parameters; overridable via configuration.
const (
	DefaultMaxClusters    = 50
	DefaultMinClusterSize = 2
)

// Options configures a clustering run.
type Options struct {
	// SimilarityThreshold drives cluster tightness: members merge while
	// their average cosine distance stays within 1 - SimilarityThreshold.
	// Higher threshold means more, smaller clusters.
	SimilarityThreshold float64

	// MaxClusters caps the cluster count. When the threshold alone
	// produces more, clustering is re-run with this fixed target.
	MaxClusters int

	// MinClusterSize is the minimum dense-region size for the
	// noise-aware variant.
	MinClusterSize int
}

func (o Options) withDefaults() Options {
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = identify.DefaultSimilarityThreshold
	}
	if o.MaxClusters <= 0 {
		o.MaxClusters = DefaultMaxClusters
	}
	if o.MinClusterSize <= 0 {
		o.MinClusterSize = DefaultMinClusterSize
	}
	return o
}

// Result is a partition of the input batch. Clusters holds input indices;
// Centers[i] is the mean embedding of Clusters[i], used later for
// incremental assignment of new points.
type Result struct {
	Clusters [][]int
	Centers  [][]float32
}

// ClusterEmbeddings partitions a batch of embeddings into groups that
// plausibly represent distinct persons, without knowing the group count in
// advance. Merging stops when the closest remaining pair of groups is
// farther apart than 1 - SimilarityThreshold (average linkage over cosine
// distance). If that yields more than MaxClusters groups, clustering is
// re-run with a fixed target of MaxClusters; if the re-run fails the
// threshold result is kept. Nil embeddings are skipped; a batch with no
// usable embedding fails with ErrEmptyInput.
func ClusterEmbeddings(embeddings [][]float32, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	valid, err := validIndices(embeddings)
	if err != nil {
		return nil, err
	}

	// A single embedding is always exactly one cluster.
	if len(valid) == 1 {
		return buildResult(embeddings, [][]int{{0}}, valid), nil
	}

	dist := distanceMatrix(embeddings, valid)

	clusters := agglomerateThreshold(dist, 1-opts.SimilarityThreshold)

	if len(clusters) > opts.MaxClusters {
		capped, err := agglomerateFixedK(dist, opts.MaxClusters)
		if err == nil {
			clusters = capped
		}
		// On failure the uncapped threshold result stands.
	}

	return buildResult(embeddings, clusters, valid), nil
}

// validIndices returns the indices of usable embeddings and verifies they
// all share one dimension.
func validIndices(embeddings [][]float32) ([]int, error) {
	valid := make([]int, 0, len(embeddings))
	dim := 0
	for i, e := range embeddings {
		if len(e) == 0 {
			continue
		}
		if dim == 0 {
			dim = len(e)
		} else if len(e) != dim {
			return nil, fmt.Errorf("embedding %d has %d dimensions, batch has %d: %w",
				i, len(e), dim, identify.ErrIncompatibleEmbeddings)
		}
		valid = append(valid, i)
	}
	if len(valid) == 0 {
		return nil, ErrEmptyInput
	}
	return valid, nil
}

// distanceMatrix computes pairwise cosine distances between the valid points.
func distanceMatrix(embeddings [][]float32, valid []int) [][]float64 {
	n := len(valid)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := 1 - identify.CosineSimilarity(embeddings[valid[i]], embeddings[valid[j]])
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}

// buildResult maps local cluster indices back to input indices and
// computes the cluster centers.
func buildResult(embeddings [][]float32, clusters [][]int, valid []int) *Result {
	result := &Result{
		Clusters: make([][]int, len(clusters)),
		Centers:  make([][]float32, len(clusters)),
	}
	for ci, members := range clusters {
		mapped := make([]int, len(members))
		vectors := make([][]float32, len(members))
		for mi, local := range members {
			mapped[mi] = valid[local]
			vectors[mi] = embeddings[valid[local]]
		}
		result.Clusters[ci] = mapped
		result.Centers[ci] = identify.MeanEmbedding(vectors)
	}
	return result
}
