package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-resolver/internal/cluster"
	"github.com/kozaktomas/face-resolver/internal/config"
	"github.com/kozaktomas/face-resolver/internal/database"
	"github.com/kozaktomas/face-resolver/internal/embedding"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Group unidentified face samples into identity clusters",
	Long: `Group unidentified face samples by embedding similarity. The default
mode merges samples hierarchically until no pair of clusters is similar
enough; --noise switches to density-based clustering that leaves sparse
samples unclustered instead of forcing them into a group.

Examples:
  # Preview clusters among unidentified samples
  face-resolver cluster

  # Density-based clustering, outliers stay unclustered
  face-resolver cluster --noise

  # Create an identity per cluster and label its samples
  face-resolver cluster --create`,
	RunE: runCluster,
}

func init() {
	rootCmd.AddCommand(clusterCmd)

	clusterCmd.Flags().String("model", string(embedding.ModelFaceNet), "Embedding model of the samples to cluster")
	clusterCmd.Flags().Float64("threshold", 0, "Minimum cosine similarity within a cluster (defaults to config)")
	clusterCmd.Flags().Int("max-clusters", 0, "Re-cluster into at most this many groups (defaults to config)")
	clusterCmd.Flags().Int("min-size", 0, "Minimum cluster size for --noise and --create (defaults to config)")
	clusterCmd.Flags().Bool("noise", false, "Use density-based clustering with a noise list")
	clusterCmd.Flags().Bool("attach-noise", false, "Attach noise samples to cluster centers when similar enough")
	clusterCmd.Flags().Int("limit", 0, "Limit number of samples to process (0 = no limit)")
	clusterCmd.Flags().Bool("create", false, "Create an identity per cluster and label its samples")
}

func runCluster(cmd *cobra.Command, args []string) error {
	modelName := mustGetString(cmd, "model")
	useNoise := mustGetBool(cmd, "noise")
	attachNoise := mustGetBool(cmd, "attach-noise")
	limit := mustGetInt(cmd, "limit")
	create := mustGetBool(cmd, "create")

	model, err := embedding.ParseModel(modelName)
	if err != nil {
		return err
	}
	if attachNoise && !useNoise {
		return fmt.Errorf("--attach-noise requires --noise")
	}

	ctx := context.Background()
	cfg := config.Load()
	opts := clusteringOptions(cmd, cfg)

	store, pool, err := openStore(ctx, cfg, model)
	if err != nil {
		return err
	}
	defer pool.Close()

	samples, err := store.ListUnidentified(ctx, model.String(), limit)
	if err != nil {
		return fmt.Errorf("failed to list unidentified samples: %w", err)
	}
	if len(samples) == 0 {
		fmt.Println("No unidentified samples.")
		return nil
	}
	fmt.Printf("Clustering %d samples\n\n", len(samples))

	embeddings := make([][]float32, len(samples))
	for i := range samples {
		embeddings[i] = samples[i].Embedding
	}

	var result *cluster.Result
	var noise []int
	if useNoise {
		result, noise, err = cluster.ClusterWithNoise(embeddings, opts)
	} else {
		result, err = cluster.ClusterEmbeddings(embeddings, opts)
	}
	if err != nil {
		return fmt.Errorf("clustering failed: %w", err)
	}

	if attachNoise && len(noise) > 0 {
		noise = attachNoiseToCenters(embeddings, result, noise, opts.SimilarityThreshold)
	}

	printClusters(samples, result, noise)

	if !create {
		return nil
	}
	return materializeClusters(ctx, store, samples, result, opts.MinClusterSize)
}

// attachNoiseToCenters assigns noise samples to existing cluster centers
// when they clear the similarity threshold, returning the samples that
// remain noise.
func attachNoiseToCenters(embeddings [][]float32, result *cluster.Result, noise []int, threshold float64) []int {
	noiseEmbeddings := make([][]float32, len(noise))
	for i, idx := range noise {
		noiseEmbeddings[i] = embeddings[idx]
	}

	targets := cluster.AssignToCenters(noiseEmbeddings, result.Centers, threshold)

	var remaining []int
	for i, target := range targets {
		if target == cluster.Unassigned {
			remaining = append(remaining, noise[i])
			continue
		}
		result.Clusters[target] = append(result.Clusters[target], noise[i])
	}
	return remaining
}

func printClusters(samples []database.FaceSample, result *cluster.Result, noise []int) {
	for i, members := range result.Clusters {
		fmt.Printf("Cluster %d (%d samples):\n", i+1, len(members))
		for _, idx := range members {
			fmt.Printf("  sample %d  %s\n", samples[idx].ID, samples[idx].ImagePath)
		}
	}
	if len(noise) > 0 {
		fmt.Printf("Noise (%d samples):\n", len(noise))
		for _, idx := range noise {
			fmt.Printf("  sample %d  %s\n", samples[idx].ID, samples[idx].ImagePath)
		}
	}
}

// materializeClusters creates one identity per sufficiently large cluster
// and labels its member samples. Cluster assignments carry no confidence,
// there is no single similarity score behind them.
func materializeClusters(ctx context.Context, store database.Store, samples []database.FaceSample, result *cluster.Result, minSize int) error {
	created := 0
	for _, members := range result.Clusters {
		if len(members) < minSize {
			continue
		}

		name := fmt.Sprintf("Unknown %d", samples[members[0]].ID)
		identityID, err := store.CreateIdentity(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to create identity: %w", err)
		}

		for _, idx := range members {
			if err := store.RecordAssignment(ctx, samples[idx].ID, identityID, nil); err != nil {
				return fmt.Errorf("failed to label sample %d: %w", samples[idx].ID, err)
			}
		}
		created++
	}

	fmt.Printf("\nCreated %d identities.\n", created)
	return nil
}

// clusteringOptions merges config defaults with explicitly set flags.
func clusteringOptions(cmd *cobra.Command, cfg *config.Config) cluster.Options {
	opts := cluster.Options{
		SimilarityThreshold: cfg.Clustering.SimilarityThreshold,
		MaxClusters:         cfg.Clustering.MaxClusters,
		MinClusterSize:      cfg.Clustering.MinClusterSize,
	}
	if t := mustGetFloat64(cmd, "threshold"); t > 0 {
		opts.SimilarityThreshold = t
	}
	if n := mustGetInt(cmd, "max-clusters"); n > 0 {
		opts.MaxClusters = n
	}
	if n := mustGetInt(cmd, "min-size"); n > 0 {
		opts.MinClusterSize = n
	}
	return opts
}
