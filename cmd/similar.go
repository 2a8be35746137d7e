package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-resolver/internal/config"
	"github.com/kozaktomas/face-resolver/internal/database"
	"github.com/kozaktomas/face-resolver/internal/embedding"
)

var similarCmd = &cobra.Command{
	Use:   "similar <sample-id>",
	Short: "Find face samples similar to a stored sample",
	Long: `Find the face samples nearest to a stored sample by cosine distance.
The search runs in the database by default; --memory builds an in-memory
index over unidentified samples instead, which avoids repeated database
scans when exploring a large unlabeled backlog.

Examples:
  face-resolver similar 42
  face-resolver similar 42 --limit 20 --max-distance 0.4`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func init() {
	rootCmd.AddCommand(similarCmd)

	similarCmd.Flags().String("model", string(embedding.ModelFaceNet), "Embedding model (selects the database schema)")
	similarCmd.Flags().Int("limit", 10, "Maximum number of results")
	similarCmd.Flags().Float64("max-distance", 1.0, "Maximum cosine distance")
	similarCmd.Flags().Bool("memory", false, "Search an in-memory index over unidentified samples")
}

func runSimilar(cmd *cobra.Command, args []string) error {
	sampleID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid sample ID %q: %w", args[0], err)
	}

	model, err := embedding.ParseModel(mustGetString(cmd, "model"))
	if err != nil {
		return err
	}
	limit := mustGetInt(cmd, "limit")
	maxDistance := mustGetFloat64(cmd, "max-distance")
	useMemory := mustGetBool(cmd, "memory")

	ctx := context.Background()
	cfg := config.Load()

	store, pool, err := openStore(ctx, cfg, model)
	if err != nil {
		return err
	}
	defer pool.Close()

	sample, err := store.GetSample(ctx, sampleID)
	if err != nil {
		return err
	}
	if sample == nil {
		return fmt.Errorf("sample %d not found", sampleID)
	}
	if !sample.HasEmbedding() {
		return fmt.Errorf("sample %d has no embedding", sampleID)
	}

	if useMemory {
		return similarInMemory(ctx, store, sample, limit, maxDistance, model)
	}

	results, distances, err := store.FindSimilarWithDistance(ctx, sample.Embedding, limit+1, maxDistance)
	if err != nil {
		return fmt.Errorf("similarity search failed: %w", err)
	}
	printSimilar(sample.ID, results, distances, limit)
	return nil
}

func similarInMemory(ctx context.Context, store database.Store, sample *database.FaceSample, limit int, maxDistance float64, model embedding.Model) error {
	samples, err := store.ListUnidentified(ctx, model.String(), 0)
	if err != nil {
		return fmt.Errorf("failed to list unidentified samples: %w", err)
	}

	index := database.NewSampleIndex()
	index.Build(samples)
	fmt.Printf("Indexed %d unidentified samples\n\n", index.Count())

	matches, distances, err := index.Search(sample.Embedding, limit+1)
	if err != nil {
		return fmt.Errorf("index search failed: %w", err)
	}

	flat := make([]database.FaceSample, 0, len(matches))
	flatDistances := make([]float64, 0, len(matches))
	for i, match := range matches {
		if distances[i] > maxDistance {
			continue
		}
		flat = append(flat, *match)
		flatDistances = append(flatDistances, distances[i])
	}
	printSimilar(sample.ID, flat, flatDistances, limit)
	return nil
}

func printSimilar(queryID int64, results []database.FaceSample, distances []float64, limit int) {
	shown := 0
	for i, result := range results {
		if result.ID == queryID {
			continue
		}
		if shown == limit {
			break
		}
		fmt.Printf("%6d  distance %.4f  %s\n", result.ID, distances[i], result.ImagePath)
		shown++
	}
	if shown == 0 {
		fmt.Println("No similar samples found.")
	}
}
