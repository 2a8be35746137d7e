package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-resolver/internal/config"
	"github.com/kozaktomas/face-resolver/internal/embedding"
	"github.com/kozaktomas/face-resolver/internal/identify"
)

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Assign unidentified face samples to known identities",
	Long: `Match unidentified face samples against known identities. Each identity
is represented by the mean of its member embeddings; samples are assigned
by nearest-neighbor voting when the match clears the similarity threshold.

Examples:
  # Assign with defaults (best match among 5 nearest identities)
  face-resolver assign

  # Require agreement among neighbors instead of taking the best one
  face-resolver assign --strategy majority_vote

  # Preview without writing anything
  face-resolver assign --dry-run`,
	RunE: runAssign,
}

func init() {
	rootCmd.AddCommand(assignCmd)

	assignCmd.Flags().String("model", string(embedding.ModelFaceNet), "Embedding model of the samples to assign")
	assignCmd.Flags().String("strategy", "", "Matching strategy: best_match or majority_vote (defaults to config)")
	assignCmd.Flags().Int("k", 0, "Number of nearest identities to consider (defaults to config)")
	assignCmd.Flags().Float64("threshold", 0, "Minimum cosine similarity for a match (defaults to config)")
	assignCmd.Flags().Float64("vote-threshold", 0, "Minimum vote share for majority_vote (defaults to config)")
	assignCmd.Flags().Int("limit", 0, "Limit number of samples to process (0 = no limit)")
	assignCmd.Flags().Bool("dry-run", false, "Report matches without recording them")
}

func runAssign(cmd *cobra.Command, args []string) error {
	modelName := mustGetString(cmd, "model")
	limit := mustGetInt(cmd, "limit")
	dryRun := mustGetBool(cmd, "dry-run")

	model, err := embedding.ParseModel(modelName)
	if err != nil {
		return err
	}

	ctx := context.Background()
	cfg := config.Load()

	opts, err := matchingOptions(cmd, cfg)
	if err != nil {
		return err
	}

	store, pool, err := openStore(ctx, cfg, model)
	if err != nil {
		return err
	}
	defer pool.Close()

	references, err := identify.BuildReferences(ctx, store)
	if err != nil {
		return fmt.Errorf("failed to build identity references: %w", err)
	}
	if len(references) == 0 {
		fmt.Println("No identities with embeddings yet, nothing to match against.")
		return nil
	}
	fmt.Printf("Matching against %d identities\n", len(references))

	samples, err := store.ListUnidentified(ctx, model.String(), limit)
	if err != nil {
		return fmt.Errorf("failed to list unidentified samples: %w", err)
	}
	if len(samples) == 0 {
		fmt.Println("No unidentified samples.")
		return nil
	}
	fmt.Printf("Samples to process: %d\n\n", len(samples))

	results := identify.AssignBatch(samples, references, opts)

	var matched, unmatched, failed int
	for _, result := range results {
		switch {
		case result.Err != nil:
			failed++
			fmt.Printf("sample %d: error: %v\n", result.SampleID, result.Err)
		case result.Assignment.Matched:
			matched++
			fmt.Printf("sample %d -> identity %d (confidence %.4f)\n",
				result.SampleID, result.Assignment.IdentityID, result.Assignment.Confidence)
		default:
			unmatched++
		}
	}

	fmt.Printf("\nMatched %d, unmatched %d, errors %d\n", matched, unmatched, failed)

	if dryRun {
		fmt.Println("Dry run, nothing recorded.")
		return nil
	}

	committed, err := identify.CommitAssignments(ctx, store, results)
	if err != nil {
		return fmt.Errorf("failed to record assignments: %w", err)
	}
	fmt.Printf("Recorded %d assignments.\n", committed)
	return nil
}

// matchingOptions merges config defaults with explicitly set flags.
func matchingOptions(cmd *cobra.Command, cfg *config.Config) (identify.Options, error) {
	strategyName := cfg.Matching.Strategy
	if s := mustGetString(cmd, "strategy"); s != "" {
		strategyName = s
	}
	strategy, err := identify.ParseStrategy(strategyName)
	if err != nil {
		return identify.Options{}, err
	}

	opts := identify.Options{
		Strategy:            strategy,
		K:                   cfg.Matching.K,
		SimilarityThreshold: cfg.Matching.SimilarityThreshold,
		VoteThreshold:       cfg.Matching.VoteThreshold,
	}
	if k := mustGetInt(cmd, "k"); k > 0 {
		opts.K = k
	}
	if t := mustGetFloat64(cmd, "threshold"); t > 0 {
		opts.SimilarityThreshold = t
	}
	if t := mustGetFloat64(cmd, "vote-threshold"); t > 0 {
		opts.VoteThreshold = t
	}
	return opts, nil
}
