package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-resolver/internal/config"
	"github.com/kozaktomas/face-resolver/internal/embedding"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "List known identities and their sample counts",
	RunE:  runIdentities,
}

func init() {
	rootCmd.AddCommand(identitiesCmd)

	identitiesCmd.Flags().String("model", string(embedding.ModelFaceNet), "Embedding model (selects the database schema)")
}

func runIdentities(cmd *cobra.Command, args []string) error {
	model, err := embedding.ParseModel(mustGetString(cmd, "model"))
	if err != nil {
		return err
	}

	ctx := context.Background()
	cfg := config.Load()

	store, pool, err := openStore(ctx, cfg, model)
	if err != nil {
		return err
	}
	defer pool.Close()

	identities, err := store.ListIdentities(ctx)
	if err != nil {
		return fmt.Errorf("failed to list identities: %w", err)
	}
	if len(identities) == 0 {
		fmt.Println("No identities yet.")
		return nil
	}

	for _, identity := range identities {
		embeddings, err := store.GetIdentityEmbeddings(ctx, identity.ID)
		if err != nil {
			return fmt.Errorf("failed to load samples for identity %d: %w", identity.ID, err)
		}
		fmt.Printf("%6d  %-30s  %d samples\n", identity.ID, identity.Name, len(embeddings))
	}

	total, err := store.CountSamples(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\n%d identities, %d samples total\n", len(identities), total)
	return nil
}
