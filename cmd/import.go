package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-resolver/internal/config"
	"github.com/kozaktomas/face-resolver/internal/database/mariadb"
	"github.com/kozaktomas/face-resolver/internal/embedding"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import face markers from a PhotoPrism database",
	Long: `Import face markers and their embeddings from a PhotoPrism MariaDB
instance. Markers already labeled with a subject in PhotoPrism become
labeled samples here; the identity is created on first sight.

The PhotoPrism database is configured through PHOTOPRISM_DATABASE_URL,
e.g. photoprism:photoprism@tcp(mariadb:3306)/photoprism

Examples:
  face-resolver import --model arcface`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("model", string(embedding.ModelArcFace), "Model that produced the PhotoPrism embeddings")
}

func runImport(cmd *cobra.Command, args []string) error {
	modelName := mustGetString(cmd, "model")

	model, err := embedding.ParseModel(modelName)
	if err != nil {
		return err
	}

	ctx := context.Background()
	cfg := config.Load()

	fmt.Println("Connecting to PhotoPrism database...")
	source, err := mariadb.NewPool(cfg.PhotoPrism.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PhotoPrism database: %w", err)
	}
	defer source.Close()

	total, err := source.CountFaceMarkers(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Face markers with embeddings: %d\n", total)

	store, pool, err := openStore(ctx, cfg, model)
	if err != nil {
		return err
	}
	defer pool.Close()

	stats, err := mariadb.ImportMarkers(ctx, source, store, model.String(), model.Dimensions())
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("Imported %d samples (%d labeled, %d skipped)\n",
		stats.Imported, stats.Labeled, stats.Skipped)
	return nil
}
