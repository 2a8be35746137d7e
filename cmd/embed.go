package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-resolver/internal/config"
	"github.com/kozaktomas/face-resolver/internal/crop"
	"github.com/kozaktomas/face-resolver/internal/database"
	"github.com/kozaktomas/face-resolver/internal/embedding"
)

var embedCmd = &cobra.Command{
	Use:   "embed <image> [image...]",
	Short: "Generate face embeddings and store them as samples",
	Long: `Generate face embeddings for one or more images. Each embedding is
computed by an isolated worker process and stored as a face sample.

Examples:
  # Embed a single face image
  face-resolver embed face.jpg

  # Embed a face region cut out of a larger photo
  face-resolver embed photo.jpg --bbox 120,80,200,200

  # Embed a directory worth of images with the arcface model
  face-resolver embed photos/*.jpg --model arcface --concurrency 3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEmbed,
}

func init() {
	rootCmd.AddCommand(embedCmd)

	embedCmd.Flags().String("model", string(embedding.ModelFaceNet), "Embedding model (facenet or arcface)")
	embedCmd.Flags().String("bbox", "", "Face bounding box as x,y,w,h (single image only)")
	embedCmd.Flags().Int("concurrency", 5, "Number of parallel workers")
}

func runEmbed(cmd *cobra.Command, args []string) error {
	modelName := mustGetString(cmd, "model")
	bbox := mustGetString(cmd, "bbox")
	concurrency := mustGetInt(cmd, "concurrency")

	model, err := embedding.ParseModel(modelName)
	if err != nil {
		return err
	}
	if bbox != "" && len(args) > 1 {
		return fmt.Errorf("--bbox applies to a single image, got %d", len(args))
	}

	ctx := context.Background()
	cfg := config.Load()

	store, pool, err := openStore(ctx, cfg, model)
	if err != nil {
		return err
	}
	defer pool.Close()

	generator := embedding.NewGenerator(
		cfg.Worker.Interpreter,
		cfg.Worker.Script,
		time.Duration(cfg.Worker.TimeoutSeconds)*time.Second,
	)

	if bbox != "" {
		region, err := parseBBox(bbox)
		if err != nil {
			return err
		}
		return embedCroppedFace(ctx, generator, store, args[0], region, model)
	}

	if len(args) == 1 {
		id, err := embedOne(ctx, generator, store, args[0], model)
		if err != nil {
			return err
		}
		fmt.Printf("Stored sample %d for %s\n", id, args[0])
		return nil
	}

	return embedMany(ctx, generator, store, args, model, concurrency)
}

func embedOne(ctx context.Context, generator *embedding.Generator, store database.SampleWriter, imagePath string, model embedding.Model) (int64, error) {
	result, err := generator.Generate(ctx, imagePath, model)
	if err != nil {
		return 0, fmt.Errorf("embed %s: %w", imagePath, err)
	}

	return store.SaveSample(ctx, &database.FaceSample{
		ImagePath: imagePath,
		Embedding: result.Embedding,
		Model:     result.Model.String(),
		Dim:       result.Dimensions,
	})
}

func embedCroppedFace(ctx context.Context, generator *embedding.Generator, store database.SampleWriter, imagePath string, region crop.Region, model embedding.Model) error {
	cropPath, err := crop.WriteTemp(imagePath, region, model.InputSize(), os.TempDir())
	if err != nil {
		return fmt.Errorf("crop face from %s: %w", imagePath, err)
	}
	defer os.Remove(cropPath)

	result, err := generator.Generate(ctx, cropPath, model)
	if err != nil {
		return fmt.Errorf("embed face crop: %w", err)
	}

	id, err := store.SaveSample(ctx, &database.FaceSample{
		ImagePath: imagePath,
		Embedding: result.Embedding,
		Model:     result.Model.String(),
		Dim:       result.Dimensions,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Stored sample %d for face at %d,%d in %s\n", id, region.X, region.Y, imagePath)
	return nil
}

func embedMany(ctx context.Context, generator *embedding.Generator, store database.SampleWriter, paths []string, model embedding.Model, concurrency int) error {
	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("Computing embeddings"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var successCount, errorCount int
	var mu sync.Mutex

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, path := range paths {
		wg.Add(1)
		go func(imagePath string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			_, err := embedOne(ctx, generator, store, imagePath, model)

			mu.Lock()
			if err != nil {
				errorCount++
			} else {
				successCount++
			}
			mu.Unlock()
			bar.Add(1)
		}(path)
	}

	wg.Wait()
	fmt.Printf("\n\nCompleted: %d successful, %d errors\n", successCount, errorCount)
	return nil
}

// parseBBox parses "x,y,w,h" into a crop region.
func parseBBox(s string) (crop.Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return crop.Region{}, fmt.Errorf("invalid bbox %q, expected x,y,w,h", s)
	}

	values := make([]int, 4)
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return crop.Region{}, fmt.Errorf("invalid bbox component %q: %w", part, err)
		}
		values[i] = n
	}

	return crop.Region{X: values[0], Y: values[1], Width: values[2], Height: values[3]}, nil
}
