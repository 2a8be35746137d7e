package mariadb

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-resolver/internal/database"
)

// ImportStats summarizes one importer run.
type ImportStats struct {
	Imported int
	Skipped  int
	Labeled  int
}

// ImportMarkers copies PhotoPrism face markers into the local store as
// face samples. Markers whose embedding dimension does not match dim are
// skipped. Markers with a subject name become labeled samples: the
// identity is created on first sight (name matching is diacritic- and
// case-insensitive) and the assignment is recorded without a confidence,
// since it came from a human, not from a similarity score.
func ImportMarkers(ctx context.Context, pool *Pool, store database.Store, model string, dim int) (*ImportStats, error) {
	markers, err := pool.ListFaceMarkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list face markers: %w", err)
	}
	return importMarkers(ctx, markers, store, model, dim)
}

func importMarkers(ctx context.Context, markers []FaceMarker, store database.Store, model string, dim int) (*ImportStats, error) {
	stats := &ImportStats{}
	identityIDs := make(map[string]int64)

	for _, marker := range markers {
		if len(marker.Embedding) != dim {
			stats.Skipped++
			continue
		}

		sampleID, err := store.SaveSample(ctx, &database.FaceSample{
			ImagePath: marker.FileName,
			Embedding: marker.Embedding,
			Model:     model,
			Dim:       dim,
		})
		if err != nil {
			return stats, fmt.Errorf("save sample for marker %s: %w", marker.MarkerUID, err)
		}
		stats.Imported++

		if marker.SubjectName == "" {
			continue
		}

		identityID, err := resolveIdentity(ctx, store, identityIDs, marker.SubjectName)
		if err != nil {
			return stats, fmt.Errorf("resolve identity %q: %w", marker.SubjectName, err)
		}
		if err := store.RecordAssignment(ctx, sampleID, identityID, nil); err != nil {
			return stats, fmt.Errorf("assign sample %d: %w", sampleID, err)
		}
		stats.Labeled++
	}

	return stats, nil
}

func resolveIdentity(ctx context.Context, store database.Store, cache map[string]int64, name string) (int64, error) {
	key := database.NormalizeIdentityName(name)
	if id, ok := cache[key]; ok {
		return id, nil
	}

	existing, err := store.FindIdentityByName(ctx, name)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		cache[key] = existing.ID
		return existing.ID, nil
	}

	id, err := store.CreateIdentity(ctx, name)
	if err != nil {
		return 0, err
	}
	cache[key] = id
	return id, nil
}
