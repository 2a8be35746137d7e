package mariadb

import (
	"context"
	"testing"

	"github.com/kozaktomas/face-resolver/internal/database/mock"
)

func TestDecodeMarkerEmbedding(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
		ok   bool
	}{
		{"valid list of lists", "[[0.1, 0.2, 0.3]]", 3, true},
		{"empty blob", "", 0, false},
		{"empty outer list", "[]", 0, false},
		{"empty inner list", "[[]]", 0, false},
		{"not json", "garbage", 0, false},
		{"flat list", "[0.1, 0.2]", 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := decodeMarkerEmbedding([]byte(tc.raw))
			if ok != tc.ok {
				t.Fatalf("decodeMarkerEmbedding ok = %v; want %v", ok, tc.ok)
			}
			if len(got) != tc.want {
				t.Errorf("decodeMarkerEmbedding len = %d; want %d", len(got), tc.want)
			}
		})
	}
}

func TestImportMarkers(t *testing.T) {
	ctx := context.Background()
	store := mock.NewStore()

	markers := []FaceMarker{
		{MarkerUID: "m1", FileName: "a.jpg", Embedding: []float32{1, 0, 0}, SubjectName: "Jana Nováková"},
		{MarkerUID: "m2", FileName: "b.jpg", Embedding: []float32{0.9, 0.1, 0}, SubjectName: "jana-novakova"},
		{MarkerUID: "m3", FileName: "c.jpg", Embedding: []float32{0, 1, 0}},
		{MarkerUID: "m4", FileName: "d.jpg", Embedding: []float32{0, 1}}, // wrong dimension
	}

	stats, err := importMarkers(ctx, markers, store, "facenet", 3)
	if err != nil {
		t.Fatalf("importMarkers failed: %v", err)
	}

	if stats.Imported != 3 {
		t.Errorf("Imported = %d; want 3", stats.Imported)
	}
	if stats.Skipped != 1 {
		t.Errorf("Skipped = %d; want 1", stats.Skipped)
	}
	if stats.Labeled != 2 {
		t.Errorf("Labeled = %d; want 2", stats.Labeled)
	}

	// Both spellings of the subject name must resolve to one identity.
	identities, err := store.ListIdentities(ctx)
	if err != nil {
		t.Fatalf("ListIdentities failed: %v", err)
	}
	if len(identities) != 1 {
		t.Fatalf("Expected 1 identity, got %d", len(identities))
	}

	embeddings, err := store.GetIdentityEmbeddings(ctx, identities[0].ID)
	if err != nil {
		t.Fatalf("GetIdentityEmbeddings failed: %v", err)
	}
	if len(embeddings) != 2 {
		t.Errorf("Expected 2 labeled embeddings, got %d", len(embeddings))
	}

	// Imports coming from human labels carry no confidence.
	samples, err := store.ListUnidentified(ctx, "facenet", 0)
	if err != nil {
		t.Fatalf("ListUnidentified failed: %v", err)
	}
	if len(samples) != 1 {
		t.Errorf("Expected 1 unlabeled sample, got %d", len(samples))
	}
}
