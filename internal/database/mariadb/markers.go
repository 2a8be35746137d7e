package mariadb

import (
	"context"
	"encoding/json"
	"fmt"
)

// FaceMarker is a PhotoPrism face marker with its stored embedding and
// the subject name assigned inside PhotoPrism, if any.
type FaceMarker struct {
	MarkerUID   string
	FileName    string
	Embedding   []float32
	SubjectName string
}

// ListFaceMarkers returns all face markers that carry an embedding.
// PhotoPrism stores marker embeddings as [[e1, e2, ...]] (JSON
// list-of-lists in a mediumblob); markers with empty or malformed
// embeddings are skipped rather than failing the whole listing.
func (p *Pool) ListFaceMarkers(ctx context.Context) ([]FaceMarker, error) {
	query := `
		SELECT m.marker_uid, COALESCE(fi.file_name, ''), m.embeddings_json, COALESCE(s.subj_name, '')
		FROM markers m
		LEFT JOIN files fi ON fi.file_uid = m.file_uid
		LEFT JOIN subjects s ON s.subj_uid = m.subj_uid
		WHERE m.marker_type = 'face'
		ORDER BY m.marker_uid
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query markers: %w", err)
	}
	defer rows.Close()

	var markers []FaceMarker
	for rows.Next() {
		var m FaceMarker
		var raw []byte
		if err := rows.Scan(&m.MarkerUID, &m.FileName, &raw, &m.SubjectName); err != nil {
			return nil, fmt.Errorf("scan marker: %w", err)
		}

		embedding, ok := decodeMarkerEmbedding(raw)
		if !ok {
			continue
		}
		m.Embedding = embedding
		markers = append(markers, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate markers: %w", err)
	}
	return markers, nil
}

// decodeMarkerEmbedding parses PhotoPrism's list-of-lists format and
// returns the first (only) vector.
func decodeMarkerEmbedding(raw []byte) ([]float32, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var wrapped [][]float32
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, false
	}
	if len(wrapped) == 0 || len(wrapped[0]) == 0 {
		return nil, false
	}
	return wrapped[0], true
}

// CountFaceMarkers returns the number of face markers with embeddings.
func (p *Pool) CountFaceMarkers(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*) FROM markers
		WHERE marker_type = 'face' AND embeddings_json IS NOT NULL AND embeddings_json != ''
	`
	var count int
	if err := p.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count markers: %w", err)
	}
	return count, nil
}
