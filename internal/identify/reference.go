package identify

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-resolver/internal/database"
)

// BuildReferences constructs one reference per known identity by meaning
// the embeddings of its labeled samples. Computed fresh per operation so
// newly labeled samples immediately shift the reference point. Identities
// without any usable embedding are omitted.
func BuildReferences(ctx context.Context, provider database.ReferenceProvider) ([]Reference, error) {
	ids, err := provider.ListIdentityIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}

	references := make([]Reference, 0, len(ids))
	for _, id := range ids {
		members, err := provider.GetIdentityEmbeddings(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get embeddings for identity %d: %w", id, err)
		}
		mean := MeanEmbedding(members)
		if mean == nil {
			continue
		}
		references = append(references, Reference{IdentityID: id, Embedding: mean})
	}
	return references, nil
}
