package identify

import (
	"context"

	"github.com/kozaktomas/face-resolver/internal/database"
)

// BatchResult is the outcome for one sample in a batch assignment.
// Err is set when that sample failed; other samples are unaffected.
type BatchResult struct {
	SampleID   int64
	Assignment Assignment
	Err        error
}

// AssignBatch runs the assignment decision for each sample against the
// same reference set. One failing sample is reported in its result and
// never aborts the rest of the batch. Samples without embeddings fail
// with ErrIncompatibleEmbeddings (an empty query cannot be compared).
func AssignBatch(samples []database.FaceSample, references []Reference, opts Options) []BatchResult {
	results := make([]BatchResult, len(samples))
	for i := range samples {
		s := &samples[i]
		assignment, err := Assign(s.Embedding, references, opts)
		results[i] = BatchResult{
			SampleID:   s.ID,
			Assignment: assignment,
			Err:        err,
		}
	}
	return results
}

// CommitAssignments records every matched decision through the sink.
// Unmatched and failed results are skipped. Returns the number of
// recorded assignments; a sink failure stops the commit.
func CommitAssignments(ctx context.Context, sink database.AssignmentSink, results []BatchResult) (int, error) {
	committed := 0
	for _, r := range results {
		if r.Err != nil || !r.Assignment.Matched {
			continue
		}
		confidence := r.Assignment.Confidence
		if err := sink.RecordAssignment(ctx, r.SampleID, r.Assignment.IdentityID, &confidence); err != nil {
			return committed, err
		}
		committed++
	}
	return committed, nil
}
