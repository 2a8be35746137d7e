package identify

import (
	"math"
	"testing"
)

func TestAssignBestMatch(t *testing.T) {
	opts := Options{
		Strategy:            StrategyBestMatch,
		K:                   2,
		SimilarityThreshold: 0.7,
	}

	result, err := Assign([]float32{0.95, 0.05, 0}, axisReferences(), opts)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if !result.Matched {
		t.Fatal("expected a match")
	}
	if result.IdentityID != 1 {
		t.Errorf("IdentityID = %d; want 1", result.IdentityID)
	}
	if math.Abs(result.Confidence-0.9986) > 1e-3 {
		t.Errorf("Confidence = %v; want ~0.9986", result.Confidence)
	}
	if len(result.Neighbors) != 2 {
		t.Errorf("got %d neighbors; want 2", len(result.Neighbors))
	}
}

func TestAssignBestMatchUnnormalizedQuery(t *testing.T) {
	// [0,0,0.5] points the same way as [0,0,1]; cosine is scale invariant.
	result, err := Assign([]float32{0, 0, 0.5}, axisReferences(), Options{
		Strategy:            StrategyBestMatch,
		K:                   2,
		SimilarityThreshold: 0.7,
	})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if !result.Matched || result.IdentityID != 3 {
		t.Fatalf("got identity %d (matched=%v); want 3", result.IdentityID, result.Matched)
	}
	if math.Abs(result.Confidence-1.0) > tolerance {
		t.Errorf("Confidence = %v; want ~1.0", result.Confidence)
	}
}

func TestAssignBestMatchBelowThreshold(t *testing.T) {
	// Query between axes: best similarity ~0.707, below 0.9.
	result, err := Assign([]float32{1, 1, 0}, axisReferences(), Options{
		Strategy:            StrategyBestMatch,
		K:                   1,
		SimilarityThreshold: 0.9,
	})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if result.Matched {
		t.Errorf("matched identity %d below threshold", result.IdentityID)
	}
	if len(result.Neighbors) == 0 {
		t.Error("neighbors should still be reported on no-match")
	}
}

func TestAssignEmptyReferences(t *testing.T) {
	result, err := Assign([]float32{1, 0, 0}, nil, Options{Strategy: StrategyBestMatch})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if result.Matched {
		t.Error("matched with no references")
	}
	if result.Confidence != 0 {
		t.Errorf("Confidence = %v; want 0", result.Confidence)
	}
	if result.Neighbors == nil || len(result.Neighbors) != 0 {
		t.Errorf("Neighbors = %v; want empty non-nil slice", result.Neighbors)
	}
}

func TestMajorityVoteScenario(t *testing.T) {
	// Three of four surviving votes for identity 1.
	neighbors := []Neighbor{
		{IdentityID: 1, Similarity: 0.9},
		{IdentityID: 1, Similarity: 0.85},
		{IdentityID: 1, Similarity: 0.88},
		{IdentityID: 2, Similarity: 0.80},
	}
	opts := Options{
		Strategy:            StrategyMajorityVote,
		SimilarityThreshold: 0.7,
		VoteThreshold:       0.5,
	}

	var result Assignment
	applyMajorityVote(&result, neighbors, opts)

	if !result.Matched || result.IdentityID != 1 {
		t.Fatalf("got identity %d (matched=%v); want 1", result.IdentityID, result.Matched)
	}
	want := (0.9 + 0.85 + 0.88) / 3
	if math.Abs(result.Confidence-want) > tolerance {
		t.Errorf("Confidence = %v; want %v", result.Confidence, want)
	}
}

func TestMajorityVoteDiscardsBelowThreshold(t *testing.T) {
	// Identity 2 has more raw votes but they all fall below the threshold.
	neighbors := []Neighbor{
		{IdentityID: 1, Similarity: 0.9},
		{IdentityID: 2, Similarity: 0.6},
		{IdentityID: 2, Similarity: 0.55},
		{IdentityID: 2, Similarity: 0.5},
	}
	var result Assignment
	applyMajorityVote(&result, neighbors, Options{
		SimilarityThreshold: 0.7,
		VoteThreshold:       0.5,
	})

	if !result.Matched || result.IdentityID != 1 {
		t.Fatalf("got identity %d (matched=%v); want 1", result.IdentityID, result.Matched)
	}
}

func TestMajorityVoteNoSurvivors(t *testing.T) {
	neighbors := []Neighbor{
		{IdentityID: 1, Similarity: 0.4},
		{IdentityID: 2, Similarity: 0.3},
	}
	var result Assignment
	applyMajorityVote(&result, neighbors, Options{
		SimilarityThreshold: 0.7,
		VoteThreshold:       0.5,
	})
	if result.Matched {
		t.Error("matched with no surviving votes")
	}
}

func TestMajorityVoteInconclusive(t *testing.T) {
	// 2 of 4 surviving votes is below a 0.6 vote threshold.
	neighbors := []Neighbor{
		{IdentityID: 1, Similarity: 0.9},
		{IdentityID: 1, Similarity: 0.85},
		{IdentityID: 2, Similarity: 0.88},
		{IdentityID: 3, Similarity: 0.8},
	}
	var result Assignment
	applyMajorityVote(&result, neighbors, Options{
		SimilarityThreshold: 0.7,
		VoteThreshold:       0.6,
	})
	if result.Matched {
		t.Errorf("vote should be inconclusive, matched identity %d", result.IdentityID)
	}
}

func TestMajorityVoteTieBrokenByMeanSimilarity(t *testing.T) {
	neighbors := []Neighbor{
		{IdentityID: 1, Similarity: 0.95},
		{IdentityID: 1, Similarity: 0.71},
		{IdentityID: 2, Similarity: 0.9},
		{IdentityID: 2, Similarity: 0.88},
	}
	var result Assignment
	applyMajorityVote(&result, neighbors, Options{
		SimilarityThreshold: 0.7,
		VoteThreshold:       0.5,
	})

	// Both have 2 votes; identity 2's mean (0.89) beats identity 1's (0.83).
	if !result.Matched || result.IdentityID != 2 {
		t.Fatalf("got identity %d (matched=%v); want 2", result.IdentityID, result.Matched)
	}
	if math.Abs(result.Confidence-0.89) > tolerance {
		t.Errorf("Confidence = %v; want 0.89", result.Confidence)
	}
}

func TestMajorityVoteFullTieFallsBackToLowerID(t *testing.T) {
	neighbors := []Neighbor{
		{IdentityID: 9, Similarity: 0.85},
		{IdentityID: 4, Similarity: 0.85},
	}
	var result Assignment
	applyMajorityVote(&result, neighbors, Options{
		SimilarityThreshold: 0.7,
		VoteThreshold:       0.5,
	})
	if !result.Matched || result.IdentityID != 4 {
		t.Fatalf("got identity %d (matched=%v); want 4", result.IdentityID, result.Matched)
	}
}

func TestAssignThresholdMonotonicity(t *testing.T) {
	queries := [][]float32{
		{0.95, 0.05, 0},
		{0.6, 0.6, 0.1},
		{0.1, 0.2, 0.97},
		{0.5, 0.5, 0.5},
	}
	refs := axisReferences()

	matchesAt := func(threshold float64) int {
		matched := 0
		for _, q := range queries {
			result, err := Assign(q, refs, Options{
				Strategy:            StrategyBestMatch,
				K:                   3,
				SimilarityThreshold: threshold,
			})
			if err != nil {
				t.Fatalf("Assign failed: %v", err)
			}
			if result.Matched {
				matched++
			}
		}
		return matched
	}

	prev := matchesAt(0.1)
	for _, threshold := range []float64{0.3, 0.5, 0.7, 0.9, 0.99} {
		cur := matchesAt(threshold)
		if cur > prev {
			t.Errorf("raising threshold to %v increased matches: %d -> %d", threshold, prev, cur)
		}
		prev = cur
	}
}

func TestParseStrategy(t *testing.T) {
	if _, err := ParseStrategy("best_match"); err != nil {
		t.Errorf("best_match should parse: %v", err)
	}
	if _, err := ParseStrategy("majority_vote"); err != nil {
		t.Errorf("majority_vote should parse: %v", err)
	}
	if _, err := ParseStrategy("plurality"); err == nil {
		t.Error("unknown strategy should fail")
	}
}
