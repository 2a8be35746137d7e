package identify

import "fmt"

// Strategy selects how the K nearest neighbors are turned into a decision.
type Strategy string

const (
	// StrategyBestMatch accepts the single closest reference if it clears
	// the similarity threshold.
	StrategyBestMatch Strategy = "best_match"

	// StrategyMajorityVote lets the K nearest neighbors above the
	// similarity threshold vote on the identity.
	StrategyMajorityVote Strategy = "majority_vote"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case StrategyBestMatch, StrategyMajorityVote:
		return Strategy(name), nil
	default:
		return "", fmt.Errorf("unknown assignment strategy %q", name)
	}
}

// Default assignment parameters; overridable via configuration.
const (
	DefaultK                   = 5
	DefaultSimilarityThreshold = 0.6
	DefaultVoteThreshold       = 0.5
)

// Options configures an assignment decision.
type Options struct {
	Strategy            Strategy
	K                   int
	SimilarityThreshold float64
	VoteThreshold       float64
}

func (o Options) withDefaults() Options {
	if o.Strategy == "" {
		o.Strategy = StrategyBestMatch
	}
	if o.K <= 0 {
		o.K = DefaultK
	}
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if o.VoteThreshold <= 0 {
		o.VoteThreshold = DefaultVoteThreshold
	}
	return o
}

// Assignment is the outcome of one assignment decision. Matched=false is a
// normal no-match outcome, not an error. Neighbors always holds the ranked
// K nearest references, even when no assignment was made.
type Assignment struct {
	Matched    bool
	IdentityID int64
	Confidence float64
	Neighbors  []Neighbor
}

// Assign decides whether the query embedding belongs to one of the
// reference identities.
//
// Best-match accepts the top neighbor when its similarity clears
// SimilarityThreshold; confidence is that similarity. Majority vote
// discards neighbors below the threshold, counts votes per identity among
// the survivors, and requires the winner to hold at least VoteThreshold of
// the surviving votes; confidence is the mean similarity of the winner's
// votes. Tied vote counts are broken by higher mean similarity, then by
// lower identity ID, so the result never depends on iteration order.
func Assign(query []float32, references []Reference, opts Options) (Assignment, error) {
	opts = opts.withDefaults()

	if len(references) == 0 {
		return Assignment{Neighbors: []Neighbor{}}, nil
	}

	neighbors, err := FindKNearest(query, references, opts.K)
	if err != nil {
		return Assignment{}, err
	}

	result := Assignment{Neighbors: neighbors}
	if len(neighbors) == 0 {
		result.Neighbors = []Neighbor{}
		return result, nil
	}

	switch opts.Strategy {
	case StrategyMajorityVote:
		applyMajorityVote(&result, neighbors, opts)
	default:
		applyBestMatch(&result, neighbors, opts)
	}
	return result, nil
}

func applyBestMatch(result *Assignment, neighbors []Neighbor, opts Options) {
	top := neighbors[0]
	if top.Similarity < opts.SimilarityThreshold {
		return
	}
	result.Matched = true
	result.IdentityID = top.IdentityID
	result.Confidence = top.Similarity
}

// voteTally aggregates one identity's surviving votes within a single call.
type voteTally struct {
	identityID int64
	votes      int
	simSum     float64
}

func (t *voteTally) meanSimilarity() float64 {
	return t.simSum / float64(t.votes)
}

func applyMajorityVote(result *Assignment, neighbors []Neighbor, opts Options) {
	// Discard neighbors below the similarity threshold.
	tallies := make(map[int64]*voteTally)
	order := make([]int64, 0, len(neighbors))
	survivors := 0
	for _, n := range neighbors {
		if n.Similarity < opts.SimilarityThreshold {
			continue
		}
		survivors++
		t, ok := tallies[n.IdentityID]
		if !ok {
			t = &voteTally{identityID: n.IdentityID}
			tallies[n.IdentityID] = t
			order = append(order, n.IdentityID)
		}
		t.votes++
		t.simSum += n.Similarity
	}

	if survivors == 0 {
		return
	}

	// Pick the winner over the insertion-ordered tallies: most votes,
	// then higher mean similarity, then lower identity ID.
	var winner *voteTally
	for _, id := range order {
		t := tallies[id]
		if winner == nil || betterTally(t, winner) {
			winner = t
		}
	}

	if float64(winner.votes)/float64(survivors) < opts.VoteThreshold {
		return // inconclusive vote
	}

	result.Matched = true
	result.IdentityID = winner.identityID
	result.Confidence = winner.meanSimilarity()
}

func betterTally(a, b *voteTally) bool {
	if a.votes != b.votes {
		return a.votes > b.votes
	}
	if a.meanSimilarity() != b.meanSimilarity() {
		return a.meanSimilarity() > b.meanSimilarity()
	}
	return a.identityID < b.identityID
}
