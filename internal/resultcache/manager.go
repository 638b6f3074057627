package resultcache

import (
	"time"

	"ocvd/internal/ledger"
	"ocvd/internal/rankedvote"
	"ocvd/internal/stakeweight"
	"ocvd/internal/vote"
)

// TTLs, matching the four named caches the source built with moka.
const (
	votesTTL         = 5 * time.Minute
	votesWeightedTTL = 5 * time.Minute
	ledgerTTL        = 12 * time.Hour
	rankedVotesTTL   = 5 * time.Minute
)

// Manager bundles the per-kind TTL caches the facade layer reads through,
// keyed by proposal key or a composite "mef:"/"ranked:" round key
// (votes/weighted/ranked) or by ledger hash (ledger).
type Manager struct {
	Votes         *TTLCache[[]vote.Vote]
	VotesWeighted *TTLCache[[]stakeweight.WeightedVote]
	Ledger        *TTLCache[*ledger.Ledger]
	RankedVotes   *TTLCache[rankedvote.ElectionResult]
}

// NewManager builds a Manager with each cache's TTL fixed at construction.
func NewManager() *Manager {
	return &Manager{
		Votes:         New[[]vote.Vote](votesTTL),
		VotesWeighted: New[[]stakeweight.WeightedVote](votesWeightedTTL),
		Ledger:        New[*ledger.Ledger](ledgerTTL),
		RankedVotes:   New[rankedvote.ElectionResult](rankedVotesTTL),
	}
}
