// Package vote reduces a multiset of memo-bearing transactions down to at
// most one canonical vote per account.
package vote

import (
	"sort"
	"strings"

	"ocvd/internal/memo"
)

// ChainStatus classifies a vote's containing block.
type ChainStatus string

const (
	StatusPending   ChainStatus = "pending"
	StatusCanonical ChainStatus = "canonical"
)

// canonicalDepth is the confirmation depth past which a block is canonical.
const canonicalDepth = 10

// Transaction is a raw archive row: a self-payment carrying a memo.
type Transaction struct {
	Account   string
	Hash      string
	Memo      string // raw base58check
	Height    int64
	Nonce     int64
	Timestamp int64
}

// Vote is the reduced, per-account record.
type Vote struct {
	Account   string
	Hash      string
	Memo      string // decoded, dialect-canonical form
	Height    int64
	Status    ChainStatus
	Timestamp int64
	Nonce     int64
}

// ReduceOrder selects which end of the (height, nonce) ordering wins when
// more than one matching transaction exists for an account.
//
// The single-proposal and MEF dialects use Newest, letting a voter change
// their mind; the ranked-choice dialect uses Oldest, so a voter's first
// submitted ballot sticks even if they later transact again with a memo
// that happens to match the same round.
type ReduceOrder int

const (
	Newest ReduceOrder = iota
	Oldest
)

// Classifier decodes an already base58check-decoded memo payload and
// reports whether it matches the caller's requested vote dialect, returning
// the canonical form to store on the reduced Vote.
type Classifier func(payload string) (canonical string, ok bool)

func statusFor(height, chainTip int64) ChainStatus {
	if chainTip-height >= canonicalDepth {
		return StatusCanonical
	}
	return StatusPending
}

// less reports whether (h1, n1) sorts strictly before (h2, n2).
func less(h1, n1, h2, n2 int64) bool {
	if h1 != h2 {
		return h1 < h2
	}
	return n1 < n2
}

// Reduce folds txs into at most one Vote per account, keeping whichever
// transaction order wins and discarding payloads the classifier rejects.
// chainTip is the archive's current chain tip (its maximum block height), used to re-derive
// each surviving vote's block status.
func Reduce(txs []Transaction, chainTip int64, order ReduceOrder, classify Classifier) map[string]Vote {
	out := make(map[string]Vote, len(txs))
	for _, tx := range txs {
		payload, err := memo.Decode(tx.Memo)
		if err != nil {
			continue
		}
		canonical, ok := classify(payload)
		if !ok {
			continue
		}
		candidate := Vote{
			Account:   tx.Account,
			Hash:      tx.Hash,
			Memo:      canonical,
			Height:    tx.Height,
			Status:    statusFor(tx.Height, chainTip),
			Timestamp: tx.Timestamp,
			Nonce:     tx.Nonce,
		}

		incumbent, present := out[tx.Account]
		if !present {
			out[tx.Account] = candidate
			continue
		}

		var replace bool
		switch order {
		case Newest:
			replace = less(incumbent.Height, incumbent.Nonce, candidate.Height, candidate.Nonce)
		case Oldest:
			replace = less(candidate.Height, candidate.Nonce, incumbent.Height, incumbent.Nonce)
		}
		if replace {
			out[tx.Account] = candidate
		}
	}
	return out
}

// RankedVote is a reduced vote extended with its ranked-choice ballot: the
// ordered sequence of proposal-id strings the account ranked.
type RankedVote struct {
	Vote
	Proposals []string
}

// RankedChoiceClassifier decodes a memo payload for the ranked-choice
// dialect against the target round, encoding the ballot as its
// whitespace-joined proposals so it survives Reduce's string-typed
// Classifier signature; ToRankedVotes splits it back out.
func RankedChoiceClassifier(round string) Classifier {
	return func(payload string) (string, bool) {
		r, proposals, ok := memo.RankedChoice(payload)
		if !ok || !strings.EqualFold(r, round) {
			return "", false
		}
		return strings.Join(proposals, " "), true
	}
}

// ToRankedVotes expands reduced ranked-choice votes back into their ballots.
func ToRankedVotes(v map[string]Vote) []RankedVote {
	out := make([]RankedVote, 0, len(v))
	for _, vt := range v {
		var proposals []string
		if vt.Memo != "" {
			proposals = strings.Fields(vt.Memo)
		}
		out = append(out, RankedVote{Vote: vt, Proposals: proposals})
	}
	return out
}

// Flatten returns the votes in v sorted by descending timestamp, matching
// the presentation order of GET /api/proposal/{id}.
func Flatten(v map[string]Vote) []Vote {
	out := make([]Vote, 0, len(v))
	for _, vt := range v {
		out = append(out, vt)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out
}
