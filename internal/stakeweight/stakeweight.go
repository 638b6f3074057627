// Package stakeweight joins reduced votes with a ledger snapshot to produce
// weighted votes and aggregate yes/no sums.
package stakeweight

import (
	"strings"

	"github.com/shopspring/decimal"

	"ocvd/internal/ledger"
	"ocvd/internal/vote"
)

// WeightedVote is a reduced vote extended with its stake weight.
type WeightedVote struct {
	vote.Vote
	Weight decimal.Decimal
}

// Weigh computes a WeightedVote for every account in votes, dropping any
// voter whose public key has no matching ledger account.
func Weigh(l *ledger.Ledger, version ledger.Version, votes map[string]vote.Vote) []WeightedVote {
	out := make([]WeightedVote, 0, len(votes))
	for pk, v := range votes {
		// StakeWeight's only error is ErrAccountNotFound: the voter isn't in
		// this ledger snapshot, so it's excluded from the weighted tally.
		w, err := l.StakeWeight(version, votes, pk)
		if err != nil {
			continue
		}
		out = append(out, WeightedVote{Vote: v, Weight: w})
	}
	return out
}

// Totals is the aggregate yes/no/total tally for a set of weighted votes.
type Totals struct {
	Positive decimal.Decimal
	Negative decimal.Decimal
	Total    decimal.Decimal
}

// isNegative reports whether memo's first whitespace-delimited token is
// "no" (case-insensitive), matching both the single-proposal ("no <key>")
// and MEF ("mef<round> no <id>" already normalized to "no") dialects.
func isNegative(memo string) bool {
	fields := strings.Fields(memo)
	if len(fields) == 0 {
		return false
	}
	return strings.EqualFold(fields[0], "no")
}

// Aggregate sums weighted votes into positive/negative/total stake.
// Arithmetic is exact decimal; no rounding occurs.
func Aggregate(votes []WeightedVote) Totals {
	t := Totals{Positive: decimal.Zero, Negative: decimal.Zero}
	for _, wv := range votes {
		if isNegative(wv.Memo) {
			t.Negative = t.Negative.Add(wv.Weight)
		} else {
			t.Positive = t.Positive.Add(wv.Weight)
		}
	}
	t.Total = t.Positive.Add(t.Negative)
	return t
}
