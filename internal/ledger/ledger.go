// Package ledger models a point-in-time staking snapshot and computes
// effective stake weight for governance voters under the V1/V2/MEF
// delegation rules.
package ledger

import (
	"errors"

	"github.com/shopspring/decimal"

	"ocvd/internal/vote"
)

// LedgerBalanceScale is the fixed-point fractional scale balances and
// weights are carried at; it matches the archive's native balance
// precision and must never be approximated with binary floats.
const LedgerBalanceScale = 9

// ErrAccountNotFound is returned when a voter's public key has no matching
// LedgerAccount in the snapshot.
var ErrAccountNotFound = errors.New("ledger: account not found")

// Account is a single staking account in the snapshot.
type Account struct {
	PK       string
	Balance  string // decimal-as-text; parse failures are treated as 0
	Delegate string // empty means self-delegation
}

// Ledger is an immutable, PK-keyed set of staking accounts.
type Ledger struct {
	byPK map[string]Account
}

// New builds a Ledger from a flat account list. Later entries for a
// duplicate PK overwrite earlier ones.
func New(accounts []Account) *Ledger {
	l := &Ledger{byPK: make(map[string]Account, len(accounts))}
	for _, a := range accounts {
		l.byPK[a.PK] = a
	}
	return l
}

// Len reports the number of accounts in the snapshot.
func (l *Ledger) Len() int { return len(l.byPK) }

func (l *Ledger) lookup(pk string) (Account, bool) {
	a, ok := l.byPK[pk]
	return a, ok
}

// delegateOf returns the effective delegate of a: itself, when Delegate is
// unset.
func delegateOf(a Account) string {
	if a.Delegate == "" {
		return a.PK
	}
	return a.Delegate
}

func parseBalance(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Version selects the delegation rule applied to a proposal's stake
// weighting.
type Version int

const (
	V1 Version = iota
	V2
	MEF // equivalent to V1
)

// StakeWeight computes pk's effective stake weight under version, given
// the current set of reduced votes V (so V2's self-representation
// exclusion and accurate delegate lookups can be applied).
func (l *Ledger) StakeWeight(version Version, votes map[string]vote.Vote, pk string) (decimal.Decimal, error) {
	self, ok := l.lookup(pk)
	if !ok {
		return decimal.Zero, ErrAccountNotFound
	}

	switch version {
	case V2:
		return l.stakeWeightV2(votes, pk, self), nil
	default: // V1, MEF
		return l.stakeWeightV1(pk, self), nil
	}
}

func (l *Ledger) stakeWeightV1(pk string, self Account) decimal.Decimal {
	if delegateOf(self) != pk {
		return decimal.Zero
	}
	total := parseBalance(self.Balance)
	for otherPK, other := range l.byPK {
		if otherPK == pk {
			continue
		}
		if delegateOf(other) == pk {
			total = total.Add(parseBalance(other.Balance))
		}
	}
	return total
}

func (l *Ledger) stakeWeightV2(votes map[string]vote.Vote, pk string, self Account) decimal.Decimal {
	total := parseBalance(self.Balance)
	for otherPK, other := range l.byPK {
		if otherPK == pk {
			continue
		}
		if delegateOf(other) != pk {
			continue
		}
		if _, votedDirectly := votes[otherPK]; votedDirectly {
			continue
		}
		total = total.Add(parseBalance(other.Balance))
	}
	return total
}
