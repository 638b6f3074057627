// Package rankedvote implements a reference-compatible multi-winner
// instant-runoff (IRV) election engine: ballot normalization, batch and
// single-candidate elimination with tiebreaks, undeclared write-in
// handling, and per-round transfer statistics.
package rankedvote

import "errors"

// Election-level errors returned by RunSimpleElection.
var (
	ErrNoConvergence        = errors.New("rankedvote: no convergence after 10000 rounds")
	ErrEmptyElection        = errors.New("rankedvote: empty election")
	ErrNoCandidateToEliminate = errors.New("rankedvote: no candidate left to eliminate")
)

// ChoiceKind enumerates the kinds of marks a voter can make at a single
// ballot rank.
type ChoiceKind int

const (
	ChoiceCandidate ChoiceKind = iota
	ChoiceBlank
	ChoiceUndervote
	ChoiceOvervote
	ChoiceUndeclaredWriteIn
)

// BallotChoice is one rank position on a ballot.
type BallotChoice struct {
	Kind ChoiceKind
	Name string // meaningful only when Kind == ChoiceCandidate
}

// CandidateChoice is a convenience constructor for a filled rank.
func CandidateChoice(name string) BallotChoice {
	return BallotChoice{Kind: ChoiceCandidate, Name: name}
}

var (
	BlankChoice             = BallotChoice{Kind: ChoiceBlank}
	UndervoteChoice         = BallotChoice{Kind: ChoiceUndervote}
	OvervoteChoice          = BallotChoice{Kind: ChoiceOvervote}
	UndeclaredWriteInChoice = BallotChoice{Kind: ChoiceUndeclaredWriteIn}
)

// Ballot is an ordered sequence of ranked choices, representing Count
// identical physical ballots.
type Ballot struct {
	Choices []BallotChoice
	Count   uint64
}

// CandidateSpec is a registered candidate.
type CandidateSpec struct {
	Name     string
	Excluded bool
}

// TieBreakKind selects how ties among minimum-tally candidates are broken.
type TieBreakKind int

const (
	UseCandidateOrder TieBreakKind = iota
	RandomSeed
)

// TieBreak configures the tiebreak policy. Seed is only used when
// Kind == RandomSeed.
type TieBreak struct {
	Kind TieBreakKind
	Seed uint32
}

// OverVoteRule governs how an Overvote choice affects ballot normalization.
type OverVoteRule int

const (
	OverVoteExhaustImmediately OverVoteRule = iota
	OverVoteAlwaysSkip
)

// DuplicateCandidateMode governs how a repeated candidate in a ballot's
// prefix is treated.
type DuplicateCandidateMode int

const (
	DuplicateExhaust DuplicateCandidateMode = iota
	DuplicateAllow
)

// MaxSkippedRankKind selects the skipped-rank (blank/undervote) policy.
type MaxSkippedRankKind int

const (
	SkipUnlimited MaxSkippedRankKind = iota
	SkipExhaustOnFirstOccurrence
	SkipMaxAllowed
)

// MaxSkippedRank configures the skipped-rank policy. Limit is only used
// when Kind == SkipMaxAllowed.
type MaxSkippedRank struct {
	Kind  MaxSkippedRankKind
	Limit int
}

// EliminationAlgorithm selects whether elimination proceeds in batches or
// one candidate at a time.
type EliminationAlgorithm int

const (
	EliminationBatch EliminationAlgorithm = iota
	EliminationSingle
)

// VoteRules bundles the configurable ballot-validity and elimination
// policies a single election run applies.
type VoteRules struct {
	TieBreak              TieBreak
	OverVote              OverVoteRule
	DuplicateCandidate    DuplicateCandidateMode
	MaxSkippedRankAllowed MaxSkippedRank
	Elimination           EliminationAlgorithm
	// MaxRankingsAllowed bounds the number of multi-winner spots; 0 means
	// unbounded (stop only when no candidates remain).
	MaxRankingsAllowed uint32
}

// DefaultVoteRules returns the rule set this implementation runs S5-style
// elections with, matching the reference election's default behavior.
func DefaultVoteRules() VoteRules {
	return VoteRules{
		TieBreak:              TieBreak{Kind: UseCandidateOrder},
		OverVote:              OverVoteAlwaysSkip,
		DuplicateCandidate:    DuplicateExhaust,
		MaxSkippedRankAllowed: MaxSkippedRank{Kind: SkipUnlimited},
		Elimination:           EliminationBatch,
		MaxRankingsAllowed:    0,
	}
}

// NameCount pairs a candidate (or "Undeclared Write-ins") name with a vote
// count, used in public round reporting.
type NameCount struct {
	Name  string
	Count uint64
}

// EliminationStats reports, for one eliminated candidate in a round, where
// their ballots went.
type EliminationStats struct {
	Name      string
	Transfers []NameCount
	Exhausted uint64
}

// RoundStats is the public per-round report.
type RoundStats struct {
	Round              uint32
	Tally              []NameCount
	Elected            []string
	EliminatedStats    []EliminationStats
}

// ElectionStats groups the rounds that produced one winning spot.
type ElectionStats struct {
	SpotPosition uint32
	Rounds       []RoundStats
}

// ElectionResult is the final multi-winner outcome.
type ElectionResult struct {
	Winners []string
	Stats   []ElectionStats
}
