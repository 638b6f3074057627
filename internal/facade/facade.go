// Package facade composes the memo, vote, ledger, stakeweight, rankedvote,
// and resultcache packages into the handful of domain operations the HTTP
// layer serves.
package facade

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ocvd/internal/govconfig"
	"ocvd/internal/ledger"
	"ocvd/internal/manifest"
	"ocvd/internal/memo"
	"ocvd/internal/rankedvote"
	"ocvd/internal/resultcache"
	"ocvd/internal/stakeweight"
	"ocvd/internal/vote"
)

// ErrProposalNotFound is the facade-level "proposal not found" condition.
// The HTTP layer maps this to 404 rather than a generic server error.
var ErrProposalNotFound = errors.New("facade: proposal not found")

// Archive is the read surface the facade needs from the archive database.
type Archive interface {
	FetchChainTip(ctx context.Context) (int64, error)
	FetchLatestSlot(ctx context.Context) (int64, error)
	FetchTransactions(ctx context.Context, startMs, endMs int64) ([]vote.Transaction, error)
}

// LedgerFetcher is the read surface the facade needs from the object-store
// ledger snapshot loader.
type LedgerFetcher interface {
	Fetch(ctx context.Context, epoch int64, hash string) (*ledger.Ledger, error)
}

// CacheObserver optionally records cache hit/miss and election-size metrics;
// nil disables it.
type CacheObserver interface {
	ObserveCacheHit(cache string)
	ObserveCacheMiss(cache string)
	ObserveElectionRounds(rounds int)
}

const (
	cacheNameVotes    = "votes"
	cacheNameWeighted = "votes_weighted"
	cacheNameLedger   = "ledger"
	cacheNameRanked   = "ranked_votes"
)

// Facade binds proposal metadata and the A-F components into the domain
// operations the HTTP layer serves.
type Facade struct {
	Archive      Archive
	Ledgers      LedgerFetcher
	Proposals    []manifest.Proposal
	Cache        *resultcache.Manager
	Observer     CacheObserver
	ReleaseStage govconfig.ReleaseStage
	// DefaultEpoch is used to resolve a ledger object-store key for
	// ProposalConsideration, which addresses a ledger hash directly rather
	// than through a registered Proposal and whose call signature carries no
	// epoch of its own. RunRankedVote fetches no ledger.
	DefaultEpoch int64
}

func (f *Facade) hit(cache string) {
	if f.Observer != nil {
		f.Observer.ObserveCacheHit(cache)
	}
}

func (f *Facade) miss(cache string) {
	if f.Observer != nil {
		f.Observer.ObserveCacheMiss(cache)
	}
}

func (f *Facade) reportElectionRounds(stats []rankedvote.ElectionStats) {
	if f.Observer == nil {
		return
	}
	for _, spot := range stats {
		f.Observer.ObserveElectionRounds(len(spot.Rounds))
	}
}

// InfoResult is the `info()` operation's result.
type InfoResult struct {
	ChainTip    int64
	CurrentSlot int64
}

// Info reports the archive's current chain tip and slot.
func (f *Facade) Info(ctx context.Context) (InfoResult, error) {
	tip, err := f.Archive.FetchChainTip(ctx)
	if err != nil {
		return InfoResult{}, err
	}
	slot, err := f.Archive.FetchLatestSlot(ctx)
	if err != nil {
		return InfoResult{}, err
	}
	return InfoResult{ChainTip: tip, CurrentSlot: slot}, nil
}

func (f *Facade) findProposal(id int) (manifest.Proposal, error) {
	p, ok := manifest.Find(f.Proposals, id)
	if !ok {
		return manifest.Proposal{}, fmt.Errorf("%w: %d", ErrProposalNotFound, id)
	}
	return p, nil
}

func ledgerVersion(v manifest.Version) ledger.Version {
	if v == manifest.VersionV2 {
		return ledger.V2
	}
	return ledger.V1
}

func singleProposalClassifier(key string) vote.Classifier {
	return func(payload string) (string, bool) {
		if _, ok := memo.SingleProposal(payload, key); !ok {
			return "", false
		}
		return strings.TrimSpace(payload), true
	}
}

// reducedVotes returns the cached or freshly-reduced vote set for key,
// fetching transactions over [start, end] and re-deriving block status
// against the current chain tip on a cache miss.
func (f *Facade) reducedVotes(ctx context.Context, key string, start, end int64, classify vote.Classifier, order vote.ReduceOrder) (map[string]vote.Vote, error) {
	if cached, ok := f.Cache.Votes.Get(key); ok {
		f.hit(cacheNameVotes)
		out := make(map[string]vote.Vote, len(cached))
		for _, v := range cached {
			out[v.Account] = v
		}
		return out, nil
	}
	f.miss(cacheNameVotes)

	txs, err := f.Archive.FetchTransactions(ctx, start, end)
	if err != nil {
		return nil, err
	}
	tip, err := f.Archive.FetchChainTip(ctx)
	if err != nil {
		return nil, err
	}

	reduced := vote.Reduce(txs, tip, order, classify)
	f.Cache.Votes.Set(key, vote.Flatten(reduced))
	return reduced, nil
}

// ProposalView is the `proposal(id)` operation's result.
type ProposalView struct {
	Proposal manifest.Proposal
	Votes    []vote.Vote
}

// Proposal reduces and returns the current vote set for a single-proposal
// dialect proposal, sorted by descending timestamp.
func (f *Facade) Proposal(ctx context.Context, id int) (ProposalView, error) {
	p, err := f.findProposal(id)
	if err != nil {
		return ProposalView{}, err
	}
	votes, err := f.reducedVotes(ctx, p.Key, p.StartTime, p.EndTime, singleProposalClassifier(p.Key), vote.Newest)
	if err != nil {
		return ProposalView{}, err
	}
	return ProposalView{Proposal: p, Votes: vote.Flatten(votes)}, nil
}

// ProposalResultView is the `proposal_result(id)` operation's result.
type ProposalResultView struct {
	Proposal manifest.Proposal
	Total    decimal.Decimal
	Positive decimal.Decimal
	Negative decimal.Decimal
	Votes    []stakeweight.WeightedVote
}

func (f *Facade) fetchLedger(ctx context.Context, epoch int64, hash string) (*ledger.Ledger, error) {
	if cached, ok := f.Cache.Ledger.Get(hash); ok {
		f.hit(cacheNameLedger)
		return cached, nil
	}
	f.miss(cacheNameLedger)

	l, err := f.Ledgers.Fetch(ctx, epoch, hash)
	if err != nil {
		return nil, err
	}
	f.Cache.Ledger.Set(hash, l)
	return l, nil
}

// ProposalResult weights and aggregates the vote set for id against the
// proposal's ledger snapshot. If the proposal has no ledger hash, zero sums
// and an empty vote list are returned.
func (f *Facade) ProposalResult(ctx context.Context, id int) (ProposalResultView, error) {
	p, err := f.findProposal(id)
	if err != nil {
		return ProposalResultView{}, err
	}
	if p.LedgerHash == nil || *p.LedgerHash == "" {
		return ProposalResultView{Proposal: p, Votes: []stakeweight.WeightedVote{}}, nil
	}

	if cached, ok := f.Cache.VotesWeighted.Get(p.Key); ok {
		f.hit(cacheNameWeighted)
		totals := stakeweight.Aggregate(cached)
		return ProposalResultView{Proposal: p, Total: totals.Total, Positive: totals.Positive, Negative: totals.Negative, Votes: cached}, nil
	}
	f.miss(cacheNameWeighted)

	votes, err := f.reducedVotes(ctx, p.Key, p.StartTime, p.EndTime, singleProposalClassifier(p.Key), vote.Newest)
	if err != nil {
		return ProposalResultView{}, err
	}
	l, err := f.fetchLedger(ctx, p.Epoch, *p.LedgerHash)
	if err != nil {
		return ProposalResultView{}, err
	}

	weighted := stakeweight.Weigh(l, ledgerVersion(p.Version), votes)
	f.Cache.VotesWeighted.Set(p.Key, weighted)

	totals := stakeweight.Aggregate(weighted)
	return ProposalResultView{Proposal: p, Total: totals.Total, Positive: totals.Positive, Negative: totals.Negative, Votes: weighted}, nil
}

// ConsiderationView is the `proposal_consideration(...)` operation's result.
type ConsiderationView struct {
	Round                        string
	ProposalID                   string
	TotalCommunityVotes          int
	TotalPositiveCommunityVotes  int
	TotalNegativeCommunityVotes  int
	Total, Positive, Negative    decimal.Decimal
	Eligible                     bool
	VoteStatus                   string
	Votes                        []vote.Vote
}

// mefClassifier matches a payload against (round, proposalID) and
// re-canonicalizes it into the single-proposal "<id>"/"no <id>" shape, so
// that stakeweight.isNegative's direction check applies uniformly across
// dialects and the round prefix doesn't leak into the stored Vote.Memo.
func mefClassifier(round, proposalID string) vote.Classifier {
	return func(payload string) (string, bool) {
		mv, ok := memo.MEF(payload)
		if !ok || !strings.EqualFold(mv.Round, round) || mv.ProposalID != proposalID {
			return "", false
		}
		if mv.Direction == memo.No {
			return "no " + proposalID, true
		}
		return proposalID, true
	}
}

func considerationThreshold(stage govconfig.ReleaseStage) int {
	if stage == govconfig.StageProduction {
		return 10
	}
	return 2
}

// countMEFDirections counts community (unweighted) yes/no votes from their
// re-canonicalized "<id>"/"no <id>" form.
func countMEFDirections(votes []vote.Vote) (positive, negative int) {
	for _, v := range votes {
		if strings.EqualFold(strings.Fields(v.Memo)[0], "no") {
			negative++
		} else {
			positive++
		}
	}
	return positive, negative
}

// ProposalConsideration runs the MEF funding-round variant: it reduces
// votes for (round, proposalID) directly (no registered Proposal required),
// enforces the release-stage-gated minimum positive-vote-count threshold,
// and — only when the threshold is met and a ledger hash is supplied —
// computes the stake-weighted tally.
func (f *Facade) ProposalConsideration(ctx context.Context, round, proposalID string, start, end int64, ledgerHash string) (ConsiderationView, error) {
	key := "mef:" + round + ":" + proposalID

	votes, err := f.reducedVotes(ctx, key, start, end, mefClassifier(round, proposalID), vote.Newest)
	if err != nil {
		return ConsiderationView{}, err
	}
	flat := vote.Flatten(votes)

	positiveCount, negativeCount := countMEFDirections(flat)
	threshold := considerationThreshold(f.ReleaseStage)

	view := ConsiderationView{
		Round:                       round,
		ProposalID:                  proposalID,
		TotalCommunityVotes:         len(flat),
		TotalPositiveCommunityVotes: positiveCount,
		TotalNegativeCommunityVotes: negativeCount,
		Total:                       decimal.Zero,
		Positive:                    decimal.Zero,
		Negative:                    decimal.Zero,
		Votes:                       flat,
	}

	if positiveCount < threshold {
		view.Eligible = false
		view.VoteStatus = "Insufficient voters"
		return view, nil
	}
	view.Eligible = true
	view.VoteStatus = "Proposal selected for the next phase"

	if ledgerHash == "" {
		return view, nil
	}

	var weighted []stakeweight.WeightedVote
	if cached, ok := f.Cache.VotesWeighted.Get(key); ok {
		f.hit(cacheNameWeighted)
		weighted = cached
	} else {
		f.miss(cacheNameWeighted)
		l, err := f.fetchLedger(ctx, f.DefaultEpoch, ledgerHash)
		if err != nil {
			return ConsiderationView{}, err
		}
		weighted = stakeweight.Weigh(l, ledger.MEF, votes)
		f.Cache.VotesWeighted.Set(key, weighted)
	}

	totals := stakeweight.Aggregate(weighted)
	view.Positive, view.Negative, view.Total = totals.Positive, totals.Negative, totals.Total
	return view, nil
}

// RunRankedVote reduces the per-account ballots for round (keeping each
// account's oldest matching vote) and runs the multi-winner instant-runoff
// election over them. Ranked-choice results are not stake-weighted in this
// system, so no ledger hash is accepted.
func (f *Facade) RunRankedVote(ctx context.Context, round string, start, end int64) (rankedvote.ElectionResult, error) {
	key := "ranked:" + round

	if cached, ok := f.Cache.RankedVotes.Get(key); ok {
		f.hit(cacheNameRanked)
		return cached, nil
	}
	f.miss(cacheNameRanked)

	txs, err := f.Archive.FetchTransactions(ctx, start, end)
	if err != nil {
		return rankedvote.ElectionResult{}, err
	}
	tip, err := f.Archive.FetchChainTip(ctx)
	if err != nil {
		return rankedvote.ElectionResult{}, err
	}

	reduced := vote.Reduce(txs, tip, vote.Oldest, vote.RankedChoiceClassifier(round))
	ranked := vote.ToRankedVotes(reduced)

	ballots := make([][]string, 0, len(ranked))
	for _, rv := range ranked {
		ballots = append(ballots, rv.Proposals)
	}

	result, err := rankedvote.RunSimpleElection(ballots, rankedvote.DefaultVoteRules())
	if err != nil {
		return rankedvote.ElectionResult{}, err
	}
	f.reportElectionRounds(result.Stats)

	f.Cache.RankedVotes.Set(key, result)
	return result, nil
}
