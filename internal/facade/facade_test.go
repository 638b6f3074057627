package facade

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"ocvd/internal/govconfig"
	"ocvd/internal/ledger"
	"ocvd/internal/manifest"
	"ocvd/internal/resultcache"
	"ocvd/internal/vote"
)

type fakeArchive struct {
	chainTip int64
	slot     int64
	txs      []vote.Transaction
}

func (f *fakeArchive) FetchChainTip(ctx context.Context) (int64, error)   { return f.chainTip, nil }
func (f *fakeArchive) FetchLatestSlot(ctx context.Context) (int64, error) { return f.slot, nil }
func (f *fakeArchive) FetchTransactions(ctx context.Context, start, end int64) ([]vote.Transaction, error) {
	return f.txs, nil
}

type fakeLedgerFetcher struct {
	ledger *ledger.Ledger
}

func (f *fakeLedgerFetcher) Fetch(ctx context.Context, epoch int64, hash string) (*ledger.Ledger, error) {
	return f.ledger, nil
}

func mustMemo(t *testing.T, payload string) string {
	t.Helper()
	return encodeMemo(payload)
}

func newTestLedger() *ledger.Ledger {
	return ledger.New([]ledger.Account{
		{PK: "alice", Balance: "100"},
		{PK: "bob", Balance: "50"},
	})
}

func TestFacade_Info(t *testing.T) {
	f := &Facade{Archive: &fakeArchive{chainTip: 500, slot: 510}, Cache: resultcache.NewManager()}
	got, err := f.Info(context.Background())
	require.NoError(t, err)
	require.Equal(t, InfoResult{ChainTip: 500, CurrentSlot: 510}, got)
}

func TestFacade_Proposal_NotFound(t *testing.T) {
	f := &Facade{
		Archive: &fakeArchive{},
		Cache:   resultcache.NewManager(),
	}
	_, err := f.Proposal(context.Background(), 99)
	require.ErrorIs(t, err, ErrProposalNotFound)
}

func TestFacade_Proposal_ReducesVotes(t *testing.T) {
	hash := "deadbeef"
	proposals := []manifest.Proposal{
		{ID: 1, Key: "upgrade-x", StartTime: 0, EndTime: 1000, Epoch: 5, LedgerHash: &hash, Version: manifest.VersionV1},
	}
	txs := []vote.Transaction{
		{Account: "alice", Hash: "h1", Memo: mustMemo(t, "upgrade-x"), Height: 100, Nonce: 1, Timestamp: 10},
		{Account: "alice", Hash: "h2", Memo: mustMemo(t, "no upgrade-x"), Height: 200, Nonce: 1, Timestamp: 20},
		{Account: "bob", Hash: "h3", Memo: mustMemo(t, "unrelated"), Height: 100, Nonce: 1, Timestamp: 5},
	}
	f := &Facade{
		Archive:   &fakeArchive{chainTip: 1000, txs: txs},
		Proposals: proposals,
		Cache:     resultcache.NewManager(),
	}
	view, err := f.Proposal(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, view.Votes, 1)
	require.Equal(t, "alice", view.Votes[0].Account)
	require.Equal(t, "no upgrade-x", view.Votes[0].Memo)
	require.Equal(t, vote.StatusCanonical, view.Votes[0].Status)
}

func TestFacade_ProposalResult_NoLedgerHash(t *testing.T) {
	proposals := []manifest.Proposal{{ID: 1, Key: "upgrade-x"}}
	f := &Facade{Archive: &fakeArchive{}, Proposals: proposals, Cache: resultcache.NewManager()}
	got, err := f.ProposalResult(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, got.Total.IsZero())
	require.Empty(t, got.Votes)
}

func TestFacade_ProposalResult_WeighsAgainstLedger(t *testing.T) {
	hash := "deadbeef"
	proposals := []manifest.Proposal{
		{ID: 1, Key: "upgrade-x", StartTime: 0, EndTime: 1000, Epoch: 5, LedgerHash: &hash, Version: manifest.VersionV1},
	}
	txs := []vote.Transaction{
		{Account: "alice", Hash: "h1", Memo: mustMemo(t, "upgrade-x"), Height: 100, Nonce: 1, Timestamp: 10},
		{Account: "bob", Hash: "h2", Memo: mustMemo(t, "no upgrade-x"), Height: 100, Nonce: 1, Timestamp: 5},
	}
	f := &Facade{
		Archive:   &fakeArchive{chainTip: 1000, txs: txs},
		Ledgers:   &fakeLedgerFetcher{ledger: newTestLedger()},
		Proposals: proposals,
		Cache:     resultcache.NewManager(),
	}
	got, err := f.ProposalResult(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, got.Positive.Equal(decimalFromString("100")))
	require.True(t, got.Negative.Equal(decimalFromString("50")))
}

func TestFacade_ProposalConsideration_InsufficientVoters(t *testing.T) {
	txs := []vote.Transaction{
		{Account: "alice", Hash: "h1", Memo: mustMemo(t, "mef1 yes 42"), Height: 100, Nonce: 1, Timestamp: 10},
	}
	f := &Facade{
		Archive:      &fakeArchive{chainTip: 1000, txs: txs},
		Cache:        resultcache.NewManager(),
		ReleaseStage: govconfig.StageDevelop,
	}
	got, err := f.ProposalConsideration(context.Background(), "1", "42", 0, 1000, "")
	require.NoError(t, err)
	require.False(t, got.Eligible)
	require.Equal(t, "Insufficient voters", got.VoteStatus)
	require.Equal(t, 1, got.TotalPositiveCommunityVotes)
}

func TestFacade_ProposalConsideration_EligibleAndWeighted(t *testing.T) {
	txs := []vote.Transaction{
		{Account: "alice", Hash: "h1", Memo: mustMemo(t, "mef1 yes 42"), Height: 100, Nonce: 1, Timestamp: 10},
		{Account: "carol", Hash: "h2", Memo: mustMemo(t, "mef1 yes 42"), Height: 100, Nonce: 1, Timestamp: 8},
		{Account: "bob", Hash: "h3", Memo: mustMemo(t, "mef1 no 42"), Height: 100, Nonce: 1, Timestamp: 5},
	}
	f := &Facade{
		Archive:      &fakeArchive{chainTip: 1000, txs: txs},
		Ledgers:      &fakeLedgerFetcher{ledger: newTestLedger()},
		Cache:        resultcache.NewManager(),
		ReleaseStage: govconfig.StageDevelop,
	}
	got, err := f.ProposalConsideration(context.Background(), "1", "42", 0, 1000, "deadbeef")
	require.NoError(t, err)
	require.True(t, got.Eligible)
	require.Equal(t, "Proposal selected for the next phase", got.VoteStatus)
	require.True(t, got.Positive.Equal(decimalFromString("100")))
	require.True(t, got.Negative.Equal(decimalFromString("50")))
}

func TestFacade_ProposalConsideration_IgnoresOtherRoundsAndProposals(t *testing.T) {
	txs := []vote.Transaction{
		{Account: "alice", Hash: "h1", Memo: mustMemo(t, "mef2 yes 42"), Height: 100, Nonce: 1, Timestamp: 10},
		{Account: "bob", Hash: "h2", Memo: mustMemo(t, "mef1 yes 99"), Height: 100, Nonce: 1, Timestamp: 5},
	}
	f := &Facade{
		Archive:      &fakeArchive{chainTip: 1000, txs: txs},
		Cache:        resultcache.NewManager(),
		ReleaseStage: govconfig.StageDevelop,
	}
	got, err := f.ProposalConsideration(context.Background(), "1", "42", 0, 1000, "")
	require.NoError(t, err)
	require.Equal(t, 0, got.TotalCommunityVotes)
}

func TestFacade_RunRankedVote(t *testing.T) {
	txs := []vote.Transaction{
		{Account: "alice", Hash: "h1", Memo: mustMemo(t, "mef 1 a b c"), Height: 100, Nonce: 1, Timestamp: 10},
		{Account: "bob", Hash: "h2", Memo: mustMemo(t, "mef 1 b a c"), Height: 100, Nonce: 1, Timestamp: 5},
	}
	f := &Facade{
		Archive: &fakeArchive{chainTip: 1000, txs: txs},
		Cache:   resultcache.NewManager(),
	}
	result, err := f.RunRankedVote(context.Background(), "1", 0, 1000)
	require.NoError(t, err)
	require.NotEmpty(t, result.Winners)
}
