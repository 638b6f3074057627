package httpapi

import (
	"strconv"

	"ocvd/internal/facade"
	"ocvd/internal/manifest"
	"ocvd/internal/rankedvote"
	"ocvd/internal/stakeweight"
	"ocvd/internal/vote"
)

type infoResponse struct {
	ChainTip    int64 `json:"chain_tip"`
	CurrentSlot int64 `json:"current_slot"`
}

func newInfoResponse(r facade.InfoResult) infoResponse {
	return infoResponse{ChainTip: r.ChainTip, CurrentSlot: r.CurrentSlot}
}

type voteResponse struct {
	Account   string `json:"account"`
	Hash      string `json:"hash"`
	Memo      string `json:"memo"`
	Height    int64  `json:"height"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	Nonce     int64  `json:"nonce"`
}

func newVoteResponse(v vote.Vote) voteResponse {
	return voteResponse{
		Account:   v.Account,
		Hash:      v.Hash,
		Memo:      v.Memo,
		Height:    v.Height,
		Status:    string(v.Status),
		Timestamp: v.Timestamp,
		Nonce:     v.Nonce,
	}
}

func newVoteResponses(votes []vote.Vote) []voteResponse {
	out := make([]voteResponse, len(votes))
	for i, v := range votes {
		out[i] = newVoteResponse(v)
	}
	return out
}

type weightedVoteResponse struct {
	voteResponse
	Weight string `json:"weight"`
}

func newWeightedVoteResponses(votes []stakeweight.WeightedVote) []weightedVoteResponse {
	out := make([]weightedVoteResponse, len(votes))
	for i, wv := range votes {
		out[i] = weightedVoteResponse{voteResponse: newVoteResponse(wv.Vote), Weight: wv.Weight.String()}
	}
	return out
}

type proposalResponse struct {
	ID          int    `json:"id"`
	Key         string `json:"key"`
	StartTime   int64  `json:"start_time"`
	EndTime     int64  `json:"end_time"`
	Epoch       int64  `json:"epoch"`
	LedgerHash  string `json:"ledger_hash,omitempty"`
	Category    string `json:"category"`
	Version     string `json:"version"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Network     string `json:"network"`
}

func newProposalResponse(p manifest.Proposal) proposalResponse {
	hash := ""
	if p.LedgerHash != nil {
		hash = *p.LedgerHash
	}
	return proposalResponse{
		ID:          p.ID,
		Key:         p.Key,
		StartTime:   p.StartTime,
		EndTime:     p.EndTime,
		Epoch:       p.Epoch,
		LedgerHash:  hash,
		Category:    string(p.Category),
		Version:     string(p.Version),
		Title:       p.Title,
		Description: p.Description,
		URL:         p.URL,
		Network:     string(p.Network),
	}
}

type proposalWithVotesResponse struct {
	Proposal proposalResponse `json:"proposal"`
	Votes    []voteResponse   `json:"votes"`
}

type proposalResultResponse struct {
	Proposal proposalResponse       `json:"proposal"`
	Total    string                 `json:"total"`
	Positive string                 `json:"positive"`
	Negative string                 `json:"negative"`
	Votes    []weightedVoteResponse `json:"votes"`
}

func newProposalResultResponse(r facade.ProposalResultView) proposalResultResponse {
	return proposalResultResponse{
		Proposal: newProposalResponse(r.Proposal),
		Total:    r.Total.String(),
		Positive: r.Positive.String(),
		Negative: r.Negative.String(),
		Votes:    newWeightedVoteResponses(r.Votes),
	}
}

type considerationResponse struct {
	Round                       string         `json:"round"`
	ProposalID                  string         `json:"proposal_id"`
	TotalCommunityVotes         int            `json:"total_community_votes"`
	TotalPositiveCommunityVotes int           `json:"total_positive_community_votes"`
	TotalNegativeCommunityVotes int           `json:"total_negative_community_votes"`
	Total                       string         `json:"total"`
	Positive                    string         `json:"positive"`
	Negative                    string         `json:"negative"`
	Eligible                    bool           `json:"eligible"`
	VoteStatus                  string         `json:"vote_status"`
	Votes                       []voteResponse `json:"votes"`
}

func newConsiderationResponse(v facade.ConsiderationView) considerationResponse {
	return considerationResponse{
		Round:                        v.Round,
		ProposalID:                   v.ProposalID,
		TotalCommunityVotes:          v.TotalCommunityVotes,
		TotalPositiveCommunityVotes:  v.TotalPositiveCommunityVotes,
		TotalNegativeCommunityVotes:  v.TotalNegativeCommunityVotes,
		Total:                        v.Total.String(),
		Positive:                     v.Positive.String(),
		Negative:                     v.Negative.String(),
		Eligible:                     v.Eligible,
		VoteStatus:                   v.VoteStatus,
		Votes:                        newVoteResponses(v.Votes),
	}
}

type roundStatsResponse struct {
	SpotPosition uint32   `json:"spot_position"`
	Round        uint32   `json:"round"`
	Tally        []string `json:"tally"`
	Elected      []string `json:"elected,omitempty"`
}

type electionResultResponse struct {
	Winners []string             `json:"winners"`
	Rounds  []roundStatsResponse `json:"rounds,omitempty"`
	Message string               `json:"message,omitempty"`
}

func newElectionResultResponse(r rankedvote.ElectionResult) electionResultResponse {
	var rounds []roundStatsResponse
	for _, spot := range r.Stats {
		for _, rs := range spot.Rounds {
			tally := make([]string, 0, len(rs.Tally))
			for _, t := range rs.Tally {
				tally = append(tally, t.Name+":"+strconv.FormatUint(t.Count, 10))
			}
			rounds = append(rounds, roundStatsResponse{
				SpotPosition: spot.SpotPosition,
				Round:        rs.Round,
				Tally:        tally,
				Elected:      rs.Elected,
			})
		}
	}
	return electionResultResponse{Winners: r.Winners, Rounds: rounds}
}

func emptyElectionResultResponse(message string) electionResultResponse {
	return electionResultResponse{Winners: []string{}, Message: message}
}
