package vote

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRankedChoiceClassifier_MatchesRoundAndEncodesBallot(t *testing.T) {
	classify := RankedChoiceClassifier("1")
	canonical, ok := classify("mef 1 2 4 1 3")
	require.True(t, ok)
	require.Equal(t, "2 4 1 3", canonical)
}

func TestRankedChoiceClassifier_RejectsOtherRound(t *testing.T) {
	classify := RankedChoiceClassifier("1")
	_, ok := classify("mef 2 2 4 1 3")
	require.False(t, ok)
}

func TestRankedChoiceClassifier_EmptyBallotValid(t *testing.T) {
	classify := RankedChoiceClassifier("1")
	canonical, ok := classify("mef 1")
	require.True(t, ok)
	require.Equal(t, "", canonical)
}

func TestToRankedVotes_SplitsBallot(t *testing.T) {
	votes := map[string]Vote{
		"a": {Account: "a", Memo: "2 4 1 3"},
		"b": {Account: "b", Memo: ""},
	}
	out := ToRankedVotes(votes)
	require.Len(t, out, 2)
	byAccount := map[string]RankedVote{}
	for _, rv := range out {
		byAccount[rv.Account] = rv
	}
	require.Equal(t, []string{"2", "4", "1", "3"}, byAccount["a"].Proposals)
	require.Nil(t, byAccount["b"].Proposals)
}
