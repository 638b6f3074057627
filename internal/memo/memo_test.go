package memo

import (
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/stretchr/testify/require"
)

// encodeFixture builds a base58check memo string from a payload-type byte
// and a UTF-8 body, mirroring the wire format Decode expects.
func encodeFixture(t *testing.T, payloadType byte, body string) string {
	t.Helper()
	buf := make([]byte, 0, 2+len(body))
	buf = append(buf, payloadType, byte(len(body)))
	buf = append(buf, []byte(body)...)
	return base58.CheckEncode(buf, 0x14)
}

func TestDecode_RoundTrip(t *testing.T) {
	memoStr := encodeFixture(t, 0x01, "no cftest-2")
	got, err := Decode(memoStr)
	require.NoError(t, err)
	require.Equal(t, "no cftest-2", got)
}

func TestDecode_EmptyPayload(t *testing.T) {
	memoStr := encodeFixture(t, 0x01, "")
	got, err := Decode(memoStr)
	require.NoError(t, err)
	require.Equal(t, "", got)
}

func TestDecode_LengthOverrun(t *testing.T) {
	buf := []byte{0x01, 0x20, 'h', 'i'} // declares length 32 but only 2 bytes follow
	memoStr := base58.CheckEncode(buf, 0x14)
	_, err := Decode(memoStr)
	require.Error(t, err)
}

func TestDecode_InvalidBase58Check(t *testing.T) {
	_, err := Decode("not-a-valid-base58check-string!!")
	require.Error(t, err)
}

// Fixtures drawn from real mainnet memo payloads, including blank and
// free-text memos that decode fine but carry no vote.
func TestDecode_S1Fixtures(t *testing.T) {
	cases := []struct {
		memo string
		want string
	}{
		{"E4YjFkHVUXbEAkQcUrAEcS1fqvbncnn9Tuz2Jtb1Uu79zY9UAJRpd", "no cftest-2"},
		{"E4ZJ3rmurwsMFrSvLdSAGRqmXRjYeZt84Wws4dixfpN67Xj7SrRLu", "MinaExplorer Gas Fee Service"},
		{"E4YM2vTHhWEg66xpj52JErHUBU4pZ1yageL4TVDDpTTSsv8mK6YaH", ""},
	}
	for _, tc := range cases {
		got, err := Decode(tc.memo)
		require.NoError(t, err, tc.memo)
		require.Equal(t, tc.want, got, tc.memo)
	}
}

// MEF (funding-round) dialect fixtures.
func TestDecode_S6Fixtures(t *testing.T) {
	cases := []struct {
		memo string
		want string
	}{
		{"E4Yh4PzVLrCiugdoaASo5Ve6Do755ey6vGqkURC8z7qcADqMUcp9K", "MEF1 YES 1"},
		{"E4Yf7epFtpM8YAsxcGVagQQKmtUpwj8nKTWMQnWbXyhg7hE6ceJhJ", "MEF1 NO 1"},
	}
	for _, tc := range cases {
		got, err := Decode(tc.memo)
		require.NoError(t, err, tc.memo)
		require.Equal(t, tc.want, got, tc.memo)
	}
}

func TestSingleProposal(t *testing.T) {
	dir, ok := SingleProposal("cftest-2", "cftest-2")
	require.True(t, ok)
	require.Equal(t, Yes, dir)

	dir, ok = SingleProposal("NO cftest-2", "cftest-2")
	require.True(t, ok)
	require.Equal(t, No, dir)

	_, ok = SingleProposal("something else", "cftest-2")
	require.False(t, ok)
}

func TestMEF(t *testing.T) {
	v, ok := MEF("MEF1 YES 1")
	require.True(t, ok)
	require.Equal(t, MEFVote{Round: "1", Direction: Yes, ProposalID: "1"}, v)

	v, ok = MEF("mef1 no 1")
	require.True(t, ok)
	require.Equal(t, MEFVote{Round: "1", Direction: No, ProposalID: "1"}, v)

	_, ok = MEF("yes 1")
	require.False(t, ok, "older yes-<id> grammar must not match")

	_, ok = MEF("yesid")
	require.False(t, ok, "yesid grammar must not match")

	_, ok = MEF("mef yes 1")
	require.False(t, ok, "round id must be fused with the mef prefix")
}

func TestRankedChoice(t *testing.T) {
	round, proposals, ok := RankedChoice("mef 3 2 4 1 3")
	require.True(t, ok)
	require.Equal(t, "3", round)
	require.Equal(t, []string{"2", "4", "1", "3"}, proposals)

	round, proposals, ok = RankedChoice("mef 3")
	require.True(t, ok)
	require.Equal(t, "3", round)
	require.Nil(t, proposals)

	_, _, ok = RankedChoice("MEF1 YES 1")
	require.False(t, ok)
}
