// Package memo decodes and classifies the base58check-encoded memo field
// carried by governance self-payment transactions.
package memo

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/btcsuite/btcutil/base58"
)

// ErrDecode is wrapped by every memo decoding failure.
var ErrDecode = errors.New("memo: decode failed")

// Decode base58check-decodes raw and extracts its UTF-8 payload string.
//
// The decoded byte vector is interpreted as: byte[0] version tag (consumed
// by the base58check checksum step, ignored for matching), byte[1] payload
// type, byte[2] payload length L, bytes[3:3+L] UTF-8 payload. Decode does
// not fail on an unrecognized version or payload-type byte; it only fails
// when the checksum is invalid, the length prefix runs past the end of the
// buffer, or the payload bytes are not valid UTF-8.
func Decode(raw string) (string, error) {
	payload, _, err := base58.CheckDecode(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(payload) < 2 {
		return "", fmt.Errorf("%w: memo shorter than header", ErrDecode)
	}
	length := int(payload[1])
	end := 2 + length
	if end > len(payload) {
		return "", fmt.Errorf("%w: length prefix %d exceeds buffer", ErrDecode, length)
	}
	body := payload[2:end]
	if !utf8.Valid(body) {
		return "", fmt.Errorf("%w: payload is not valid utf8", ErrDecode)
	}
	return string(body), nil
}

// Vote direction encoded by a single-proposal or MEF ballot.
type Direction int

const (
	Yes Direction = iota
	No
)

// SingleProposal reports whether payload is a yes/no vote for the given
// proposal key. Matching is case-insensitive. A bare key is a Yes vote; a
// "no <key>" payload is a No vote.
func SingleProposal(payload, key string) (Direction, bool) {
	p := strings.TrimSpace(payload)
	if strings.EqualFold(p, key) {
		return Yes, true
	}
	if strings.EqualFold(p, "no "+key) {
		return No, true
	}
	return 0, false
}

// MEFVote is the decoded form of a funding-round (MEF) memo payload:
// "mef<round> <yes|no> <proposal>", case-insensitive, whitespace separated.
//
// Only the fused "mef<round> <yes|no> <proposal>" grammar is accepted; the
// legacy "yes <id>"/"no <id>" and "yesid"/"noid" forms are not.
type MEFVote struct {
	Round      string
	Direction  Direction
	ProposalID string
}

// MEF parses payload as a funding-round memo. ok is false if payload does
// not match the "mef<round> <yes|no> <proposal>" grammar.
func MEF(payload string) (MEFVote, bool) {
	fields := strings.Fields(payload)
	if len(fields) != 3 {
		return MEFVote{}, false
	}
	lead := strings.ToLower(fields[0])
	if !strings.HasPrefix(lead, "mef") || len(lead) <= len("mef") {
		return MEFVote{}, false
	}
	round := lead[len("mef"):]

	var dir Direction
	switch strings.ToLower(fields[1]) {
	case "yes":
		dir = Yes
	case "no":
		dir = No
	default:
		return MEFVote{}, false
	}

	return MEFVote{Round: round, Direction: dir, ProposalID: fields[2]}, true
}

// RankedChoice parses payload as a ranked-choice ballot memo:
// "mef <round> <proposal-1> <proposal-2> ...". The first token must be the
// literal "mef" (unlike the MEF dialect, where it is fused with the round
// id). An empty ballot tail is valid and yields a nil proposals slice.
func RankedChoice(payload string) (round string, proposals []string, ok bool) {
	fields := strings.Fields(payload)
	if len(fields) < 2 {
		return "", nil, false
	}
	if !strings.EqualFold(fields[0], "mef") {
		return "", nil, false
	}
	round = fields[1]
	if len(fields) > 2 {
		proposals = append([]string(nil), fields[2:]...)
	}
	return round, proposals, true
}
