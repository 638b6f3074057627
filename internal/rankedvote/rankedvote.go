package rankedvote

import (
	"fmt"
	"sort"
)

// candidateID is a 1-based index assigned to each registered candidate in
// registration order; comparisons between ids therefore also compare
// registration order.
type candidateID int

type choiceKind int

const (
	cBlank choiceKind = iota
	cOvervote
	cUndeclared
	cFilled
)

type choice struct {
	kind choiceKind
	id   candidateID // valid only when kind == cFilled
}

// rankedCandidates is a ballot reduced to its current active choice plus
// whatever remains behind it.
type rankedCandidates struct {
	firstValid candidateID
	rest       []choice
}

type voteCount uint64

type voteInternal struct {
	candidates rankedCandidates
	count      voteCount
}

type namedCandidate struct {
	name string
	id   candidateID
}

type candidateStatusKind int

const (
	stStillRunning candidateStatusKind = iota
	stElected
	stEliminated
)

type candidateRoundStat struct {
	id        candidateID
	count     voteCount
	status    candidateStatusKind
	transfers map[candidateID]voteCount // set only when status == stEliminated
	exhausted voteCount
}

type uwiEliminationStats struct {
	transfers map[candidateID]voteCount
	exhausted voteCount
}

type internalRoundStats struct {
	candidateStats []candidateRoundStat
	uwiStats       *uwiEliminationStats
}

type roundResult struct {
	votes     []voteInternal
	stats     internalRoundStats
	threshold voteCount
}

type tiebreakSituation int

const (
	tiebreakClean tiebreakSituation = iota
	tiebreakOccurred
)

// checkAdvanceRules reports whether the prefix of choices skipped over while
// advancing to a pivot rank invalidates the ballot, per the configured
// duplicate/overvote/skipped-rank policies.
func checkAdvanceRules(skipped []choice, dup DuplicateCandidateMode, overvote OverVoteRule, skip MaxSkippedRank) bool {
	if dup == DuplicateExhaust {
		seen := make(map[candidateID]bool, len(skipped))
		for _, c := range skipped {
			if c.kind == cFilled {
				if seen[c.id] {
					return true
				}
				seen[c.id] = true
			}
		}
	}

	if overvote == OverVoteExhaustImmediately {
		for _, c := range skipped {
			if c.kind == cOvervote {
				return true
			}
		}
	}

	switch skip.Kind {
	case SkipExhaustOnFirstOccurrence:
		for _, c := range skipped {
			if c.kind == cBlank {
				return true
			}
		}
	case SkipMaxAllowed:
		run := 0
		for _, c := range skipped {
			if c.kind == cBlank {
				run++
				if run >= skip.Limit {
					return true
				}
			} else {
				run = 0
			}
		}
	}
	return false
}

// advanceVoting scans choices for the first Filled rank naming a still-valid
// candidate, returning that candidate and everything after it. The scanned
// prefix is checked against the invalidation rules.
func advanceVoting(choices []choice, stillValid map[candidateID]bool, dup DuplicateCandidateMode, overvote OverVoteRule, skip MaxSkippedRank) (candidateID, []choice, bool) {
	idx := -1
	var cid candidateID
	for i, c := range choices {
		if c.kind == cFilled && stillValid[c.id] {
			idx = i
			cid = c.id
			break
		}
	}
	if idx == -1 {
		return 0, nil, false
	}
	if checkAdvanceRules(choices[:idx], dup, overvote, skip) {
		return 0, nil, false
	}
	return cid, append([]choice(nil), choices[idx+1:]...), true
}

// advanceVotingInitial is advanceVoting's round-1 counterpart: it also
// treats the first Undeclared write-in rank as a valid pivot, leaving the
// pivot itself (and everything after) in the returned slice instead of
// consuming it, so the caller can distinguish a direct Filled pivot from a
// write-in one.
func advanceVotingInitial(choices []choice, stillValid map[candidateID]bool, dup DuplicateCandidateMode, overvote OverVoteRule, skip MaxSkippedRank) ([]choice, bool) {
	idx := -1
	for i, c := range choices {
		if c.kind == cFilled && stillValid[c.id] {
			idx = i
			break
		}
		if c.kind == cUndeclared {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, false
	}
	if checkAdvanceRules(choices[:idx], dup, overvote, skip) {
		return nil, false
	}
	return append([]choice(nil), choices[idx:]...), true
}

// filteredCandidate re-validates rc against the currently remaining
// candidate set, advancing past an eliminated first choice if necessary.
func filteredCandidate(rc rankedCandidates, stillValid map[candidateID]bool, dup DuplicateCandidateMode, overvote OverVoteRule, skip MaxSkippedRank) (rankedCandidates, bool) {
	if stillValid[rc.firstValid] {
		return rc, true
	}
	all := append([]choice{{kind: cFilled, id: rc.firstValid}}, rc.rest...)
	cid, rest, ok := advanceVoting(all, stillValid, dup, overvote, skip)
	if !ok {
		return rankedCandidates{}, false
	}
	return rankedCandidates{firstValid: cid, rest: rest}, true
}

func computeTally(votes []voteInternal, candidates []namedCandidate) map[candidateID]voteCount {
	tally := make(map[candidateID]voteCount, len(candidates))
	for _, c := range candidates {
		tally[c.id] = 0
	}
	for _, v := range votes {
		if _, ok := tally[v.candidates.firstValid]; ok {
			tally[v.candidates.firstValid] += v.count
		}
	}
	return tally
}

func getThreshold(tally map[candidateID]voteCount) voteCount {
	var total voteCount
	for _, v := range tally {
		total += v
	}
	if total == 0 {
		return 0
	}
	return total/2 + 1
}

// findEliminatedCandidatesBatch eliminates every candidate below the
// largest index at which the running cumulative tally (over candidates
// sorted ascending by tally, ties broken by registration order) still falls
// short of that candidate's own count — i.e. everyone it can prove can
// never catch up even if every weaker candidate's votes transferred to
// them. Returns nil when no such gap exists.
func findEliminatedCandidatesBatch(tally map[candidateID]voteCount, candidates []namedCandidate) []candidateID {
	type pair struct {
		id  candidateID
		cnt voteCount
	}
	sorted := make([]pair, 0, len(candidates))
	for _, c := range candidates {
		sorted = append(sorted, pair{id: c.id, cnt: tally[c.id]})
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].cnt < sorted[j].cnt })

	prevCum := make([]voteCount, len(sorted))
	var running voteCount
	for i, p := range sorted {
		prevCum[i] = running
		running += p.cnt
	}

	lastGap := -1
	for i, p := range sorted {
		if prevCum[i] < p.cnt {
			lastGap = i
		}
	}
	if lastGap <= 0 {
		return nil
	}
	out := make([]candidateID, 0, lastGap)
	for i := 0; i < lastGap; i++ {
		out = append(out, sorted[i].id)
	}
	return out
}

// candidatePermutation orders candidates by a formatted, seed- and
// round-dependent sort key so that a RandomSeed tiebreak is reproducible
// across a re-run of the same round without relying on Go's map iteration
// order or any process-local randomness.
func candidatePermutation(candidates []namedCandidate, seed, round uint32) []candidateID {
	type keyed struct {
		id  candidateID
		key string
	}
	data := make([]keyed, len(candidates))
	for i, c := range candidates {
		data[i] = keyed{id: c.id, key: fmt.Sprintf("%08d%08d%s", seed, round, c.name)}
	}
	sort.Slice(data, func(i, j int) bool { return data[i].key < data[j].key })
	out := make([]candidateID, len(data))
	for i, d := range data {
		out[i] = d.id
	}
	return out
}

// findEliminatedCandidatesSingle picks exactly one candidate to eliminate
// from among those tied at the minimum tally. A tie is broken by the
// configured TieBreak; if ties remain across the entire remaining field
// (len(ordered) == len(tally)), the last-ordered tied candidate is protected
// from elimination rather than the whole field being eliminated at once.
func findEliminatedCandidatesSingle(tally map[candidateID]voteCount, tb TieBreak, candidates []namedCandidate, round uint32) ([]candidateID, tiebreakSituation) {
	if len(tally) <= 1 {
		return nil, tiebreakClean
	}

	var minCount voteCount
	first := true
	for _, c := range candidates {
		v, ok := tally[c.id]
		if !ok {
			continue
		}
		if first || v < minCount {
			minCount = v
			first = false
		}
	}

	var allSmallest []candidateID
	for _, c := range candidates {
		if v, ok := tally[c.id]; ok && v <= minCount {
			allSmallest = append(allSmallest, c.id)
		}
	}
	if len(allSmallest) <= 1 {
		return allSmallest, tiebreakClean
	}

	var ordered []candidateID
	switch tb.Kind {
	case RandomSeed:
		named := make([]namedCandidate, 0, len(allSmallest))
		for _, id := range allSmallest {
			for _, c := range candidates {
				if c.id == id {
					named = append(named, c)
					break
				}
			}
		}
		ordered = candidatePermutation(named, tb.Seed, round)
	default: // UseCandidateOrder
		order := make(map[candidateID]int, len(candidates))
		for i, c := range candidates {
			order[c.id] = i
		}
		ordered = append([]candidateID(nil), allSmallest...)
		sort.Slice(ordered, func(i, j int) bool { return order[ordered[i]] < order[ordered[j]] })
		for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		}
	}

	picked := append([]candidateID(nil), ordered[0])
	if len(ordered) == len(tally) {
		last := ordered[len(ordered)-1]
		if picked[0] == last {
			picked = nil
		}
	}
	return picked, tiebreakOccurred
}

func findEliminatedCandidates(tally map[candidateID]voteCount, rules VoteRules, candidates []namedCandidate, round uint32) ([]candidateID, tiebreakSituation, error) {
	if rules.Elimination == EliminationBatch {
		if batch := findEliminatedCandidatesBatch(tally, candidates); len(batch) > 0 {
			return batch, tiebreakClean, nil
		}
	}
	single, tb := findEliminatedCandidatesSingle(tally, rules.TieBreak, candidates, round)
	if len(single) > 0 {
		return single, tb, nil
	}
	return nil, tiebreakClean, ErrNoCandidateToEliminate
}

// runOneRound tallies votes, elects outright when exactly one candidate
// remains registered, otherwise eliminates one or more candidates and
// transfers their ballots onward.
func runOneRound(votes []voteInternal, rules VoteRules, candidates []namedCandidate, round uint32) (roundResult, error) {
	tally := computeTally(votes, candidates)
	threshold := getThreshold(tally)

	if len(candidates) == 1 {
		stats := internalRoundStats{}
		for _, c := range candidates {
			stats.candidateStats = append(stats.candidateStats, candidateRoundStat{id: c.id, count: tally[c.id], status: stElected})
		}
		return roundResult{votes: votes, stats: stats, threshold: threshold}, nil
	}

	eliminatedIDs, tiebreak, err := findEliminatedCandidates(tally, rules, candidates, round)
	if err != nil {
		return roundResult{}, err
	}

	eliminatedSet := make(map[candidateID]bool, len(eliminatedIDs))
	for _, id := range eliminatedIDs {
		eliminatedSet[id] = true
	}

	type elimAgg struct {
		transfers map[candidateID]voteCount
		exhausted voteCount
	}
	elimStats := make(map[candidateID]*elimAgg, len(eliminatedIDs))
	for _, id := range eliminatedIDs {
		elimStats[id] = &elimAgg{transfers: make(map[candidateID]voteCount)}
	}

	remaining := make(map[candidateID]bool, len(candidates))
	for _, c := range candidates {
		if !eliminatedSet[c.id] {
			remaining[c.id] = true
		}
	}

	remVotes := make([]voteInternal, 0, len(votes))
	for _, v := range votes {
		oldFirst := v.candidates.firstValid
		newRC, ok := filteredCandidate(v.candidates, remaining, rules.DuplicateCandidate, rules.OverVote, rules.MaxSkippedRankAllowed)
		agg, tracked := elimStats[oldFirst]
		if !ok {
			if tracked {
				agg.exhausted += v.count
			}
			continue
		}
		if tracked && newRC.firstValid != oldFirst {
			agg.transfers[newRC.firstValid] += v.count
		}
		remVotes = append(remVotes, voteInternal{candidates: newRC, count: v.count})
	}

	winners := make(map[candidateID]bool)
	if tiebreak == tiebreakClean {
		for _, c := range candidates {
			if eliminatedSet[c.id] {
				continue
			}
			if tally[c.id] >= threshold && threshold > 0 {
				winners[c.id] = true
			}
		}
	}

	candidateStats := make([]candidateRoundStat, 0, len(candidates))
	for _, c := range candidates {
		cnt := tally[c.id]
		switch {
		case elimStats[c.id] != nil:
			agg := elimStats[c.id]
			candidateStats = append(candidateStats, candidateRoundStat{
				id: c.id, count: cnt, status: stEliminated,
				transfers: agg.transfers, exhausted: agg.exhausted,
			})
		case winners[c.id]:
			candidateStats = append(candidateStats, candidateRoundStat{id: c.id, count: cnt, status: stElected})
		default:
			candidateStats = append(candidateStats, candidateRoundStat{id: c.id, count: cnt, status: stStillRunning})
		}
	}

	return roundResult{
		votes:     remVotes,
		stats:     internalRoundStats{candidateStats: candidateStats},
		threshold: threshold,
	}, nil
}

// runFirstRoundUWI merges votes that began on a declared candidate with
// votes that began on an undeclared write-in, folding the latter in as a
// single pseudo-elimination so every candidate enters round 2 on equal
// footing. No winner can be elected in this round.
func runFirstRoundUWI(votes, uwiFirstVotes []voteInternal, uwiFirstExhausted voteCount, candidates []namedCandidate) roundResult {
	tally := computeTally(votes, candidates)

	transfers := make(map[candidateID]voteCount)
	for _, v := range uwiFirstVotes {
		transfers[v.candidates.firstValid] += v.count
	}

	candidateStats := make([]candidateRoundStat, 0, len(candidates))
	for _, c := range candidates {
		candidateStats = append(candidateStats, candidateRoundStat{id: c.id, count: tally[c.id], status: stStillRunning})
	}

	allVotes := make([]voteInternal, 0, len(votes)+len(uwiFirstVotes))
	allVotes = append(allVotes, votes...)
	allVotes = append(allVotes, uwiFirstVotes...)

	return roundResult{
		votes: allVotes,
		stats: internalRoundStats{
			candidateStats: candidateStats,
			uwiStats:       &uwiEliminationStats{transfers: transfers, exhausted: uwiFirstExhausted},
		},
		threshold: 0,
	}
}

type checkResult struct {
	votes                       []voteInternal
	uwiFirstVotes               []voteInternal
	candidates                  []namedCandidate
	countExhaustedUWIFirstRound voteCount
}

// checks normalizes every ballot against the registered candidate set,
// splitting out ballots that began on an undeclared write-in so the first
// round can treat them specially.
func checks(ballots []Ballot, registered []CandidateSpec, rules VoteRules) checkResult {
	byName := make(map[string]candidateID, len(registered))
	ordered := make([]namedCandidate, 0, len(registered))
	for _, c := range registered {
		if c.Excluded {
			continue
		}
		id := candidateID(len(ordered) + 1)
		byName[c.Name] = id
		ordered = append(ordered, namedCandidate{name: c.Name, id: id})
	}
	valid := make(map[candidateID]bool, len(ordered))
	for _, c := range ordered {
		valid[c.id] = true
	}

	var validated, uwiValidated []voteInternal
	var uwiExhausted voteCount

	for _, b := range ballots {
		choices := make([]choice, 0, len(b.Choices))
		for _, bc := range b.Choices {
			switch bc.Kind {
			case ChoiceCandidate:
				if id, ok := byName[bc.Name]; ok {
					choices = append(choices, choice{kind: cFilled, id: id})
				} else {
					choices = append(choices, choice{kind: cUndeclared})
				}
			case ChoiceOvervote:
				choices = append(choices, choice{kind: cOvervote})
			case ChoiceUndeclaredWriteIn:
				choices = append(choices, choice{kind: cUndeclared})
			default: // ChoiceBlank, ChoiceUndervote
				choices = append(choices, choice{kind: cBlank})
			}
		}

		count := voteCount(b.Count)
		initial, ok := advanceVotingInitial(choices, valid, rules.DuplicateCandidate, rules.OverVote, rules.MaxSkippedRankAllowed)
		if !ok {
			continue
		}

		switch initial[0].kind {
		case cFilled:
			validated = append(validated, voteInternal{
				candidates: rankedCandidates{firstValid: initial[0].id, rest: append([]choice(nil), initial[1:]...)},
				count:      count,
			})
		case cUndeclared:
			if cid, rest, ok := advanceVoting(initial, valid, rules.DuplicateCandidate, rules.OverVote, rules.MaxSkippedRankAllowed); ok {
				uwiValidated = append(uwiValidated, voteInternal{
					candidates: rankedCandidates{firstValid: cid, rest: rest},
					count:      count,
				})
			} else {
				uwiExhausted += count
			}
		}
	}

	return checkResult{
		votes:                       validated,
		uwiFirstVotes:               uwiValidated,
		candidates:                  ordered,
		countExhaustedUWIFirstRound: uwiExhausted,
	}
}

const maxRounds = 10000

type votingResult struct {
	threshold  voteCount
	winners    []string
	roundStats []RoundStats
}

// undeclaredWriteInLabel names the pseudo-candidate that absorbs
// round-1 write-in ballots in per-round reporting.
const undeclaredWriteInLabel = "Undeclared Write-ins"

func roundResultToStat(s internalRoundStats, round uint32, names map[candidateID]string) RoundStats {
	rs := RoundStats{Round: round}
	for _, cs := range s.candidateStats {
		name := names[cs.id]
		rs.Tally = append(rs.Tally, NameCount{Name: name, Count: uint64(cs.count)})
		switch cs.status {
		case stElected:
			rs.Elected = append(rs.Elected, name)
		case stEliminated:
			ids := make([]candidateID, 0, len(cs.transfers))
			for id := range cs.transfers {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			transfers := make([]NameCount, 0, len(ids))
			for _, id := range ids {
				transfers = append(transfers, NameCount{Name: names[id], Count: uint64(cs.transfers[id])})
			}
			rs.EliminatedStats = append(rs.EliminatedStats, EliminationStats{Name: name, Transfers: transfers, Exhausted: uint64(cs.exhausted)})
		}
	}

	if s.uwiStats != nil {
		var total voteCount
		for _, v := range s.uwiStats.transfers {
			total += v
		}
		total += s.uwiStats.exhausted
		if total > 0 {
			rs.Tally = append(rs.Tally, NameCount{Name: undeclaredWriteInLabel, Count: uint64(total)})

			ids := make([]candidateID, 0, len(s.uwiStats.transfers))
			for id := range s.uwiStats.transfers {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			transfers := make([]NameCount, 0, len(ids))
			for _, id := range ids {
				transfers = append(transfers, NameCount{Name: names[id], Count: uint64(s.uwiStats.transfers[id])})
			}
			rs.EliminatedStats = append(rs.EliminatedStats, EliminationStats{Name: undeclaredWriteInLabel, Transfers: transfers, Exhausted: uint64(s.uwiStats.exhausted)})
		}
	}

	sort.Strings(rs.Elected)
	sort.Slice(rs.EliminatedStats, func(i, j int) bool { return rs.EliminatedStats[i].Name < rs.EliminatedStats[j].Name })
	return rs
}

// runVotingStats runs a single-winner IRV election to completion against a
// fixed candidate set, returning the winner elected in the final round.
// At most one candidate can reach the half-plus-one threshold, and a
// tiebreak round elects no one, so the returned slice holds one name.
func runVotingStats(ballots []Ballot, rules VoteRules, candidates []CandidateSpec) (votingResult, error) {
	if len(ballots) == 0 || len(candidates) == 0 {
		return votingResult{}, ErrEmptyElection
	}

	cr := checks(ballots, candidates, rules)
	if len(cr.candidates) == 0 {
		return votingResult{}, ErrEmptyElection
	}

	curVotes := cr.votes
	curCandidates := append([]namedCandidate(nil), cr.candidates...)
	names := make(map[candidateID]string, len(cr.candidates))
	for _, c := range cr.candidates {
		names[c.id] = c.name
	}

	var allStats []internalRoundStats

	for len(allStats) < maxRounds {
		round := uint32(len(allStats) + 1)
		hasInitialUWIs := len(allStats) == 0 && (len(cr.uwiFirstVotes) > 0 || cr.countExhaustedUWIFirstRound > 0)

		var rr roundResult
		if hasInitialUWIs {
			rr = runFirstRoundUWI(curVotes, cr.uwiFirstVotes, cr.countExhaustedUWIFirstRound, curCandidates)
		} else {
			var err error
			rr, err = runOneRound(curVotes, rules, curCandidates, round)
			if err != nil {
				return votingResult{}, err
			}
		}

		curVotes = rr.votes
		allStats = append(allStats, rr.stats)

		eliminated := make(map[candidateID]bool)
		var winners []candidateID
		for _, cs := range rr.stats.candidateStats {
			switch cs.status {
			case stEliminated:
				eliminated[cs.id] = true
			case stElected:
				winners = append(winners, cs.id)
			}
		}

		survivors := make([]namedCandidate, 0, len(curCandidates))
		for _, c := range curCandidates {
			if !eliminated[c.id] {
				survivors = append(survivors, c)
			}
		}
		curCandidates = survivors

		if len(winners) > 0 {
			roundStats := make([]RoundStats, 0, len(allStats))
			for i, s := range allStats {
				roundStats = append(roundStats, roundResultToStat(s, uint32(i+1), names))
			}
			winnerNames := make([]string, 0, len(winners))
			for _, id := range winners {
				winnerNames = append(winnerNames, names[id])
			}
			return votingResult{threshold: rr.threshold, winners: winnerNames, roundStats: roundStats}, nil
		}
	}
	return votingResult{}, ErrNoConvergence
}

// RunElection runs the full multi-winner process: repeatedly running a
// single-winner election against the remaining candidates and removing each
// round's winner(s), until either MaxRankingsAllowed winners are seated or
// no candidates remain.
func RunElection(ballots []Ballot, candidates []CandidateSpec, rules VoteRules) (ElectionResult, error) {
	if len(ballots) == 0 || len(candidates) == 0 {
		return ElectionResult{}, ErrEmptyElection
	}
	remaining :=append([]CandidateSpec(nil), candidates...)
	var winners []string
	var stats []ElectionStats
	var spot uint32
	unbounded := rules.MaxRankingsAllowed == 0

	for len(remaining) > 0 && (unbounded || uint32(len(winners)) < rules.MaxRankingsAllowed) {
		result, err := runVotingStats(ballots, rules, remaining)
		if err != nil {
			return ElectionResult{Winners: winners, Stats: stats}, err
		}

		spot += uint32(len(result.winners))
		stats = append(stats, ElectionStats{SpotPosition: spot, Rounds: result.roundStats})
		winners = append(winners, result.winners...)

		winnerSet := make(map[string]bool, len(result.winners))
		for _, w := range result.winners {
			winnerSet[w] = true
		}
		filtered := remaining[:0]
		for _, c := range remaining {
			if !winnerSet[c.Name] {
				filtered = append(filtered, c)
			}
		}
		remaining = filtered
	}
	return ElectionResult{Winners: winners, Stats: stats}, nil
}

// RunSimpleElection infers the candidate set from the distinct names
// appearing across ballots (sorted for deterministic registration order)
// and runs a full-filled-choice election over them — the common case for a
// set of ranked proposal-id ballots with no blanks or overvotes.
func RunSimpleElection(ballots [][]string, rules VoteRules) (ElectionResult, error) {
	seen := make(map[string]bool)
	for _, b := range ballots {
		for _, name := range b {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)

	candidates := make([]CandidateSpec, len(names))
	for i, n := range names {
		candidates[i] = CandidateSpec{Name: n}
	}

	converted := make([]Ballot, len(ballots))
	for i, b := range ballots {
		choices := make([]BallotChoice, len(b))
		for j, name := range b {
			choices[j] = CandidateChoice(name)
		}
		converted[i] = Ballot{Choices: choices, Count: 1}
	}

	return RunElection(converted, candidates, rules)
}
