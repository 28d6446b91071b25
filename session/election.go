package session

import (
	"encoding/binary"

	"github.com/LotusiaStewardship/lotus-musig2-core/curve"
)

// ElectionMethod identifies a coordinator election algorithm. DeterministicHash
// is the only method spec §4.6.2 requires; others are optional extension
// points this type leaves room for.
type ElectionMethod string

// MethodDeterministicHash is the required election method (spec §4.6.2).
const MethodDeterministicHash ElectionMethod = "DeterministicHash"

// electionResult is the outcome of a coordinator election: the chosen
// coordinator's index into participants, plus a full priority ordering of
// the remaining indices for failover (spec §4.6.2, §4.6.3).
type electionResult struct {
	CoordinatorIndex int
	PriorityList     []int // remaining indices, in failover order
}

// deterministicHashElection computes h = SHA256(session_id || P1 || ... ||
// Pn || salt) and chooses coordinator_index = h_bigendian_u64 mod n (spec
// §4.6.2). The backup list orders the remaining indices by the same hash
// with an added byte counter, yielding a full priority ordering that every
// participant computes identically.
func deterministicHashElection(sessionID [32]byte, participants []Participant, salt []byte) electionResult {
	n := len(participants)

	baseHash := electionHash(sessionID, participants, salt, 0)
	coordinator := int(binary.BigEndian.Uint64(baseHash[:8]) % uint64(n))

	type scored struct {
		index int
		score uint64
	}
	scores := make([]scored, 0, n-1)
	for i := 0; i < n; i++ {
		if i == coordinator {
			continue
		}
		h := electionHash(sessionID, participants, salt, byte(i+1))
		scores = append(scores, scored{index: i, score: binary.BigEndian.Uint64(h[:8])})
	}
	// Stable ordering by score, ties broken by index, so every
	// participant's independent computation agrees bit-for-bit.
	for i := 1; i < len(scores); i++ {
		for j := i; j > 0 && (scores[j].score < scores[j-1].score ||
			(scores[j].score == scores[j-1].score && scores[j].index < scores[j-1].index)); j-- {
			scores[j], scores[j-1] = scores[j-1], scores[j]
		}
	}

	priority := make([]int, len(scores))
	for i, s := range scores {
		priority[i] = s.index
	}

	return electionResult{CoordinatorIndex: coordinator, PriorityList: priority}
}

func electionHash(sessionID [32]byte, participants []Participant, salt []byte, counter byte) [32]byte {
	parts := make([][]byte, 0, len(participants)+3)
	parts = append(parts, sessionID[:])
	for _, p := range participants {
		parts = append(parts, []byte(p.PeerID))
	}
	parts = append(parts, salt, []byte{counter})
	return curve.SHA256(parts...)
}

// verifyElectionResult recomputes the election independently and reports
// whether claimed matches (spec §4.6.2 "All participants ... verify each
// other's claims via verifyElectionResult").
func verifyElectionResult(sessionID [32]byte, participants []Participant, salt []byte, claimed electionResult) bool {
	want := deterministicHashElection(sessionID, participants, salt)
	if want.CoordinatorIndex != claimed.CoordinatorIndex {
		return false
	}
	if len(want.PriorityList) != len(claimed.PriorityList) {
		return false
	}
	for i := range want.PriorityList {
		if want.PriorityList[i] != claimed.PriorityList[i] {
			return false
		}
	}
	return true
}
