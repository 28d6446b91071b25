// Package session implements the P2P signing-session coordination layer
// (spec §4.6, C6): the session state machine, coordinator election and
// failover, the byzantine validation pipeline, and the observable event
// surface. It is event-driven with zero internal timers (spec §5): every
// time-based decision is made by the caller, never by a library goroutine
// sleeping on a clock.
package session

import (
	"sync"
	"time"

	"github.com/LotusiaStewardship/lotus-musig2-core/curve"
	"github.com/LotusiaStewardship/lotus-musig2-core/musig2"
)

// Phase is one state in the session state machine (spec §4.6.1).
type Phase int

const (
	PhaseSetup Phase = iota
	PhaseNonceExchange
	PhasePartialSigExchange
	PhaseBroadcasting
	PhaseComplete
	PhaseFailed
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "Setup"
	case PhaseNonceExchange:
		return "NonceExchange"
	case PhasePartialSigExchange:
		return "PartialSigExchange"
	case PhaseBroadcasting:
		return "Broadcasting"
	case PhaseComplete:
		return "Complete"
	case PhaseFailed:
		return "Failed"
	case PhaseAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the phase is one of the state machine's
// terminal states (Complete, Failed, Aborted), which never transition
// further (spec §3 invariant 3).
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseFailed || p == PhaseAborted
}

// Participant is one signer in a session (spec §3 Session.participants).
type Participant struct {
	SignerIndex int
	PeerID      string
	PublicKey   curve.PublicKey
}

// participantState tracks what has been received from one participant
// during the current session (spec §3 "per-participant public_nonce,
// partial_sig, broadcast_ack").
type participantState struct {
	publicNonce  *musig2.PublicNonce
	partialSig   *musig2.PartialSignature
	broadcastAck bool
}

// Session is the central entity of C6 (spec §3 Session). All fields are
// mutated only through the owning Manager's per-session serializer; never
// access a Session's fields directly from outside this package.
type Session struct {
	mu sync.Mutex

	ID           [32]byte
	Participants []Participant
	KeyAggCtx    musig2.KeyAggContext
	Message      [32]byte

	Phase Phase

	CoordinatorIndex int
	priorityList     []int // backup coordinators, in failover order
	failoverPos      int   // index into priorityList of the next backup to promote

	secretNonce   *musig2.SecretNonce // owned until consumed by PartialSign, then zeroized
	ownSignerIdx  int
	participants  map[int]*participantState
	seenNonceFrom map[int][33]byte // equivocation detection: first R1 seen per signer

	aggNonce  *musig2.AggregatedNonce
	finalSig  *[64]byte
	FailedWhy string

	CreatedAt      time.Time
	LastActivityAt time.Time
	StuckSince     *time.Time

	seenMessageIDs map[string]time.Time // dedup window (spec §4.6.4)
}

func newSession(id [32]byte, participants []Participant, keyAggCtx musig2.KeyAggContext, message [32]byte, ownSignerIdx int, now time.Time) *Session {
	ps := make(map[int]*participantState, len(participants))
	for _, p := range participants {
		ps[p.SignerIndex] = &participantState{}
	}
	return &Session{
		ID:             id,
		Participants:   participants,
		KeyAggCtx:      keyAggCtx,
		Message:        message,
		Phase:          PhaseSetup,
		ownSignerIdx:   ownSignerIdx,
		participants:   ps,
		seenNonceFrom:  make(map[int][33]byte),
		seenMessageIDs: make(map[string]time.Time),
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// touch marks the session as recently active, resetting the stuck-timeout
// clock (spec §4.6.6).
func (s *Session) touch(now time.Time) {
	s.LastActivityAt = now
	s.StuckSince = nil
}

func (s *Session) participantByPeer(peerID string) (Participant, bool) {
	for _, p := range s.Participants {
		if p.PeerID == peerID {
			return p, true
		}
	}
	return Participant{}, false
}

func (s *Session) participantByIndex(idx int) (Participant, bool) {
	for _, p := range s.Participants {
		if p.SignerIndex == idx {
			return p, true
		}
	}
	return Participant{}, false
}
