package session

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/LotusiaStewardship/lotus-musig2-core/curve"
	"github.com/LotusiaStewardship/lotus-musig2-core/errs"
	"github.com/LotusiaStewardship/lotus-musig2-core/musig2"
	"github.com/LotusiaStewardship/lotus-musig2-core/reputation"
	"github.com/LotusiaStewardship/lotus-musig2-core/schnorrlotus"
)

// Manager owns the active session set and drives the state machine (spec
// §4.6). Each Session's own mutex serializes mutations to that session
// (spec §5 "mutations of its state happen on a single serializer"); the
// Manager's own mutex only guards the shared sessions map and peer-key
// directory, never a cryptographic operation.
type Manager struct {
	mu       sync.Mutex
	sessions map[[32]byte]*Session

	peerKeysMu sync.RWMutex
	peerKeys   map[string]curve.PublicKey

	transport  Transport
	reputation *reputation.Store
	config     Config
	events     eventBus
}

// NewManager builds a Manager, registers the 7 MuSig2 topic handlers on
// transport, and returns it ready to create or join sessions.
func NewManager(transport Transport, rep *reputation.Store, config Config) *Manager {
	m := &Manager{
		sessions:   make(map[[32]byte]*Session),
		peerKeys:   make(map[string]curve.PublicKey),
		transport:  transport,
		reputation: rep,
		config:     config,
	}
	m.registerHandlers()
	return m
}

// Subscribe registers an Observer on the event surface (spec §6).
func (m *Manager) Subscribe(obs Observer) {
	m.events.Subscribe(obs)
}

// RegisterPeerKey records peerID's static public key, learned out of band
// before any session traffic (MuSig2 key aggregation is a precondition of
// signing, not something negotiated over the wire). The session-join
// payload carries the joiner's compressed key, but no handler reads it;
// this map is the only source of peer keys.
func (m *Manager) RegisterPeerKey(peerID string, pub curve.PublicKey) {
	m.peerKeysMu.Lock()
	defer m.peerKeysMu.Unlock()
	m.peerKeys[peerID] = pub
}

func (m *Manager) peerKey(peerID string) (curve.PublicKey, bool) {
	m.peerKeysMu.RLock()
	defer m.peerKeysMu.RUnlock()
	pub, ok := m.peerKeys[peerID]
	return pub, ok
}

func (m *Manager) getSession(id [32]byte) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) putSession(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

// registerHandlers wires the 7 MuSig2 message types to the transport, the
// way pubsubs.go's RegisterPubsubProtocol wires the teacher's blockchain
// topics to their general_*.go handlers.
func (m *Manager) registerHandlers() {
	if m.transport.SubscribeWithTopic == nil {
		return
	}
	register := func(t MessageType, handler func(from string, payload []byte)) {
		if err := m.transport.SubscribeWithTopic(t.Topic(), handler); err != nil {
			logrus.Errorf("session: subscribing to %s failed: %v", t.Topic(), err)
		}
	}
	register(MsgSessionAnnounce, m.handleSessionAnnounce)
	register(MsgSessionJoin, m.handleSessionJoin)
	register(MsgNonceShare, m.handleNonceShare)
	register(MsgPartialSigShare, m.handlePartialSigShare)
	register(MsgBroadcastComplete, m.handleBroadcastComplete)
	register(MsgSessionAbort, m.handleSessionAbort)
	register(MsgParticipantDropped, m.handleParticipantDropped)
}

func (m *Manager) broadcast(msgType MessageType, payload interface{}) {
	raw, err := encodeMessage(msgType, m.transport.LocalPeerID, payload, time.Now(), uuid.NewString())
	if err != nil {
		logrus.Errorf("session: encoding %s failed: %v", msgType, err)
		return
	}
	if m.transport.Broadcast == nil {
		return
	}
	if err := m.transport.Broadcast(msgType.Topic(), raw); err != nil {
		logrus.Errorf("session: broadcasting %s failed: %v", msgType, err)
	}
}

// CreateSession implements create_session(signers, message) -> session_id
// (spec §6). participants must already carry every signer's static public
// key (via RegisterPeerKey or equivalent out-of-band agreement);
// ownSignerIndex identifies which participant this process is.
func (m *Manager) CreateSession(participants []Participant, keyAggCtx musig2.KeyAggContext, message [32]byte, ownSignerIndex int) ([32]byte, error) {
	const op = "session.CreateSession"
	if len(participants) == 0 {
		return [32]byte{}, errs.New(errs.KindValidationError, op, "participants must be non-empty")
	}
	if ownSignerIndex < 0 || ownSignerIndex >= len(participants) {
		return [32]byte{}, errs.New(errs.KindValidationError, op, "ownSignerIndex out of range")
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return [32]byte{}, errs.Wrap(errs.KindInvalidCrypto, op, "sampling session salt", err)
	}
	sessionID := computeSessionID(participants, message, salt)

	now := time.Now()
	s := newSession(sessionID, participants, keyAggCtx, message, ownSignerIndex, now)
	s.electAndStore(m, salt)

	m.putSession(s)
	m.events.emit(Event{Kind: EventSessionCreated, SessionID: sessionID})

	s.mu.Lock()
	s.Phase = PhaseNonceExchange
	s.touch(now)
	s.mu.Unlock()

	peerIDs := make([]string, len(participants))
	for i, p := range participants {
		peerIDs[i] = p.PeerID
	}
	m.broadcast(MsgSessionAnnounce, SessionAnnouncePayload{
		SessionID:    hex.EncodeToString(sessionID[:]),
		Participants: peerIDs,
		Message:      hex.EncodeToString(message[:]),
	})

	return sessionID, nil
}

func computeSessionID(participants []Participant, message [32]byte, salt []byte) [32]byte {
	parts := make([][]byte, 0, len(participants)+2)
	for _, p := range participants {
		parts = append(parts, []byte(p.PeerID))
	}
	parts = append(parts, message[:], salt)
	return curve.SHA256(parts...)
}

// electAndStore runs coordinator election (spec §4.6.2), honoring
// EnableCoordinatorElection.
func (s *Session) electAndStore(m *Manager, salt []byte) {
	if !m.config.EnableCoordinatorElection {
		s.CoordinatorIndex = 0
		for i := range s.Participants {
			if i != 0 {
				s.priorityList = append(s.priorityList, i)
			}
		}
		return
	}
	result := deterministicHashElection(s.ID, s.Participants, salt)
	s.CoordinatorIndex = result.CoordinatorIndex
	s.priorityList = result.PriorityList
}

// JoinSession implements join_session(session_id) -> () (spec §6): the
// session must already be known (learned from a session-announce handled
// by handleSessionAnnounce) and in Setup phase.
func (m *Manager) JoinSession(sessionID [32]byte) error {
	const op = "session.JoinSession"
	s, ok := m.getSession(sessionID)
	if !ok {
		return errs.New(errs.KindProtocolError, op, "unknown session")
	}

	s.mu.Lock()
	if s.Phase != PhaseSetup {
		s.mu.Unlock()
		return errs.New(errs.KindProtocolError, op, "session is not in Setup phase")
	}
	s.Phase = PhaseNonceExchange
	s.touch(time.Now())
	ownIdx := s.ownSignerIdx
	s.mu.Unlock()

	m.events.emit(Event{Kind: EventSessionJoined, SessionID: sessionID})

	pub, ok := s.participantByIndex(ownIdx)
	if !ok {
		return errs.New(errs.KindProtocolError, op, "local signer index not found in participant list")
	}
	m.broadcast(MsgSessionJoin, SessionJoinPayload{
		SessionID:   hex.EncodeToString(sessionID[:]),
		SignerIndex: ownIdx,
		PublicKey:   hex.EncodeToString(pub.PublicKey.Compressed()[:]),
	})
	return nil
}

// SubmitNonce implements submit_nonce(session_id), a wrapper around
// musigNonceGen (spec §4.5.2, §6).
func (m *Manager) SubmitNonce(sessionID [32]byte) error {
	const op = "session.SubmitNonce"
	s, ok := m.getSession(sessionID)
	if !ok {
		return errs.New(errs.KindProtocolError, op, "unknown session")
	}

	secret, public, err := musig2.NonceGen()
	if err != nil {
		return errs.Wrap(errs.KindInvalidCrypto, op, "generating nonce", err)
	}

	s.mu.Lock()
	if s.Phase != PhaseNonceExchange {
		s.mu.Unlock()
		return errs.New(errs.KindProtocolError, op, "session is not in NonceExchange phase")
	}
	s.secretNonce = &secret
	ownIdx := s.ownSignerIdx
	s.participants[ownIdx].publicNonce = &public
	compressed := curve.PublicKey{Point: public.R1}.Compressed()
	s.seenNonceFrom[ownIdx] = compressed
	s.touch(time.Now())
	s.mu.Unlock()

	m.broadcast(MsgNonceShare, NonceSharePayload{
		SessionID:   hex.EncodeToString(sessionID[:]),
		SignerIndex: ownIdx,
		PublicNonce: publicNonceToWire(public),
	})

	m.maybeAggregateNonces(s)
	return nil
}

func publicNonceToWire(pn musig2.PublicNonce) PublicNonceWire {
	r1 := curve.PublicKey{Point: pn.R1}.Compressed()
	r2 := curve.PublicKey{Point: pn.R2}.Compressed()
	return PublicNonceWire{R1: hex.EncodeToString(r1[:]), R2: hex.EncodeToString(r2[:])}
}

// maybeAggregateNonces transitions NonceExchange -> PartialSigExchange once
// every participant's public nonce has arrived (spec §4.6.1
// "allNoncesReceived").
func (m *Manager) maybeAggregateNonces(s *Session) {
	s.mu.Lock()
	if s.Phase != PhaseNonceExchange {
		s.mu.Unlock()
		return
	}
	nonces := make([]musig2.PublicNonce, 0, len(s.Participants))
	for _, p := range s.Participants {
		ps := s.participants[p.SignerIndex]
		if ps.publicNonce == nil {
			s.mu.Unlock()
			return
		}
		nonces = append(nonces, *ps.publicNonce)
	}
	agg, err := musig2.NonceAgg(nonces)
	if err != nil {
		s.mu.Unlock()
		logrus.Errorf("session: nonce aggregation failed: %v", err)
		return
	}
	s.aggNonce = &agg
	s.Phase = PhasePartialSigExchange
	s.touch(time.Now())
	id := s.ID
	s.mu.Unlock()

	m.events.emit(Event{Kind: EventAllNoncesCollected, SessionID: id})
}

// SubmitPartialSig implements submit_partial_sig(session_id), a wrapper
// around musigPartialSign (spec §4.5.4, §6). sk never enters the Manager's
// own state: it is used for exactly this call and discarded by the caller.
func (m *Manager) SubmitPartialSig(sessionID [32]byte, sk curve.PrivateKey) error {
	const op = "session.SubmitPartialSig"
	s, ok := m.getSession(sessionID)
	if !ok {
		return errs.New(errs.KindProtocolError, op, "unknown session")
	}

	s.mu.Lock()
	if s.Phase != PhasePartialSigExchange || s.aggNonce == nil || s.secretNonce == nil {
		s.mu.Unlock()
		return errs.New(errs.KindProtocolError, op, "session is not ready for partial signing")
	}
	secretNonce := *s.secretNonce
	ownIdx := s.ownSignerIdx
	ctx := s.KeyAggCtx
	aggNonce := *s.aggNonce
	message := s.Message
	s.mu.Unlock()

	partial, err := musig2.PartialSign(secretNonce, sk, ctx, ownIdx, aggNonce, message)
	if err != nil {
		return errs.Wrap(errs.KindInvalidCrypto, op, "partial signing failed", err)
	}

	s.mu.Lock()
	// Zeroize the secret nonce immediately after use (spec §4.6.6).
	s.secretNonce.K1 = curve.Scalar{}
	s.secretNonce.K2 = curve.Scalar{}
	s.secretNonce = nil
	s.participants[ownIdx].partialSig = &partial
	s.touch(time.Now())
	s.mu.Unlock()

	m.broadcast(MsgPartialSigShare, PartialSigSharePayload{
		SessionID:   hex.EncodeToString(sessionID[:]),
		SignerIndex: ownIdx,
		PartialSig:  hex.EncodeToString(sigToHex(partial)),
	})

	m.maybeAggregateSignature(s)
	return nil
}

func sigToHex(p musig2.PartialSignature) []byte {
	b := p.S.Bytes()
	return b[:]
}

// maybeAggregateSignature transitions PartialSigExchange -> Broadcasting
// once every participant's partial signature has arrived and verified
// (spec §4.6.1 "allPartialsReceivedAndVerified").
func (m *Manager) maybeAggregateSignature(s *Session) {
	s.mu.Lock()
	if s.Phase != PhasePartialSigExchange {
		s.mu.Unlock()
		return
	}
	partials := make([]musig2.PartialSignature, 0, len(s.Participants))
	for _, p := range s.Participants {
		ps := s.participants[p.SignerIndex]
		if ps.partialSig == nil {
			s.mu.Unlock()
			return
		}
		partials = append(partials, *ps.partialSig)
	}
	aggNonce := *s.aggNonce
	message := s.Message
	q := s.KeyAggCtx.Q
	id := s.ID
	s.mu.Unlock()

	sig, err := musig2.SigAgg(partials, aggNonce, message, q)
	if err != nil {
		m.failSession(s, errs.KindByzantineFault, "signature aggregation failed")
		return
	}
	if err := schnorrlotus.Verify(sig, s.KeyAggCtx.AggregatedPublicKey(), message); err != nil {
		m.failSession(s, errs.KindByzantineFault, "aggregated signature failed to verify")
		return
	}

	sigBytes := sig.Bytes()

	s.mu.Lock()
	s.finalSig = &sigBytes
	s.Phase = PhaseBroadcasting
	s.touch(time.Now())
	s.mu.Unlock()

	m.events.emit(Event{Kind: EventAllPartialsCollected, SessionID: id})
	m.events.emit(Event{Kind: EventShouldBroadcast, SessionID: id})
}

// GetFinalSignature implements get_final_signature(session_id) -> signature
// (spec §6), valid only in Complete or Broadcasting phase.
func (m *Manager) GetFinalSignature(sessionID [32]byte) (schnorrlotus.Signature, error) {
	const op = "session.GetFinalSignature"
	s, ok := m.getSession(sessionID)
	if !ok {
		return schnorrlotus.Signature{}, errs.New(errs.KindProtocolError, op, "unknown session")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Phase != PhaseBroadcasting && s.Phase != PhaseComplete {
		return schnorrlotus.Signature{}, errs.New(errs.KindProtocolError, op, "signature not available in current phase")
	}
	if s.finalSig == nil {
		return schnorrlotus.Signature{}, errs.New(errs.KindProtocolError, op, "signature not yet computed")
	}
	return schnorrlotus.ParseSignature(s.finalSig[:])
}

// NotifyBroadcastComplete implements notifyBroadcastComplete(session_id)
// (spec §4.6): the application has broadcast the finalized transaction
// with the given txid; the session transitions Broadcasting -> Complete.
func (m *Manager) NotifyBroadcastComplete(sessionID [32]byte, txid string) error {
	const op = "session.NotifyBroadcastComplete"
	s, ok := m.getSession(sessionID)
	if !ok {
		return errs.New(errs.KindProtocolError, op, "unknown session")
	}
	if !m.completeSession(s) {
		return errs.New(errs.KindProtocolError, op, "session is not in Broadcasting phase")
	}
	m.broadcast(MsgBroadcastComplete, BroadcastCompletePayload{
		SessionID: hex.EncodeToString(sessionID[:]),
		Txid:      txid,
	})
	return nil
}

func (m *Manager) completeSession(s *Session) bool {
	s.mu.Lock()
	if s.Phase != PhaseBroadcasting {
		s.mu.Unlock()
		return false
	}
	s.Phase = PhaseComplete
	s.touch(time.Now())
	id := s.ID
	s.mu.Unlock()

	m.events.emit(Event{Kind: EventBroadcastConfirmed, SessionID: id})
	m.events.emit(Event{Kind: EventCompleted, SessionID: id})
	return true
}

// TriggerCoordinatorFailover implements triggerCoordinatorFailover(session_id)
// (spec §4.6.3). The caller — never a library timer — decides the
// coordinator is unresponsive.
func (m *Manager) TriggerCoordinatorFailover(sessionID [32]byte) error {
	const op = "session.TriggerCoordinatorFailover"
	if !m.config.EnableCoordinatorFailover {
		return errs.New(errs.KindValidationError, op, "coordinator failover is disabled")
	}
	s, ok := m.getSession(sessionID)
	if !ok {
		return errs.New(errs.KindProtocolError, op, "unknown session")
	}

	s.mu.Lock()
	if s.Phase.Terminal() {
		s.mu.Unlock()
		return errs.New(errs.KindProtocolError, op, "session already in a terminal phase")
	}
	m.events.emit(Event{Kind: EventCoordinatorFailed, SessionID: sessionID})

	if s.failoverPos >= len(s.priorityList) {
		s.Phase = PhaseFailed
		s.FailedWhy = errs.KindExhausted.String()
		s.touch(time.Now())
		s.mu.Unlock()
		m.events.emit(Event{Kind: EventFailoverExhausted, SessionID: sessionID})
		m.events.emit(Event{Kind: EventFailed, SessionID: sessionID, Reason: errs.KindExhausted.String()})
		return nil
	}

	s.CoordinatorIndex = s.priorityList[s.failoverPos]
	s.failoverPos++
	s.touch(time.Now())
	s.mu.Unlock()

	m.events.emit(Event{Kind: EventShouldBroadcast, SessionID: sessionID})
	return nil
}

// failSession transitions s to Failed with the given reason (spec §7
// "Byzantine faults transition the session to Failed via an event, never
// by exception").
func (m *Manager) failSession(s *Session, kind errs.Kind, reason string) {
	s.mu.Lock()
	if s.Phase.Terminal() {
		s.mu.Unlock()
		return
	}
	s.Phase = PhaseFailed
	s.FailedWhy = reason
	s.touch(time.Now())
	id := s.ID
	s.mu.Unlock()

	m.events.emit(Event{Kind: EventFailed, SessionID: id, Reason: kind.String() + ": " + reason})
}

// AbortSession implements the caller-initiated abort path (spec §4.6.1
// diagram). It aborts a session in any non-terminal phase.
func (m *Manager) AbortSession(sessionID [32]byte, reason string) error {
	const op = "session.AbortSession"
	s, ok := m.getSession(sessionID)
	if !ok {
		return errs.New(errs.KindProtocolError, op, "unknown session")
	}
	s.mu.Lock()
	if s.Phase.Terminal() {
		s.mu.Unlock()
		return errs.New(errs.KindProtocolError, op, "session already in a terminal phase")
	}
	s.Phase = PhaseAborted
	s.touch(time.Now())
	s.mu.Unlock()

	m.events.emit(Event{Kind: EventAborted, SessionID: sessionID, Reason: reason})
	m.broadcast(MsgSessionAbort, SessionAbortPayload{SessionID: hex.EncodeToString(sessionID[:]), Reason: reason})
	return nil
}

// CleanupExpiredSessions implements cleanupExpiredSessions() (spec
// §4.6.6): drops any non-terminal session whose last_activity_at is older
// than config.StuckSessionTimeout; sessions in a terminal phase are kept.
// Caller-driven only; never scheduled internally.
func (m *Manager) CleanupExpiredSessions() int {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := 0
	for id, s := range m.sessions {
		s.mu.Lock()
		stuck := !s.Phase.Terminal() && now.Sub(s.LastActivityAt) > m.config.StuckSessionTimeout
		s.mu.Unlock()
		if stuck {
			delete(m.sessions, id)
			dropped++
			m.events.emit(Event{Kind: EventFailed, SessionID: id, Reason: errs.KindExhausted.String() + ": stuck session timeout"})
		}
	}
	return dropped
}
