package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/LotusiaStewardship/lotus-musig2-core/curve"
	"github.com/LotusiaStewardship/lotus-musig2-core/errs"
	"github.com/LotusiaStewardship/lotus-musig2-core/musig2"
)

// Every handler in this file implements spec §4.6.5's byzantine
// validation pipeline and §7's propagation policy: on any failure the
// message is dropped, a reputation penalty is applied to the sender, and
// the failure is never propagated out of the handler — exactly the
// teacher's general_*.go HandleXxx functions, which log and return rather
// than returning an error (see pubsubs.go's handler closures, none of
// which surface an error to the caller).

func (m *Manager) drop(op, from string, err error) {
	logrus.Errorf("session: %s: %v", op, err)
	if from != "" && m.reputation != nil {
		m.reputation.Penalize(from)
	}
}

func decodeSessionID(hexStr string) ([32]byte, error) {
	var id [32]byte
	b, err := decodeHexExact(hexStr, 32, "session.decodeSessionID", "session_id")
	if err != nil {
		return id, err
	}
	copy(id[:], b)
	return id, nil
}

func (m *Manager) handleSessionAnnounce(from string, raw []byte) {
	const op = "session.handleSessionAnnounce"
	msg, err := parseMessage(raw, m.config.MaxMessageSize)
	if err != nil {
		m.drop(op, from, err)
		return
	}
	var payload SessionAnnouncePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		m.drop(op, from, errs.Wrap(errs.KindInvalidEncoding, op, "decoding payload", err))
		return
	}
	sessionID, err := decodeSessionID(payload.SessionID)
	if err != nil {
		m.drop(op, from, err)
		return
	}
	if _, known := m.getSession(sessionID); known {
		return // already tracked, nothing to do
	}

	local := m.transport.LocalPeerID
	ownIdx := -1
	participants := make([]Participant, 0, len(payload.Participants))
	for i, peerID := range payload.Participants {
		pub, ok := m.peerKey(peerID)
		if !ok {
			m.drop(op, from, errs.New(errs.KindProtocolError, op, "unknown participant public key: "+peerID))
			return
		}
		participants = append(participants, Participant{SignerIndex: i, PeerID: peerID, PublicKey: pub})
		if peerID == local {
			ownIdx = i
		}
	}
	if ownIdx < 0 {
		return // this node is not a participant of the announced session
	}

	messageBytes, err := decodeHexExact(payload.Message, 32, op, "message")
	if err != nil {
		m.drop(op, from, err)
		return
	}
	var message [32]byte
	copy(message[:], messageBytes)

	pubkeys := make([]curve.PublicKey, len(participants))
	for i, p := range participants {
		pubkeys[i] = p.PublicKey
	}
	ctx, err := musig2.KeyAgg(pubkeys)
	if err != nil {
		m.drop(op, from, err)
		return
	}

	s := newSession(sessionID, participants, ctx, message, ownIdx, time.Now())
	m.putSession(s)
}

func (m *Manager) handleSessionJoin(from string, raw []byte) {
	const op = "session.handleSessionJoin"
	msg, err := parseMessage(raw, m.config.MaxMessageSize)
	if err != nil {
		m.drop(op, from, err)
		return
	}
	var payload SessionJoinPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		m.drop(op, from, errs.Wrap(errs.KindInvalidEncoding, op, "decoding payload", err))
		return
	}
	sessionID, err := decodeSessionID(payload.SessionID)
	if err != nil {
		m.drop(op, from, err)
		return
	}
	s, ok := m.getSession(sessionID)
	if !ok {
		return // gossip for a session we don't track
	}
	if err := validateSemantic(op, s, from, payload.SignerIndex, PhaseNonceExchange); err != nil {
		// A join notification may legitimately race our own join; only
		// penalize when the signer index truly doesn't match the sender.
		if p, known := s.participantByIndex(payload.SignerIndex); !known || p.PeerID != from {
			m.drop(op, from, err)
		}
		return
	}
}

func (m *Manager) handleNonceShare(from string, raw []byte) {
	const op = "session.handleNonceShare"
	msg, err := parseMessage(raw, m.config.MaxMessageSize)
	if err != nil {
		m.drop(op, from, err)
		return
	}
	var payload NonceSharePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		m.drop(op, from, errs.Wrap(errs.KindInvalidEncoding, op, "decoding payload", err))
		return
	}
	sessionID, err := decodeSessionID(payload.SessionID)
	if err != nil {
		m.drop(op, from, err)
		return
	}
	s, ok := m.getSession(sessionID)
	if !ok {
		return
	}

	publicNonce, err := decodePublicNonce(op, payload.PublicNonce)
	if err != nil {
		m.drop(op, from, err)
		return
	}

	s.mu.Lock()
	// Equivocation is checked before the phase check, so a second,
	// different nonce from the signer's own peer is fatal even when it
	// arrives after the nonce set was already complete.
	if p, known := s.participantByIndex(payload.SignerIndex); known && p.PeerID == from &&
		checkEquivocation(s, payload.SignerIndex, publicNonce) {
		s.mu.Unlock()
		m.failSession(s, errs.KindByzantineFault, fmt.Sprintf("equivocating nonce-share from signer %d", payload.SignerIndex))
		m.reputation.Penalize(from)
		return
	}
	if err := validateSemantic(op, s, from, payload.SignerIndex, PhaseNonceExchange); err != nil {
		s.mu.Unlock()
		m.drop(op, from, err)
		return
	}
	s.participants[payload.SignerIndex].publicNonce = &publicNonce
	s.touch(time.Now())
	id := s.ID
	s.mu.Unlock()

	m.events.emit(Event{Kind: EventNonceReceived, SessionID: id})
	m.maybeAggregateNonces(s)
}

func (m *Manager) handlePartialSigShare(from string, raw []byte) {
	const op = "session.handlePartialSigShare"
	msg, err := parseMessage(raw, m.config.MaxMessageSize)
	if err != nil {
		m.drop(op, from, err)
		return
	}
	var payload PartialSigSharePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		m.drop(op, from, errs.Wrap(errs.KindInvalidEncoding, op, "decoding payload", err))
		return
	}
	sessionID, err := decodeSessionID(payload.SessionID)
	if err != nil {
		m.drop(op, from, err)
		return
	}
	s, ok := m.getSession(sessionID)
	if !ok {
		return
	}

	partial, err := decodePartialSig(op, payload.PartialSig)
	if err != nil {
		m.drop(op, from, err)
		return
	}

	s.mu.Lock()
	if err := validateSemantic(op, s, from, payload.SignerIndex, PhasePartialSigExchange); err != nil {
		s.mu.Unlock()
		m.drop(op, from, err)
		return
	}
	if s.aggNonce == nil {
		s.mu.Unlock()
		m.drop(op, from, errs.New(errs.KindProtocolError, op, "partial sig arrived before nonce aggregation"))
		return
	}
	publicNonce := s.participants[payload.SignerIndex].publicNonce
	if publicNonce == nil {
		s.mu.Unlock()
		m.drop(op, from, errs.New(errs.KindProtocolError, op, "partial sig from signer with no recorded nonce"))
		return
	}
	participant, _ := s.participantByIndex(payload.SignerIndex)
	ctx := s.KeyAggCtx
	aggNonce := *s.aggNonce
	message := s.Message
	signerIndex := payload.SignerIndex
	s.mu.Unlock()

	// Cryptographic validation (spec §4.6.5 step 4): verify the partial
	// signature before acceptance.
	ok, err = musig2.PartialSigVerify(partial, *publicNonce, participant.PublicKey, ctx, signerIndex, aggNonce, message)
	if err != nil || !ok {
		m.failSession(s, errs.KindByzantineFault, "invalid partial signature from signer")
		m.reputation.Penalize(from)
		return
	}

	s.mu.Lock()
	s.participants[signerIndex].partialSig = &partial
	s.touch(time.Now())
	id := s.ID
	s.mu.Unlock()

	m.events.emit(Event{Kind: EventPartialSigReceived, SessionID: id})
	m.maybeAggregateSignature(s)
}

func (m *Manager) handleBroadcastComplete(from string, raw []byte) {
	const op = "session.handleBroadcastComplete"
	msg, err := parseMessage(raw, m.config.MaxMessageSize)
	if err != nil {
		m.drop(op, from, err)
		return
	}
	var payload BroadcastCompletePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		m.drop(op, from, errs.Wrap(errs.KindInvalidEncoding, op, "decoding payload", err))
		return
	}
	sessionID, err := decodeSessionID(payload.SessionID)
	if err != nil {
		m.drop(op, from, err)
		return
	}
	s, ok := m.getSession(sessionID)
	if !ok {
		return
	}
	m.completeSession(s)
}

func (m *Manager) handleSessionAbort(from string, raw []byte) {
	const op = "session.handleSessionAbort"
	msg, err := parseMessage(raw, m.config.MaxMessageSize)
	if err != nil {
		m.drop(op, from, err)
		return
	}
	var payload SessionAbortPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		m.drop(op, from, errs.Wrap(errs.KindInvalidEncoding, op, "decoding payload", err))
		return
	}
	sessionID, err := decodeSessionID(payload.SessionID)
	if err != nil {
		m.drop(op, from, err)
		return
	}
	s, ok := m.getSession(sessionID)
	if !ok {
		return
	}
	s.mu.Lock()
	if s.Phase.Terminal() {
		s.mu.Unlock()
		return
	}
	s.Phase = PhaseAborted
	s.touch(time.Now())
	id := s.ID
	s.mu.Unlock()
	m.events.emit(Event{Kind: EventAborted, SessionID: id, Reason: payload.Reason})
}

func (m *Manager) handleParticipantDropped(from string, raw []byte) {
	const op = "session.handleParticipantDropped"
	msg, err := parseMessage(raw, m.config.MaxMessageSize)
	if err != nil {
		m.drop(op, from, err)
		return
	}
	var payload ParticipantDroppedPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		m.drop(op, from, errs.Wrap(errs.KindInvalidEncoding, op, "decoding payload", err))
		return
	}
	sessionID, err := decodeSessionID(payload.SessionID)
	if err != nil {
		m.drop(op, from, err)
		return
	}
	s, ok := m.getSession(sessionID)
	if !ok {
		return
	}
	participant, known := s.participantByIndex(payload.SignerIndex)
	if !known {
		m.drop(op, from, errs.New(errs.KindProtocolError, op, "unknown signer_index in participant-dropped"))
		return
	}
	logrus.Warnf("session: participant %s reported dropped (signer %d): %s", participant.PeerID, payload.SignerIndex, payload.Reason)
	m.reputation.Penalize(participant.PeerID)
}
