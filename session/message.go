package session

import (
	"encoding/hex"
	"encoding/json"
	"regexp"
	"time"

	"github.com/LotusiaStewardship/lotus-musig2-core/errs"
)

// ProtocolID is the protocol identifier carried by every MuSig2 session
// message (spec §4.6.4).
const ProtocolID = "/lotus/musig2/1.0.0"

// MessageType enumerates the 7 MuSig2 P2P message kinds (spec §4.6.4).
type MessageType string

const (
	MsgSessionAnnounce    MessageType = "session-announce"
	MsgSessionJoin        MessageType = "session-join"
	MsgNonceShare         MessageType = "nonce-share"
	MsgPartialSigShare    MessageType = "partial-sig-share"
	MsgBroadcastComplete  MessageType = "broadcast-complete"
	MsgSessionAbort       MessageType = "session-abort"
	MsgParticipantDropped MessageType = "participant-dropped"
)

// Topic returns the pubsub topic this message type is published on. Every
// message type shares ProtocolID, namespaced by its own kind so a node can
// subscribe selectively.
func (t MessageType) Topic() string {
	return ProtocolID + "/" + string(t)
}

var allTopics = []MessageType{
	MsgSessionAnnounce, MsgSessionJoin, MsgNonceShare, MsgPartialSigShare,
	MsgBroadcastComplete, MsgSessionAbort, MsgParticipantDropped,
}

// Message is the JSON-over-libp2p-stream envelope (spec §6 "P2P messages
// (JSON over the libp2p stream)"), diverging deliberately from the
// teacher's gob-based EncodeToBytes/DecodeFromBytes: the spec requires a
// JSON wire format so that message payloads stay legible across
// implementations that are not themselves Go.
type Message struct {
	Type      MessageType     `json:"type"`
	From      string          `json:"from"`
	To        string          `json:"to,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
	MessageID string          `json:"message_id"`
	Signature string          `json:"signature,omitempty"`
	Protocol  string          `json:"protocol,omitempty"`
}

var hexPattern = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// SessionAnnouncePayload is carried by MsgSessionAnnounce.
type SessionAnnouncePayload struct {
	SessionID    string   `json:"session_id"`
	Participants []string `json:"participants"` // peer ids, in signer-index order
	Message      string   `json:"message"`       // 32-byte hex digest
}

// SessionJoinPayload is carried by MsgSessionJoin.
type SessionJoinPayload struct {
	SessionID   string `json:"session_id"`
	SignerIndex int    `json:"signer_index"`
	PublicKey   string `json:"public_key"` // 33-byte compressed hex
}

// PublicNonceWire is the wire encoding of a musig2.PublicNonce (spec §6).
type PublicNonceWire struct {
	R1 string `json:"R1"`
	R2 string `json:"R2"`
}

// NonceSharePayload is carried by MsgNonceShare (spec §6 exact shape).
type NonceSharePayload struct {
	SessionID   string          `json:"session_id"`
	SignerIndex int             `json:"signer_index"`
	PublicNonce PublicNonceWire `json:"public_nonce"`
}

// PartialSigSharePayload is carried by MsgPartialSigShare (spec §6 exact
// shape).
type PartialSigSharePayload struct {
	SessionID   string `json:"session_id"`
	SignerIndex int    `json:"signer_index"`
	PartialSig  string `json:"partial_sig"` // 32-byte hex
}

// BroadcastCompletePayload is carried by MsgBroadcastComplete (spec §6
// exact shape).
type BroadcastCompletePayload struct {
	SessionID string `json:"session_id"`
	Txid      string `json:"txid"`
}

// SessionAbortPayload is carried by MsgSessionAbort.
type SessionAbortPayload struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

// ParticipantDroppedPayload is carried by MsgParticipantDropped.
type ParticipantDroppedPayload struct {
	SessionID   string `json:"session_id"`
	SignerIndex int    `json:"signer_index"`
	Reason      string `json:"reason"`
}

// encodeMessage builds and marshals a Message envelope around payload.
func encodeMessage(msgType MessageType, from string, payload interface{}, now time.Time, messageID string) ([]byte, error) {
	const op = "session.encodeMessage"
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidEncoding, op, "marshaling payload", err)
	}
	env := Message{
		Type:      msgType,
		From:      from,
		Payload:   raw,
		Timestamp: now.UnixMilli(),
		MessageID: messageID,
		Protocol:  ProtocolID,
	}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidEncoding, op, "marshaling envelope", err)
	}
	return out, nil
}

// parseMessage unmarshals an inbound wire message, enforcing the maximum
// size and structural validation field rule (spec §4.6.5 step 1: "hex
// strings match ^[0-9a-fA-F]+$ and have the declared byte length" is
// applied by each payload's own decode step, not here).
func parseMessage(raw []byte, maxSize int) (Message, error) {
	const op = "session.parseMessage"
	if maxSize > 0 && len(raw) > maxSize {
		return Message{}, errs.New(errs.KindValidationError, op, "message exceeds max size")
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, errs.Wrap(errs.KindInvalidEncoding, op, "unmarshaling envelope", err)
	}
	if msg.Type == "" || msg.From == "" || msg.MessageID == "" {
		return Message{}, errs.New(errs.KindValidationError, op, "missing required envelope field")
	}
	return msg, nil
}

// decodeHexExact validates and decodes a hex string of exactly wantLen
// bytes (spec §4.6.5 step 1).
func decodeHexExact(s string, wantLen int, op, field string) ([]byte, error) {
	if s == "" || !hexPattern.MatchString(s) {
		return nil, errs.New(errs.KindValidationError, op, field+" is not a valid hex string")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidationError, op, field+" hex decode failed", err)
	}
	if len(b) != wantLen {
		return nil, errs.New(errs.KindValidationError, op, field+" has wrong byte length")
	}
	return b, nil
}
