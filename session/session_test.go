package session

import (
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/LotusiaStewardship/lotus-musig2-core/curve"
	"github.com/LotusiaStewardship/lotus-musig2-core/musig2"
	"github.com/LotusiaStewardship/lotus-musig2-core/reputation"
	"github.com/LotusiaStewardship/lotus-musig2-core/schnorrlotus"
)

// fakeBus is an in-memory stand-in for dep2p's pubsub layer: Broadcast
// delivers synchronously to every OTHER subscriber of the topic (the
// sender already updates its own session state directly, mirroring how
// SubmitNonce/SubmitPartialSig apply the local contribution before
// broadcasting it).
type fakeBus struct {
	mu   sync.Mutex
	subs map[string][]subscriber
}

type subscriber struct {
	peerID  string
	handler func(from string, payload []byte)
}

func newFakeBus() *fakeBus {
	return &fakeBus{subs: make(map[string][]subscriber)}
}

func (b *fakeBus) transportFor(peerID string) Transport {
	return Transport{
		LocalPeerID: peerID,
		Broadcast: func(topic string, payload []byte) error {
			b.mu.Lock()
			targets := append([]subscriber{}, b.subs[topic]...)
			b.mu.Unlock()
			for _, s := range targets {
				if s.peerID == peerID {
					continue
				}
				s.handler(peerID, payload)
			}
			return nil
		},
		SubscribeWithTopic: func(topic string, handler func(from string, payload []byte)) error {
			b.mu.Lock()
			b.subs[topic] = append(b.subs[topic], subscriber{peerID: peerID, handler: handler})
			b.mu.Unlock()
			return nil
		},
	}
}

type testNode struct {
	peerID  string
	priv    curve.PrivateKey
	manager *Manager
}

func newTestNetwork(t *testing.T, n int) ([]*testNode, *fakeBus) {
	t.Helper()
	bus := newFakeBus()
	nodes := make([]*testNode, n)
	for i := 0; i < n; i++ {
		s, err := curve.RandomScalar()
		require.NoError(t, err)
		priv, err := curve.NewPrivateKey(s)
		require.NoError(t, err)

		peerID := "peer-" + uuid.NewString()
		store, err := reputation.Open(t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })

		mgr := NewManager(bus.transportFor(peerID), store, DefaultConfig())
		nodes[i] = &testNode{peerID: peerID, priv: priv, manager: mgr}
	}
	// Every node learns every other node's static public key out of band.
	for _, n1 := range nodes {
		for _, n2 := range nodes {
			n1.manager.RegisterPeerKey(n2.peerID, n2.priv.Public())
		}
	}
	return nodes, bus
}

func participantsAndCtx(t *testing.T, nodes []*testNode) ([]Participant, musig2.KeyAggContext) {
	t.Helper()
	participants := make([]Participant, len(nodes))
	pubkeys := make([]curve.PublicKey, len(nodes))
	for i, n := range nodes {
		participants[i] = Participant{SignerIndex: i, PeerID: n.peerID, PublicKey: n.priv.Public()}
		pubkeys[i] = n.priv.Public()
	}
	ctx, err := musig2.KeyAgg(pubkeys)
	require.NoError(t, err)
	return participants, ctx
}

// runHappyPathThroughBroadcasting drives every participant through
// CreateSession/JoinSession/SubmitNonce/SubmitPartialSig and returns once
// every node's session has reached Broadcasting with a computed signature.
func runHappyPathThroughBroadcasting(t *testing.T, nodes []*testNode, participants []Participant, ctx musig2.KeyAggContext, message [32]byte) [32]byte {
	t.Helper()
	sessionID, err := nodes[0].manager.CreateSession(participants, ctx, message, 0)
	require.NoError(t, err)

	for i := 1; i < len(nodes); i++ {
		require.NoError(t, nodes[i].manager.JoinSession(sessionID))
	}
	for _, n := range nodes {
		require.NoError(t, n.manager.SubmitNonce(sessionID))
	}
	for _, n := range nodes {
		require.NoError(t, n.manager.SubmitPartialSig(sessionID, n.priv))
	}

	for _, n := range nodes {
		s, ok := n.manager.getSession(sessionID)
		require.True(t, ok)
		s.mu.Lock()
		phase := s.Phase
		s.mu.Unlock()
		require.Equal(t, PhaseBroadcasting, phase)
	}
	return sessionID
}

// TestSessionEndToEndHappyPath exercises spec §8 scenario 1's flow across
// the full session state machine (3 participants, Setup through Complete).
func TestSessionEndToEndHappyPath(t *testing.T) {
	nodes, _ := newTestNetwork(t, 3)
	participants, ctx := participantsAndCtx(t, nodes)

	var message [32]byte
	for i := range message {
		message[i] = 0x42
	}

	sessionID := runHappyPathThroughBroadcasting(t, nodes, participants, ctx, message)

	require.NoError(t, nodes[0].manager.NotifyBroadcastComplete(sessionID, "deadbeef"))

	for _, n := range nodes {
		sig, err := n.manager.GetFinalSignature(sessionID)
		require.NoError(t, err)
		require.NoError(t, schnorrlotus.Verify(sig, ctx.AggregatedPublicKey(), message))
	}
}

// TestEquivocationDetection implements spec §8 scenario 4: participant 1
// sends two different nonce-share messages with the same session_id but
// different R1; honest participants' sessions transition to Failed, and a
// fresh session with the same participants still works.
func TestEquivocationDetection(t *testing.T) {
	nodes, bus := newTestNetwork(t, 3)
	participants, ctx := participantsAndCtx(t, nodes)

	var message [32]byte
	message[0] = 0x01

	sessionID, err := nodes[0].manager.CreateSession(participants, ctx, message, 0)
	require.NoError(t, err)
	require.NoError(t, nodes[1].manager.JoinSession(sessionID))
	require.NoError(t, nodes[2].manager.JoinSession(sessionID))

	require.NoError(t, nodes[0].manager.SubmitNonce(sessionID))
	require.NoError(t, nodes[2].manager.SubmitNonce(sessionID))

	_, public1, err := musig2.NonceGen()
	require.NoError(t, err)
	_, public1b, err := musig2.NonceGen()
	require.NoError(t, err)

	sessionIDHex := hex.EncodeToString(sessionID[:])
	raw1, err := encodeMessage(MsgNonceShare, nodes[1].peerID, NonceSharePayload{
		SessionID: sessionIDHex, SignerIndex: 1, PublicNonce: publicNonceToWire(public1),
	}, time.Now(), uuid.NewString())
	require.NoError(t, err)
	raw2, err := encodeMessage(MsgNonceShare, nodes[1].peerID, NonceSharePayload{
		SessionID: sessionIDHex, SignerIndex: 1, PublicNonce: publicNonceToWire(public1b),
	}, time.Now(), uuid.NewString())
	require.NoError(t, err)

	bus.mu.Lock()
	targets := append([]subscriber{}, bus.subs[MsgNonceShare.Topic()]...)
	bus.mu.Unlock()
	for _, s := range targets {
		if s.peerID == nodes[1].peerID {
			continue
		}
		s.handler(nodes[1].peerID, raw1)
		s.handler(nodes[1].peerID, raw2)
	}

	for _, idx := range []int{0, 2} {
		s, ok := nodes[idx].manager.getSession(sessionID)
		require.True(t, ok)
		s.mu.Lock()
		phase := s.Phase
		s.mu.Unlock()
		require.Equal(t, PhaseFailed, phase)
	}

	// A fresh session between the same participants still works correctly.
	var message2 [32]byte
	message2[0] = 0x02
	freshID := runHappyPathThroughBroadcasting(t, nodes, participants, ctx, message2)
	require.NoError(t, nodes[0].manager.NotifyBroadcastComplete(freshID, "cafebabe"))
	sig, err := nodes[0].manager.GetFinalSignature(freshID)
	require.NoError(t, err)
	require.NoError(t, schnorrlotus.Verify(sig, ctx.AggregatedPublicKey(), message2))
}

// TestCoordinatorFailover implements spec §8 scenario 5: a 4-signer
// session whose coordinator goes unresponsive advances to the next
// priority index via TriggerCoordinatorFailover and is still able to
// finalize.
func TestCoordinatorFailover(t *testing.T) {
	nodes, _ := newTestNetwork(t, 4)
	participants, ctx := participantsAndCtx(t, nodes)

	var message [32]byte
	message[0] = 0x03

	sessionID := runHappyPathThroughBroadcasting(t, nodes, participants, ctx, message)

	s, ok := nodes[0].manager.getSession(sessionID)
	require.True(t, ok)
	s.mu.Lock()
	before := s.CoordinatorIndex
	s.mu.Unlock()

	require.NoError(t, nodes[0].manager.TriggerCoordinatorFailover(sessionID))

	s.mu.Lock()
	after := s.CoordinatorIndex
	phase := s.Phase
	s.mu.Unlock()
	require.NotEqual(t, before, after)
	require.Equal(t, PhaseBroadcasting, phase)

	require.NoError(t, nodes[0].manager.NotifyBroadcastComplete(sessionID, "f00dface"))
	sig, err := nodes[0].manager.GetFinalSignature(sessionID)
	require.NoError(t, err)
	require.NoError(t, schnorrlotus.Verify(sig, ctx.AggregatedPublicKey(), message))
}

// TestMalformedPartialSigShareDropped implements spec §8 scenario 6: a
// peer sends a partial-sig-share whose partial_sig field is 31 bytes;
// validation rejects the message, penalizes the sender, and the session
// still accepts legitimate shares from the other peers.
func TestMalformedPartialSigShareDropped(t *testing.T) {
	nodes, bus := newTestNetwork(t, 3)
	participants, ctx := participantsAndCtx(t, nodes)

	var message [32]byte
	message[0] = 0x04

	sessionID, err := nodes[0].manager.CreateSession(participants, ctx, message, 0)
	require.NoError(t, err)
	require.NoError(t, nodes[1].manager.JoinSession(sessionID))
	require.NoError(t, nodes[2].manager.JoinSession(sessionID))
	for _, n := range nodes {
		require.NoError(t, n.manager.SubmitNonce(sessionID))
	}

	scoreBefore := nodes[0].manager.reputation.Score(nodes[1].peerID)

	malformed, err := encodeMessage(MsgPartialSigShare, nodes[1].peerID, PartialSigSharePayload{
		SessionID:   hex.EncodeToString(sessionID[:]),
		SignerIndex: 1,
		PartialSig:  hex.EncodeToString(make([]byte, 31)),
	}, time.Now(), uuid.NewString())
	require.NoError(t, err)

	bus.mu.Lock()
	targets := append([]subscriber{}, bus.subs[MsgPartialSigShare.Topic()]...)
	bus.mu.Unlock()
	for _, s := range targets {
		if s.peerID == nodes[1].peerID {
			continue
		}
		s.handler(nodes[1].peerID, malformed)
	}

	require.Less(t, nodes[0].manager.reputation.Score(nodes[1].peerID), scoreBefore)

	s, ok := nodes[0].manager.getSession(sessionID)
	require.True(t, ok)
	s.mu.Lock()
	phase := s.Phase
	s.mu.Unlock()
	require.Equal(t, PhasePartialSigExchange, phase)

	for _, n := range nodes {
		require.NoError(t, n.manager.SubmitPartialSig(sessionID, n.priv))
	}
	for _, n := range nodes {
		s, ok := n.manager.getSession(sessionID)
		require.True(t, ok)
		s.mu.Lock()
		phase := s.Phase
		s.mu.Unlock()
		require.Equal(t, PhaseBroadcasting, phase)
	}
}
