package session

// Transport abstracts the P2P pubsub layer the same way the teacher's
// dep2p.DeP2P + pubsub.DeP2PPubSub pair does (pubsubs.go
// SubscribeWithTopic, general_*.go BroadcastWithTopic), but narrowed to
// what the session package needs so it never has to import dep2p
// directly; node wires a concrete dep2p-backed implementation at process
// start.
type Transport struct {
	// Broadcast publishes a raw wire message on topic.
	Broadcast func(topic string, payload []byte) error

	// SubscribeWithTopic registers handler for every message published on
	// topic. handler receives the sending peer id and the raw payload; it
	// must never block (spec §5 "no blocking operations are held across
	// a cryptographic operation").
	SubscribeWithTopic func(topic string, handler func(from string, payload []byte)) error

	// LocalPeerID is this node's own peer id, used as the `from` field on
	// outbound messages.
	LocalPeerID string
}
