package node

import (
	"github.com/bpfs/dep2p"
	"github.com/bpfs/dep2p/pubsub"
	"github.com/bpfs/dep2p/streams"

	"github.com/LotusiaStewardship/lotus-musig2-core/session"
)

// NewTransport adapts the teacher's dep2p.DeP2P + pubsub.DeP2PPubSub pair
// (pubsubs.go's SubscribeWithTopic, general_*.go's BroadcastWithTopic +
// streams.RequestMessage envelope) into a session.Transport, so session
// itself never imports dep2p.
func NewTransport(p2p *dep2p.DeP2P, ps *pubsub.DeP2PPubSub) session.Transport {
	localPeerID := p2p.Host().ID().String()

	return session.Transport{
		LocalPeerID: localPeerID,

		Broadcast: func(topic string, payload []byte) error {
			srm := &streams.RequestMessage{
				Payload: payload,
				Message: &streams.Message{
					Sender: localPeerID,
				},
			}
			requestBytes, err := srm.Marshal()
			if err != nil {
				return err
			}
			return ps.BroadcastWithTopic(topic, requestBytes)
		},

		SubscribeWithTopic: func(topic string, handler func(from string, payload []byte)) error {
			return ps.SubscribeWithTopic(topic, func(request *streams.RequestMessage) {
				from := localPeerID
				if request.Message != nil && request.Message.Sender != "" {
					from = request.Message.Sender
				}
				handler(from, request.Payload)
			}, true)
		},
	}
}
