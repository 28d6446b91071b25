// Command lotus-musigd runs a single MuSig2 coordination peer: it brings up
// a dep2p host and pubsub, opens a node.Node on top of them, and blocks
// until signaled to stop. Mirrors the teacher's examples/main.go
// composition (buildHostOptions/buildDHTOptions/buildPubSub), narrowed to
// what this module's node package needs — no MAC-derived identity (see
// DESIGN.md's dropped-teacher-deps entry), a fresh libp2p identity instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/bpfs/dep2p"
	"github.com/bpfs/dep2p/pubsub"
	"github.com/libp2p/go-libp2p"
	libp2ppubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p-pubsub/timecache"
	"github.com/libp2p/go-libp2p/config"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/p2p/host/peerstore/pstoremem"
	"github.com/libp2p/go-libp2p/p2p/net/connmgr"
	"github.com/sirupsen/logrus"

	"github.com/LotusiaStewardship/lotus-musig2-core/node"
)

const (
	defaultRendezvous = "rendezvous:lotus.musig2.1"

	connMgrLowWater  = 32
	connMgrHighWater = 96
	connMgrGrace     = 20 * time.Second
)

func main() {
	dataDir := flag.String("data", "data", "data directory for the reputation store")
	port := flag.String("port", "0", "TCP listen port (0 picks a free port)")
	rendezvous := flag.String("rendezvous", defaultRendezvous, "dep2p DHT rendezvous string")
	flag.Parse()

	ctx := context.Background()

	// This node's libp2p transport identity — distinct from any MuSig2
	// signer key. A participant's signing key is supplied fresh on every
	// call to session.Manager.SubmitPartialSig and never stored (see
	// DESIGN.md: private keys never enter session state).
	priv, _, err := crypto.GenerateEd25519Key(nil)
	if err != nil {
		logrus.Fatalf("generating host identity: %v", err)
	}

	p2p, err := dep2p.NewDeP2P(ctx,
		dep2p.WithLibp2pOpts(buildHostOptions(priv, *port)),
		dep2p.WithDhtOpts([]dep2p.Option{dep2p.Mode(dep2p.ModeAuto)}),
		dep2p.WithRendezvousString(*rendezvous),
	)
	if err != nil {
		logrus.Fatalf("starting dep2p host: %v", err)
	}

	ps, err := newPubSub(ctx, p2p)
	if err != nil {
		logrus.Fatalf("starting pubsub: %v", err)
	}

	opt := node.DefaultOptions()
	opt.DataDir = *dataDir
	opt.BuildInstanceId(p2p.Host().ID().String())

	n, err := node.Open(opt, p2p, ps)
	if err != nil {
		logrus.Fatalf("opening node: %v", err)
	}

	logrus.Infof("lotus-musigd listening as %s", p2p.Host().ID().String())

	node.WaitForShutdown(func() {
		if err := n.Close(); err != nil {
			logrus.Errorf("closing node: %v", err)
		}
	})
}

// buildHostOptions is a trimmed version of the teacher's buildHostOptions
// (examples/main.go): connection manager, peerstore and NAT port mapping
// carried over; relay options dropped, so the host does not act as a
// general-purpose libp2p relay node.
func buildHostOptions(sk crypto.PrivKey, portNumber string) []config.Option {
	cm, err := connmgr.NewConnManager(connMgrLowWater, connMgrHighWater, connmgr.WithGracePeriod(connMgrGrace))
	if err != nil {
		logrus.Errorf("initializing connection manager: %v", err)
	}

	libp2pPeerstore, err := pstoremem.NewPeerstore()
	if err != nil {
		logrus.Errorf("initializing peerstore: %v", err)
	}

	options := []libp2p.Option{
		libp2p.Peerstore(libp2pPeerstore),
		libp2p.Ping(false),
		libp2p.Identity(sk),
		libp2p.DefaultSecurity,
		libp2p.DefaultMuxers,
		libp2p.ConnectionManager(cm),
		libp2p.NATPortMap(),
	}
	if portNumber != "" && portNumber != "0" {
		options = append(options, libp2p.ListenAddrStrings(fmt.Sprintf("/ip4/0.0.0.0/tcp/%s", portNumber)))
	} else {
		options = append(options, libp2p.ListenAddrStrings("/ip4/0.0.0.0/tcp/0"))
	}
	return options
}

func newPubSub(ctx context.Context, p2p *dep2p.DeP2P) (*pubsub.DeP2PPubSub, error) {
	ps, err := pubsub.NewPubsub(ctx, p2p.Host())
	if err != nil {
		return nil, err
	}
	ttl, err := time.ParseDuration("10s")
	if err != nil {
		return nil, fmt.Errorf("parsing seen-messages ttl: %w", err)
	}
	if err := ps.Start(
		libp2ppubsub.WithMaxMessageSize(pubsub.DefaultLibp2pPubSubMaxMessageSize),
		libp2ppubsub.WithSeenMessagesTTL(ttl),
		libp2ppubsub.WithSeenMessagesStrategy(timecache.Strategy_LastSeen),
	); err != nil {
		return nil, err
	}
	return ps, nil
}
