package node

import (
	"context"
	"fmt"

	"github.com/bpfs/dep2p"
	"github.com/bpfs/dep2p/pubsub"
	"go.uber.org/fx"

	"github.com/LotusiaStewardship/lotus-musig2-core/curve"
	"github.com/LotusiaStewardship/lotus-musig2-core/reputation"
	"github.com/LotusiaStewardship/lotus-musig2-core/session"
)

// Node is the process-level composition root for a MuSig2 coordination
// peer: transport, reputation store, and session manager wired together
// the way the teacher's BC wires its p2p host, pubsub, and blockchain
// service (app.go).
type Node struct {
	ctx context.Context
	opt *Options

	p2p    *dep2p.DeP2P
	pubsub *pubsub.DeP2PPubSub

	reputation *reputation.Store
	session    *session.Manager
}

// Open mirrors the teacher's Open(opt, p2p, pubsub) (*BC, error): validate
// options, bring up local storage, and start the fx app that wires
// everything else together.
func Open(opt *Options, p2p *dep2p.DeP2P, ps *pubsub.DeP2PPubSub) (*Node, error) {
	if opt.isOpen {
		return nil, fmt.Errorf("node instance '%s' is already open", opt.InstanceId)
	}
	if err := opt.CheckAndSetOptions(); err != nil {
		return nil, err
	}
	if err := SetLog(opt.InstanceId); err != nil {
		return nil, err
	}

	ctx := context.Background()
	n := &Node{
		ctx:    ctx,
		opt:    opt,
		p2p:    p2p,
		pubsub: ps,
	}

	opts := []fx.Option{
		n.globalInit(),
		fx.Provide(
			NewReputationStore,
			NewSessionManager,
		),
		fx.Invoke(
			RegisterProtocol,
		),
		fx.Populate(
			&n.reputation,
			&n.session,
		),
	}
	app := fx.New(opts...)
	return n, app.Start(ctx)
}

// globalInit supplies the values this Node already owns into the fx
// graph, the way BC.globalInit does for *dep2p.DeP2P/*pubsub.DeP2PPubSub.
func (n *Node) globalInit() fx.Option {
	return fx.Provide(
		func() context.Context { return n.ctx },
		func() *Options { return n.opt },
		func() *dep2p.DeP2P { return n.p2p },
		func() *pubsub.DeP2PPubSub { return n.pubsub },
	)
}

// SessionManager returns the node's session.Manager for application code
// to call CreateSession/JoinSession/SubmitNonce/SubmitPartialSig on.
func (n *Node) SessionManager() *session.Manager { return n.session }

// Reputation returns the node's peer reputation store.
func (n *Node) Reputation() *reputation.Store { return n.reputation }

// Close releases the reputation store. Call from the cleanup func passed
// to WaitForShutdown.
func (n *Node) Close() error {
	if n.reputation == nil {
		return nil
	}
	return n.reputation.Close()
}

type NewReputationStoreInput struct {
	fx.In
	Opt *Options
}

// NewReputationStore opens the badger-backed peer reputation store under
// Options.ReputationDir, the way the teacher's NewSqliteDB opens
// BusinessDbPath/DbFile.
func NewReputationStore(lc fx.Lifecycle, input NewReputationStoreInput) (*reputation.Store, error) {
	store, err := reputation.Open(input.Opt.ReputationDir())
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

type NewSessionManagerInput struct {
	fx.In
	Ctx    context.Context
	Opt    *Options
	P2P    *dep2p.DeP2P
	PubSub *pubsub.DeP2PPubSub
	Rep    *reputation.Store
}

// NewSessionManager builds the session.Manager with a dep2p-backed
// Transport, the way the teacher's NewBlockchain wires a fresh
// *Blockchain from the shared p2p/pubsub pair.
func NewSessionManager(input NewSessionManagerInput) *session.Manager {
	transport := NewTransport(input.P2P, input.PubSub)
	return session.NewManager(transport, input.Rep, input.Opt.Session)
}

// RegisterPeerKeysFromRoster pre-shares every participant's static public
// key with mgr before session traffic begins (session.RegisterPeerKey's
// precondition — see DESIGN.md's "peer public keys are pre-shared, not
// wire-transmitted" entry).
func RegisterPeerKeysFromRoster(mgr *session.Manager, roster map[string]curve.PublicKey) {
	for peerID, pub := range roster {
		mgr.RegisterPeerKey(peerID, pub)
	}
}
