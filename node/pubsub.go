package node

import (
	"github.com/sirupsen/logrus"
	"go.uber.org/fx"

	"github.com/LotusiaStewardship/lotus-musig2-core/session"
)

// RegisterProtocolInput mirrors the teacher's RegisterPubsubProtocolInput
// (pubsubs.go), narrowed to the one service a MuSig2 node runs.
type RegisterProtocolInput struct {
	fx.In
	Session *session.Manager
}

// RegisterProtocol is the fx.Invoke entry point that brings the MuSig2
// protocol online. session.NewManager already subscribes its own 7 topic
// handlers on construction (manager.go's registerHandlers); this step
// exists as the same composition-root seam the teacher uses
// (RegisterPubsubProtocol), logging readiness the way pubsubs.go logs
// each subscribe outcome.
func RegisterProtocol(lc fx.Lifecycle, input RegisterProtocolInput) {
	logrus.Infof("node: musig2 session protocol %s ready", session.ProtocolID)
}
