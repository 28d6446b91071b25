package node

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/LotusiaStewardship/lotus-musig2-core/session"
)

// Options configures a Node the way the teacher's Options configures a BC
// (options.go), narrowed to what a MuSig2 coordination node needs instead
// of a full blockchain instance.
type Options struct {
	// InstanceId names this node's log file and reputation store directory
	// (teacher's Options.InstanceId / BuildInstanceId).
	InstanceId string

	// DataDir is the root directory under which ReputationDir is created.
	DataDir string

	// Session holds the session.Manager configuration (timeouts, election/
	// failover toggles, message-size limits).
	Session session.Config

	isOpen bool
}

// DefaultOptions mirrors the teacher's DefaultOptions: a recommended set of
// values good enough to start a node without further tuning.
func DefaultOptions() *Options {
	return &Options{
		DataDir: "data",
		Session: session.DefaultConfig(),
	}
}

// BuildInstanceId derives InstanceId from the local p2p peer id, the way
// the teacher's BuildInstanceId(peerID) does.
func (o *Options) BuildInstanceId(peerID string) {
	o.InstanceId = peerID
}

// ReputationDir returns the directory the badger-backed reputation store
// should open, namespaced by InstanceId the same way the teacher
// namespaces its per-instance log file.
func (o *Options) ReputationDir() string {
	if o.InstanceId == "" {
		return filepath.Join(o.DataDir, "reputation")
	}
	return filepath.Join(o.DataDir, "reputation", o.InstanceId)
}

// CheckAndSetOptions validates o and ensures its directories exist,
// mirroring the teacher's Options.CheckAndSetOptions + initDirectories.
func (o *Options) CheckAndSetOptions() error {
	if o.isOpen {
		return fmt.Errorf("node instance '%s' is already open", o.InstanceId)
	}
	if o.DataDir == "" {
		o.DataDir = "data"
	}
	if err := os.MkdirAll(o.ReputationDir(), 0o755); err != nil {
		return err
	}
	o.isOpen = true
	return nil
}
