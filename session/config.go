package session

import "time"

// PeerInfoMapperMode selects how peer addressing information is shared
// with the DHT/transport layer (spec §6 Configuration options table).
type PeerInfoMapperMode string

const (
	// PeerInfoPassthrough shares peer addresses unchanged; DefaultConfig
	// selects it.
	PeerInfoPassthrough PeerInfoMapperMode = "passthrough"
	// PeerInfoRemovePrivate names the mode that strips private addresses.
	PeerInfoRemovePrivate PeerInfoMapperMode = "remove-private"
)

// Config enumerates every option named in spec §6's Configuration table.
// There are no library-managed timers (spec §5): StuckSessionTimeout is
// only a threshold consulted by the caller-driven cleanupExpiredSessions.
type Config struct {
	// StuckSessionTimeout is the age past which cleanupExpiredSessions
	// drops a session whose last_activity_at has not advanced.
	StuckSessionTimeout time.Duration

	// EnableCoordinatorElection: if false, the coordinator is always the
	// session creator (signer index 0 in the participant list passed to
	// CreateSession).
	EnableCoordinatorElection bool

	// EnableCoordinatorFailover gates TriggerCoordinatorFailover; when
	// false the call changes nothing and returns a KindValidationError
	// error.
	EnableCoordinatorFailover bool

	// MaxMessageSize rejects inbound messages whose serialized payload
	// exceeds this many bytes (spec §4.6.4 "Maximum serialized size is a
	// configurable limit").
	MaxMessageSize int

	// PeerInfoMapper names the DHT peer info sharing mode. No code in this
	// module reads it or filters addresses by it.
	PeerInfoMapper PeerInfoMapperMode

	// MinConnections / MaxConnections name transport-layer connection
	// limits. No code in this module reads or enforces them.
	MinConnections int
	MaxConnections int
}

// DefaultConfig returns the spec's stated defaults: a 10 minute stuck
// session timeout and a 64 KiB maximum message size (spec §4.6.4, §4.6.6).
// PeerInfoMapper is always PeerInfoPassthrough; the deployment (localhost
// or not) is not detected.
func DefaultConfig() Config {
	return Config{
		StuckSessionTimeout:       10 * time.Minute,
		EnableCoordinatorElection: true,
		EnableCoordinatorFailover: true,
		MaxMessageSize:            64 * 1024,
		PeerInfoMapper:            PeerInfoPassthrough,
		MinConnections:            1,
		MaxConnections:            32,
	}
}
