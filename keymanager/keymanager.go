// Package keymanager derives per-participant signing keys from a single
// root extended key, for test harnesses and embedding wallets assembling a
// signer set without shipping one raw private key per participant (spec §3
// PrivateKey: "owned exclusively by its holder; never transmitted" — this
// package only ever hands a derived key to the process that owns it).
package keymanager

import (
	"github.com/tyler-smith/go-bip32"

	"github.com/LotusiaStewardship/lotus-musig2-core/curve"
	"github.com/LotusiaStewardship/lotus-musig2-core/errs"
)

// Manager wraps a BIP32 master key and derives one non-hardened child per
// signer index, each reduced onto the secp256k1 scalar field used
// throughout this module.
type Manager struct {
	master *bip32.Key
}

// NewFromSeed derives a master key from seed material (e.g. a BIP39
// mnemonic's seed, out of scope here) the way bip32.NewMasterKey does.
func NewFromSeed(seed []byte) (*Manager, error) {
	const op = "keymanager.NewFromSeed"
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidCrypto, op, "deriving master key", err)
	}
	return &Manager{master: master}, nil
}

// DeriveSigner derives the non-hardened child key at signerIndex and wraps
// it as a curve.PrivateKey. Index collisions between callers of the same
// Manager are the caller's responsibility to avoid (one index per signer).
func (m *Manager) DeriveSigner(signerIndex uint32) (curve.PrivateKey, error) {
	const op = "keymanager.DeriveSigner"
	child, err := m.master.NewChildKey(signerIndex)
	if err != nil {
		return curve.PrivateKey{}, errs.Wrap(errs.KindInvalidCrypto, op, "deriving child key", err)
	}

	var raw [32]byte
	copy(raw[32-len(child.Key):], child.Key)
	priv, err := curve.NewPrivateKey(curve.ScalarFromBytes(raw))
	if err != nil {
		return curve.PrivateKey{}, errs.Wrap(errs.KindInvalidCrypto, op, "child key reduced to zero", err)
	}
	return priv, nil
}

// DeriveSigners derives n sequential signer keys starting at index 0,
// the common case of assembling a fresh signer set for a new session.
func (m *Manager) DeriveSigners(n int) ([]curve.PrivateKey, error) {
	const op = "keymanager.DeriveSigners"
	if n <= 0 {
		return nil, errs.New(errs.KindValidationError, op, "n must be positive")
	}
	keys := make([]curve.PrivateKey, n)
	for i := 0; i < n; i++ {
		key, err := m.DeriveSigner(uint32(i))
		if err != nil {
			return nil, err
		}
		keys[i] = key
	}
	return keys, nil
}
