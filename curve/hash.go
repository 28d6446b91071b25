package curve

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// SHA256 returns the single SHA-256 digest of data, via the teacher's
// chainhash package (chainhash.HashH) rather than calling crypto/sha256
// directly, matching txscript/taproot.go's own hashing idiom.
func SHA256(data ...[]byte) [32]byte {
	return [32]byte(chainhash.HashH(concat(data)))
}

// SHA256d returns the double SHA-256 digest of data, as used throughout
// Bitcoin-family FORKID sighashing and merkle folding.
func SHA256d(data ...[]byte) [32]byte {
	return [32]byte(chainhash.DoubleHashH(concat(data)))
}

// TaggedHash implements the BIP340/341-style tagged hash used by Taproot and
// MuSig2, delegating to chainhash.TaggedHash (txscript/taproot.go:233,412,457
// call it the same way, just with the predefined chainhash.TagTap* tags
// instead of the MuSig2-only tags this package also needs).
func TaggedHash(tag string, data ...[]byte) [32]byte {
	h := chainhash.TaggedHash([]byte(tag), data...)
	return [32]byte(*h)
}

// concat flattens variadic byte slices into the single buffer chainhash's
// single-hash functions expect.
func concat(data [][]byte) []byte {
	n := 0
	for _, d := range data {
		n += len(d)
	}
	buf := make([]byte, 0, n)
	for _, d := range data {
		buf = append(buf, d...)
	}
	return buf
}
