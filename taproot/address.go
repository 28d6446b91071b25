package taproot

import (
	"bytes"
	"crypto/sha256"
	"math/big"

	"golang.org/x/crypto/ripemd160"
)

// AddressVersion distinguishes what payload an encoded address carries
// (spec §4.3 Addresses). TaprootVersion carries the full 33-byte
// commitment; every other version carries a 20-byte hash160.
type AddressVersion byte

const (
	TaprootVersion AddressVersion = 2
)

// AddressEncoder encodes/decodes a versioned payload into the host
// network's address text format. Base32 ("XAddress") encoding details are
// an external collaborator per spec §1; only this interface and the
// base58check default live in this module.
type AddressEncoder interface {
	Encode(version AddressVersion, payload []byte) string
	Decode(address string) (version AddressVersion, payload []byte, err error)
}

// Hash160 computes SHA256 then RIPEMD160, the standard non-Taproot address
// payload (spec §3 "All other types carry a 20-byte hash160"), adapted
// from the teacher's wallet.go HashPubKey.
func Hash160(data []byte) []byte {
	sha := sha256.Sum256(data)
	r := ripemd160.New()
	r.Write(sha[:])
	return r.Sum(nil)
}

// TaprootAddressPayload returns the full 33-byte commitment as the address
// payload (spec §4.3 "carrying the full 33-byte commitment (not a hash)").
func TaprootAddressPayload(commitment [33]byte) []byte {
	return commitment[:]
}

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// Base58CheckEncoder is the default AddressEncoder, matching the teacher's
// base58.go + wallet.go checksum scheme generalized to an arbitrary
// version byte and payload length (the teacher only ever encoded a fixed
// 20-byte hash160; Taproot payloads are 33 bytes).
type Base58CheckEncoder struct{}

func (Base58CheckEncoder) Encode(version AddressVersion, payload []byte) string {
	versioned := append([]byte{byte(version)}, payload...)
	checksum := doubleSHA256(versioned)[:4]
	full := append(versioned, checksum...)
	return base58Encode(full)
}

func (Base58CheckEncoder) Decode(address string) (AddressVersion, []byte, error) {
	full, err := base58Decode(address)
	if err != nil {
		return 0, nil, err
	}
	if len(full) < 5 {
		return 0, nil, errInvalidControlBlock("Base58CheckEncoder.Decode", "address too short")
	}
	versioned, checksum := full[:len(full)-4], full[len(full)-4:]
	want := doubleSHA256(versioned)[:4]
	if !bytes.Equal(checksum, want) {
		return 0, nil, errInvalidControlBlock("Base58CheckEncoder.Decode", "checksum mismatch")
	}
	return AddressVersion(versioned[0]), versioned[1:], nil
}

func doubleSHA256(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}

// base58Encode follows the teacher's base58.go Base58Encode (big.Int
// divmod loop, leading-zero-byte preservation, then reverse).
func base58Encode(input []byte) string {
	x := big.NewInt(0).SetBytes(input)
	base := big.NewInt(int64(len(base58Alphabet)))
	zero := big.NewInt(0)
	mod := &big.Int{}

	var result []byte
	for x.Cmp(zero) != 0 {
		x.DivMod(x, base, mod)
		result = append(result, base58Alphabet[mod.Int64()])
	}

	for _, b := range input {
		if b != 0x00 {
			break
		}
		result = append(result, base58Alphabet[0])
	}

	reverse(result)
	return string(result)
}

// base58Decode follows the teacher's base58.go Base58Decode (accumulate via
// big.Int mul/add, then restore leading zero bytes), extended with an error
// return for characters outside the alphabet.
func base58Decode(input string) ([]byte, error) {
	result := big.NewInt(0)
	base := big.NewInt(58)

	for _, r := range input {
		idx := indexByte(base58Alphabet, byte(r))
		if idx < 0 {
			return nil, errInvalidControlBlock("base58Decode", "invalid character")
		}
		result.Mul(result, base)
		result.Add(result, big.NewInt(int64(idx)))
	}

	decoded := result.Bytes()

	numZeros := 0
	for _, r := range input {
		if r != rune(base58Alphabet[0]) {
			break
		}
		numZeros++
	}

	out := make([]byte, numZeros+len(decoded))
	copy(out[numZeros:], decoded)
	return out, nil
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
