package sighash

// Type is the 8-bit SIGHASH type byte (spec §3 "SIGHASH type"): base type
// (bits 0-1), reserved (bits 2-4, must be zero for LOTUS), algorithm (bits
// 5-6), modifier (bit 7, ANYONECANPAY).
type Type uint8

// Base types (bits 0-1): 0 is unset/invalid, never a valid base type on
// its own (spec §3 "Base type must be non-zero for LOTUS").
const (
	BaseUnset  Type = 0x00
	BaseAll    Type = 0x01
	BaseNone   Type = 0x02
	BaseSingle Type = 0x03

	baseMask Type = 0x03
)

// Algorithm bits (bits 5-6).
const (
	algoLegacy Type = 0x00
	AlgoForkID Type = 0x40
	AlgoLotus  Type = 0x60

	algoMask Type = 0x60
)

// AnyoneCanPay is the modifier bit (bit 7).
const AnyoneCanPay Type = 0x80

const reservedMask Type = 0x1C // bits 2-4

// BaseType returns the base type bits.
func (t Type) BaseType() Type { return t & baseMask }

// Algorithm returns the algorithm bits (0x00, 0x40 or 0x60).
func (t Type) Algorithm() Type { return t & algoMask }

// HasAnyoneCanPay reports whether the ANYONECANPAY modifier bit is set.
func (t Type) HasAnyoneCanPay() bool { return t&AnyoneCanPay != 0 }

// IsLotus reports whether the LOTUS algorithm bits are set. LOTUS implies
// FORKID (spec §3 "algorithm (bits 5-6): 0x40=FORKID, 0x60=LOTUS; LOTUS
// implies FORKID"): the raw 0x60 bit pattern already has both the 0x40 and
// 0x20 bits set, so no separate FORKID check is needed to detect it.
func (t Type) IsLotus() bool { return t.Algorithm() == AlgoLotus }

// IsForkID reports whether the FORKID algorithm bits are set and LOTUS is
// not (spec §4.4 algorithm selection "0x40 (FORKID)").
func (t Type) IsForkID() bool { return t.Algorithm() == AlgoForkID }

// reservedBitsZero reports whether bits 2-4 are clear, required for LOTUS
// (spec §3 "reserved (bits 2-4, must be zero for LOTUS)").
func (t Type) reservedBitsZero() bool { return t&reservedMask == 0 }

// Flags are the verification flags gating algorithm selection (spec §4.4
// "verification flags F"). Only the bit SIGHASH_LOTUS inspects is modeled:
// whether FORKID-style digests are enabled on this chain at all.
type Flags uint32

const (
	// FlagEnableForkID gates both FORKID and LOTUS digest computation
	// (spec §4.4.2 "requires F to include FORKID flag").
	FlagEnableForkID Flags = 1 << iota
)

// Has reports whether flag is set.
func (f Flags) Has(flag Flags) bool { return f&flag != 0 }
