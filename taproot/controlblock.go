package taproot

import (
	"github.com/LotusiaStewardship/lotus-musig2-core/curve"
)

// ControlBlockBaseSize is the fixed portion of a control block: one leaf
// version/parity byte plus the 33-byte internal public key (spec §3
// Control block). This differs from BIP341 (34 vs 33): Lotus carries the
// full compressed internal key, not an x-only 32-byte key.
const ControlBlockBaseSize = 1 + 33

// ControlBlockNodeSize is the size of one merkle sibling hash.
const ControlBlockNodeSize = 32

// MaxControlBlockDepth is the maximum merkle depth a control block may
// encode (spec §3 "Maximum depth 128").
const MaxControlBlockDepth = 128

// ControlBlockMaxSize is the largest valid control block.
const ControlBlockMaxSize = ControlBlockBaseSize + ControlBlockNodeSize*MaxControlBlockDepth

// ControlBlock is the witness data revealed when spending via the script
// path (spec §3 Control block).
type ControlBlock struct {
	LeafVersion    uint8
	InternalKey    curve.PublicKey
	InclusionProof []byte // concatenated 32-byte sibling hashes, leaf-to-root order
}

// internalKeyParity returns 1 iff the internal key's compressed prefix is
// 0x03 (spec §3 "parity = 1 iff the internal key's compressed prefix is
// 0x03").
func internalKeyParity(k curve.PublicKey) byte {
	if k.Compressed()[0] == 0x03 {
		return 1
	}
	return 0
}

// ToBytes encodes the control block (spec §3): first byte = (leaf_version &
// 0xFE) | parity(internalKey); then the 33-byte internal key; then the
// merkle path.
func (c ControlBlock) ToBytes() ([]byte, error) {
	if len(c.InclusionProof)%ControlBlockNodeSize != 0 {
		return nil, errInvalidControlBlock("ToBytes", "inclusion proof length is not a multiple of 32")
	}
	depth := len(c.InclusionProof) / ControlBlockNodeSize
	if depth > MaxControlBlockDepth {
		return nil, errTreeTooDeep("ToBytes", "merkle depth exceeds 128")
	}

	out := make([]byte, 0, ControlBlockBaseSize+len(c.InclusionProof))
	firstByte := (c.LeafVersion & 0xFE) | internalKeyParity(c.InternalKey)
	out = append(out, firstByte)
	compressed := c.InternalKey.Compressed()
	out = append(out, compressed[:]...)
	out = append(out, c.InclusionProof...)
	return out, nil
}

// ParseControlBlock decodes and validates a control block (spec §3, §4.3
// "a control block larger than 33 + 32*128 is rejected" — adjusted here to
// Lotus's 34-byte base size).
func ParseControlBlock(raw []byte) (ControlBlock, error) {
	if len(raw) < ControlBlockBaseSize {
		return ControlBlock{}, errInvalidControlBlock("ParseControlBlock", "shorter than base size")
	}
	if len(raw) > ControlBlockMaxSize {
		return ControlBlock{}, errTreeTooDeep("ParseControlBlock", "exceeds max control block size")
	}
	if (len(raw)-ControlBlockBaseSize)%ControlBlockNodeSize != 0 {
		return ControlBlock{}, errInvalidControlBlock("ParseControlBlock", "inclusion proof is not a multiple of 32")
	}

	leafVersion := raw[0] & 0xFE
	wantParity := raw[0] & 0x01

	internalKey, err := curve.ParsePoint(raw[1:34])
	if err != nil {
		return ControlBlock{}, errInvalidControlBlock("ParseControlBlock", "bad internal key: "+err.Error())
	}
	pub := curve.PublicKey{Point: internalKey}
	if internalKeyParity(pub) != wantParity {
		return ControlBlock{}, errInvalidControlBlock("ParseControlBlock", "parity byte does not match internal key prefix")
	}

	proof := append([]byte{}, raw[34:]...)

	return ControlBlock{
		LeafVersion:    leafVersion,
		InternalKey:    pub,
		InclusionProof: proof,
	}, nil
}

// RootHash reconstructs the script-tree root committed to by this control
// block, given the revealed script (spec §4.3, teacher's
// ControlBlock.RootHash).
func (c ControlBlock) RootHash(revealedScript []byte) [32]byte {
	leaf := TapLeaf{LeafVersion: c.LeafVersion, Script: revealedScript}
	path := make([][32]byte, 0, len(c.InclusionProof)/ControlBlockNodeSize)
	for off := 0; off+32 <= len(c.InclusionProof); off += 32 {
		var node [32]byte
		copy(node[:], c.InclusionProof[off:off+32])
		path = append(path, node)
	}
	return FoldMerklePath(leaf.Hash(), path)
}

// ToControlBlock maps a leaf's merkle proof to a valid ControlBlock, ready
// for use as a witness item (spec §4.3, teacher's TapscriptProof.ToControlBlock).
func ToControlBlock(internalKey curve.PublicKey, lp LeafProof) (ControlBlock, error) {
	if len(lp.MerklePath) > MaxControlBlockDepth {
		return ControlBlock{}, errTreeTooDeep("ToControlBlock", "merkle depth exceeds 128")
	}
	return ControlBlock{
		LeafVersion:    lp.Leaf.LeafVersion,
		InternalKey:    internalKey,
		InclusionProof: lp.InclusionProof(),
	}, nil
}

// VerifyLeafCommitment checks that the control block's reconstructed
// commitment, tweaked from internalKey, matches the given output key
// (spec §4.3, teacher's VerifyTaprootLeafCommitment).
func VerifyLeafCommitment(c ControlBlock, outputKey curve.PublicKey, revealedScript []byte) error {
	root := c.RootHash(revealedScript)
	derivedOutput, _ := TweakPubKey(c.InternalKey, root)
	if !derivedOutput.Equals(outputKey.Point) {
		return errInvalidControlBlock("VerifyLeafCommitment", "reconstructed commitment does not match output key")
	}
	return nil
}
