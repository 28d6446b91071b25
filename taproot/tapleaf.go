// Package taproot implements Lotus's Taproot commitment construction:
// key/script-tree commitments, tweaks, control blocks and the Lotus P2TR
// script form (spec §4.3). Tree/tweak/control-block arithmetic is adapted
// from the teacher's txscript/taproot.go (ComputeTaprootOutputKey,
// TweakTaprootPrivKey, AssembleTaprootScriptTree, ControlBlock), generalized
// from BIP341's 32-byte x-only witness program to Lotus's 33-byte
// compressed commitment (spec §3 "P2TR script (Lotus)").
package taproot

import (
	"bytes"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// DefaultLeafVersion is the leaf version used unless a caller specifies
// otherwise (spec §3 "Default leaf_version = 0xC0").
const DefaultLeafVersion uint8 = 0xc0

// TapLeaf is (leaf_version, script) (spec §3 TapLeaf).
type TapLeaf struct {
	LeafVersion uint8
	Script      []byte
}

// NewTapLeaf builds a TapLeaf with the default leaf version.
func NewTapLeaf(script []byte) TapLeaf {
	return TapLeaf{LeafVersion: DefaultLeafVersion, Script: script}
}

// Hash computes taggedHash("TapLeaf", leaf_version || varint(len(script)) ||
// script) (spec §3 TapLeaf).
func (l TapLeaf) Hash() [32]byte {
	var buf bytes.Buffer
	buf.WriteByte(l.LeafVersion)
	_ = wire.WriteVarBytes(&buf, 0, l.Script)
	h := chainhash.TaggedHash(chainhash.TagTapLeaf, buf.Bytes())
	return [32]byte(*h)
}

// tapBranchHash hashes two sibling node hashes in lexicographic order
// (spec §3 TapBranch/TapTree): taggedHash("TapBranch", min(L,R), max(L,R)).
func tapBranchHash(l, r [32]byte) [32]byte {
	if bytes.Compare(l[:], r[:]) > 0 {
		l, r = r, l
	}
	h := chainhash.TaggedHash(chainhash.TagTapBranch, l[:], r[:])
	return [32]byte(*h)
}

// LeafProof records one leaf's hash and its merkle path (sibling hashes
// from leaf to root, spec §3 "Each leaf records its merkle path").
type LeafProof struct {
	Leaf       TapLeaf
	Hash       [32]byte
	MerklePath [][32]byte
}

// InclusionProof concatenates the merkle path into the control-block wire
// format (spec §3 Control block "followed by the merkle path as
// concatenated 32-byte node hashes").
func (lp LeafProof) InclusionProof() []byte {
	out := make([]byte, 0, len(lp.MerklePath)*32)
	for _, node := range lp.MerklePath {
		out = append(out, node[:]...)
	}
	return out
}

// Tree is an unlabeled binary script tree (spec §3 TapBranch/TapTree). It is
// built bottom-up with Leaf and Branch; Root and Leaves expose the result.
type Tree struct {
	root   [32]byte
	leaves []LeafProof
}

// Leaf lifts a single TapLeaf into a one-node Tree (spec §4.3 "Leaf →
// (leafHash, [leaf] with empty path)").
func Leaf(leaf TapLeaf) Tree {
	h := leaf.Hash()
	return Tree{
		root:   h,
		leaves: []LeafProof{{Leaf: leaf, Hash: h, MerklePath: nil}},
	}
}

// Branch combines two subtrees (spec §4.3 "Branch(L,R) → (branchHash,
// leaves of L with R's root appended to their paths, leaves of R with L's
// root appended to their paths)").
func Branch(l, r Tree) Tree {
	branchHash := tapBranchHash(l.root, r.root)

	leaves := make([]LeafProof, 0, len(l.leaves)+len(r.leaves))
	for _, lp := range l.leaves {
		path := append(append([][32]byte{}, lp.MerklePath...), r.root)
		leaves = append(leaves, LeafProof{Leaf: lp.Leaf, Hash: lp.Hash, MerklePath: path})
	}
	for _, rp := range r.leaves {
		path := append(append([][32]byte{}, rp.MerklePath...), l.root)
		leaves = append(leaves, LeafProof{Leaf: rp.Leaf, Hash: rp.Hash, MerklePath: path})
	}

	return Tree{root: branchHash, leaves: leaves}
}

// Root returns the tree's merkle root.
func (t Tree) Root() [32]byte { return t.root }

// Leaves returns every leaf's proof in the tree, in insertion order.
func (t Tree) Leaves() []LeafProof { return t.leaves }

// AssembleBalanced builds a balanced left-leaning tree over leaves, the
// idiomatic default when the caller has no specific tree shape in mind
// (adapted from the teacher's AssembleTaprootScriptTree, which balances an
// array of leaves the same way).
func AssembleBalanced(leaves ...TapLeaf) Tree {
	if len(leaves) == 0 {
		panic("taproot: AssembleBalanced requires at least one leaf")
	}
	nodes := make([]Tree, len(leaves))
	for i, l := range leaves {
		nodes[i] = Leaf(l)
	}
	for len(nodes) > 1 {
		var next []Tree
		for i := 0; i < len(nodes); i += 2 {
			if i+1 == len(nodes) {
				next = append(next, nodes[i])
				continue
			}
			next = append(next, Branch(nodes[i], nodes[i+1]))
		}
		nodes = next
	}
	return nodes[0]
}

// FoldMerklePath reconstructs the root commitment a leaf hash should lead to
// given its merkle path, in leaf-to-root order (spec §8 "folding(leaf.hash,
// leaf.merklePath) equals the root of t").
func FoldMerklePath(leafHash [32]byte, path [][32]byte) [32]byte {
	acc := leafHash
	for _, sibling := range path {
		acc = tapBranchHash(acc, sibling)
	}
	return acc
}
