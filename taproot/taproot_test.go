package taproot

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LotusiaStewardship/lotus-musig2-core/curve"
)

func randomInternalKey(t *testing.T) curve.PublicKey {
	t.Helper()
	s, err := curve.RandomScalar()
	require.NoError(t, err)
	return curve.PublicKey{Point: curve.ScalarBaseMult(s)}
}

func TestKeyPathOnlyOutputKeyMatchesTweakPubKey(t *testing.T) {
	internal := randomInternalKey(t)
	out1, t1 := KeyPathOnlyOutputKey(internal)
	out2, t2 := TweakPubKey(internal, ZeroMerkleRoot)
	require.True(t, out1.Equals(out2.Point))
	require.True(t, t1.Equals(t2))
}

func TestTweakPrivKeyMatchesTweakPubKey(t *testing.T) {
	s, err := curve.RandomScalar()
	require.NoError(t, err)
	priv, err := curve.NewPrivateKey(s)
	require.NoError(t, err)

	var merkleRoot [32]byte
	merkleRoot[0] = 0xAB

	outPriv, err := TweakPrivKey(priv, merkleRoot)
	require.NoError(t, err)

	outPub, _ := TweakPubKey(priv.Public(), merkleRoot)
	require.True(t, outPriv.Public().Equals(outPub.Point))
}

func TestSingleLeafTreeRootIsLeafHash(t *testing.T) {
	leaf := NewTapLeaf([]byte("script-a"))
	tree := Leaf(leaf)
	require.Equal(t, leaf.Hash(), tree.Root())
	require.Len(t, tree.Leaves(), 1)
	require.Empty(t, tree.Leaves()[0].MerklePath)
}

func TestBranchFoldsBackToRoot(t *testing.T) {
	leafA := NewTapLeaf([]byte("script-a"))
	leafB := NewTapLeaf([]byte("script-b"))
	tree := Branch(Leaf(leafA), Leaf(leafB))

	for _, lp := range tree.Leaves() {
		require.Equal(t, tree.Root(), FoldMerklePath(lp.Hash, lp.MerklePath))
	}
}

func TestAssembleBalancedOddLeafCount(t *testing.T) {
	leaves := []TapLeaf{
		NewTapLeaf([]byte("a")),
		NewTapLeaf([]byte("b")),
		NewTapLeaf([]byte("c")),
	}
	tree := AssembleBalanced(leaves...)
	require.Len(t, tree.Leaves(), 3)
	for _, lp := range tree.Leaves() {
		require.Equal(t, tree.Root(), FoldMerklePath(lp.Hash, lp.MerklePath))
	}
}

func TestControlBlockRoundTrip(t *testing.T) {
	internal := randomInternalKey(t)
	leafA := NewTapLeaf([]byte("script-a"))
	leafB := NewTapLeaf([]byte("script-b"))
	tree := Branch(Leaf(leafA), Leaf(leafB))

	outKey, _ := TweakPubKey(internal, tree.Root())

	for _, lp := range tree.Leaves() {
		cb, err := ToControlBlock(internal, lp)
		require.NoError(t, err)

		raw, err := cb.ToBytes()
		require.NoError(t, err)

		parsed, err := ParseControlBlock(raw)
		require.NoError(t, err)
		require.True(t, parsed.InternalKey.Equals(internal.Point))

		require.NoError(t, VerifyLeafCommitment(parsed, outKey, lp.Leaf.Script))
	}
}

func TestVerifyLeafCommitmentRejectsWrongScript(t *testing.T) {
	internal := randomInternalKey(t)
	leafA := NewTapLeaf([]byte("script-a"))
	leafB := NewTapLeaf([]byte("script-b"))
	tree := Branch(Leaf(leafA), Leaf(leafB))
	outKey, _ := TweakPubKey(internal, tree.Root())

	lp := tree.Leaves()[0]
	cb, err := ToControlBlock(internal, lp)
	require.NoError(t, err)

	err = VerifyLeafCommitment(cb, outKey, []byte("not-the-right-script"))
	require.Error(t, err)
}

func TestParseControlBlockRejectsShort(t *testing.T) {
	_, err := ParseControlBlock(make([]byte, ControlBlockBaseSize-1))
	require.Error(t, err)
}

func TestParseControlBlockRejectsOversizedDepth(t *testing.T) {
	_, err := ParseControlBlock(make([]byte, ControlBlockMaxSize+ControlBlockNodeSize))
	require.Error(t, err)
}

func TestParseControlBlockRejectsNonMultipleOf32(t *testing.T) {
	_, err := ParseControlBlock(make([]byte, ControlBlockBaseSize+10))
	require.Error(t, err)
}

func TestParseControlBlockRejectsParityMismatch(t *testing.T) {
	internal := randomInternalKey(t)
	cb := ControlBlock{LeafVersion: DefaultLeafVersion, InternalKey: internal}
	raw, err := cb.ToBytes()
	require.NoError(t, err)
	raw[0] ^= 0x01 // flip parity bit only
	_, err = ParseControlBlock(raw)
	require.Error(t, err)
}

func TestToControlBlockRejectsExcessiveDepth(t *testing.T) {
	internal := randomInternalKey(t)
	path := make([][32]byte, MaxControlBlockDepth+1)
	lp := LeafProof{Leaf: NewTapLeaf([]byte("x")), MerklePath: path}
	_, err := ToControlBlock(internal, lp)
	require.Error(t, err)
}

func TestBuildAndClassifyP2TRWithoutState(t *testing.T) {
	var commitment [33]byte
	commitment[0] = 0x02
	for i := 1; i < 33; i++ {
		commitment[i] = byte(i)
	}

	script := BuildP2TR(commitment, nil)
	require.Len(t, script, scriptLen36)

	gotCommitment, gotState, ok := ClassifyP2TR(script)
	require.True(t, ok)
	require.Equal(t, commitment, gotCommitment)
	require.Nil(t, gotState)
	require.True(t, IsP2TR(script))
}

func TestBuildAndClassifyP2TRWithState(t *testing.T) {
	var commitment [33]byte
	commitment[0] = 0x03
	var state [32]byte
	state[0] = 0xFF

	script := BuildP2TR(commitment, &state)
	require.Len(t, script, scriptLen69)

	gotCommitment, gotState, ok := ClassifyP2TR(script)
	require.True(t, ok)
	require.Equal(t, commitment, gotCommitment)
	require.NotNil(t, gotState)
	require.Equal(t, state, *gotState)
}

func TestClassifyP2TRRejectsBIP341Script(t *testing.T) {
	var xOnly [32]byte
	xOnly[0] = 0x01
	script := payToTaprootScriptBIP341(xOnly)
	require.False(t, IsP2TR(script))
}

func TestClassifyP2TRRejectsWrongLength(t *testing.T) {
	require.False(t, IsP2TR(make([]byte, 10)))
}

func TestClassifyP2TRRejectsBadPrefix(t *testing.T) {
	script := make([]byte, scriptLen36)
	script[0] = 0x00
	require.False(t, IsP2TR(script))
}

func TestBase58CheckAddressRoundTrip(t *testing.T) {
	var commitment [33]byte
	commitment[0] = 0x02
	for i := 1; i < 33; i++ {
		commitment[i] = byte(200 - i)
	}
	payload := TaprootAddressPayload(commitment)

	enc := Base58CheckEncoder{}
	addr := enc.Encode(TaprootVersion, payload)
	require.NotEmpty(t, addr)

	version, decoded, err := enc.Decode(addr)
	require.NoError(t, err)
	require.Equal(t, TaprootVersion, version)
	require.Equal(t, payload, decoded)
}

func TestBase58CheckDecodeRejectsBadChecksum(t *testing.T) {
	enc := Base58CheckEncoder{}
	addr := enc.Encode(TaprootVersion, []byte("some payload bytes"))
	corrupted := addr[:len(addr)-1] + "9"
	_, _, err := enc.Decode(corrupted)
	require.Error(t, err)
}

func TestHash160Length(t *testing.T) {
	h := Hash160([]byte("anything"))
	require.Len(t, h, 20)
}
