package sighash

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LotusiaStewardship/lotus-musig2-core/curve"
	"github.com/LotusiaStewardship/lotus-musig2-core/merkletree"
	"github.com/LotusiaStewardship/lotus-musig2-core/wiretx"
)

// scenarioTx builds the spec §8 scenario 3 transaction: two inputs of
// 100_000 and 50_000 sats, one output of 140_000 sats, locktime 0,
// version 2.
func scenarioTx() (wiretx.Transaction, []wiretx.Output) {
	var txidA, txidB [32]byte
	txidA[0] = 0x01
	txidB[0] = 0x02

	tx := wiretx.Transaction{
		Version: 2,
		Inputs: []wiretx.Input{
			{PrevOutpoint: wiretx.Outpoint{PrevTxID: txidA, PrevIndex: 0}, Sequence: 0xFFFFFFFF},
			{PrevOutpoint: wiretx.Outpoint{PrevTxID: txidB, PrevIndex: 1}, Sequence: 0xFFFFFFFF},
		},
		Outputs: []wiretx.Output{
			{Value: 140_000, Script: []byte{0x62, 0x51, 0x21}},
		},
		LockTime: 0,
	}

	spent := []wiretx.Output{
		{Value: 100_000, Script: []byte{0x62, 0x51, 0x21, 0xAA}},
		{Value: 50_000, Script: []byte{0x62, 0x51, 0x21, 0xBB}},
	}

	return tx, spent
}

func TestSighashLotusDeterminism(t *testing.T) {
	tx, spent := scenarioTx()

	p := Params{
		Tx:           tx,
		InputIndex:   0,
		Subscript:    spent[0].Script,
		Value:        spent[0].Value,
		Flags:        FlagEnableForkID,
		SpentOutputs: spent,
		SighashType:  BaseAll | AlgoLotus,
	}

	digest1, err := CalcSignatureHash(p)
	require.NoError(t, err)
	digest2, err := CalcSignatureHash(p)
	require.NoError(t, err)
	require.Equal(t, digest1, digest2)

	// Manually recompute every intermediate merkle root per §4.4.2 and
	// assert each matches the engine's own helper.
	spentLeaves := make([][32]byte, len(spent))
	for i, out := range spent {
		spentLeaves[i] = curve.SHA256d(out.Serialize())
	}
	spentRoot, _ := merkletree.Root(spentLeaves, sha256dPair)
	wantSpentRoot, _ := spentOutputsMerkleRoot(spent)
	require.Equal(t, wantSpentRoot, spentRoot)

	inputLeaves := make([][32]byte, len(tx.Inputs))
	for i, in := range tx.Inputs {
		op := in.PrevOutpoint.Bytes()
		var buf []byte
		buf = append(buf, op[:]...)
		var seq [4]byte
		seq[0] = byte(in.Sequence)
		seq[1] = byte(in.Sequence >> 8)
		seq[2] = byte(in.Sequence >> 16)
		seq[3] = byte(in.Sequence >> 24)
		buf = append(buf, seq[:]...)
		inputLeaves[i] = curve.SHA256d(buf)
	}
	inputsRoot, inputsHeight := merkletree.Root(inputLeaves, sha256dPair)
	wantInputsRoot, wantInputsHeight := inputsMerkleRoot(tx)
	require.Equal(t, wantInputsRoot, inputsRoot)
	require.Equal(t, wantInputsHeight, inputsHeight)

	outputLeaves := make([][32]byte, len(tx.Outputs))
	for i, out := range tx.Outputs {
		outputLeaves[i] = curve.SHA256d(out.Serialize())
	}
	outputsRoot, outputsHeight := merkletree.Root(outputLeaves, sha256dPair)
	wantOutputsRoot, wantOutputsHeight := outputsMerkleRoot(tx)
	require.Equal(t, wantOutputsRoot, outputsRoot)
	require.Equal(t, wantOutputsHeight, outputsHeight)
}

func TestSighashLotusRejectsZeroBaseType(t *testing.T) {
	tx, spent := scenarioTx()
	p := Params{
		Tx:           tx,
		InputIndex:   0,
		Flags:        FlagEnableForkID,
		SpentOutputs: spent,
		SighashType:  AlgoLotus, // base type 0x00 alone
	}
	_, err := CalcSignatureHash(p)
	require.Error(t, err)
}

func TestSighashLotusRequiresForkIDFlag(t *testing.T) {
	tx, spent := scenarioTx()
	p := Params{
		Tx:           tx,
		InputIndex:   0,
		Flags:        0,
		SpentOutputs: spent,
		SighashType:  BaseAll | AlgoLotus,
	}
	_, err := CalcSignatureHash(p)
	require.Error(t, err)
}

func TestSighashLotusRequiresFullSpentOutputs(t *testing.T) {
	tx, spent := scenarioTx()
	p := Params{
		Tx:           tx,
		InputIndex:   0,
		Flags:        FlagEnableForkID,
		SpentOutputs: spent[:1],
		SighashType:  BaseAll | AlgoLotus,
	}
	_, err := CalcSignatureHash(p)
	require.Error(t, err)
}

func TestSighashForkIDAnyoneCanPayZeroesPrevoutsAndSequence(t *testing.T) {
	tx, spent := scenarioTx()
	base := Params{
		Tx:          tx,
		InputIndex:  0,
		Subscript:   spent[0].Script,
		Value:       spent[0].Value,
		Flags:       FlagEnableForkID,
		SighashType: BaseAll | AlgoForkID,
	}
	withACP := base
	withACP.SighashType = BaseAll | AlgoForkID | AnyoneCanPay

	d1, err := CalcSignatureHash(base)
	require.NoError(t, err)
	d2, err := CalcSignatureHash(withACP)
	require.NoError(t, err)
	require.NotEqual(t, d1, d2)
}

func TestSighashForkIDSingleMissingOutputZeroHash(t *testing.T) {
	tx, spent := scenarioTx()
	p := Params{
		Tx:          tx,
		InputIndex:  1, // only one output exists, index 1 is out of range
		Subscript:   spent[1].Script,
		Value:       spent[1].Value,
		Flags:       FlagEnableForkID,
		SighashType: BaseSingle | AlgoForkID,
	}
	_, err := CalcSignatureHash(p)
	require.NoError(t, err) // FORKID SINGLE with missing output uses zero hash, doesn't fail
}

func TestSighashLotusSingleMissingOutputFails(t *testing.T) {
	tx, spent := scenarioTx()
	p := Params{
		Tx:           tx,
		InputIndex:   1,
		Flags:        FlagEnableForkID,
		SpentOutputs: spent,
		SighashType:  BaseSingle | AlgoLotus,
	}
	_, err := CalcSignatureHash(p)
	require.Error(t, err)
}

func TestSighashLegacyFallback(t *testing.T) {
	tx, spent := scenarioTx()
	p := Params{
		Tx:          tx,
		InputIndex:  0,
		Subscript:   spent[0].Script,
		Value:       spent[0].Value,
		SighashType: BaseAll,
	}
	digest, err := CalcSignatureHash(p)
	require.NoError(t, err)
	require.NotEqual(t, [32]byte{}, digest)
}

func TestMixingLotusWithForkIDBitsIsRedundant(t *testing.T) {
	tx, spent := scenarioTx()
	p1 := Params{
		Tx: tx, InputIndex: 0, Flags: FlagEnableForkID,
		SpentOutputs: spent, SighashType: BaseAll | AlgoLotus,
	}
	// AlgoLotus (0x60) already has the 0x40 bit set; explicitly OR-ing in
	// AlgoForkID changes nothing (spec §4.4.2 edge cases).
	p2 := p1
	p2.SighashType = BaseAll | AlgoLotus | AlgoForkID

	d1, err := CalcSignatureHash(p1)
	require.NoError(t, err)
	d2, err := CalcSignatureHash(p2)
	require.NoError(t, err)
	require.Equal(t, d1, d2)
}
