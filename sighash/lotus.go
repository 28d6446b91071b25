package sighash

import (
	"bytes"

	"github.com/LotusiaStewardship/lotus-musig2-core/curve"
	"github.com/LotusiaStewardship/lotus-musig2-core/merkletree"
	"github.com/LotusiaStewardship/lotus-musig2-core/wiretx"
)

// sha256dPair is merkletree.PairHash specialized to SHA256d, the pairing
// function §3's generic merkle-root algorithm uses for SIGHASH_LOTUS (as
// opposed to taproot's tagged-hash pairing).
func sha256dPair(l, r [32]byte) [32]byte {
	return curve.SHA256d(l[:], r[:])
}

// calcLotusSignatureHash implements §4.4.2 LOTUS (merkle-tree). Validation
// of the sighash type's shape happens here per "base-type bits nonzero,
// bits 2-4 zero, spent outputs present. Otherwise InvalidSighashType."
// (the spent_outputs length check is the caller's responsibility in
// CalcSignatureHash, since it needs no per-call allocation).
func calcLotusSignatureHash(p Params) ([32]byte, error) {
	const op = "sighash.calcLotusSignatureHash"

	if p.SighashType.BaseType() == BaseUnset || !p.SighashType.reservedBitsZero() {
		return [32]byte{}, errInvalidSighashType(op, "LOTUS requires a non-zero base type and zero reserved bits")
	}

	var buf bytes.Buffer

	// 1. sighash_type as 4 bytes LE.
	writeUint32LE(&buf, uint32(p.SighashType))

	// 2. Per-input hash.
	spendType := byte(0)
	if p.ExecutedScriptHash != nil {
		spendType = 2
	}
	in := p.Tx.Inputs[p.InputIndex]
	outpoint := in.PrevOutpoint.Bytes()
	var inputLeaf bytes.Buffer
	inputLeaf.WriteByte(spendType)
	inputLeaf.Write(outpoint[:])
	writeUint32LE(&inputLeaf, in.Sequence)
	inputLeaf.Write(p.SpentOutputs[p.InputIndex].Serialize())
	perInputHash := curve.SHA256d(inputLeaf.Bytes())
	buf.Write(perInputHash[:])

	// 3. codeseparator_pos + executed_script_hash, if present.
	if p.ExecutedScriptHash != nil {
		writeUint32LE(&buf, p.CodeseparatorPos)
		buf.Write(p.ExecutedScriptHash[:])
	}

	// 4. If not ANYONECANPAY: i(4LE) || merkle_root_of_spent_outputs(32) ||
	// total_input_value(8LE).
	if !p.SighashType.HasAnyoneCanPay() {
		writeUint32LE(&buf, uint32(p.InputIndex))
		spentRoot, _ := spentOutputsMerkleRoot(p.SpentOutputs)
		buf.Write(spentRoot[:])
		writeUint64LE(&buf, totalValue(p.SpentOutputs))
	}

	// 5. If base type is ALL: total_output_value(8LE).
	if p.SighashType.BaseType() == BaseAll {
		writeUint64LE(&buf, totalOutputValue(p.Tx))
	}

	// 6. version(4LE).
	writeUint32LE(&buf, p.Tx.Version)

	// 7. If not ANYONECANPAY: inputs_merkle_root(32) || inputs_merkle_height(1).
	if !p.SighashType.HasAnyoneCanPay() {
		root, height := inputsMerkleRoot(p.Tx)
		buf.Write(root[:])
		buf.WriteByte(height)
	}

	// 8. Base-type tail.
	switch p.SighashType.BaseType() {
	case BaseAll:
		root, height := outputsMerkleRoot(p.Tx)
		buf.Write(root[:])
		buf.WriteByte(height)
	case BaseSingle:
		if p.InputIndex >= len(p.Tx.Outputs) {
			return [32]byte{}, errValidation(op, "SingleMissingOutput")
		}
		h := curve.SHA256d(p.Tx.Outputs[p.InputIndex].Serialize())
		buf.Write(h[:])
	}

	// 9. locktime(4LE).
	writeUint32LE(&buf, p.Tx.LockTime)

	digest := curve.SHA256d(buf.Bytes())
	reverseBytes(digest[:])
	return digest, nil
}

func spentOutputsMerkleRoot(outputs []wiretx.Output) ([32]byte, uint8) {
	leaves := make([][32]byte, len(outputs))
	for i, out := range outputs {
		leaves[i] = curve.SHA256d(out.Serialize())
	}
	return merkletree.Root(leaves, sha256dPair)
}

func inputsMerkleRoot(t wiretx.Transaction) ([32]byte, uint8) {
	leaves := make([][32]byte, len(t.Inputs))
	for i, in := range t.Inputs {
		var buf bytes.Buffer
		op := in.PrevOutpoint.Bytes()
		buf.Write(op[:])
		writeUint32LE(&buf, in.Sequence)
		leaves[i] = curve.SHA256d(buf.Bytes())
	}
	return merkletree.Root(leaves, sha256dPair)
}

func outputsMerkleRoot(t wiretx.Transaction) ([32]byte, uint8) {
	leaves := make([][32]byte, len(t.Outputs))
	for i, out := range t.Outputs {
		leaves[i] = curve.SHA256d(out.Serialize())
	}
	return merkletree.Root(leaves, sha256dPair)
}

func totalValue(outputs []wiretx.Output) uint64 {
	var total uint64
	for _, out := range outputs {
		total += out.Value
	}
	return total
}

func totalOutputValue(t wiretx.Transaction) uint64 {
	return totalValue(t.Outputs)
}

func reverseBytes(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
