package sighash

import (
	"bytes"

	"github.com/btcsuite/btcd/wire"

	"github.com/LotusiaStewardship/lotus-musig2-core/curve"
)

// calcLegacySignatureHash implements the pre-FORKID fallback (spec §4.4
// "0x00 -> legacy fallback (supported only for backward compatibility)").
// It reproduces the original Bitcoin signing digest: a copy of the whole
// transaction with every other input's scriptSig blanked, the subscript
// substituted into this input, base-type output pruning/duplication
// applied, then SHA256d of the serialized result with the sighash type
// appended as 4 bytes LE.
func calcLegacySignatureHash(p Params) ([32]byte, error) {
	const op = "sighash.calcLegacySignatureHash"

	if p.SighashType.BaseType() == BaseSingle && p.InputIndex >= len(p.Tx.Outputs) {
		return [32]byte{}, errValidation(op, "SingleMissingOutput")
	}

	var buf bytes.Buffer
	writeUint32LE(&buf, p.Tx.Version)

	writeLegacyInputs(&buf, p)
	writeLegacyOutputs(&buf, p)

	writeUint32LE(&buf, p.Tx.LockTime)
	writeUint32LE(&buf, uint32(p.SighashType))

	return curve.SHA256d(buf.Bytes()), nil
}

func writeLegacyInputs(buf *bytes.Buffer, p Params) {
	anyoneCanPay := p.SighashType.HasAnyoneCanPay()

	count := len(p.Tx.Inputs)
	if anyoneCanPay {
		count = 1
	}
	_ = wire.WriteVarInt(buf, 0, uint64(count))

	if anyoneCanPay {
		writeLegacyInput(buf, p, p.InputIndex, true)
		return
	}

	for i := range p.Tx.Inputs {
		writeLegacyInput(buf, p, i, i == p.InputIndex)
	}
}

func writeLegacyInput(buf *bytes.Buffer, p Params, i int, isSigned bool) {
	in := p.Tx.Inputs[i]
	op := in.PrevOutpoint.Bytes()
	buf.Write(op[:])

	if isSigned {
		_ = wire.WriteVarBytes(buf, 0, p.Subscript)
	} else {
		_ = wire.WriteVarBytes(buf, 0, nil)
	}

	base := p.SighashType.BaseType()
	if !isSigned && (base == BaseNone || base == BaseSingle) {
		writeUint32LE(buf, 0)
	} else {
		writeUint32LE(buf, in.Sequence)
	}
}

func writeLegacyOutputs(buf *bytes.Buffer, p Params) {
	switch p.SighashType.BaseType() {
	case BaseNone:
		_ = wire.WriteVarInt(buf, 0, 0)
	case BaseSingle:
		_ = wire.WriteVarInt(buf, 0, uint64(p.InputIndex+1))
		for i := 0; i < p.InputIndex; i++ {
			writeUint64LE(buf, ^uint64(0))
			_ = wire.WriteVarInt(buf, 0, 0)
		}
		buf.Write(p.Tx.Outputs[p.InputIndex].Serialize())
	default: // ALL
		_ = wire.WriteVarInt(buf, 0, uint64(len(p.Tx.Outputs)))
		for _, out := range p.Tx.Outputs {
			buf.Write(out.Serialize())
		}
	}
}
