package sighash

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/wire"

	"github.com/LotusiaStewardship/lotus-musig2-core/curve"
	"github.com/LotusiaStewardship/lotus-musig2-core/wiretx"
)

// calcForkIDSignatureHash implements §4.4.1 FORKID (BIP143-style):
// version(4LE) || hashPrevouts || hashSequence || outpoint(36) ||
// subscript(varint-prefixed) || value(8LE) || sequence(4LE) || hashOutputs
// || locktime(4LE) || sighash_type(4LE, sign-extended).
func calcForkIDSignatureHash(p Params) ([32]byte, error) {
	var buf bytes.Buffer

	writeUint32LE(&buf, p.Tx.Version)

	prevouts := hashPrevouts(p.Tx, p.SighashType)
	buf.Write(prevouts[:])

	seq := hashSequence(p.Tx, p.SighashType)
	buf.Write(seq[:])

	op := p.Tx.Inputs[p.InputIndex].PrevOutpoint.Bytes()
	buf.Write(op[:])

	_ = wire.WriteVarBytes(&buf, 0, p.Subscript)

	writeUint64LE(&buf, p.Value)
	writeUint32LE(&buf, p.Tx.Inputs[p.InputIndex].Sequence)

	outputs := hashOutputs(p.Tx, p.SighashType, p.InputIndex)
	buf.Write(outputs[:])

	writeUint32LE(&buf, p.Tx.LockTime)

	// sign-extended 4-byte little-endian sighash type, matching BIP143's
	// int32(sighashType) encoding.
	writeUint32LE(&buf, uint32(int32(p.SighashType)))

	return curve.SHA256d(buf.Bytes()), nil
}

func hashPrevouts(tx wiretx.Transaction, sighashType Type) [32]byte {
	if sighashType.HasAnyoneCanPay() {
		return zeroHash
	}
	var buf bytes.Buffer
	for _, in := range tx.Inputs {
		op := in.PrevOutpoint.Bytes()
		buf.Write(op[:])
	}
	return curve.SHA256d(buf.Bytes())
}

func hashSequence(tx wiretx.Transaction, sighashType Type) [32]byte {
	if sighashType.HasAnyoneCanPay() {
		return zeroHash
	}
	var buf bytes.Buffer
	for _, in := range tx.Inputs {
		writeUint32LE(&buf, in.Sequence)
	}
	return curve.SHA256d(buf.Bytes())
}

// hashOutputs is the FORKID hashOutputs field (spec §4.4.1): SHA256d of all
// outputs for ALL, SHA256d of output i alone for SINGLE, zero hash
// otherwise. The LOTUS digest computes its own output commitment in
// lotus.go.
func hashOutputs(t wiretx.Transaction, sighashType Type, inputIndex int) [32]byte {
	switch sighashType.BaseType() {
	case BaseAll:
		var buf bytes.Buffer
		for _, out := range t.Outputs {
			buf.Write(out.Serialize())
		}
		return curve.SHA256d(buf.Bytes())
	case BaseSingle:
		if inputIndex >= len(t.Outputs) {
			return zeroHash
		}
		return curve.SHA256d(t.Outputs[inputIndex].Serialize())
	default:
		return zeroHash
	}
}

var zeroHash [32]byte

func writeUint32LE(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint64LE(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}
