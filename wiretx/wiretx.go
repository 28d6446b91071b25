// Package wiretx implements the Lotus transaction wire format consumed by
// the sighash engine (spec §3 "UTXO / Output", §4.4): a Bitcoin-compatible
// layout of version, inputs, outputs and locktime, all little-endian,
// scripts varint-length-prefixed. Adapted from the teacher's use of
// github.com/btcsuite/btcd/wire for varint encoding in txscript/taproot.go;
// the teacher's own tx.go/transaction.go carried a full UTXO-aware
// transaction model that this package narrows to exactly what sighash
// needs to serialize (see DESIGN.md "dropped teacher modules").
package wiretx

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/wire"

	"github.com/LotusiaStewardship/lotus-musig2-core/errs"
)

// Outpoint identifies the output being spent by an input (spec §3 "Each
// input has (prev_txid: 32 bytes, prev_index: u32 LE, ...)").
type Outpoint struct {
	PrevTxID  [32]byte
	PrevIndex uint32
}

// Bytes serializes the outpoint as prev_txid(32) || prev_index(4LE), the
// 36-byte form referenced throughout §4.4.
func (o Outpoint) Bytes() [36]byte {
	var out [36]byte
	copy(out[:32], o.PrevTxID[:])
	binary.LittleEndian.PutUint32(out[32:], o.PrevIndex)
	return out
}

// Input is one transaction input (spec §3).
type Input struct {
	PrevOutpoint Outpoint
	ScriptSig    []byte
	Sequence     uint32
}

// Output is one transaction output: (value_sats: u64, script: bytes)
// (spec §3 "UTXO / Output").
type Output struct {
	Value  uint64
	Script []byte
}

// Serialize encodes an output as value(8LE) || varint(len(script)) ||
// script (spec §4.4.2 step 2, "Serialized output is value(8LE) ||
// varint(len(script)) || script").
func (o Output) Serialize() []byte {
	var buf bytes.Buffer
	var valueBuf [8]byte
	binary.LittleEndian.PutUint64(valueBuf[:], o.Value)
	buf.Write(valueBuf[:])
	_ = wire.WriteVarBytes(&buf, 0, o.Script)
	return buf.Bytes()
}

// Transaction is the minimal transaction model the sighash engine operates
// over (spec §3: version u32 LE, ordered inputs, ordered outputs, locktime
// u32 LE).
type Transaction struct {
	Version  uint32
	Inputs   []Input
	Outputs  []Output
	LockTime uint32
}

// Serialize encodes the full transaction in Bitcoin-compatible wire order:
// version, varint input count, inputs, varint output count, outputs,
// locktime.
func (tx Transaction) Serialize() []byte {
	var buf bytes.Buffer
	writeUint32LE(&buf, tx.Version)
	_ = wire.WriteVarInt(&buf, 0, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		op := in.PrevOutpoint.Bytes()
		buf.Write(op[:])
		_ = wire.WriteVarBytes(&buf, 0, in.ScriptSig)
		writeUint32LE(&buf, in.Sequence)
	}
	_ = wire.WriteVarInt(&buf, 0, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		buf.Write(out.Serialize())
	}
	writeUint32LE(&buf, tx.LockTime)
	return buf.Bytes()
}

func writeUint32LE(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// ParseTransaction decodes the wire format produced by Serialize (spec §8
// round-trip property "Transaction serialize -> parse -> serialize yields
// identical bytes").
func ParseTransaction(raw []byte) (Transaction, error) {
	const op = "wiretx.ParseTransaction"
	r := bytes.NewReader(raw)

	version, err := readUint32LE(r)
	if err != nil {
		return Transaction{}, errs.Wrap(errs.KindInvalidEncoding, op, "version", err)
	}

	inCount, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return Transaction{}, errs.Wrap(errs.KindInvalidEncoding, op, "input count", err)
	}
	inputs := make([]Input, 0, inCount)
	for i := uint64(0); i < inCount; i++ {
		var in Input
		if _, err := io.ReadFull(r, in.PrevOutpoint.PrevTxID[:]); err != nil {
			return Transaction{}, errs.Wrap(errs.KindInvalidEncoding, op, "prev txid", err)
		}
		if in.PrevOutpoint.PrevIndex, err = readUint32LE(r); err != nil {
			return Transaction{}, errs.Wrap(errs.KindInvalidEncoding, op, "prev index", err)
		}
		if in.ScriptSig, err = wire.ReadVarBytes(r, 0, wire.MaxMessagePayload, "scriptSig"); err != nil {
			return Transaction{}, errs.Wrap(errs.KindInvalidEncoding, op, "scriptSig", err)
		}
		if len(in.ScriptSig) == 0 {
			in.ScriptSig = nil // an empty scriptSig parses back to nil, as Input's zero value
		}
		if in.Sequence, err = readUint32LE(r); err != nil {
			return Transaction{}, errs.Wrap(errs.KindInvalidEncoding, op, "sequence", err)
		}
		inputs = append(inputs, in)
	}

	outCount, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return Transaction{}, errs.Wrap(errs.KindInvalidEncoding, op, "output count", err)
	}
	outputs := make([]Output, 0, outCount)
	for i := uint64(0); i < outCount; i++ {
		var out Output
		var valueBuf [8]byte
		if _, err := io.ReadFull(r, valueBuf[:]); err != nil {
			return Transaction{}, errs.Wrap(errs.KindInvalidEncoding, op, "value", err)
		}
		out.Value = binary.LittleEndian.Uint64(valueBuf[:])
		if out.Script, err = wire.ReadVarBytes(r, 0, wire.MaxMessagePayload, "script"); err != nil {
			return Transaction{}, errs.Wrap(errs.KindInvalidEncoding, op, "script", err)
		}
		outputs = append(outputs, out)
	}

	lockTime, err := readUint32LE(r)
	if err != nil {
		return Transaction{}, errs.Wrap(errs.KindInvalidEncoding, op, "locktime", err)
	}

	return Transaction{Version: version, Inputs: inputs, Outputs: outputs, LockTime: lockTime}, nil
}

func readUint32LE(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}
