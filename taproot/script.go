package taproot

import "github.com/btcsuite/btcd/txscript"

// opScriptType tags the output as a typed script output (spec §3 "P2TR
// script (Lotus)"). Lotus-specific, so unlike the push opcodes below it has
// no txscript constant to reuse.
const opScriptType = 0x62

// op1 and the push opcodes reuse the teacher's txscript opcode constants
// (txscript.OP_1, txscript.OP_DATA_33, txscript.OP_DATA_32) rather than
// hand-rolled literals, even though this module carries no script
// interpreter (see DESIGN.md "dropped teacher modules": the opcode
// execution engine itself is out of scope, only these byte values are
// needed to build/classify the template).
const (
	op1           = txscript.OP_1
	pushData33    = txscript.OP_DATA_33
	pushData32    = txscript.OP_DATA_32
	commitmentLen = 33
	stateLen      = 32
)

// scriptLen36 is the key-path/script-path-only form: OP_SCRIPTTYPE OP_1
// 0x21 <33B commitment>.
const scriptLen36 = 3 + commitmentLen

// scriptLen69 additionally carries 0x20 <32B state>.
const scriptLen69 = scriptLen36 + 1 + stateLen

// BuildP2TR constructs the Lotus P2TR script for a given 33-byte commitment
// and optional 32-byte state (spec §3 P2TR script).
func BuildP2TR(commitment [33]byte, state *[32]byte) []byte {
	script := make([]byte, 0, scriptLen69)
	script = append(script, opScriptType, op1, pushData33)
	script = append(script, commitment[:]...)
	if state != nil {
		script = append(script, pushData32)
		script = append(script, state[:]...)
	}
	return script
}

// ClassifyP2TR recognizes a Lotus P2TR script by its exact byte sequence
// (spec §4.3 "Script classifier"). It accepts byte-for-byte either the
// 36-byte or 69-byte form and rejects every other length or malformed
// encoding, returning the commitment and optional state.
func ClassifyP2TR(script []byte) (commitment [33]byte, state *[32]byte, ok bool) {
	switch len(script) {
	case scriptLen36, scriptLen69:
	default:
		return commitment, nil, false
	}
	if script[0] != opScriptType || script[1] != op1 || script[2] != pushData33 {
		return commitment, nil, false
	}
	copy(commitment[:], script[3:3+commitmentLen])

	if len(script) == scriptLen36 {
		return commitment, nil, true
	}

	if script[scriptLen36] != pushData32 {
		return commitment, nil, false
	}
	var s [32]byte
	copy(s[:], script[scriptLen36+1:])
	return commitment, &s, true
}

// IsP2TR reports whether script matches the Lotus P2TR template.
func IsP2TR(script []byte) bool {
	_, _, ok := ClassifyP2TR(script)
	return ok
}

// payToTaprootScriptBIP341 builds the upstream BIP341-style script (OP_1
// <32-byte x-only pubkey>) the teacher's PayToTaprootScript produces. Kept
// unexported as a fixture proving ClassifyP2TR rejects it: Lotus's script
// template is not a subset of BIP341's (spec §1 Non-goals: "supporting
// BIP340 x-only public keys").
func payToTaprootScriptBIP341(xOnlyKey [32]byte) []byte {
	script := make([]byte, 0, 2+32)
	script = append(script, op1, pushData32)
	script = append(script, xOnlyKey[:]...)
	return script
}
