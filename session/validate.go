package session

import (
	"github.com/LotusiaStewardship/lotus-musig2-core/curve"
	"github.com/LotusiaStewardship/lotus-musig2-core/errs"
	"github.com/LotusiaStewardship/lotus-musig2-core/musig2"
)

// decodePublicNonce performs steps 1-2 of the byzantine validation
// pipeline (spec §4.6.5) for a nonce-share payload: structural (hex shape,
// length) then deserialization (on-curve, non-identity points).
func decodePublicNonce(op string, wire PublicNonceWire) (musig2.PublicNonce, error) {
	r1b, err := decodeHexExact(wire.R1, 33, op, "public_nonce.R1")
	if err != nil {
		return musig2.PublicNonce{}, err
	}
	r2b, err := decodeHexExact(wire.R2, 33, op, "public_nonce.R2")
	if err != nil {
		return musig2.PublicNonce{}, err
	}
	r1, err := curve.ParsePoint(r1b)
	if err != nil {
		return musig2.PublicNonce{}, err
	}
	r2, err := curve.ParsePoint(r2b)
	if err != nil {
		return musig2.PublicNonce{}, err
	}
	return musig2.PublicNonce{R1: r1, R2: r2}, nil
}

// decodePartialSig performs steps 1-2 for a partial-sig-share payload:
// exactly 32 hex bytes, reduced to a scalar. Spec §4.6.5 step 2 requires
// scalars to be "< n and non-zero where forbidden"; the zero partial
// signature is never forbidden on its own (SigAgg only rejects a zero
// aggregate), so only the length/hex shape is checked here.
func decodePartialSig(op string, hexStr string) (musig2.PartialSignature, error) {
	b, err := decodeHexExact(hexStr, 32, op, "partial_sig")
	if err != nil {
		return musig2.PartialSignature{}, err
	}
	var arr [32]byte
	copy(arr[:], b)
	return musig2.PartialSignature{S: curve.ScalarFromBytes(arr)}, nil
}

// validateSemantic checks step 3 (spec §4.6.5): session_id is known (the
// caller already looked up the session to get here), signer_index
// corresponds to from, and the session is in an appropriate phase.
func validateSemantic(op string, s *Session, from string, signerIndex int, wantPhase Phase) error {
	participant, ok := s.participantByIndex(signerIndex)
	if !ok {
		return errs.New(errs.KindProtocolError, op, "unknown signer_index")
	}
	if participant.PeerID != from {
		return errs.New(errs.KindProtocolError, op, "signer_index does not correspond to from")
	}
	if s.Phase != wantPhase {
		return errs.New(errs.KindProtocolError, op, "message arrived out of phase")
	}
	return nil
}

// checkEquivocation implements the fatal-fault half of step 4 (spec
// §4.6.5): a second, different nonce from the same signer for the same
// session is a byzantine fault, not merely a dropped message.
func checkEquivocation(s *Session, signerIndex int, r1 musig2.PublicNonce) bool {
	compressed := curve.PublicKey{Point: r1.R1}.Compressed()
	if prior, seen := s.seenNonceFrom[signerIndex]; seen {
		return prior != compressed
	}
	s.seenNonceFrom[signerIndex] = compressed
	return false
}
