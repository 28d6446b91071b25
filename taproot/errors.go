package taproot

import "github.com/LotusiaStewardship/lotus-musig2-core/errs"

// Sentinel-ish helpers for the C3 error taxonomy (spec §4.3 Errors):
// NotTaproot, InvalidTreeStructure, TreeTooDeep, InvalidControlBlock.

func errNotTaproot(op, msg string) error {
	return errs.New(errs.KindValidationError, op, "NotTaproot: "+msg)
}

func errInvalidTreeStructure(op, msg string) error {
	return errs.New(errs.KindValidationError, op, "InvalidTreeStructure: "+msg)
}

func errTreeTooDeep(op, msg string) error {
	return errs.New(errs.KindValidationError, op, "TreeTooDeep: "+msg)
}

func errInvalidControlBlock(op, msg string) error {
	return errs.New(errs.KindValidationError, op, "InvalidControlBlock: "+msg)
}
