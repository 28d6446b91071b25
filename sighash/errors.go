package sighash

import "github.com/LotusiaStewardship/lotus-musig2-core/errs"

func errInvalidSighashType(op, msg string) error {
	return errs.New(errs.KindInvalidSighashType, op, msg)
}

func errValidation(op, msg string) error {
	return errs.New(errs.KindValidationError, op, msg)
}
