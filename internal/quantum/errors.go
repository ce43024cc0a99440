package quantum

import "errors"

var (
	ErrInvalidOperands     = errors.New("invalid operands")
	ErrTagMismatch         = errors.New("tag mismatch")
	ErrIllegalMeasurement  = errors.New("forced outcome has zero probability")
	ErrZeroProbability     = errors.New("zero total probability")
	ErrAncillaNotCollapsed = errors.New("ancilla not collapsed")
	ErrSquareOccupied      = errors.New("square occupied")
	ErrSquareNotCertain    = errors.New("square not certainly occupied")
)
