package game

import "errors"

var (
	ErrMalformedCommand = errors.New("malformed command")
	ErrWrongTurn        = errors.New("wrong turn")
	ErrIllegalMove      = errors.New("illegal move")
	ErrNoMoves          = errors.New("no legal moves")
)
