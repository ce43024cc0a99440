package game

import (
	"fmt"
	"strings"

	"quantum_chess_poc/internal/quantum"
	"quantum_chess_poc/internal/shared"
)

// Command is one parsed move order. The text grammar is
// "SRC[SRC2],DST[DST2][PROMO][,0|1]": plain squares move one piece,
// a double destination splits, a double source merges, a trailing
// lowercase letter promotes, and a trailing ,0 or ,1 pins the
// measurement outcome.
type Command struct {
	Src  shared.Square
	Dst  shared.Square
	Src2 shared.Square
	Dst2 shared.Square

	HasSrc2 bool
	HasDst2 bool

	Promotion    shared.PieceType
	HasPromotion bool

	Force quantum.Forced
}

// ParseCommand parses the move grammar. It validates shape only;
// legality against the position is the game's job.
func ParseCommand(raw string) (Command, error) {
	var cmd Command
	parts := strings.Split(strings.TrimSpace(raw), ",")
	if len(parts) == 3 {
		switch parts[2] {
		case "0":
			cmd.Force = quantum.Force(0)
		case "1":
			cmd.Force = quantum.Force(1)
		default:
			return Command{}, fmt.Errorf("%w: %q", ErrMalformedCommand, raw)
		}
		parts = parts[:2]
	}
	if len(parts) != 2 {
		return Command{}, fmt.Errorf("%w: %q", ErrMalformedCommand, raw)
	}
	from, to := parts[0], parts[1]
	switch [2]int{len(from), len(to)} {
	case [2]int{2, 2}, [2]int{2, 3}, [2]int{2, 4}, [2]int{4, 2}, [2]int{4, 4}:
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrMalformedCommand, raw)
	}

	var err error
	if cmd.Src, err = shared.CoordToSquare(from[:2]); err != nil {
		return Command{}, fmt.Errorf("%w: %q", ErrMalformedCommand, raw)
	}
	if cmd.Dst, err = shared.CoordToSquare(to[:2]); err != nil {
		return Command{}, fmt.Errorf("%w: %q", ErrMalformedCommand, raw)
	}
	if len(from) == 4 {
		if cmd.Src2, err = shared.CoordToSquare(from[2:]); err != nil {
			return Command{}, fmt.Errorf("%w: %q", ErrMalformedCommand, raw)
		}
		cmd.HasSrc2 = true
	}
	switch len(to) {
	case 4:
		if cmd.Dst2, err = shared.CoordToSquare(to[2:]); err != nil {
			return Command{}, fmt.Errorf("%w: %q", ErrMalformedCommand, raw)
		}
		cmd.HasDst2 = true
	case 3:
		pt, ok := shared.ParsePromotion(rune(to[2]))
		if !ok {
			return Command{}, fmt.Errorf("%w: %q", ErrMalformedCommand, raw)
		}
		cmd.Promotion = pt
		cmd.HasPromotion = true
	}
	return cmd, nil
}
