package game

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"quantum_chess_poc/internal/shared"
)

var blackPiece = color.New(color.FgHiBlue)

func probSuffix(p float64) string {
	if p > 0.995 || p < zeroEps {
		return "   "
	}
	s := strconv.FormatFloat(math.Round(p*100)/100, 'g', -1, 64)
	return fmt.Sprintf("%-3s", s[1:])
}

func printTag(tag shared.Tag) string {
	if !tag.Present() {
		return "·"
	}
	letter := string(tag.Rune())
	if tag.Color() == shared.Black {
		return blackPiece.Sprint(strings.ToUpper(letter))
	}
	return letter
}

// Render draws the board with per-square occupancy probabilities,
// rank 8 on top. Black pieces are tinted instead of lowercased so
// the probability suffix stays readable.
func (g *Game) Render() string {
	tags, probs := g.store.Marginals()
	cells := make([]string, shared.NumSquares)
	for i := 0; i < shared.NumSquares; i++ {
		cells[i] = printTag(tags[i]) + probSuffix(probs[i])
	}
	rule := "   " + strings.Repeat("─", 55)
	var b strings.Builder
	b.WriteString(rule + "\n")
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&b, "%d | %s |\n", rank+1, strings.Join(cells[rank*8:rank*8+8], " | "))
	}
	b.WriteString(rule + "\n")
	b.WriteString("  | " + strings.Join(strings.Split("abcdefgh", ""), "    | ") + "    |")
	return b.String()
}
