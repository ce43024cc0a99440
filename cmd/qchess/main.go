package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"quantum_chess_poc/internal/game"
	"quantum_chess_poc/internal/quantum"
)

const disclaimer = `# Heads up!

Hey there! Thanks for using this software. Just a friendly reminder that this is a free tool and it's provided 'as-is'. We've done our best to make it great, but it's not perfect. There might be a few bugs here and there.

So, please don't rely on it for mission-critical tasks or anything where a software glitch could cause problems. And if you do find any bugs or issues, we'd love to hear about them so we can make the tool even better.

Thanks and happy coding!`

const help = `moves use the grammar SRC[,SRC2],DST[DST2][PROMO][,0|1], e.g.
  e2,e4        move a piece
  b1,a3c3      split a piece over two squares
  a3c3,b5      merge it back
  b7,a8q       promote on the back rank
  e1h1,g1f1    castle (king+rook squares, then their targets)
  d1,e2,0      pin the outcome of a measuring move

shell commands:
  :help      show this text
  :print     redraw the board
  :moves     list all legal moves
  :random    play a random legal move
  :undo      take back the last ply
  :set-m0    pin the next measurement to 0
  :set-m1    pin the next measurement to 1
  :unset-m   drop the pinned outcome
  :quit      leave`

func main() {
	mode := flag.String("mode", getenv("QCHESS_MODE", "pvp"), "pvp, pvc (you play white) or cvc")
	seed := flag.Int64("seed", getenvInt64("QCHESS_SEED", time.Now().UnixNano()), "random seed")
	board := flag.String("board", "", "optional placement list like \"e1K e8k a2P\"")
	splitWeight := flag.Float64("split-weight", 1, "relative weight of double-destination moves for the computer")
	aiDelay := flag.Duration("ai-delay", 300*time.Millisecond, "pause before a computer move")
	maxSteps := flag.Int("max-steps", 200, "ply limit in cvc mode")
	flag.Parse()

	var g *game.Game
	if *board != "" {
		var err error
		if g, err = game.FromBoard(*board, *seed); err != nil {
			log.Fatalf("board: %v", err)
		}
	} else {
		g = game.NewSeeded(*seed)
	}

	fmt.Println(disclaimer)
	fmt.Println()

	switch *mode {
	case "cvc":
		runComputerOnly(g, *splitWeight, *aiDelay, *maxSteps)
	case "pvp", "pvc":
		runShell(g, *mode == "pvc", *splitWeight, *aiDelay)
	default:
		log.Fatalf("unknown mode %q", *mode)
	}
}

func runComputerOnly(g *game.Game, splitWeight float64, delay time.Duration, maxSteps int) {
	for i := 0; i < maxSteps && g.Status() == game.Ongoing; i++ {
		mv, _, err := g.RandomMove(splitWeight)
		if err != nil {
			fmt.Printf("no moves left for %s\n", g.SideToMove())
			return
		}
		fmt.Printf("[%d] %s plays %s\n", g.Step(), g.SideToMove().Other(), mv)
		fmt.Println(g.Render())
		time.Sleep(delay)
	}
	fmt.Println(g.Status())
}

func runShell(g *game.Game, versusComputer bool, splitWeight float64, delay time.Duration) {
	fmt.Println(g.Render())
	in := bufio.NewScanner(os.Stdin)
	prompt := color.New(color.Bold)
	for g.Status() == game.Ongoing {
		prompt.Printf("%s> ", g.SideToMove())
		if !in.Scan() {
			return
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			if quit := runShellCommand(g, line); quit {
				return
			}
			continue
		}
		m, err := g.Apply(line)
		if err != nil {
			fmt.Println(err)
			continue
		}
		report(m)
		fmt.Println(g.Render())

		if versusComputer && g.Status() == game.Ongoing {
			time.Sleep(delay)
			mv, mm, err := g.RandomMove(splitWeight)
			if err != nil {
				break
			}
			fmt.Printf("computer plays %s\n", mv)
			report(mm)
			fmt.Println(g.Render())
		}
	}
	fmt.Println(g.Status())
}

func runShellCommand(g *game.Game, line string) (quit bool) {
	switch strings.ToLower(line) {
	case ":quit", ":q":
		return true
	case ":help", ":h":
		fmt.Println(help)
	case ":print", ":p":
		fmt.Println(g.Render())
	case ":moves":
		fmt.Println(strings.Join(g.LegalMoves(), "  "))
	case ":random":
		mv, m, err := g.RandomMove(1)
		if err != nil {
			fmt.Println(err)
			break
		}
		fmt.Printf("played %s\n", mv)
		report(m)
		fmt.Println(g.Render())
	case ":undo":
		if err := g.Revert(1); err != nil {
			fmt.Println(err)
			break
		}
		fmt.Println(g.Render())
	case ":set-m0":
		g.SetForced(quantum.Force(0))
	case ":set-m1":
		g.SetForced(quantum.Force(1))
	case ":unset-m":
		g.SetForced(quantum.Forced{})
	default:
		fmt.Printf("unknown command %q, try :help\n", line)
	}
	return false
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getenvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n
		}
	}
	return def
}

func report(m quantum.Measurement) {
	if m.Occurred {
		fmt.Printf("measured %d (p1 was %.2f)\n", m.Outcome, m.ProbOne)
	}
}
