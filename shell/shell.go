// Package shell is the interactive front end: a readline loop for
// inspecting positions and asking the engine what it would do.
package shell

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/nibbler2048/nibbler/bitboard"
	"github.com/nibbler2048/nibbler/config"
	"github.com/nibbler2048/nibbler/game"
	"github.com/nibbler2048/nibbler/search"
	"github.com/nibbler2048/nibbler/tables"
)

type ShellController struct {
	l      *readline.Instance
	config *config.Config

	tables *tables.Tables
	solver *search.Solver
	game   *game.Game

	// rng is nil unless --seed was given; a seeded shell deals the same
	// tiles every session.
	rng *frand.RNG
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func showMessage(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

func NewShellController(cfg *config.Config) *ShellController {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31mnibbler>\033[0m ",
		HistoryFile:     "/tmp/readline.tmp",
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	t := tables.New()
	sc := &ShellController{
		l:      l,
		config: cfg,
		tables: t,
		solver: search.NewSolver(t),
	}
	if seed := cfg.GetUint64("seed"); seed != 0 {
		sc.rng = game.RNGFromSeed(seed)
	}
	if limit := cfg.GetInt("depth-limit"); limit > 0 {
		sc.solver.SetDepthLimit(limit)
	}
	sc.game = game.NewGame(t, sc.rng)
	if hexboard := cfg.GetString("board"); hexboard != "" {
		if err := sc.setBoard(hexboard); err != nil {
			log.Err(err).Msg("ignoring bad --board value")
		}
	}
	return sc
}

func (sc *ShellController) setBoard(hexboard string) error {
	v, err := strconv.ParseUint(strings.TrimPrefix(hexboard, "0x"), 16, 64)
	if err != nil {
		return fmt.Errorf("board must be a 64-bit hex value: %w", err)
	}
	sc.game = game.NewGameFromBoard(sc.tables, bitboard.Board(v), sc.rng)
	return nil
}

func (sc *ShellController) showBoard() {
	b := sc.game.Board()
	showMessage(fmt.Sprintf("board %016x", uint64(b)), sc.l.Stderr())
	showMessage(b.String(), sc.l.Stderr())
	showMessage(fmt.Sprintf("score %.0f  empty %d  max tile %d",
		sc.game.Score(), bitboard.CountEmpty(b), 1<<uint(sc.game.MaxRank())),
		sc.l.Stderr())
}

func (sc *ShellController) best() {
	stats := sc.solver.FindBestMoveWithStats(sc.game.Board())
	if stats.Move == bitboard.NoMove {
		showMessage("no legal moves; game over", sc.l.Stderr())
		return
	}
	showMessage(fmt.Sprintf(
		"best move: %v (depth limit %d, %d evals, %d cache hits, max depth %d)",
		stats.Move, stats.DepthLimit, stats.MovesEvaluated, stats.CacheHits,
		stats.MaxDepth), sc.l.Stderr())
}

func (sc *ShellController) play(n int) {
	for i := 0; i < n; i++ {
		move := sc.solver.FindBestMove(sc.game.Board())
		if move == bitboard.NoMove {
			showMessage("no legal moves; game over", sc.l.Stderr())
			return
		}
		sc.game.PlayMove(move)
		showMessage(fmt.Sprintf("played %v", move), sc.l.Stderr())
	}
	sc.showBoard()
}

func (sc *ShellController) autoplay() {
	for {
		move := sc.solver.FindBestMove(sc.game.Board())
		if move == bitboard.NoMove {
			break
		}
		sc.game.PlayMove(move)
	}
	showMessage(fmt.Sprintf("game over after %d moves", sc.game.Moves()),
		sc.l.Stderr())
	sc.showBoard()
}

func (sc *ShellController) move(dirname string) {
	var dir bitboard.Direction
	switch strings.ToLower(dirname) {
	case "up", "u":
		dir = bitboard.Up
	case "down", "d":
		dir = bitboard.Down
	case "left", "l":
		dir = bitboard.Left
	case "right", "r":
		dir = bitboard.Right
	default:
		showMessage("direction must be up, down, left or right", sc.l.Stderr())
		return
	}
	if !sc.game.PlayMove(dir) {
		showMessage(fmt.Sprintf("%v is not legal here", dir), sc.l.Stderr())
		return
	}
	sc.showBoard()
}

func usage(w io.Writer) {
	showMessage(`Commands:
    show                display the current board
    set <hex>           set the board to a 64-bit hex value
    new                 start a fresh game
    best                ask the engine for the best move, with stats
    move <dir>          play a direction yourself (up/down/left/right)
    play [n]            let the engine play n moves (default 1)
    autoplay            let the engine finish the game
    heur                static heuristic value of the current board
    help                show this message
    exit                leave the shell`, w)
}

func (sc *ShellController) execLine(line string) bool {
	fields, err := shellquote.Split(line)
	if err != nil {
		showMessage("error: "+err.Error(), sc.l.Stderr())
		return true
	}
	if len(fields) == 0 {
		return true
	}
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "exit", "quit":
		return false
	case "help":
		usage(sc.l.Stderr())
	case "show":
		sc.showBoard()
	case "new":
		sc.game = game.NewGame(sc.tables, sc.rng)
		sc.showBoard()
	case "set":
		if len(args) != 1 {
			showMessage("need a board, e.g. set 0000000000201100", sc.l.Stderr())
			break
		}
		if err := sc.setBoard(args[0]); err != nil {
			showMessage("error: "+err.Error(), sc.l.Stderr())
			break
		}
		sc.showBoard()
	case "best":
		sc.best()
	case "move":
		if len(args) != 1 {
			showMessage("need a direction", sc.l.Stderr())
			break
		}
		sc.move(args[0])
	case "play":
		n := 1
		if len(args) == 1 {
			if n, err = strconv.Atoi(args[0]); err != nil || n < 1 {
				showMessage("play needs a positive count", sc.l.Stderr())
				break
			}
		}
		sc.play(n)
	case "autoplay":
		sc.autoplay()
	case "heur":
		showMessage(fmt.Sprintf("heuristic %.1f",
			sc.tables.ScoreHeuristicBoard(sc.game.Board())), sc.l.Stderr())
	default:
		showMessage("unknown command; try help", sc.l.Stderr())
	}
	return true
}

// Loop reads and executes commands until exit or EOF.
func (sc *ShellController) Loop() {
	defer sc.l.Close()
	sc.showBoard()
	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		}
		if !sc.execLine(strings.TrimSpace(line)) {
			break
		}
	}
	log.Debug().Msg("exiting shell loop")
}
