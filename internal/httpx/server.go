package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"quantum_chess_poc/internal/game"
	"quantum_chess_poc/internal/shared"
)

// Server exposes quantum chess games over JSON. Every game lives in
// memory under a generated id, so several boards can run at once.
type Server struct {
	mu    sync.Mutex
	games map[string]*game.Game

	srvMu sync.Mutex
	srv   *http.Server
}

const (
	maxJSONBodyBytes int64 = 1 << 20
	apiCSP                 = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'"
)

// NewServer builds a Server with an empty game table.
func NewServer() *Server {
	return &Server{games: make(map[string]*game.Game)}
}

// Listen starts the HTTP server.
func (s *Server) Listen(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	s.srvMu.Lock()
	s.srv = srv
	s.srvMu.Unlock()
	defer func() {
		s.srvMu.Lock()
		s.srv = nil
		s.srvMu.Unlock()
	}()

	log.Printf("HTTP listening on %s", addr)
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close attempts a graceful shutdown of the HTTP server.
func (s *Server) Close(ctx context.Context) error {
	s.srvMu.Lock()
	srv := s.srv
	s.srvMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// routes configures the ServeMux with the JSON APIs.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/new", s.withJSON(s.handleNew))
	mux.HandleFunc("/api/state", s.withJSON(s.handleState))
	mux.HandleFunc("/api/moves", s.withJSON(s.handleMoves))
	mux.HandleFunc("/api/move", s.withJSON(s.handleMove))
	mux.HandleFunc("/api/revert", s.withJSON(s.handleRevert))
	mux.HandleFunc("/api/reset", s.withJSON(s.handleReset))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// ---- JSON helpers ----

func (s *Server) withJSON(h func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applyAPISecurityHeaders(w.Header())
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if r.Body != nil && r.Body != http.NoBody {
			r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	writeJSON(w, map[string]string{"error": msg})
}

func applyAPISecurityHeaders(h http.Header) {
	h.Set("Content-Security-Policy", apiCSP)
	h.Set("Cross-Origin-Opener-Policy", "same-origin")
	h.Set("Cross-Origin-Embedder-Policy", "require-corp")
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if isBodyTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "request too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

// ---- state payloads ----

// SquareState is one occupied square of the board. Prob is the
// marginal probability that the piece is really there.
type SquareState struct {
	Square string  `json:"square"`
	Piece  string  `json:"piece"`
	Color  string  `json:"color"`
	Prob   float64 `json:"prob"`
}

// GameState is the full JSON view of one game.
type GameState struct {
	ID       string        `json:"id"`
	Turn     string        `json:"turn"`
	Step     int           `json:"step"`
	Status   string        `json:"status"`
	Castling string        `json:"castling"`
	Squares  []SquareState `json:"squares"`
	History  []string      `json:"history"`
}

func stateOf(id string, g *game.Game) GameState {
	tags, probs := g.Marginals()
	squares := make([]SquareState, 0, 32)
	for i := 0; i < shared.NumSquares; i++ {
		if !tags[i].Present() {
			continue
		}
		squares = append(squares, SquareState{
			Square: shared.Square(i).String(),
			Piece:  tags[i].Piece().String(),
			Color:  tags[i].Color().String(),
			Prob:   probs[i],
		})
	}
	return GameState{
		ID:       id,
		Turn:     g.SideToMove().String(),
		Step:     g.Step(),
		Status:   g.Status().String(),
		Castling: g.CastlingRights().String(),
		Squares:  squares,
		History:  g.History(),
	}
}

func (s *Server) lookup(id string) (*game.Game, bool) {
	g, ok := s.games[id]
	return g, ok
}

// ---- API: new game ----

type newBody struct {
	Seed  *int64 `json:"seed"`
	Board string `json:"board"`
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body newBody
	if !decodeBody(w, r, &body) {
		return
	}
	seed := time.Now().UnixNano()
	if body.Seed != nil {
		seed = *body.Seed
	}

	var g *game.Game
	if body.Board != "" {
		var err error
		if g, err = game.FromBoard(body.Board, seed); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		g = game.NewSeeded(seed)
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.games[id] = g
	state := stateOf(id, g)
	s.mu.Unlock()
	writeJSON(w, map[string]any{"state": state})
}

// ---- API: state ----

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := r.URL.Query().Get("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown game")
		return
	}
	writeJSON(w, map[string]any{"state": stateOf(id, g)})
}

// ---- API: legal moves ----

func (s *Server) handleMoves(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := r.URL.Query().Get("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown game")
		return
	}
	writeJSON(w, map[string]any{"moves": g.LegalMoves()})
}

// ---- API: move ----

type moveBody struct {
	ID   string `json:"id"`
	Move string `json:"move"`
}

// MeasureResult reports a collapse forced by a move, if any.
type MeasureResult struct {
	Outcome int     `json:"outcome"`
	ProbOne float64 `json:"probOne"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body moveBody
	if !decodeBody(w, r, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.lookup(body.ID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown game")
		return
	}
	m, err := g.Apply(body.Move)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp := map[string]any{"state": stateOf(body.ID, g)}
	if m.Occurred {
		resp["measurement"] = MeasureResult{Outcome: m.Outcome, ProbOne: m.ProbOne}
	}
	writeJSON(w, resp)
}

// ---- API: revert ----

type revertBody struct {
	ID    string `json:"id"`
	Plies int    `json:"plies"`
}

func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body revertBody
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Plies < 1 {
		body.Plies = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.lookup(body.ID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown game")
		return
	}
	if err := g.Revert(body.Plies); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, map[string]any{"state": stateOf(body.ID, g)})
}

// ---- API: reset ----

type resetBody struct {
	ID string `json:"id"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body resetBody
	if !decodeBody(w, r, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.lookup(body.ID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown game")
		return
	}
	if n := len(g.History()); n > 0 {
		if err := g.Revert(n); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	writeJSON(w, map[string]any{"state": stateOf(body.ID, g)})
}
