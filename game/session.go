package game

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"matching-pairs/config"
	"matching-pairs/wsutil"
)

// ActionType enumerates the kinds of actions a session can process.
type ActionType int

const (
	ActionReveal ActionType = iota
	ActionShuffle
	ActionDisconnect
	actionDeferred // internal: a scheduled task, e.g. the match evaluation
)

// Action is sent into the session's action channel.
type Action struct {
	Type  ActionType
	Index int // card index (for Reveal)

	task func() error
}

// RoundResult describes a completed round.
type RoundResult struct {
	SessionID  string    `json:"sessionId"`
	UserID     string    `json:"userId,omitempty"`
	PlayerName string    `json:"playerName"`
	Round      int       `json:"round"`
	Pairs      int       `json:"pairs"`
	Moves      int       `json:"moves"`
	BestScore  int       `json:"bestScore"`
	NewBest    bool      `json:"newBest"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Session wires one board, controller, move counter and best-score tracker
// together and serializes every state mutation on the goroutine running Run.
type Session struct {
	ID         string
	UserID     string
	PlayerName string

	Board      *Board
	Controller *Controller
	Counter    *MoveCounter
	Best       *BestScore

	Send    chan []byte // the client's send channel; may be nil
	Actions chan Action
	Done    chan struct{}

	// OnRoundFinished is called on the session goroutine when a round completes.
	// It must not block.
	OnRoundFinished func(RoundResult)

	round      int
	dirty      bool
	violations int

	prevBest    int
	hadPrevBest bool
}

// NewSession creates a session and wires its components. Run starts it.
func NewSession(id string, cfg *config.Config, send chan []byte) (*Session, error) {
	s := &Session{
		ID:      id,
		Send:    send,
		Actions: make(chan Action, 16),
		Done:    make(chan struct{}),
	}

	seed := cfg.ShuffleSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	ctrl, err := NewController(cfg.Pairs, cfg.MatchDelay(), s)
	if err != nil {
		return nil, err
	}
	board, err := NewBoard(cfg.Pairs, rand.New(rand.NewSource(seed)), ctrl)
	if err != nil {
		return nil, err
	}
	counter := NewMoveCounter()
	best, err := NewBestScore(counter)
	if err != nil {
		return nil, err
	}

	wire(board, ctrl, counter, best)

	render := StateListenerFunc(func(StateChange) { s.dirty = true })
	for _, card := range board.Cards() {
		card.AddStateListener(render)
	}
	ctrl.AddFinishListener(FinishListenerFunc(s.roundFinished))
	ctrl.AddPairsListener(CountListenerFunc(func(_, _ int) { s.dirty = true }))
	counter.AddCountListener(CountListenerFunc(func(_, _ int) { s.dirty = true }))

	s.Board = board
	s.Controller = ctrl
	s.Counter = counter
	s.Best = best
	return s, nil
}

// wire subscribes the components to each other. Order matters: the controller
// sees a reveal before the counter, and the best-score tracker sees a finished
// round before any listener added later.
func wire(board *Board, ctrl *Controller, counter *MoveCounter, best *BestScore) {
	for _, card := range board.Cards() {
		card.AddVetoer(ctrl)
		card.AddStateListener(ctrl)
		card.AddStateListener(counter)
		ctrl.AddMatchListener(card)
	}
	board.AddShuffleListener(ctrl)
	board.AddShuffleListener(counter)
	ctrl.AddFinishListener(best)
}

// Schedule implements Scheduler: after d the task is posted back into the
// action channel so it runs on the session goroutine.
func (s *Session) Schedule(d time.Duration, task func() error) {
	time.AfterFunc(d, func() {
		select {
		case s.Actions <- Action{Type: actionDeferred, task: task}:
		case <-s.Done:
		}
	})
}

// Run is the main session loop. It processes actions sequentially.
// It should be run as a goroutine.
func (s *Session) Run(ctx context.Context) {
	defer close(s.Done)

	s.shuffle()
	s.broadcastState()

	for {
		select {
		case <-ctx.Done():
			return
		case action := <-s.Actions:
			if !s.handle(action) {
				return
			}
			if s.dirty {
				s.broadcastState()
			}
		}
	}
}

// Violations is the number of invariant violations seen by the loop.
// Only meaningful after Done is closed.
func (s *Session) Violations() int { return s.violations }

func (s *Session) handle(action Action) bool {
	switch action.Type {
	case ActionReveal:
		s.handleReveal(action.Index)
	case ActionShuffle:
		s.shuffle()
	case ActionDisconnect:
		return false
	case actionDeferred:
		if err := action.task(); err != nil {
			s.violation(err)
		}
	}
	return true
}

func (s *Session) handleReveal(index int) {
	err := s.Board.Click(index)
	switch {
	case err == nil:
	case errors.Is(err, ErrCardIndexOutOfRange):
		s.sendError("Card index out of bounds.")
	case errors.Is(err, ErrVetoed), errors.Is(err, ErrClickIgnored):
		slog.Debug("reveal rejected", "tag", "game", "session", s.ID, "index", index, "reason", err)
	default:
		s.violation(err)
	}
}

func (s *Session) shuffle() {
	s.round++
	s.Board.Shuffle()
	s.dirty = true
}

func (s *Session) violation(err error) {
	s.violations++
	slog.Error("invariant violation", "tag", "invariant", "session", s.ID, "err", err)
}

// roundFinished runs after the best-score tracker has seen the same event.
func (s *Session) roundFinished(ev FinishedEvent) {
	moves := s.Counter.Count()
	best, _ := s.Best.Best()
	newBest := !s.hadPrevBest || best < s.prevBest
	s.prevBest, s.hadPrevBest = best, true

	slog.Info("round finished", "tag", "game", "session", s.ID, "round", s.round,
		"moves", moves, "best", best)

	// Flush the settled board first so the client sees the last pair removed.
	s.broadcastState()
	s.send(GameFinishedMsg{
		Type:      "game_finished",
		Round:     s.round,
		Moves:     moves,
		BestScore: best,
		NewBest:   newBest,
	})

	if s.OnRoundFinished != nil {
		s.OnRoundFinished(RoundResult{
			SessionID:  s.ID,
			UserID:     s.UserID,
			PlayerName: s.PlayerName,
			Round:      s.round,
			Pairs:      ev.Pairs,
			Moves:      moves,
			BestScore:  best,
			NewBest:    newBest,
			FinishedAt: time.Now().UTC(),
		})
	}
}

func (s *Session) broadcastState() {
	s.dirty = false
	s.send(s.BuildState())
}

func (s *Session) sendError(message string) {
	s.send(map[string]string{
		"type":    "error",
		"message": message,
	})
}

func (s *Session) send(msg any) {
	if s.Send == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshaling session message", "tag", "game", "err", err)
		return
	}
	wsutil.SafeSend(s.Send, data)
}
