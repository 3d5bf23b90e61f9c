package game

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Phase is the turn controller's state, derived from the turn state.
type Phase int

const (
	Idle Phase = iota
	OneRevealed
	Evaluating
)

// String returns the protocol string for a Phase.
func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case OneRevealed:
		return "one_revealed"
	case Evaluating:
		return "evaluating"
	default:
		return "unknown"
	}
}

// Scheduler runs task once after d on the goroutine that owns the game state.
// An error returned by task is an invariant violation.
type Scheduler interface {
	Schedule(d time.Duration, task func() error)
}

// Controller arbitrates reveals and decides matches. It vetoes illegal reveals,
// pairs up revealed cards, and after the match delay broadcasts the result to
// every card.
type Controller struct {
	totalPairs int
	delay      time.Duration
	sched      Scheduler

	pairsFound int
	first      *Card
	second     *Card
	processing bool

	// round advances on every shuffle; evaluations scheduled in an earlier round are dropped.
	round uint64

	matchListeners  listeners[MatchListener]
	finishListeners listeners[FinishListener]
	pairsListeners  listeners[CountListener]
}

// NewController creates a controller for a board of totalPairs pairs.
func NewController(totalPairs int, delay time.Duration, sched Scheduler) (*Controller, error) {
	if sched == nil {
		return nil, fmt.Errorf("%w: controller needs a scheduler", ErrMissingCollaborator)
	}
	if totalPairs < 1 {
		return nil, fmt.Errorf("%w: total pairs must be at least 1, got %d", ErrInvalidAssignment, totalPairs)
	}
	return &Controller{totalPairs: totalPairs, delay: delay, sched: sched}, nil
}

// AddMatchListener subscribes l to match results.
func (c *Controller) AddMatchListener(l MatchListener) { c.matchListeners.add(l) }

// RemoveMatchListener unsubscribes l from match results.
func (c *Controller) RemoveMatchListener(l MatchListener) { c.matchListeners.remove(l) }

// AddFinishListener subscribes l to finished rounds.
func (c *Controller) AddFinishListener(l FinishListener) { c.finishListeners.add(l) }

// RemoveFinishListener unsubscribes l from finished rounds.
func (c *Controller) RemoveFinishListener(l FinishListener) { c.finishListeners.remove(l) }

// AddPairsListener observes changes of the pairs-found count.
func (c *Controller) AddPairsListener(l CountListener) { c.pairsListeners.add(l) }

// Phase reports where the turn state machine currently is.
func (c *Controller) Phase() Phase {
	switch {
	case c.processing:
		return Evaluating
	case c.first != nil:
		return OneRevealed
	default:
		return Idle
	}
}

// Processing is true while a match evaluation is pending.
func (c *Controller) Processing() bool { return c.processing }

// PairsFound is the number of pairs matched in the current round.
func (c *Controller) PairsFound() int { return c.pairsFound }

// TotalPairs is the number of pairs on the board.
func (c *Controller) TotalPairs() int { return c.totalPairs }

// Finished reports whether every pair of the current round has been found.
func (c *Controller) Finished() bool { return c.pairsFound == c.totalPairs }

// VetoCardStateChange rejects reveals that the turn rules do not allow.
// Controller-initiated transitions (settling a match) are never rejected.
func (c *Controller) VetoCardStateChange(ch StateChange) error {
	if ch.Old == Removed {
		return veto(ch.Card, "card is removed from the game")
	}
	if ch.Old != Hidden || ch.New != Revealed {
		return nil
	}
	switch {
	case c.processing:
		return veto(ch.Card, "wait for the pair check to complete")
	case c.first != nil && c.second != nil:
		return veto(ch.Card, "only two cards may be revealed at a time")
	case c.first == ch.Card:
		return veto(ch.Card, "card is already revealed")
	}
	return nil
}

// CardStateChanged records revealed cards and starts the evaluation when the
// second distinct card comes up.
func (c *Controller) CardStateChanged(ch StateChange) {
	if ch.New != Revealed {
		return
	}
	if c.processing {
		slog.Error("card revealed during evaluation", "tag", "invariant", "index", ch.Card.Index())
		return
	}
	switch {
	case c.first == nil:
		c.first = ch.Card
	case c.second == nil && ch.Card != c.first:
		c.second = ch.Card
		c.processing = true
		round := c.round
		c.sched.Schedule(c.delay, func() error { return c.evaluate(round) })
	}
}

func (c *Controller) evaluate(round uint64) error {
	if round != c.round {
		slog.Debug("dropping evaluation from an earlier round", "tag", "game")
		return nil
	}
	if c.first == nil || c.second == nil {
		c.processing = false
		return fmt.Errorf("%w: evaluation without two revealed cards", ErrInvariant)
	}
	match := c.first.Value() == c.second.Value()
	finished := false
	if match {
		if c.pairsFound >= c.totalPairs {
			c.first, c.second = nil, nil
			c.processing = false
			return fmt.Errorf("%w: match found after all %d pairs", ErrInvariant, c.totalPairs)
		}
		old := c.pairsFound
		c.pairsFound++
		c.firePairs(old, c.pairsFound)
		finished = c.pairsFound == c.totalPairs
	}
	slog.Debug("pair evaluated", "tag", "game",
		"first", c.first.Index(), "second", c.second.Index(), "match", match)

	c.first, c.second = nil, nil
	c.processing = false

	var errs []error
	ev := MatchedEvent{Match: match}
	for _, l := range c.matchListeners.snapshot() {
		if err := l.MatchResult(ev); err != nil {
			errs = append(errs, err)
		}
	}
	if finished {
		fin := FinishedEvent{Pairs: c.totalPairs}
		for _, l := range c.finishListeners.snapshot() {
			l.GameFinished(fin)
		}
	}
	return errors.Join(errs...)
}

// ShufflePerformed resets the turn state for a new round.
func (c *Controller) ShufflePerformed(ShuffleEvent) {
	c.round++
	old := c.pairsFound
	c.pairsFound = 0
	c.first, c.second = nil, nil
	c.processing = false
	if old != 0 {
		c.firePairs(old, 0)
	}
}

func (c *Controller) firePairs(old, new int) {
	for _, l := range c.pairsListeners.snapshot() {
		l.CountChanged(old, new)
	}
}
