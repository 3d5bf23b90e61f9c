package game

import (
	"fmt"
	"log/slog"
)

// CardState represents the current state of a card.
type CardState int

const (
	Hidden CardState = iota
	Revealed
	Removed
)

// String returns the string representation of a CardState.
func (cs CardState) String() string {
	switch cs {
	case Hidden:
		return "hidden"
	case Revealed:
		return "revealed"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// legalTransition reports whether a card may move from old to new outside a shuffle.
func legalTransition(old, new CardState) bool {
	switch old {
	case Hidden:
		return new == Revealed
	case Revealed:
		return new == Removed || new == Hidden
	}
	return false
}

// Card is a single tile. Its state is both bound (listeners see every committed
// change) and constrained (vetoers may reject a proposed change).
//
// A Card is not safe for concurrent use; a Session serializes all access.
type Card struct {
	index int
	value int
	state CardState

	stateListeners listeners[StateListener]
	vetoers        listeners[Vetoer]
}

// NewCard creates a hidden card with the given board index.
func NewCard(index int) *Card {
	return &Card{index: index, state: Hidden}
}

// Index is the card's identity on the board.
func (c *Card) Index() int { return c.index }

// Value is the card's face value for the current round.
func (c *Card) Value() int { return c.value }

// State is the card's current visibility state.
func (c *Card) State() CardState { return c.state }

// AddStateListener subscribes l to committed state changes.
func (c *Card) AddStateListener(l StateListener) { c.stateListeners.add(l) }

// RemoveStateListener unsubscribes l. Func adapters cannot be removed.
func (c *Card) RemoveStateListener(l StateListener) { c.stateListeners.remove(l) }

// AddVetoer lets v reject proposed state changes.
func (c *Card) AddVetoer(v Vetoer) { c.vetoers.add(v) }

// RemoveVetoer drops v from the vetoers.
func (c *Card) RemoveVetoer(v Vetoer) { c.vetoers.remove(v) }

// Reveal requests Hidden -> Revealed. A non-nil error means the reveal was rejected
// and the card is unchanged; errors.Is(err, ErrVetoed) holds for every rejection.
func (c *Card) Reveal() error {
	if c.state != Hidden {
		return veto(c, "card is "+c.state.String())
	}
	return c.setState(Revealed)
}

func (c *Card) setState(next CardState) error {
	ch := StateChange{Card: c, Old: c.state, New: next}
	if !legalTransition(ch.Old, ch.New) {
		return fmt.Errorf("%w: card %d %s -> %s", ErrIllegalTransition, c.index, ch.Old, ch.New)
	}
	for _, v := range c.vetoers.snapshot() {
		if err := v.VetoCardStateChange(ch); err != nil {
			return err
		}
	}
	c.state = next
	c.fireStateChanged(ch)
	return nil
}

func (c *Card) fireStateChanged(ch StateChange) {
	for _, l := range c.stateListeners.snapshot() {
		l.CardStateChanged(ch)
	}
}

// ShufflePerformed adopts this card's value from the assignment and forces Hidden.
// Vetoers are not consulted.
func (c *Card) ShufflePerformed(ev ShuffleEvent) {
	if c.index < len(ev.Values) {
		c.value = ev.Values[c.index]
	} else {
		slog.Error("shuffle assignment does not cover card", "tag", "invariant",
			"index", c.index, "values", len(ev.Values))
	}
	old := c.state
	c.state = Hidden
	if old != Hidden {
		c.fireStateChanged(StateChange{Card: c, Old: old, New: Hidden})
	}
}

// MatchResult settles a revealed card: Removed on a match, Hidden otherwise.
// Cards that are not revealed ignore the event. The transition is controller
// initiated, so a veto here is reported as ErrInvariant.
func (c *Card) MatchResult(ev MatchedEvent) error {
	if c.state != Revealed {
		return nil
	}
	next := Hidden
	if ev.Match {
		next = Removed
	}
	if err := c.setState(next); err != nil {
		return fmt.Errorf("%w: settling card %d: %w", ErrInvariant, c.index, err)
	}
	return nil
}
