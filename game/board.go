package game

import (
	"fmt"
	"math/rand"
)

// Gate tells the board whether the turn controller is mid-evaluation.
type Gate interface {
	Processing() bool
}

// Board owns the cards, generates each round's value assignment, and routes
// reveal intents to the cards.
type Board struct {
	pairs int
	rng   *rand.Rand
	gate  Gate
	cards []*Card

	shuffleListeners listeners[ShuffleListener]
}

// NewBoard creates 2*pairs hidden cards. Every card is registered as a shuffle
// listener; further listeners are appended after them.
func NewBoard(pairs int, rng *rand.Rand, gate Gate) (*Board, error) {
	if gate == nil {
		return nil, fmt.Errorf("%w: board needs a gate", ErrMissingCollaborator)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: board needs a random source", ErrMissingCollaborator)
	}
	if pairs < 1 {
		return nil, fmt.Errorf("%w: pairs must be at least 1, got %d", ErrInvalidAssignment, pairs)
	}
	b := &Board{
		pairs: pairs,
		rng:   rng,
		gate:  gate,
		cards: make([]*Card, 2*pairs),
	}
	for i := range b.cards {
		b.cards[i] = NewCard(i)
		b.shuffleListeners.add(b.cards[i])
	}
	return b, nil
}

// GenerateValues returns each value in 1..n exactly twice in uniformly random order.
func GenerateValues(n int, rng *rand.Rand) []int {
	values := make([]int, 0, 2*n)
	for v := 1; v <= n; v++ {
		values = append(values, v, v)
	}
	rng.Shuffle(len(values), func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})
	return values
}

// ValidateAssignment checks that values holds each of 1..n exactly twice.
func ValidateAssignment(values []int, n int) error {
	if len(values) != 2*n {
		return fmt.Errorf("%w: expected %d values, got %d", ErrInvalidAssignment, 2*n, len(values))
	}
	counts := make(map[int]int, n)
	for _, v := range values {
		if v < 1 || v > n {
			return fmt.Errorf("%w: value %d outside 1..%d", ErrInvalidAssignment, v, n)
		}
		counts[v]++
	}
	for v, c := range counts {
		if c != 2 {
			return fmt.Errorf("%w: value %d appears %d times", ErrInvalidAssignment, v, c)
		}
	}
	return nil
}

// AddShuffleListener appends l after the cards and any earlier listeners.
func (b *Board) AddShuffleListener(l ShuffleListener) { b.shuffleListeners.add(l) }

// RemoveShuffleListener unsubscribes l from round resets.
func (b *Board) RemoveShuffleListener(l ShuffleListener) { b.shuffleListeners.remove(l) }

// Shuffle starts a new round with a fresh random assignment and returns it.
func (b *Board) Shuffle() []int {
	values := GenerateValues(b.pairs, b.rng)
	b.broadcast(values)
	return values
}

// ShuffleWith starts a new round with an explicit assignment.
func (b *Board) ShuffleWith(values []int) error {
	if err := ValidateAssignment(values, b.pairs); err != nil {
		return err
	}
	b.broadcast(append([]int(nil), values...))
	return nil
}

func (b *Board) broadcast(values []int) {
	ev := ShuffleEvent{Values: values}
	for _, l := range b.shuffleListeners.snapshot() {
		l.ShufflePerformed(ev)
	}
}

// Click routes a user's reveal intent. Intents on cards that are not hidden, or
// arriving while the controller evaluates, are dropped with ErrClickIgnored.
func (b *Board) Click(index int) error {
	if index < 0 || index >= len(b.cards) {
		return fmt.Errorf("%w: %d", ErrCardIndexOutOfRange, index)
	}
	card := b.cards[index]
	if b.gate.Processing() || card.State() != Hidden {
		return ErrClickIgnored
	}
	return card.Reveal()
}

// Pairs is N.
func (b *Board) Pairs() int { return b.pairs }

// Cards returns the cards in index order.
func (b *Board) Cards() []*Card { return b.cards }

// Card returns the card at index, or nil.
func (b *Board) Card(index int) *Card {
	if index < 0 || index >= len(b.cards) {
		return nil
	}
	return b.cards[index]
}

// Values returns the current assignment as seen by the cards.
func (b *Board) Values() []int {
	values := make([]int, len(b.cards))
	for i, c := range b.cards {
		values[i] = c.Value()
	}
	return values
}

// AllRemoved returns true if every card on the board is in the Removed state.
func (b *Board) AllRemoved() bool {
	for _, card := range b.cards {
		if card.State() != Removed {
			return false
		}
	}
	return true
}
