package game

import "sync"

// StateChange describes a card moving from Old to New. For a vetoer it is a proposal;
// for a state listener it has already happened.
type StateChange struct {
	Card *Card
	Old  CardState
	New  CardState
}

// ShuffleEvent carries a new round's value assignment, one value per card index.
type ShuffleEvent struct {
	Values []int
}

// MatchedEvent is the outcome of evaluating two revealed cards.
type MatchedEvent struct {
	Match bool
}

// FinishedEvent is fired once per round when the last pair is found.
type FinishedEvent struct {
	Pairs int
}

// StateListener observes committed card state changes.
type StateListener interface {
	CardStateChanged(ch StateChange)
}

// Vetoer may reject a proposed card state change by returning a non-nil error.
type Vetoer interface {
	VetoCardStateChange(ch StateChange) error
}

// ShuffleListener receives round resets.
type ShuffleListener interface {
	ShufflePerformed(ev ShuffleEvent)
}

// MatchListener receives match results. A returned error is an invariant violation.
type MatchListener interface {
	MatchResult(ev MatchedEvent) error
}

// FinishListener is notified when a round completes.
type FinishListener interface {
	GameFinished(ev FinishedEvent)
}

// CountListener observes an integer property such as the flip count or pairs found.
type CountListener interface {
	CountChanged(old, new int)
}

// StateListenerFunc adapts a function to StateListener.
type StateListenerFunc func(ch StateChange)

func (f StateListenerFunc) CardStateChanged(ch StateChange) { f(ch) }

// FinishListenerFunc adapts a function to FinishListener.
type FinishListenerFunc func(ev FinishedEvent)

func (f FinishListenerFunc) GameFinished(ev FinishedEvent) { f(ev) }

// CountListenerFunc adapts a function to CountListener.
type CountListenerFunc func(old, new int)

func (f CountListenerFunc) CountChanged(old, new int) { f(old, new) }

// listeners is an ordered, copy-on-write subscriber list. Dispatch iterates a
// snapshot, so add and remove may be called from inside a callback.
// Func adapters can be added but not removed: func values are not comparable.
type listeners[T comparable] struct {
	mu    sync.Mutex
	items []T
}

func (l *listeners[T]) add(item T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := make([]T, len(l.items), len(l.items)+1)
	copy(next, l.items)
	l.items = append(next, item)
}

func (l *listeners[T]) remove(item T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, it := range l.items {
		if it == item {
			next := make([]T, 0, len(l.items)-1)
			next = append(next, l.items[:i]...)
			l.items = append(next, l.items[i+1:]...)
			return
		}
	}
}

func (l *listeners[T]) snapshot() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.items
}

func (l *listeners[T]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}
