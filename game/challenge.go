package game

import "fmt"

// Counter is the read side of MoveCounter.
type Counter interface {
	Count() int
}

// BestScore remembers the lowest move count of any completed round.
type BestScore struct {
	counter Counter
	best    int
	set     bool
}

// NewBestScore creates a tracker reading finished rounds' moves from counter.
func NewBestScore(counter Counter) (*BestScore, error) {
	if counter == nil {
		return nil, fmt.Errorf("%w: best score needs a move counter", ErrMissingCollaborator)
	}
	return &BestScore{counter: counter}, nil
}

// Best returns the best score and whether any round has completed.
func (b *BestScore) Best() (int, bool) {
	return b.best, b.set
}

// GameFinished records the counter's value when it beats the current best.
func (b *BestScore) GameFinished(FinishedEvent) {
	moves := b.counter.Count()
	if !b.set || moves < b.best {
		b.best = moves
		b.set = true
	}
}
