package game

import (
	"errors"
	"fmt"
)

var (
	// ErrVetoed marks a rejected reveal. It is an expected outcome, not a failure.
	ErrVetoed = errors.New("state change vetoed")
	// ErrClickIgnored is returned by Board.Click when the UI-level gate drops the intent.
	ErrClickIgnored = errors.New("click ignored")
	// ErrCardIndexOutOfRange is returned for a reveal intent naming no card.
	ErrCardIndexOutOfRange = errors.New("card index out of range")

	// ErrInvariant signals a programming error inside the game core.
	ErrInvariant = errors.New("invariant violation")
	// ErrIllegalTransition is returned for a card transition outside
	// Hidden->Revealed, Revealed->Removed and Revealed->Hidden.
	ErrIllegalTransition = errors.New("illegal card state transition")

	// ErrMissingCollaborator is returned when a component is built without a required dependency.
	ErrMissingCollaborator = errors.New("missing collaborator")
	// ErrInvalidAssignment is returned by ShuffleWith for a value list that is not N pairs.
	ErrInvalidAssignment = errors.New("invalid value assignment")
)

// VetoError carries the reason a listener rejected a proposed card state change.
type VetoError struct {
	Index  int
	Reason string
}

func (e *VetoError) Error() string {
	return fmt.Sprintf("card %d: %s", e.Index, e.Reason)
}

// Is lets errors.Is(err, ErrVetoed) match any VetoError.
func (e *VetoError) Is(target error) bool {
	return target == ErrVetoed
}

func veto(c *Card, reason string) error {
	return &VetoError{Index: c.Index(), Reason: reason}
}
