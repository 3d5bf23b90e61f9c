package game

// CardView is the client-facing representation of a card.
// Value is only included while the card is revealed.
type CardView struct {
	Index int    `json:"index"`
	Value *int   `json:"value,omitempty"`
	State string `json:"state"`
}

// StateMsg is the full session state sent to the client after every change.
type StateMsg struct {
	Type       string     `json:"type"`
	SessionID  string     `json:"sessionId"`
	Round      int        `json:"round"`
	Cards      []CardView `json:"cards"`
	PairsFound int        `json:"pairsFound"`
	TotalPairs int        `json:"totalPairs"`
	Moves      int        `json:"moves"`
	BestScore  *int       `json:"bestScore"` // null until a round completes
	Phase      string     `json:"phase"`
}

// GameFinishedMsg is sent once when the last pair of a round is found.
type GameFinishedMsg struct {
	Type      string `json:"type"`
	Round     int    `json:"round"`
	Moves     int    `json:"moves"`
	BestScore int    `json:"bestScore"`
	NewBest   bool   `json:"newBest"`
}

// BuildCardViews constructs the client-facing card list.
// Hidden and removed cards do not expose their value.
func BuildCardViews(board *Board) []CardView {
	views := make([]CardView, len(board.Cards()))
	for i, card := range board.Cards() {
		cv := CardView{
			Index: card.Index(),
			State: card.State().String(),
		}
		if card.State() == Revealed {
			v := card.Value()
			cv.Value = &v
		}
		views[i] = cv
	}
	return views
}

// BuildState returns the current state message for the session's client.
func (s *Session) BuildState() StateMsg {
	msg := StateMsg{
		Type:       "game_state",
		SessionID:  s.ID,
		Round:      s.round,
		Cards:      BuildCardViews(s.Board),
		PairsFound: s.Controller.PairsFound(),
		TotalPairs: s.Controller.TotalPairs(),
		Moves:      s.Counter.Count(),
		Phase:      s.Controller.Phase().String(),
	}
	if best, ok := s.Best.Best(); ok {
		msg.BestScore = &best
	}
	return msg
}
