package game

// MoveCounter counts successful reveals in the current round.
type MoveCounter struct {
	count     int
	listeners listeners[CountListener]
}

// NewMoveCounter returns a counter at zero.
func NewMoveCounter() *MoveCounter {
	return &MoveCounter{}
}

// Count is the number of reveals since the last shuffle.
func (m *MoveCounter) Count() int { return m.count }

// AddCountListener observes flip count changes.
func (m *MoveCounter) AddCountListener(l CountListener) { m.listeners.add(l) }

// CardStateChanged counts every transition into Revealed.
func (m *MoveCounter) CardStateChanged(ch StateChange) {
	if ch.New != Revealed {
		return
	}
	m.set(m.count + 1)
}

// ShufflePerformed resets the count.
func (m *MoveCounter) ShufflePerformed(ShuffleEvent) {
	m.set(0)
}

func (m *MoveCounter) set(n int) {
	old := m.count
	m.count = n
	if old == n {
		return
	}
	for _, l := range m.listeners.snapshot() {
		l.CountChanged(old, n)
	}
}
