package game

import (
	"math/rand"
	"testing"
	"time"
)

// manualScheduler collects scheduled tasks; tests run them explicitly.
type manualScheduler struct {
	tasks  []func() error
	delays []time.Duration
}

func (m *manualScheduler) Schedule(d time.Duration, task func() error) {
	m.tasks = append(m.tasks, task)
	m.delays = append(m.delays, d)
}

func (m *manualScheduler) pending() int { return len(m.tasks) }

// fire runs every pending task in order and fails the test on an error.
func (m *manualScheduler) fire(t *testing.T) {
	t.Helper()
	for len(m.tasks) > 0 {
		task := m.tasks[0]
		m.tasks = m.tasks[1:]
		if err := task(); err != nil {
			t.Fatalf("scheduled task failed: %v", err)
		}
	}
}

// rig is the wired component set without a session loop.
type rig struct {
	sched    *manualScheduler
	board    *Board
	ctrl     *Controller
	counter  *MoveCounter
	best     *BestScore
	finishes int
}

func newRig(t *testing.T, pairs int) *rig {
	t.Helper()
	r := &rig{sched: &manualScheduler{}}
	var err error
	r.ctrl, err = NewController(pairs, 500*time.Millisecond, r.sched)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	r.board, err = NewBoard(pairs, rand.New(rand.NewSource(1)), r.ctrl)
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	r.counter = NewMoveCounter()
	r.best, err = NewBestScore(r.counter)
	if err != nil {
		t.Fatalf("NewBestScore: %v", err)
	}
	wire(r.board, r.ctrl, r.counter, r.best)
	r.ctrl.AddFinishListener(FinishListenerFunc(func(FinishedEvent) { r.finishes++ }))
	return r
}

func (r *rig) shuffle(t *testing.T, values ...int) {
	t.Helper()
	if err := r.board.ShuffleWith(values); err != nil {
		t.Fatalf("ShuffleWith(%v): %v", values, err)
	}
}

func (r *rig) click(t *testing.T, index int) {
	t.Helper()
	if err := r.board.Click(index); err != nil {
		t.Fatalf("Click(%d): %v", index, err)
	}
}

func (r *rig) states() []CardState {
	out := make([]CardState, len(r.board.Cards()))
	for i, c := range r.board.Cards() {
		out[i] = c.State()
	}
	return out
}
