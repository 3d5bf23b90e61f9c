package lobby

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"matching-pairs/config"
	"matching-pairs/game"
	"matching-pairs/storage"
	"matching-pairs/ws"
	"matching-pairs/wsutil"
)

// persistTimeout bounds the storage and publish work for one round.
const persistTimeout = 5 * time.Second

// RoundPublisher publishes completed rounds.
type RoundPublisher interface {
	PublishRoundFinished(roundID string, r game.RoundResult) error
}

// Lobby creates one session per started client and records finished rounds.
type Lobby struct {
	ctx       context.Context
	config    *config.Config
	store     storage.RoundStore
	publisher RoundPublisher

	mu       sync.Mutex
	sessions map[string]*game.Session

	running sync.WaitGroup
	pending sync.WaitGroup
}

// New creates a lobby. Sessions stop when ctx is cancelled. store and
// publisher may be nil.
func New(ctx context.Context, cfg *config.Config, store storage.RoundStore, publisher RoundPublisher) *Lobby {
	return &Lobby{
		ctx:       ctx,
		config:    cfg,
		store:     store,
		publisher: publisher,
		sessions:  make(map[string]*game.Session),
	}
}

// Start implements ws.Lobby.
func (l *Lobby) Start(c *ws.Client) error {
	id := uuid.NewString()
	s, err := game.NewSession(id, l.config, c.Send)
	if err != nil {
		return err
	}
	s.UserID = c.UserID
	s.PlayerName = c.Name
	s.OnRoundFinished = l.recordRound
	c.Session = s

	l.mu.Lock()
	l.sessions[id] = s
	l.mu.Unlock()

	slog.Info("session started", "tag", "lobby", "session", id, "player", c.Name, "pairs", l.config.Pairs)

	data, err := json.Marshal(ws.SessionStartedMsg{
		Type:      "session_started",
		SessionID: id,
		Name:      c.Name,
		Pairs:     l.config.Pairs,
		Cards:     2 * l.config.Pairs,
	})
	if err == nil {
		wsutil.SafeSend(c.Send, data)
	}

	l.running.Add(1)
	go func() {
		defer l.running.Done()
		s.Run(l.ctx)
		l.mu.Lock()
		delete(l.sessions, id)
		l.mu.Unlock()
		slog.Info("session ended", "tag", "lobby", "session", id, "violations", s.Violations())
	}()
	return nil
}

// ActiveSessions is the number of running sessions.
func (l *Lobby) ActiveSessions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}

// Wait blocks until every session has ended and every recorded round has
// been stored and published. Sessions end when the lobby's context is
// cancelled.
func (l *Lobby) Wait() {
	l.running.Wait()
	l.pending.Wait()
}

// recordRound runs on the session goroutine, so the work is handed off.
func (l *Lobby) recordRound(r game.RoundResult) {
	if l.store == nil && l.publisher == nil {
		return
	}
	l.pending.Add(1)
	go func() {
		defer l.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		var roundID string
		if l.store != nil {
			id, err := l.store.InsertRound(ctx, storage.Round{
				SessionID:  r.SessionID,
				UserID:     r.UserID,
				PlayerName: r.PlayerName,
				Round:      r.Round,
				Pairs:      r.Pairs,
				Moves:      r.Moves,
				BestScore:  r.BestScore,
				NewBest:    r.NewBest,
				FinishedAt: r.FinishedAt,
			})
			if err != nil {
				slog.Error("saving round", "tag", "storage", "session", r.SessionID, "err", err)
			}
			roundID = id
		}
		if l.publisher != nil {
			if err := l.publisher.PublishRoundFinished(roundID, r); err != nil {
				slog.Error("publishing round", "tag", "events", "session", r.SessionID, "err", err)
			}
		}
	}()
}
