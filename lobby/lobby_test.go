package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"matching-pairs/config"
	"matching-pairs/game"
	"matching-pairs/storage"
	"matching-pairs/ws"
)

type memStore struct {
	mu     sync.Mutex
	rounds []storage.Round
	err    error
}

func (m *memStore) InsertRound(_ context.Context, r storage.Round) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.rounds = append(m.rounds, r)
	return "round-1", nil
}

func (m *memStore) ListByUserID(context.Context, string) ([]storage.RoundRecord, error) {
	return nil, nil
}

func (m *memStore) ListLeaderboard(context.Context, int, int, int) ([]storage.LeaderboardEntry, error) {
	return nil, nil
}

func (m *memStore) Close() {}

type memPublisher struct {
	mu  sync.Mutex
	ids []string
	got []game.RoundResult
}

func (p *memPublisher) PublishRoundFinished(id string, r game.RoundResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
	p.got = append(p.got, r)
	return nil
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Pairs = 1
	cfg.MatchDelayMS = 10
	cfg.ShuffleSeed = 1
	return cfg
}

func readType(t *testing.T, ch chan []byte, msgType string) map[string]interface{} {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case data := <-ch:
			var m map[string]interface{}
			if err := json.Unmarshal(data, &m); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if m["type"] == msgType {
				return m
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q", msgType)
			return nil
		}
	}
}

func TestLobbyStartSendsSessionStarted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := New(ctx, testConfig(), nil, nil)
	c := &ws.Client{Send: make(chan []byte, 64), Name: "Ada"}

	if err := l.Start(c); err != nil {
		t.Fatal(err)
	}
	if c.Session == nil {
		t.Fatal("expected client session to be set")
	}

	var first map[string]interface{}
	if err := json.Unmarshal(<-c.Send, &first); err != nil {
		t.Fatal(err)
	}
	if first["type"] != "session_started" {
		t.Fatalf("first message should be session_started, got %v", first["type"])
	}
	if first["sessionId"] != c.Session.ID || first["name"] != "Ada" {
		t.Errorf("unexpected session_started %v", first)
	}
	if int(first["cards"].(float64)) != 2 {
		t.Errorf("expected 2 cards, got %v", first["cards"])
	}
	readType(t, c.Send, "game_state")

	if n := l.ActiveSessions(); n != 1 {
		t.Errorf("expected 1 active session, got %d", n)
	}
	cancel()
	<-c.Session.Done
}

func TestLobbyStartRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Pairs = 0
	l := New(context.Background(), cfg, nil, nil)
	c := &ws.Client{Send: make(chan []byte, 4)}
	if err := l.Start(c); err == nil {
		t.Fatal("expected error")
	}
	if c.Session != nil {
		t.Error("no session should be assigned on error")
	}
}

func TestLobbyRecordsFinishedRound(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &memStore{}
	pub := &memPublisher{}
	l := New(ctx, testConfig(), store, pub)
	c := &ws.Client{Send: make(chan []byte, 64), Name: "Ada", UserID: "u1"}

	if err := l.Start(c); err != nil {
		t.Fatal(err)
	}
	readType(t, c.Send, "game_state")
	c.Session.Actions <- game.Action{Type: game.ActionReveal, Index: 0}
	c.Session.Actions <- game.Action{Type: game.ActionReveal, Index: 1}
	finished := readType(t, c.Send, "game_finished")
	if int(finished["moves"].(float64)) != 2 {
		t.Errorf("expected 2 moves, got %v", finished["moves"])
	}

	c.Session.Actions <- game.Action{Type: game.ActionDisconnect}
	<-c.Session.Done
	l.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.rounds) != 1 {
		t.Fatalf("expected 1 stored round, got %d", len(store.rounds))
	}
	r := store.rounds[0]
	if r.UserID != "u1" || r.PlayerName != "Ada" || r.Moves != 2 || r.Pairs != 1 || !r.NewBest {
		t.Errorf("unexpected stored round %+v", r)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.ids) != 1 || pub.ids[0] != "round-1" {
		t.Errorf("expected publish with stored round id, got %v", pub.ids)
	}
}

func TestLobbyPublishesWhenStoreFails(t *testing.T) {
	store := &memStore{err: errors.New("db down")}
	pub := &memPublisher{}
	l := New(context.Background(), testConfig(), store, pub)

	l.recordRound(game.RoundResult{SessionID: "s1", Moves: 4})
	l.Wait()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.got) != 1 || pub.ids[0] != "" {
		t.Errorf("expected one publish without round id, got %v / %v", pub.got, pub.ids)
	}
}

func TestLobbySessionIDsAreUnique(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := New(ctx, testConfig(), nil, nil)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		c := &ws.Client{Send: make(chan []byte, 64)}
		if err := l.Start(c); err != nil {
			t.Fatal(err)
		}
		if seen[c.Session.ID] {
			t.Fatalf("duplicate session id %s", c.Session.ID)
		}
		seen[c.Session.ID] = true
	}
}

func TestLobbyWaitCoversRunningSessions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := &memStore{}
	l := New(ctx, testConfig(), store, nil)
	c := &ws.Client{Send: make(chan []byte, 64), Name: "Ada"}

	if err := l.Start(c); err != nil {
		t.Fatal(err)
	}
	readType(t, c.Send, "game_state")
	c.Session.Actions <- game.Action{Type: game.ActionReveal, Index: 0}
	c.Session.Actions <- game.Action{Type: game.ActionReveal, Index: 1}
	// game_finished goes out before the round is handed to the store.
	readType(t, c.Send, "game_finished")

	cancel()
	l.Wait()

	select {
	case <-c.Session.Done:
	default:
		t.Fatal("Wait returned before the session ended")
	}
	if n := l.ActiveSessions(); n != 0 {
		t.Errorf("expected no active sessions after Wait, got %d", n)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.rounds) != 1 {
		t.Errorf("expected the finished round to be stored before Wait returns, got %d", len(store.rounds))
	}
}
