package main

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"matching-pairs/config"
)

// setupTestServer starts the full server stack without storage or NATS.
func setupTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	store, publisher := roundSinks(nil, nil)
	handler, _ := newServer(ctx, cfg, store, publisher)
	server := httptest.NewServer(handler)
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return server
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Pairs = 1
	cfg.MatchDelayMS = 20
	cfg.ShuffleSeed = 1
	return cfg
}

// connectWS creates a WebSocket connection to the test server.
func connectWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMsg reads a JSON message from the WebSocket and returns it as a map.
func readMsg(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	var msg map[string]interface{}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to unmarshal: %v\ndata: %s", err, string(data))
	}
	return msg
}

// readUntil skips messages until one of the given type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) map[string]interface{} {
	t.Helper()
	for i := 0; i < 20; i++ {
		if msg := readMsg(t, conn); msg["type"] == msgType {
			return msg
		}
	}
	t.Fatalf("no %q message within 20 reads", msgType)
	return nil
}

// sendMsg sends a JSON message over the WebSocket.
func sendMsg(t *testing.T, conn *websocket.Conn, msg interface{}) {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
}

func TestIntegration_FullRound(t *testing.T) {
	server := setupTestServer(t, testConfig())
	conn := connectWS(t, server)

	sendMsg(t, conn, map[string]string{"type": "start", "name": "Ada"})
	started := readMsg(t, conn)
	if started["type"] != "session_started" {
		t.Fatalf("expected session_started, got %v", started["type"])
	}
	if started["name"] != "Ada" || started["sessionId"] == "" {
		t.Errorf("unexpected session_started %v", started)
	}

	state := readMsg(t, conn)
	if state["type"] != "game_state" {
		t.Fatalf("expected game_state, got %v", state["type"])
	}
	cards := state["cards"].([]interface{})
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
	for _, c := range cards {
		if _, ok := c.(map[string]interface{})["value"]; ok {
			t.Error("hidden card must not expose its value")
		}
	}

	sendMsg(t, conn, map[string]interface{}{"type": "reveal", "index": 0})
	sendMsg(t, conn, map[string]interface{}{"type": "reveal", "index": 1})

	finished := readUntil(t, conn, "game_finished")
	if int(finished["moves"].(float64)) != 2 {
		t.Errorf("expected 2 moves, got %v", finished["moves"])
	}
	if int(finished["bestScore"].(float64)) != 2 || finished["newBest"] != true {
		t.Errorf("expected new best score 2, got %v", finished)
	}

	// A new round resets moves and keeps the best score.
	sendMsg(t, conn, map[string]string{"type": "shuffle"})
	state = readUntil(t, conn, "game_state")
	if int(state["moves"].(float64)) != 0 || int(state["round"].(float64)) != 2 {
		t.Errorf("expected fresh round 2, got %v", state)
	}
	if int(state["bestScore"].(float64)) != 2 {
		t.Errorf("best score should survive a shuffle, got %v", state["bestScore"])
	}
}

func TestIntegration_ProtocolErrors(t *testing.T) {
	server := setupTestServer(t, testConfig())
	conn := connectWS(t, server)

	sendMsg(t, conn, map[string]interface{}{"type": "reveal", "index": 0})
	if msg := readMsg(t, conn); msg["type"] != "error" || msg["message"] != "You are not in a game." {
		t.Errorf("expected not-in-game error, got %v", msg)
	}

	sendMsg(t, conn, map[string]string{"type": "start"})
	readUntil(t, conn, "game_state")

	sendMsg(t, conn, map[string]interface{}{"type": "reveal", "index": 7})
	if msg := readUntil(t, conn, "error"); msg["message"] != "Card index out of bounds." {
		t.Errorf("unexpected error %v", msg["message"])
	}

	sendMsg(t, conn, map[string]string{"type": "start"})
	if msg := readUntil(t, conn, "error"); msg["message"] != "Session already started." {
		t.Errorf("unexpected error %v", msg["message"])
	}
}

func TestIntegration_Healthz(t *testing.T) {
	server := setupTestServer(t, testConfig())
	resp, err := server.Client().Get(server.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected health body %v", body)
	}
}
