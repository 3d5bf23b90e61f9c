package ws

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"matching-pairs/auth"
	"matching-pairs/game"
	"matching-pairs/wsutil"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Client is a middleman between the websocket connection and the hub.
// Name, UserID and Session are only touched by the read pump and, after it
// unregisters, by the hub.
type Client struct {
	Hub     *Hub
	Conn    *websocket.Conn
	Send    chan []byte
	Name    string
	UserID  string
	Session *game.Session

	authed bool
}

// ReadPump pumps messages from the websocket connection to the hub.
// It runs in its own goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read error", "tag", "ws", "err", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump pumps messages from the send channel to the websocket connection.
// It runs in its own goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var envelope InboundEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.sendError("Invalid message format.")
		return
	}

	switch envelope.Type {
	case "auth":
		c.handleAuth(envelope.Raw)
	case "start":
		c.handleStart(envelope.Raw)
	case "reveal":
		c.handleReveal(envelope.Raw)
	case "shuffle":
		c.post(game.Action{Type: game.ActionShuffle})
	default:
		c.sendError("Unknown message type: " + envelope.Type)
	}
}

func (c *Client) handleAuth(raw json.RawMessage) {
	var msg AuthMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Token == "" {
		c.sendError("Invalid auth message.")
		return
	}
	if c.Hub.Config.AuthBaseURL == "" {
		c.sendError("Server auth not configured.")
		return
	}
	claims, err := c.Hub.ValidateToken(msg.Token)
	if err != nil {
		slog.Debug("token rejected", "tag", "ws", "err", err)
		c.sendError("Invalid or expired token.")
		return
	}
	c.authed = true
	c.UserID = auth.UserIDFromClaims(claims)
	c.Name = auth.NameFromClaims(claims, c.Hub.Config.MaxNameLength)
	c.sendJSON(AuthOKMsg{Type: "auth_ok", Name: c.Name})
}

func (c *Client) handleStart(raw json.RawMessage) {
	var msg StartMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid start message.")
		return
	}
	if c.Hub.Config.AuthBaseURL != "" && !c.authed {
		c.sendError("Authentication required.")
		return
	}
	if c.Session != nil {
		select {
		case <-c.Session.Done:
		default:
			c.sendError("Session already started.")
			return
		}
	}

	maxLen := c.Hub.Config.MaxNameLength
	name := strings.TrimSpace(msg.Name)
	switch {
	case name == "" && c.Name != "":
		name = c.Name
	case name == "":
		name = auth.DefaultName
	case utf8.RuneCountInString(name) > maxLen:
		c.sendError("Name must be between 1 and " + strconv.Itoa(maxLen) + " characters.")
		return
	}
	c.Name = name

	if err := c.Hub.Lobby.Start(c); err != nil {
		slog.Error("starting session", "tag", "ws", "err", err)
		c.sendError("Could not start a session.")
	}
}

func (c *Client) handleReveal(raw json.RawMessage) {
	var msg RevealMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Index == nil {
		c.sendError("Invalid reveal message.")
		return
	}
	c.post(game.Action{Type: game.ActionReveal, Index: *msg.Index})
}

// post forwards an action to the client's session.
func (c *Client) post(action game.Action) {
	if c.Session == nil {
		c.sendError("You are not in a game.")
		return
	}
	select {
	case c.Session.Actions <- action:
	case <-c.Session.Done:
		c.sendError("You are not in a game.")
	}
}

func (c *Client) sendError(message string) {
	c.sendJSON(ErrorMsg{Type: "error", Message: message})
}

func (c *Client) sendJSON(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshaling message", "tag", "ws", "err", err)
		return
	}
	wsutil.SafeSend(c.Send, data)
}
