package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"matching-pairs/auth"
	"matching-pairs/config"
	"matching-pairs/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for development; restrict in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Lobby creates sessions for clients.
type Lobby interface {
	// Start creates a session for c, assigns c.Session and runs it.
	Start(c *Client) error
}

// TokenValidator validates a client token and returns its claims.
type TokenValidator func(token string) (jwt.MapClaims, error)

// Hub maintains the set of active clients.
type Hub struct {
	Clients       map[*Client]bool
	Register      chan *Client
	Unregister    chan *Client
	Lobby         Lobby
	Config        *config.Config
	ValidateToken TokenValidator
}

// NewHub creates a new Hub. Tokens are validated against cfg.AuthBaseURL.
func NewHub(cfg *config.Config, lobby Lobby) *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Lobby:      lobby,
		Config:     cfg,
		ValidateToken: func(token string) (jwt.MapClaims, error) {
			return auth.ValidateToken(cfg.AuthBaseURL, token)
		},
	}
}

// Run starts the hub's main loop. Should be run as a goroutine.
// When ctx is cancelled, Run returns and no longer accepts registrations.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received, stopping", "tag", "ws")
			return
		case client := <-h.Register:
			h.Clients[client] = true
			slog.Debug("client connected", "tag", "ws", "clients", len(h.Clients))

		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				slog.Debug("client disconnected", "tag", "ws", "clients", len(h.Clients))
				if client.Session == nil {
					close(client.Send)
					continue
				}
				// The session writes to Send until it is done.
				go func(c *Client, s *game.Session) {
					disconnect(s)
					<-s.Done
					close(c.Send)
				}(client, client.Session)
			}
		}
	}
}

// disconnect stops a session whose client went away.
func disconnect(s *game.Session) {
	select {
	case s.Actions <- game.Action{Type: game.ActionDisconnect}:
	case <-s.Done:
	}
}

// ServeWS handles WebSocket upgrade requests and creates a new Client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "tag", "ws", "err", err)
		return
	}

	client := &Client{
		Hub:  h,
		Conn: conn,
		Send: make(chan []byte, 256),
	}

	h.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
