package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"matching-pairs/auth"
	"matching-pairs/config"
	"matching-pairs/storage"
)

const bearerPrefix = "Bearer "

// SessionCounter reports running sessions for the health check.
type SessionCounter interface {
	ActiveSessions() int
}

// Handler holds dependencies for API handlers.
type Handler struct {
	Config        *config.Config
	Store         storage.RoundStore
	Sessions      SessionCounter
	ValidateToken func(token string) (jwt.MapClaims, error)
}

// NewHandler creates a new API handler. store and sessions may be nil.
func NewHandler(cfg *config.Config, store storage.RoundStore, sessions SessionCounter) *Handler {
	return &Handler{
		Config:   cfg,
		Store:    store,
		Sessions: sessions,
		ValidateToken: func(token string) (jwt.MapClaims, error) {
			return auth.ValidateToken(cfg.AuthBaseURL, token)
		},
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/history", h.History)
	mux.HandleFunc("/api/leaderboard", h.Leaderboard)
	mux.HandleFunc("/healthz", h.Healthz)
}

// CORS sets CORS headers on the response. Call before writing body.
func CORS(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// extractUserID validates the Authorization header and returns the user ID, or empty string on failure.
func (h *Handler) extractUserID(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return ""
	}
	token := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if token == "" {
		return ""
	}
	claims, err := h.ValidateToken(token)
	if err != nil {
		slog.Debug("token rejected", "tag", "api", "err", err)
		return ""
	}
	return auth.UserIDFromClaims(claims)
}

// History returns the completed rounds of the authenticated user.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := h.extractUserID(r)
	if userID == "" {
		http.Error(w, "authorization required", http.StatusUnauthorized)
		return
	}

	list := []storage.RoundRecord{}
	if h.Store != nil {
		var err error
		list, err = h.Store.ListByUserID(r.Context(), userID)
		if err != nil {
			slog.Error("listing history", "tag", "api", "err", err)
			http.Error(w, "failed to load history", http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, list)
}

// LeaderboardResponse is the JSON structure for /api/leaderboard.
type LeaderboardResponse struct {
	Pairs   int                        `json:"pairs"`
	Entries []storage.LeaderboardEntry `json:"entries"`
}

// Leaderboard returns the best move counts per user. The board size defaults
// to the configured pair count; pairs=0 ranks every size.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	pairs := h.Config.Pairs
	if v := q.Get("pairs"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid pairs", http.StatusBadRequest)
			return
		}
		pairs = n
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, offset = storage.ClampPage(limit, offset)

	entries := []storage.LeaderboardEntry{}
	if h.Store != nil {
		var err error
		entries, err = h.Store.ListLeaderboard(r.Context(), pairs, limit, offset)
		if err != nil {
			slog.Error("listing leaderboard", "tag", "api", "err", err)
			http.Error(w, "failed to load leaderboard", http.StatusInternalServerError)
			return
		}
	}

	if userID := h.extractUserID(r); userID != "" {
		for i := range entries {
			if entries[i].UserID == userID {
				entries[i].IsCurrentUser = true
			}
		}
	}
	writeJSON(w, LeaderboardResponse{Pairs: pairs, Entries: entries})
}

// Healthz reports liveness and the number of running sessions.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	n := 0
	if h.Sessions != nil {
		n = h.Sessions.ActiveSessions()
	}
	writeJSON(w, map[string]any{"status": "ok", "sessions": n})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "tag", "api", "err", err)
	}
}
