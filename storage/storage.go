package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS round_history (
	id          UUID PRIMARY KEY,
	session_id  TEXT NOT NULL,
	user_id     TEXT NOT NULL DEFAULT '',
	player_name TEXT NOT NULL,
	round       INT  NOT NULL,
	pairs       INT  NOT NULL,
	moves       INT  NOT NULL,
	best_score  INT  NOT NULL,
	new_best    BOOLEAN NOT NULL DEFAULT false,
	finished_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_round_history_user ON round_history(user_id);
CREATE INDEX IF NOT EXISTS idx_round_history_pairs_moves ON round_history(pairs, moves);
`

const (
	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 200
)

// Store persists completed rounds. A nil *Store is valid: every method is a
// no-op that returns empty results.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to Postgres and creates the schema. It returns (nil, nil)
// when databaseURL is empty so callers can run without persistence.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("connected to Postgres", "tag", "storage")
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Round is one completed round as written by the session.
type Round struct {
	SessionID  string
	UserID     string
	PlayerName string
	Round      int
	Pairs      int
	Moves      int
	BestScore  int
	NewBest    bool
	FinishedAt time.Time
}

// InsertRound stores a completed round and returns its id.
func (s *Store) InsertRound(ctx context.Context, r Round) (string, error) {
	if s == nil || s.pool == nil {
		return "", nil
	}
	id := uuid.NewString()
	finished := r.FinishedAt
	if finished.IsZero() {
		finished = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO round_history (id, session_id, user_id, player_name, round, pairs, moves, best_score, new_best, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, r.SessionID, r.UserID, r.PlayerName, r.Round, r.Pairs, r.Moves, r.BestScore, r.NewBest, finished)
	if err != nil {
		return "", err
	}
	return id, nil
}

// RoundRecord is a single row returned for the history API.
type RoundRecord struct {
	ID         string `json:"id"`
	SessionID  string `json:"session_id"`
	PlayerName string `json:"player_name"`
	Round      int    `json:"round"`
	Pairs      int    `json:"pairs"`
	Moves      int    `json:"moves"`
	BestScore  int    `json:"best_score"`
	NewBest    bool   `json:"new_best"`
	FinishedAt string `json:"finished_at"` // ISO8601
}

// ListByUserID returns the user's rounds, most recent first.
func (s *Store) ListByUserID(ctx context.Context, userID string) ([]RoundRecord, error) {
	if s == nil || s.pool == nil || userID == "" {
		return []RoundRecord{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, player_name, round, pairs, moves, best_score, new_best, finished_at
		FROM round_history
		WHERE user_id = $1
		ORDER BY finished_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RoundRecord{}
	for rows.Next() {
		var r RoundRecord
		var finishedAt time.Time
		if err := rows.Scan(&r.ID, &r.SessionID, &r.PlayerName, &r.Round, &r.Pairs, &r.Moves, &r.BestScore, &r.NewBest, &finishedAt); err != nil {
			return nil, err
		}
		r.FinishedAt = finishedAt.UTC().Format(time.RFC3339)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LeaderboardEntry is a user's best (lowest) move count for one board size.
type LeaderboardEntry struct {
	UserID        string `json:"user_id"`
	DisplayName   string `json:"display_name"`
	Pairs         int    `json:"pairs"`
	BestMoves     int    `json:"best_moves"`
	Rounds        int    `json:"rounds"`
	IsCurrentUser bool   `json:"is_current_user,omitempty"`
}

// ClampPage normalizes leaderboard paging parameters.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ListLeaderboard returns the best round per authenticated user and board
// size, ordered by pairs and then moves ascending. Anonymous rounds are not
// ranked.
func (s *Store) ListLeaderboard(ctx context.Context, pairs, limit, offset int) ([]LeaderboardEntry, error) {
	if s == nil || s.pool == nil {
		return []LeaderboardEntry{}, nil
	}
	limit, offset = ClampPage(limit, offset)
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, MAX(player_name), pairs, MIN(moves), COUNT(*)
		FROM round_history
		WHERE user_id <> '' AND ($1 = 0 OR pairs = $1)
		GROUP BY user_id, pairs
		ORDER BY pairs ASC, MIN(moves) ASC, COUNT(*) DESC
		LIMIT $2 OFFSET $3`,
		pairs, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LeaderboardEntry{}
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.DisplayName, &e.Pairs, &e.BestMoves, &e.Rounds); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
