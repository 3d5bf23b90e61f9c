package storage

import "context"

// RoundStore abstracts persistence of completed rounds so handlers and the
// lobby can be tested without Postgres.
type RoundStore interface {
	InsertRound(ctx context.Context, r Round) (string, error)
	ListByUserID(ctx context.Context, userID string) ([]RoundRecord, error)
	ListLeaderboard(ctx context.Context, pairs, limit, offset int) ([]LeaderboardEntry, error)
	Close()
}

var _ RoundStore = (*Store)(nil)
