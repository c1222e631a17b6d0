package models

import (
	"context"
	"time"
)

// FeatureStore is the read-only view over schedule, results and rolling team metrics.
type FeatureStore interface {
	// Matchups returns the games scheduled on an ET game day with rolling metrics attached.
	Matchups(ctx context.Context, gameDay time.Time) ([]Matchup, error)
	// CompletedGames returns only the games on an ET game day that reached a final score.
	CompletedGames(ctx context.Context, gameDay time.Time) ([]CompletedGame, error)
}
