package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/nba-predictor/internal/database"
	"github.com/Alias1177/nba-predictor/internal/database/dbtest"
)

func seed(t *testing.T, db *database.DB) {
	t.Helper()
	stmts := []string{
		`INSERT INTO teams (team_id, team_abbr) VALUES (1, 'BOS'), (2, 'NYK'), (3, 'LAL'), (4, 'DEN')`,
		`INSERT INTO v_team_features_with_rest VALUES ('G1', 1, 6.2, 4.1, 0), ('G1', 2, -1.0, 0.5, 2)`,
		`INSERT INTO v_strength_of_schedule VALUES ('G1', 1, 0.4), ('G1', 2, -0.2)`,
		`INSERT INTO v_team_advanced_stats VALUES ('G1', 1, 98.5, 118.0, 109.5, 0.31, 0.76), ('G1', 2, 97.0, 115.0, 112.0, 0.27, 0.72)`,
		`INSERT INTO v_team_volatility VALUES ('G1', 1, 10.5), ('G1', 2, 12.25)`,
	}
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err)
	}
	dbtest.InsertGame(t, db, dbtest.Final("G1", "2025-01-06", 1, 2, 110, 101))
	// no rolling rows: first game of the season for both teams
	dbtest.InsertGame(t, db, dbtest.Scheduled("G2", "2025-01-06", 3, 4))
	dbtest.InsertGame(t, db, dbtest.Final("G3", "2025-01-07", 4, 3, 120, 99))
}

func TestMatchups(t *testing.T) {
	db := dbtest.Open(t)
	seed(t, db)
	store := NewSQLFeatureStore(db)

	day := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	ms, err := store.Matchups(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, ms, 2)

	g1 := ms[0]
	assert.Equal(t, "G1", g1.GameID)
	assert.Equal(t, day, g1.GameDateET)
	assert.Equal(t, "NYK @ BOS", g1.Label())
	require.NotNil(t, g1.Home.RollingPD5)
	assert.Equal(t, 6.2, *g1.Home.RollingPD5)
	assert.Equal(t, 0.0, *g1.Home.RestDays)
	assert.Equal(t, -0.2, *g1.Away.SOS)
	assert.Equal(t, 112.0, *g1.Away.DefRating)
	assert.Equal(t, 0.72, *g1.Away.DefRebRate)
	assert.Equal(t, 12.25, *g1.Away.ScoringVolatility)

	g2 := ms[1]
	assert.Equal(t, "G2", g2.GameID)
	assert.Nil(t, g2.Home.RollingPD5)
	assert.Nil(t, g2.Away.Pace)
	assert.Nil(t, g2.Away.ScoringVolatility)
}

func TestCompletedGames(t *testing.T) {
	db := dbtest.Open(t)
	seed(t, db)
	store := NewSQLFeatureStore(db)

	games, err := store.CompletedGames(context.Background(), time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, games, 1, "unplayed games are excluded")
	assert.Equal(t, "G1", games[0].GameID)
	assert.Equal(t, 110, games[0].HomePoints)
	assert.Equal(t, 101, games[0].AwayPoints)

	none, err := store.CompletedGames(context.Background(), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, none)
}
