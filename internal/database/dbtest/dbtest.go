// Package dbtest provides in-memory SQLite databases carrying the ledger schema plus
// the upstream schedule and feature tables the ledger and feature store read.
package dbtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Alias1177/nba-predictor/internal/database"
)

// upstream mirrors the ingestion-owned tables. The rolling views are plain tables here.
var upstream = []string{
	`CREATE TABLE teams (
		team_id   INTEGER PRIMARY KEY,
		team_abbr TEXT NOT NULL
	)`,
	`CREATE TABLE games (
		game_id      TEXT PRIMARY KEY,
		game_date_et TEXT NOT NULL,
		home_team_id INTEGER NOT NULL,
		away_team_id INTEGER NOT NULL,
		home_pts     INTEGER,
		away_pts     INTEGER,
		status       TEXT
	)`,
	`CREATE TABLE v_team_features_with_rest (
		game_id TEXT, team_id INTEGER,
		rolling_pd_5 REAL, rolling_pd_10 REAL, rest_days REAL
	)`,
	`CREATE TABLE v_strength_of_schedule (
		game_id TEXT, team_id INTEGER,
		rolling_sos_10 REAL
	)`,
	`CREATE TABLE v_team_advanced_stats (
		game_id TEXT, team_id INTEGER,
		rolling_pace_10 REAL, rolling_ortg_10 REAL, rolling_drtg_10 REAL,
		rolling_oreb_10 REAL, rolling_dreb_10 REAL
	)`,
	`CREATE TABLE v_team_volatility (
		game_id TEXT, team_id INTEGER,
		sigma_points_for REAL
	)`,
}

// Open returns a fresh in-memory database closed at test cleanup.
func Open(t *testing.T) *database.DB {
	return OpenFile(t, ":memory:")
}

// OpenFile is Open over a database file, for tests that reopen it through another handle.
func OpenFile(t *testing.T, path string) *database.DB {
	t.Helper()

	db, err := database.OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range upstream {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return db
}

// InsertTeam adds a team row.
func InsertTeam(t *testing.T, db *database.DB, id int64, abbr string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO teams (team_id, team_abbr) VALUES ($1, $2)`, id, abbr)
	require.NoError(t, err)
}

// Game is one row of the schedule and results table. Nil points mean not yet played.
type Game struct {
	ID      string
	Date    string
	HomeID  int64
	AwayID  int64
	HomePts *int
	AwayPts *int
	Status  string
}

// InsertGame adds a schedule row.
func InsertGame(t *testing.T, db *database.DB, g Game) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO games (game_id, game_date_et, home_team_id, away_team_id, home_pts, away_pts, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, g.ID, g.Date, g.HomeID, g.AwayID, nullable(g.HomePts), nullable(g.AwayPts), g.Status)
	require.NoError(t, err)
}

func nullable(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// Final is a finished game row.
func Final(id, date string, homeID, awayID int64, homePts, awayPts int) Game {
	return Game{ID: id, Date: date, HomeID: homeID, AwayID: awayID, HomePts: &homePts, AwayPts: &awayPts, Status: "Final"}
}

// Scheduled is an unplayed game row.
func Scheduled(id, date string, homeID, awayID int64) Game {
	return Game{ID: id, Date: date, HomeID: homeID, AwayID: awayID, Status: "Scheduled"}
}
