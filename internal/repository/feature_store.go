package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/nba-predictor/internal/database"
	"github.com/Alias1177/nba-predictor/models"
)

// SQLFeatureStore reads the schedule, results and rolling-metric views.
type SQLFeatureStore struct {
	db     *database.DB
	logger zerolog.Logger
}

// NewSQLFeatureStore creates a feature store over the shared database handle.
func NewSQLFeatureStore(db *database.DB) *SQLFeatureStore {
	return &SQLFeatureStore{
		db:     db,
		logger: log.With().Str("component", "feature_store").Logger(),
	}
}

const matchupSelect = `
	SELECT
		g.game_id,
		g.home_team_id, g.away_team_id,
		hteam.team_abbr, ateam.team_abbr,
		hf.rolling_pd_5, hf.rolling_pd_10, hf.rest_days,
		af.rolling_pd_5, af.rolling_pd_10, af.rest_days,
		hsos.rolling_sos_10, asos.rolling_sos_10,
		hadv.rolling_pace_10, hadv.rolling_ortg_10, hadv.rolling_drtg_10, hadv.rolling_oreb_10, hadv.rolling_dreb_10,
		aadv.rolling_pace_10, aadv.rolling_ortg_10, aadv.rolling_drtg_10, aadv.rolling_oreb_10, aadv.rolling_dreb_10,
		hvol.sigma_points_for, avol.sigma_points_for,
		g.home_pts, g.away_pts
	FROM games g
	JOIN teams hteam ON g.home_team_id = hteam.team_id
	JOIN teams ateam ON g.away_team_id = ateam.team_id
	LEFT JOIN v_team_features_with_rest hf ON g.home_team_id = hf.team_id AND g.game_id = hf.game_id
	LEFT JOIN v_team_features_with_rest af ON g.away_team_id = af.team_id AND g.game_id = af.game_id
	LEFT JOIN v_strength_of_schedule hsos ON g.home_team_id = hsos.team_id AND g.game_id = hsos.game_id
	LEFT JOIN v_strength_of_schedule asos ON g.away_team_id = asos.team_id AND g.game_id = asos.game_id
	LEFT JOIN v_team_advanced_stats hadv ON g.home_team_id = hadv.team_id AND g.game_id = hadv.game_id
	LEFT JOIN v_team_advanced_stats aadv ON g.away_team_id = aadv.team_id AND g.game_id = aadv.game_id
	LEFT JOIN v_team_volatility hvol ON g.home_team_id = hvol.team_id AND g.game_id = hvol.game_id
	LEFT JOIN v_team_volatility avol ON g.away_team_id = avol.team_id AND g.game_id = avol.game_id
	WHERE g.game_date_et = $1`

// Matchups returns every game scheduled on the ET game day, in schedule order.
func (s *SQLFeatureStore) Matchups(ctx context.Context, gameDay time.Time) ([]models.Matchup, error) {
	games, err := s.query(ctx, "matchups", matchupSelect+`
	ORDER BY g.game_id`, gameDay)
	if err != nil {
		return nil, err
	}
	out := make([]models.Matchup, 0, len(games))
	for _, g := range games {
		out = append(out, g.Matchup)
	}
	return out, nil
}

// CompletedGames returns only the games on the ET game day that reached a final score.
// Postponed or abandoned games never carry points and are excluded.
func (s *SQLFeatureStore) CompletedGames(ctx context.Context, gameDay time.Time) ([]models.CompletedGame, error) {
	return s.query(ctx, "completed_games", matchupSelect+`
	  AND g.home_pts IS NOT NULL
	  AND g.away_pts IS NOT NULL
	  AND LOWER(g.status) = 'final'
	ORDER BY g.game_id`, gameDay)
}

func (s *SQLFeatureStore) query(ctx context.Context, name, q string, gameDay time.Time) ([]models.CompletedGame, error) {
	start := time.Now()
	day := models.Day(gameDay)

	rows, err := s.db.QueryContext(ctx, q, day.Format(models.DateLayout))
	if err != nil {
		s.logger.Error().Err(err).Str("query", name).Str("game_day", day.Format(models.DateLayout)).Msg("feature store query failed")
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer rows.Close()

	var out []models.CompletedGame
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", name, err)
		}
		g.GameDateET = day
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", name, err)
	}

	s.logger.Debug().
		Str("query", name).
		Str("game_day", day.Format(models.DateLayout)).
		Int("rows", len(out)).
		Dur("duration", time.Since(start)).
		Msg("feature store read")
	return out, nil
}

func scanGame(rows *sql.Rows) (models.CompletedGame, error) {
	var g models.CompletedGame
	var (
		hPD5, hPD10, hRest, aPD5, aPD10, aRest sql.NullFloat64
		hSOS, aSOS                             sql.NullFloat64
		hPace, hORtg, hDRtg, hOReb, hDReb      sql.NullFloat64
		aPace, aORtg, aDRtg, aOReb, aDReb      sql.NullFloat64
		hVol, aVol                             sql.NullFloat64
		homePts, awayPts                       sql.NullInt64
	)

	err := rows.Scan(
		&g.GameID,
		&g.Home.TeamID, &g.Away.TeamID,
		&g.Home.Abbr, &g.Away.Abbr,
		&hPD5, &hPD10, &hRest,
		&aPD5, &aPD10, &aRest,
		&hSOS, &aSOS,
		&hPace, &hORtg, &hDRtg, &hOReb, &hDReb,
		&aPace, &aORtg, &aDRtg, &aOReb, &aDReb,
		&hVol, &aVol,
		&homePts, &awayPts,
	)
	if err != nil {
		return g, err
	}

	g.Home.RollingPD5, g.Home.RollingPD10, g.Home.RestDays = ptr(hPD5), ptr(hPD10), ptr(hRest)
	g.Away.RollingPD5, g.Away.RollingPD10, g.Away.RestDays = ptr(aPD5), ptr(aPD10), ptr(aRest)
	g.Home.SOS, g.Away.SOS = ptr(hSOS), ptr(aSOS)
	g.Home.Pace, g.Home.OffRating, g.Home.DefRating = ptr(hPace), ptr(hORtg), ptr(hDRtg)
	g.Home.OffRebRate, g.Home.DefRebRate = ptr(hOReb), ptr(hDReb)
	g.Away.Pace, g.Away.OffRating, g.Away.DefRating = ptr(aPace), ptr(aORtg), ptr(aDRtg)
	g.Away.OffRebRate, g.Away.DefRebRate = ptr(aOReb), ptr(aDReb)
	g.Home.ScoringVolatility, g.Away.ScoringVolatility = ptr(hVol), ptr(aVol)

	if homePts.Valid && awayPts.Valid {
		g.HomePoints = int(homePts.Int64)
		g.AwayPoints = int(awayPts.Int64)
	}
	return g, nil
}

func ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

var _ models.FeatureStore = (*SQLFeatureStore)(nil)
