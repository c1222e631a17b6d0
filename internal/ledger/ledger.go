package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Alias1177/nba-predictor/internal/database"
	"github.com/Alias1177/nba-predictor/models"
)

// Ledger is the idempotent store of every forecast, keyed by (game_id, model_version).
type Ledger struct {
	db *database.DB
}

// New creates a ledger over an open database handle.
func New(db *database.DB) *Ledger {
	return &Ledger{db: db}
}

// Upsert writes a forecast. Re-predicting the same key replaces only the forecast columns;
// actual scores are never part of the update set.
func (l *Ledger) Upsert(ctx context.Context, gameID, predictionDate, modelVersion string, f models.ForecastResult) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO prediction_history (
			game_id, prediction_date_et, model_version,
			pred_home_prob, pred_home_score, pred_away_score, pred_sigma_home, pred_sigma_away
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (game_id, model_version)
		DO UPDATE SET
			prediction_date_et = EXCLUDED.prediction_date_et,
			pred_home_prob = EXCLUDED.pred_home_prob,
			pred_home_score = EXCLUDED.pred_home_score,
			pred_away_score = EXCLUDED.pred_away_score,
			pred_sigma_home = EXCLUDED.pred_sigma_home,
			pred_sigma_away = EXCLUDED.pred_sigma_away
	`,
		gameID, predictionDate, modelVersion,
		f.HomeWinProb, f.HomeScore, f.AwayScore, f.SigmaHome, f.SigmaAway)
	if err != nil {
		return fmt.Errorf("upsert prediction %s/%s: %w", gameID, modelVersion, err)
	}
	return nil
}

// RecordResult sets actual scores on every row of a game that has none yet.
// Rows already graded are left untouched; the count of newly graded rows is returned.
func (l *Ledger) RecordResult(ctx context.Context, gameID string, actualHome, actualAway int) (int64, error) {
	res, err := l.db.ExecContext(ctx, `
		UPDATE prediction_history
		SET actual_home_score = $1, actual_away_score = $2
		WHERE game_id = $3 AND actual_home_score IS NULL AND actual_away_score IS NULL
	`, actualHome, actualAway, gameID)
	if err != nil {
		return 0, fmt.Errorf("record result %s: %w", gameID, err)
	}
	return res.RowsAffected()
}

// RecordVersionResult is RecordResult limited to one model version's row.
func (l *Ledger) RecordVersionResult(ctx context.Context, gameID, modelVersion string, actualHome, actualAway int) (int64, error) {
	res, err := l.db.ExecContext(ctx, `
		UPDATE prediction_history
		SET actual_home_score = $1, actual_away_score = $2
		WHERE game_id = $3 AND model_version = $4
		  AND actual_home_score IS NULL AND actual_away_score IS NULL
	`, actualHome, actualAway, gameID, modelVersion)
	if err != nil {
		return 0, fmt.Errorf("record result %s/%s: %w", gameID, modelVersion, err)
	}
	return res.RowsAffected()
}

// Regrade overwrites actual scores for a game regardless of prior grading.
func (l *Ledger) Regrade(ctx context.Context, gameID string, actualHome, actualAway int) (int64, error) {
	res, err := l.db.ExecContext(ctx, `
		UPDATE prediction_history
		SET actual_home_score = $1, actual_away_score = $2
		WHERE game_id = $3
	`, actualHome, actualAway, gameID)
	if err != nil {
		return 0, fmt.Errorf("regrade %s: %w", gameID, err)
	}
	return res.RowsAffected()
}

// FinalScore looks up a game's final score in the results table. ok is false when the game
// is unknown or not final.
func (l *Ledger) FinalScore(ctx context.Context, gameID string) (home, away int, ok bool, err error) {
	var h, a sql.NullInt64
	err = l.db.QueryRowContext(ctx, `
		SELECT home_pts, away_pts
		FROM games
		WHERE game_id = $1 AND LOWER(status) = 'final'
	`, gameID).Scan(&h, &a)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, false, nil
		}
		return 0, 0, false, fmt.Errorf("final score %s: %w", gameID, err)
	}
	if !h.Valid || !a.Valid {
		return 0, 0, false, nil
	}
	return int(h.Int64), int(a.Int64), true, nil
}

// Get returns one ledger row, or nil when the key is absent.
func (l *Ledger) Get(ctx context.Context, gameID, modelVersion string) (*models.PredictionRecord, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM prediction_history
		WHERE game_id = $1 AND model_version = $2
	`, gameID, modelVersion)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// Pending returns ungraded rows whose game has a final score in the results table,
// paired with that score.
func (l *Ledger) Pending(ctx context.Context) ([]models.GameResult, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT ph.game_id, ph.model_version, ph.prediction_date_et, g.home_pts, g.away_pts
		FROM prediction_history ph
		JOIN games g ON g.game_id = ph.game_id
		WHERE ph.actual_home_score IS NULL
		  AND g.home_pts IS NOT NULL
		  AND g.away_pts IS NOT NULL
		  AND LOWER(g.status) = 'final'
		ORDER BY ph.prediction_date_et, ph.game_id, ph.model_version
	`)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	defer rows.Close()

	var out []models.GameResult
	for rows.Next() {
		var r models.GameResult
		if err := rows.Scan(&r.GameID, &r.ModelVersion, &r.GameDate, &r.HomePoints, &r.AwayPoints); err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// History returns graded rows whose prediction date falls inside the window.
// An empty modelVersion matches every version.
func (l *Ledger) History(ctx context.Context, w models.DateWindow, modelVersion string) ([]models.PredictionRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM prediction_history
		WHERE prediction_date_et >= $1 AND prediction_date_et <= $2
		  AND actual_home_score IS NOT NULL AND actual_away_score IS NOT NULL`
	args := []any{w.FromKey(), w.ToKey()}
	if modelVersion != "" {
		query += ` AND model_version = $3`
		args = append(args, modelVersion)
	}
	query += ` ORDER BY prediction_date_et DESC, game_id, model_version`

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []models.PredictionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

const recordColumns = `game_id, prediction_date_et, model_version,
			pred_home_prob, pred_home_score, pred_away_score, pred_sigma_home, pred_sigma_away,
			actual_home_score, actual_away_score`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.PredictionRecord, error) {
	var rec models.PredictionRecord
	var actualHome, actualAway sql.NullInt64

	err := s.Scan(
		&rec.GameID, &rec.PredictionDate, &rec.ModelVersion,
		&rec.Forecast.HomeWinProb, &rec.Forecast.HomeScore, &rec.Forecast.AwayScore,
		&rec.Forecast.SigmaHome, &rec.Forecast.SigmaAway,
		&actualHome, &actualAway,
	)
	if err != nil {
		return nil, err
	}

	if actualHome.Valid {
		v := int(actualHome.Int64)
		rec.ActualHome = &v
	}
	if actualAway.Valid {
		v := int(actualAway.Int64)
		rec.ActualAway = &v
	}
	return &rec, nil
}
