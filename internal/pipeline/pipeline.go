package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/nba-predictor/internal/ensemble"
	"github.com/Alias1177/nba-predictor/internal/features"
	"github.com/Alias1177/nba-predictor/models"
)

// ErrNoGames is returned when the schedule has nothing on the requested game day.
var ErrNoGames = errors.New("no games found")

// Ledger is the write side of the prediction ledger.
type Ledger interface {
	Upsert(ctx context.Context, gameID, predictionDate, modelVersion string, f models.ForecastResult) error
}

// Prediction is one matchup's outcome within a run.
type Prediction struct {
	Row      features.Row
	Forecast ensemble.Forecast
	// Err is set when the forecast could not be persisted.
	Err error
}

// Result summarises a run. Predictions are in schedule order.
type Result struct {
	GameDay     time.Time
	Predictions []Prediction
	Written     int
	Failed      int
}

// Pipeline predicts every scheduled game on a day and writes each forecast to the ledger.
type Pipeline struct {
	store     models.FeatureStore
	agg       *features.Aggregator
	predictor *ensemble.Predictor
	ledger    Ledger
	version   string
	logger    zerolog.Logger
}

// New creates a pipeline writing under modelVersion.
func New(store models.FeatureStore, agg *features.Aggregator, predictor *ensemble.Predictor, l Ledger, modelVersion string) *Pipeline {
	return &Pipeline{
		store:     store,
		agg:       agg,
		predictor: predictor,
		ledger:    l,
		version:   modelVersion,
		logger:    log.With().Str("component", "pipeline").Str("model_version", modelVersion).Logger(),
	}
}

// Run processes one ET game day. A model failure aborts the run and is returned; rows written
// before it stay in the ledger. A ledger failure is recorded on that prediction and the run
// moves on to the next matchup.
func (p *Pipeline) Run(ctx context.Context, gameDay time.Time) (Result, error) {
	day := models.Day(gameDay)
	res := Result{GameDay: day}
	dayKey := day.Format(models.DateLayout)

	matchups, err := p.store.Matchups(ctx, day)
	if err != nil {
		return res, fmt.Errorf("load schedule for %s: %w", dayKey, err)
	}
	if len(matchups) == 0 {
		return res, fmt.Errorf("%w for %s", ErrNoGames, dayKey)
	}

	p.logger.Info().Str("game_day", dayKey).Int("games", len(matchups)).Msg("Predicting schedule")

	for _, m := range matchups {
		row := p.agg.Build(m)
		if row.Sparse() {
			p.logger.Debug().Str("game_id", m.GameID).Strs("imputed", row.Imputed).Msg("Using default features")
		}

		forecast, err := p.predictor.Predict(ctx, row)
		if err != nil {
			return res, fmt.Errorf("predict %s: %w", m.GameID, err)
		}

		pred := Prediction{Row: row, Forecast: forecast}
		if err := p.ledger.Upsert(ctx, m.GameID, dayKey, p.version, forecast.ForecastResult); err != nil {
			pred.Err = err
			res.Failed++
			p.logger.Error().Err(err).Str("game_id", m.GameID).Msg("Failed to write prediction")
		} else {
			res.Written++
		}
		res.Predictions = append(res.Predictions, pred)
	}

	p.logger.Info().
		Str("game_day", dayKey).
		Int("written", res.Written).
		Int("failed", res.Failed).
		Msg("Prediction run complete")
	return res, nil
}
