package backtest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/nba-predictor/internal/ensemble"
	"github.com/Alias1177/nba-predictor/internal/features"
	"github.com/Alias1177/nba-predictor/internal/grading"
	"github.com/Alias1177/nba-predictor/models"
)

// Ledger is the write side used by backfill.
type Ledger interface {
	Upsert(ctx context.Context, gameID, predictionDate, modelVersion string, f models.ForecastResult) error
	RecordVersionResult(ctx context.Context, gameID, modelVersion string, actualHome, actualAway int) (int64, error)
}

// Report is the outcome of replaying a date range.
type Report struct {
	Window  models.DateWindow
	Games   []models.GradedGame
	Metrics models.Metrics
	// Written and Failed count ledger writes in backfill mode.
	Written int
	Failed  int
}

// Harness replays the production aggregator and ensemble over completed historical games.
type Harness struct {
	store     models.FeatureStore
	agg       *features.Aggregator
	predictor *ensemble.Predictor
	worstN    int
	logger    zerolog.Logger
}

// NewHarness creates a harness.
func NewHarness(store models.FeatureStore, agg *features.Aggregator, predictor *ensemble.Predictor, worstN int) *Harness {
	return &Harness{
		store:     store,
		agg:       agg,
		predictor: predictor,
		worstN:    worstN,
		logger:    log.With().Str("component", "backtest").Logger(),
	}
}

// Evaluate predicts every completed game in the window and grades it against the known
// result without touching the ledger. A window with no completed games yields empty metrics.
func (h *Harness) Evaluate(ctx context.Context, w models.DateWindow) (Report, error) {
	return h.replay(ctx, w, nil, "")
}

// Backfill is Evaluate that also writes each forecast and its actual score to the ledger
// under modelVersion. Ledger failures are counted per game and do not stop the replay.
func (h *Harness) Backfill(ctx context.Context, w models.DateWindow, l Ledger, modelVersion string) (Report, error) {
	if l == nil {
		return Report{Window: w}, fmt.Errorf("backfill needs a ledger")
	}
	return h.replay(ctx, w, l, modelVersion)
}

func (h *Harness) replay(ctx context.Context, w models.DateWindow, l Ledger, modelVersion string) (Report, error) {
	report := Report{Window: w}

	for _, day := range w.Days() {
		dayKey := day.Format(models.DateLayout)
		games, err := h.store.CompletedGames(ctx, day)
		if err != nil {
			return report, fmt.Errorf("load completed games for %s: %w", dayKey, err)
		}
		if len(games) == 0 {
			continue
		}

		for _, g := range games {
			row := h.agg.Build(g.Matchup)
			forecast, err := h.predictor.Predict(ctx, row)
			if err != nil {
				return report, fmt.Errorf("predict %s: %w", g.GameID, err)
			}

			graded := grading.Compare(g.GameID, dayKey, modelVersion, forecast.ForecastResult, g.HomePoints, g.AwayPoints)
			graded.Label = g.Label()
			report.Games = append(report.Games, graded)

			if l == nil {
				continue
			}
			if err := writeBackfill(ctx, l, g, dayKey, modelVersion, forecast.ForecastResult); err != nil {
				report.Failed++
				h.logger.Error().Err(err).Str("game_id", g.GameID).Msg("Failed to backfill prediction")
				continue
			}
			report.Written++
		}
	}

	report.Metrics = grading.Summarize(report.Games, h.worstN)

	h.logger.Info().
		Str("from", w.FromKey()).
		Str("to", w.ToKey()).
		Int("games", report.Metrics.Games).
		Int("written", report.Written).
		Int("failed", report.Failed).
		Msg("Replay complete")
	return report, nil
}

func writeBackfill(ctx context.Context, l Ledger, g models.CompletedGame, dayKey, version string, f models.ForecastResult) error {
	if err := l.Upsert(ctx, g.GameID, dayKey, version, f); err != nil {
		return err
	}
	if _, err := l.RecordVersionResult(ctx, g.GameID, version, g.HomePoints, g.AwayPoints); err != nil {
		return err
	}
	return nil
}
