package grading

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/nba-predictor/models"
)

// Ledger is the subset of the prediction ledger grading needs.
type Ledger interface {
	Pending(ctx context.Context) ([]models.GameResult, error)
	RecordResult(ctx context.Context, gameID string, actualHome, actualAway int) (int64, error)
	History(ctx context.Context, w models.DateWindow, modelVersion string) ([]models.PredictionRecord, error)
}

// Report is the outcome of one grading run.
type Report struct {
	Window  models.DateWindow
	Graded  int64
	Failed  int
	Metrics models.Metrics
}

// Engine reconciles ledger rows with final scores and computes accuracy metrics.
type Engine struct {
	ledger Ledger
	worstN int
	logger zerolog.Logger
}

// NewEngine creates a grading engine reporting worstN diagnostic misses.
func NewEngine(l Ledger, worstN int) *Engine {
	return &Engine{
		ledger: l,
		worstN: worstN,
		logger: log.With().Str("component", "grading").Logger(),
	}
}

// Grade records results for every gradable row in the window, then summarises all graded rows
// of modelVersion ("" for every version) in that window. Metrics come from ledger contents only.
func (e *Engine) Grade(ctx context.Context, w models.DateWindow, modelVersion string) (Report, error) {
	report := Report{Window: w}

	pending, err := e.ledger.Pending(ctx)
	if err != nil {
		return report, fmt.Errorf("load pending: %w", err)
	}

	seen := make(map[string]bool)
	for _, p := range pending {
		if p.GameDate < w.FromKey() || p.GameDate > w.ToKey() || seen[p.GameID] {
			continue
		}
		seen[p.GameID] = true

		n, err := e.ledger.RecordResult(ctx, p.GameID, p.HomePoints, p.AwayPoints)
		if err != nil {
			report.Failed++
			e.logger.Error().Err(err).Str("game_id", p.GameID).Msg("Failed to record result")
			continue
		}
		report.Graded += n
		e.logger.Debug().
			Str("game_id", p.GameID).
			Int("home", p.HomePoints).
			Int("away", p.AwayPoints).
			Int64("rows", n).
			Msg("Recorded result")
	}

	m, err := e.Summary(ctx, w, modelVersion)
	if err != nil {
		return report, err
	}
	report.Metrics = m

	e.logger.Info().
		Str("from", w.FromKey()).
		Str("to", w.ToKey()).
		Int64("graded", report.Graded).
		Int("failed", report.Failed).
		Int("games", m.Games).
		Msg("Grading complete")
	return report, nil
}

// Summary computes metrics over graded rows without recording anything.
func (e *Engine) Summary(ctx context.Context, w models.DateWindow, modelVersion string) (models.Metrics, error) {
	history, err := e.ledger.History(ctx, w, modelVersion)
	if err != nil {
		return models.Metrics{}, fmt.Errorf("load history: %w", err)
	}
	games := make([]models.GradedGame, 0, len(history))
	for _, r := range history {
		if g, ok := FromRecord(r); ok {
			games = append(games, g)
		}
	}
	return Summarize(games, e.worstN), nil
}
