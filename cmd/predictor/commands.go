package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/Alias1177/nba-predictor/internal/backtest"
	"github.com/Alias1177/nba-predictor/internal/ensemble"
	"github.com/Alias1177/nba-predictor/internal/features"
	"github.com/Alias1177/nba-predictor/internal/grading"
	"github.com/Alias1177/nba-predictor/internal/notify"
	"github.com/Alias1177/nba-predictor/internal/pipeline"
	"github.com/Alias1177/nba-predictor/models"
)

func (a *app) predict(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	zoneFlag := fs.String("zone", a.cfg.InputZone, "calendar of the date argument: AU or ET")
	version := fs.String("version", a.cfg.ModelVersion, "model version tag written to the ledger")
	if err := fs.Parse(args); err != nil {
		return exitFatal
	}

	zone, err := models.ParseZone(*zoneFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFatal
	}

	var day = a.now()
	if fs.NArg() > 0 {
		day, err = models.ParseDay(fs.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitFatal
		}
	} else if day, err = models.Today(day, zone); err != nil {
		a.logger.Error().Err(err).Msg("Resolving today's date")
		return exitFatal
	}

	gameDay, err := models.GameDay(day, zone)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFatal
	}

	set, err := a.loadModels(ctx, "")
	if err != nil {
		a.logger.Error().Err(err).Msg("Loading models failed")
		return exitFatal
	}

	p := pipeline.New(a.store, features.NewAggregator(features.LeagueDefaults), ensemble.New(set), a.ledger, *version)
	res, err := p.Run(ctx, gameDay)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoGames) {
			a.logger.Info().Str("date", models.Day(day).Format(models.DateLayout)).Str("zone", string(zone)).
				Str("game_day", gameDay.Format(models.DateLayout)).Msg("No games found")
			return exitNoGames
		}
		a.logger.Error().Err(err).Msg("Prediction run failed")
		return exitFatal
	}

	a.metrics.RecordPredictions(*version, res.Written, res.Failed)
	a.deliver(ctx, notify.PredictionDigest(models.Day(day).Format(models.DateLayout)+" "+string(zone), res))

	if res.Failed > 0 {
		return exitPartial
	}
	return exitOK
}

func (a *app) grade(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("grade", flag.ContinueOnError)
	version := fs.String("version", a.cfg.ModelVersion, "model version to summarise (empty for all)")
	regrade := fs.String("regrade", "", "overwrite actual scores for this game id")
	home := fs.Int("home", -1, "home score for -regrade (default: final score from the results table)")
	away := fs.Int("away", -1, "away score for -regrade (default: final score from the results table)")
	if err := fs.Parse(args); err != nil {
		return exitFatal
	}

	if *regrade != "" {
		return a.regrade(ctx, *regrade, *home, *away)
	}

	w, ok := a.window(fs, a.cfg.EvaluateDays)
	if !ok {
		return exitFatal
	}

	engine := grading.NewEngine(a.ledger, a.cfg.WorstN)
	report, err := engine.Grade(ctx, w, *version)
	if err != nil {
		a.logger.Error().Err(err).Msg("Grading failed")
		return exitFatal
	}

	a.metrics.RecordGraded(report.Graded)
	if !report.Metrics.Empty() {
		a.metrics.RecordAccuracy("grade", report.Metrics.Accuracy)
	}
	a.deliver(ctx, fmt.Sprintf("Graded %d new rows\n", report.Graded)+notify.MetricsDigest("Model performance "+*version, w, report.Metrics))

	if report.Failed > 0 {
		return exitPartial
	}
	return exitOK
}

func (a *app) regrade(ctx context.Context, gameID string, home, away int) int {
	if home < 0 || away < 0 {
		h, aw, ok, err := a.ledger.FinalScore(ctx, gameID)
		if err != nil {
			a.logger.Error().Err(err).Str("game_id", gameID).Msg("Final score lookup failed")
			return exitFatal
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "game %s has no final score; pass -home and -away\n", gameID)
			return exitFatal
		}
		home, away = h, aw
	}

	n, err := a.ledger.Regrade(ctx, gameID, home, away)
	if err != nil {
		a.logger.Error().Err(err).Str("game_id", gameID).Msg("Regrade failed")
		return exitFatal
	}
	a.metrics.RecordGraded(n)
	a.logger.Info().Str("game_id", gameID).Int("home", home).Int("away", away).Int64("rows", n).Msg("Regraded")
	return exitOK
}

func (a *app) evaluate(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	version := fs.String("version", a.cfg.ModelVersion, "model version to evaluate (empty for all)")
	if err := fs.Parse(args); err != nil {
		return exitFatal
	}
	w, ok := a.window(fs, a.cfg.EvaluateDays)
	if !ok {
		return exitFatal
	}

	m, err := grading.NewEngine(a.ledger, a.cfg.WorstN).Summary(ctx, w, *version)
	if err != nil {
		a.logger.Error().Err(err).Msg("Evaluation failed")
		return exitFatal
	}
	if !m.Empty() {
		a.metrics.RecordAccuracy("evaluate", m.Accuracy)
	}
	a.deliver(ctx, notify.MetricsDigest("Ledger accuracy "+*version, w, m))
	return exitOK
}

func (a *app) backtest(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("backtest", flag.ContinueOnError)
	dir := fs.String("models", "", "directory of candidate model artifacts (default: the configured models)")
	if err := fs.Parse(args); err != nil {
		return exitFatal
	}
	w, ok := a.window(fs, a.cfg.BacktestDays)
	if !ok {
		return exitFatal
	}

	h, ok := a.harness(ctx, *dir)
	if !ok {
		return exitFatal
	}
	report, err := h.Evaluate(ctx, w)
	if err != nil {
		a.logger.Error().Err(err).Msg("Backtest failed")
		return exitFatal
	}
	if !report.Metrics.Empty() {
		a.metrics.RecordAccuracy("backtest", report.Metrics.Accuracy)
	}
	a.deliver(ctx, notify.MetricsDigest("Backtest", w, report.Metrics))
	return exitOK
}

func (a *app) backfill(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("backfill", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return exitFatal
	}
	w, ok := a.window(fs, a.cfg.BackfillDays)
	if !ok {
		return exitFatal
	}

	h, ok := a.harness(ctx, "")
	if !ok {
		return exitFatal
	}
	version := a.cfg.BackfillVersion()
	report, err := h.Backfill(ctx, w, a.ledger, version)
	if err != nil {
		a.logger.Error().Err(err).Msg("Backfill failed")
		return exitFatal
	}

	a.metrics.RecordPredictions(version, report.Written, report.Failed)
	a.deliver(ctx, fmt.Sprintf("Backfilled %d rows as %s (%d failed)\n", report.Written, version, report.Failed)+
		notify.MetricsDigest("Backfill", w, report.Metrics))

	if report.Failed > 0 {
		return exitPartial
	}
	return exitOK
}

func (a *app) harness(ctx context.Context, dir string) (*backtest.Harness, bool) {
	set, err := a.loadModels(ctx, dir)
	if err != nil {
		a.logger.Error().Err(err).Msg("Loading models failed")
		return nil, false
	}
	return backtest.NewHarness(a.store, features.NewAggregator(features.LeagueDefaults), ensemble.New(set), a.cfg.WorstN), true
}

// window reads an optional day count argument and returns that many ET game days ending yesterday.
func (a *app) window(fs *flag.FlagSet, defaultDays int) (models.DateWindow, bool) {
	days := defaultDays
	if fs.NArg() > 0 {
		n, err := strconv.Atoi(fs.Arg(0))
		if err != nil || n < 1 {
			fmt.Fprintf(os.Stderr, "days must be a positive integer, got %q\n", fs.Arg(0))
			return models.DateWindow{}, false
		}
		days = n
	}
	today, err := models.Today(a.now(), models.ZoneET)
	if err != nil {
		a.logger.Error().Err(err).Msg("Resolving today's date")
		return models.DateWindow{}, false
	}
	return models.LastDays(today, days), true
}
