package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/nba-predictor/internal/database/dbtest"
	"github.com/Alias1177/nba-predictor/internal/ensemble"
	"github.com/Alias1177/nba-predictor/internal/features"
	"github.com/Alias1177/nba-predictor/internal/ledger"
	"github.com/Alias1177/nba-predictor/internal/model"
	"github.com/Alias1177/nba-predictor/models"
)

type historyStore struct {
	completed map[string][]models.CompletedGame
	calls     []string
}

func (s *historyStore) Matchups(context.Context, time.Time) ([]models.Matchup, error) {
	return nil, errors.New("backtest must not read the forward schedule")
}

func (s *historyStore) CompletedGames(_ context.Context, day time.Time) ([]models.CompletedGame, error) {
	key := day.Format(models.DateLayout)
	s.calls = append(s.calls, key)
	return s.completed[key], nil
}

func constant(name string, kind model.Kind, intercept float64) *model.Artifact {
	names := features.Names()
	return &model.Artifact{ModelName: name, Kind: kind, Names: names, Intercept: intercept, Coef: make([]float64, len(names))}
}

// predicts 113-107 for every game
func testHarness(store models.FeatureStore) *Harness {
	set := &model.Set{
		Win:    constant("win_model", model.KindLogistic, 0.6),
		Margin: constant("margin_model", model.KindLinear, 6),
		Total:  constant("total_model", model.KindLinear, 220),
	}
	return NewHarness(store, features.NewAggregator(features.LeagueDefaults), ensemble.New(set), 3)
}

func day(s string) time.Time {
	t, _ := time.Parse(models.DateLayout, s)
	return t
}

func played(id, date, home, away string, homePts, awayPts int) models.CompletedGame {
	return models.CompletedGame{
		Matchup: models.Matchup{
			GameID:     id,
			GameDateET: day(date),
			Home:       models.TeamRolling{Abbr: home},
			Away:       models.TeamRolling{Abbr: away},
		},
		HomePoints: homePts,
		AwayPoints: awayPts,
	}
}

func TestEvaluateEmptyWindow(t *testing.T) {
	store := &historyStore{}
	w := models.LastDays(day("2025-01-10"), 7)

	report, err := testHarness(store).Evaluate(context.Background(), w)
	require.NoError(t, err)
	assert.True(t, report.Metrics.Empty())
	assert.Empty(t, report.Games)
	assert.Len(t, store.calls, 7, "every day in the window is queried")
	assert.Equal(t, "2025-01-03", store.calls[0])
}

func TestEvaluate(t *testing.T) {
	store := &historyStore{completed: map[string][]models.CompletedGame{
		"2025-01-04": {played("G1", "2025-01-04", "BOS", "NYK", 110, 101)},
		"2025-01-06": {
			played("G2", "2025-01-06", "LAL", "DEN", 99, 120),
			played("G3", "2025-01-06", "MIA", "CHI", 113, 107),
		},
	}}
	w := models.DateWindow{From: day("2025-01-04"), To: day("2025-01-06")}

	report, err := testHarness(store).Evaluate(context.Background(), w)
	require.NoError(t, err)

	m := report.Metrics
	assert.Equal(t, 3, m.Games)
	assert.Equal(t, 2, m.Correct)
	assert.InDelta(t, 200.0/3, m.Accuracy, 1e-9)
	// total errors 9, 1, 0
	assert.InDelta(t, 10.0/3, m.MAETotal, 1e-9)
	require.Len(t, m.Worst, 3)
	assert.Equal(t, "G1", m.Worst[0].GameID)
	assert.Equal(t, "NYK @ BOS", m.Worst[0].Label)
	assert.Zero(t, report.Written)
}

type recordingLedger struct {
	upserts []string
	results []string
	failOn  string
}

func (l *recordingLedger) Upsert(_ context.Context, gameID, _, version string, _ models.ForecastResult) error {
	if gameID == l.failOn {
		return errors.New("disk full")
	}
	l.upserts = append(l.upserts, gameID+"/"+version)
	return nil
}

func (l *recordingLedger) RecordVersionResult(_ context.Context, gameID, version string, _, _ int) (int64, error) {
	l.results = append(l.results, gameID+"/"+version)
	return 1, nil
}

func TestBackfillTalliesFailures(t *testing.T) {
	store := &historyStore{completed: map[string][]models.CompletedGame{
		"2025-01-06": {
			played("G1", "2025-01-06", "BOS", "NYK", 110, 101),
			played("G2", "2025-01-06", "LAL", "DEN", 99, 120),
		},
	}}
	l := &recordingLedger{failOn: "G1"}

	report, err := testHarness(store).Backfill(context.Background(), models.DateWindow{From: day("2025-01-06"), To: day("2025-01-06")}, l, "v5_Adv_backfill")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Written)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Metrics.Games, "failed writes are still evaluated")
	assert.Equal(t, []string{"G2/v5_Adv_backfill"}, l.upserts)
	assert.Equal(t, []string{"G2/v5_Adv_backfill"}, l.results)
}

func TestBackfillWritesGradedRows(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	l := ledger.New(db)

	// a live prediction for the same game must stay untouched
	require.NoError(t, l.Upsert(ctx, "G1", "2025-01-06", "v5_Adv", models.ForecastResult{HomeScore: 100, AwayScore: 100, HomeWinProb: 0.5}))

	store := &historyStore{completed: map[string][]models.CompletedGame{
		"2025-01-06": {played("G1", "2025-01-06", "BOS", "NYK", 110, 101)},
	}}
	w := models.DateWindow{From: day("2025-01-06"), To: day("2025-01-06")}

	report, err := testHarness(store).Backfill(ctx, w, l, "v5_Adv_backfill")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Written)

	rec, err := l.Get(ctx, "G1", "v5_Adv_backfill")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.True(t, rec.Graded())
	assert.Equal(t, 110, *rec.ActualHome)
	assert.InDelta(t, 113.0, rec.Forecast.HomeScore, 1e-9)

	live, err := l.Get(ctx, "G1", "v5_Adv")
	require.NoError(t, err)
	assert.False(t, live.Graded())
	assert.Equal(t, 100.0, live.Forecast.HomeScore)

	// running again is harmless
	again, err := testHarness(store).Backfill(ctx, w, l, "v5_Adv_backfill")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Written)
	assert.Equal(t, report.Metrics, again.Metrics)
}

func TestBackfillNeedsLedger(t *testing.T) {
	_, err := testHarness(&historyStore{}).Backfill(context.Background(), models.DateWindow{From: day("2025-01-06"), To: day("2025-01-06")}, nil, "v1")
	assert.Error(t, err)
}
