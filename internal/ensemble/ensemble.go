package ensemble

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Alias1177/nba-predictor/internal/features"
	"github.com/Alias1177/nba-predictor/internal/model"
	"github.com/Alias1177/nba-predictor/models"
)

// Sigma scaling references.
const (
	ReferencePace      = 100.0
	ReferenceDefRating = 115.0
)

// Risk flags attached to a forecast.
const (
	RiskCoinFlip     = "COIN_FLIP"
	RiskInconsistent = "INCONSISTENT"
	RiskMonday       = "MONDAY"
	RiskSparse       = "SPARSE_HISTORY"
)

// ErrNonFinite is returned when a model produces NaN or an infinite value.
var ErrNonFinite = errors.New("non-finite model output")

// Forecast is a reconciled prediction plus the raw model outputs it was derived from.
type Forecast struct {
	models.ForecastResult
	RawMargin float64
	RawTotal  float64
	Risks     []string
}

// Predictor combines the win, margin and total models into one coherent forecast.
type Predictor struct {
	models *model.Set
}

// New creates an ensemble over a loaded model set.
func New(set *model.Set) *Predictor {
	return &Predictor{models: set}
}

// Predict runs all three models on the same row. Model errors are returned unchanged in kind
// (wrapped) and never replaced by a fallback forecast.
func (p *Predictor) Predict(ctx context.Context, row features.Row) (Forecast, error) {
	pHome, err := p.models.Win.Predict(ctx, row.Vector)
	if err != nil {
		return Forecast{}, fmt.Errorf("win model: %w", err)
	}
	if err := finite(pHome); err != nil {
		return Forecast{}, fmt.Errorf("win model: %w", err)
	}
	if pHome < 0 || pHome > 1 {
		return Forecast{}, fmt.Errorf("win model: probability %v outside [0,1]", pHome)
	}
	total, err := p.models.Total.Predict(ctx, row.Vector)
	if err == nil {
		err = finite(total)
	}
	if err != nil {
		return Forecast{}, fmt.Errorf("total model: %w", err)
	}
	margin, err := p.models.Margin.Predict(ctx, row.Vector)
	if err == nil {
		err = finite(margin)
	}
	if err != nil {
		return Forecast{}, fmt.Errorf("margin model: %w", err)
	}

	home, away := Reconcile(total, margin)
	sigmaHome, sigmaAway := Sigmas(row.Context)

	f := Forecast{
		ForecastResult: models.ForecastResult{
			HomeScore:   home,
			AwayScore:   away,
			HomeWinProb: pHome,
			SigmaHome:   sigmaHome,
			SigmaAway:   sigmaAway,
		},
		RawMargin: margin,
		RawTotal:  total,
	}
	f.Risks = Risks(f.ForecastResult, row)
	return f, nil
}

func finite(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v", ErrNonFinite, v)
	}
	return nil
}

// Reconcile derives team scores from total and margin so that
// home-away equals margin and home+away equals total.
func Reconcile(total, margin float64) (home, away float64) {
	return (total + margin) / 2, (total - margin) / 2
}

// Sigmas scales each team's scoring volatility by game pace and the opponent's defence.
func Sigmas(c features.Context) (home, away float64) {
	paceMod := c.Pace / ReferencePace
	home = c.HomeSigmaBase * paceMod * (c.AwayDefRating / ReferenceDefRating)
	away = c.AwaySigmaBase * paceMod * (c.HomeDefRating / ReferenceDefRating)
	return home, away
}

// Risks lists the caution flags for a forecast. A win probability that disagrees with the
// score margin is reported, not resolved.
func Risks(f models.ForecastResult, row features.Row) []string {
	var risks []string
	if f.HomeWinProb > 0.45 && f.HomeWinProb < 0.55 {
		risks = append(risks, RiskCoinFlip)
	}
	if f.Inconsistent() {
		risks = append(risks, RiskInconsistent)
	}
	if dow, ok := row.Vector.Get(features.DayOfWeek); ok && dow == 1 {
		risks = append(risks, RiskMonday)
	}
	if row.Sparse() {
		risks = append(risks, RiskSparse)
	}
	return risks
}
