package features

import (
	"github.com/Alias1177/nba-predictor/models"
)

// Feature names in the order every model artifact is trained on.
const (
	RollingPD5Diff     = "rolling_pd_5_diff"
	RollingPD10Diff    = "rolling_pd_10_diff"
	RestDaysDiff       = "rest_days_diff"
	HomeBackToBack     = "home_back_to_back"
	HomeAdvantage      = "home_advantage"
	SOSDiff            = "sos_diff"
	DayOfWeek          = "day_of_week"
	PaceMetric         = "pace_metric"
	HomeGlassAdvantage = "home_glass_advantage"
)

// Names returns the trained feature order. The slice is a fresh copy.
func Names() []string {
	return []string{
		RollingPD5Diff,
		RollingPD10Diff,
		RestDaysDiff,
		HomeBackToBack,
		HomeAdvantage,
		SOSDiff,
		DayOfWeek,
		PaceMetric,
		HomeGlassAdvantage,
	}
}

// Defaults are the neutral values substituted when a team has no rolling value.
type Defaults struct {
	PointDiff         float64
	RestDays          float64
	SOS               float64
	Pace              float64
	OffRebRate        float64
	DefRebRate        float64
	DefRating         float64
	ScoringVolatility float64
}

// LeagueDefaults are league-average substitutes.
var LeagueDefaults = Defaults{
	PointDiff:         0,
	RestDays:          1,
	SOS:               0,
	Pace:              100,
	OffRebRate:        0.25,
	DefRebRate:        0.75,
	DefRating:         112,
	ScoringVolatility: 11.0,
}

// Context carries the non-model inputs the ensemble needs for its uncertainty band.
type Context struct {
	Pace          float64
	HomeSigmaBase float64
	AwaySigmaBase float64
	HomeDefRating float64
	AwayDefRating float64
}

// Row is the aggregator output for one matchup.
type Row struct {
	Matchup models.Matchup
	Vector  models.FeatureVector
	Context Context
	// Imputed lists "home.<field>"/"away.<field>" entries that fell back to defaults.
	Imputed []string
}

// Sparse reports whether any input was substituted.
func (r Row) Sparse() bool { return len(r.Imputed) > 0 }

// Aggregator builds feature rows from matchup snapshots. It performs no I/O.
type Aggregator struct {
	defaults Defaults
}

// NewAggregator creates an aggregator using the given neutral defaults.
func NewAggregator(d Defaults) *Aggregator {
	return &Aggregator{defaults: d}
}

// Build differences home and away rolling metrics into one feature row.
func (a *Aggregator) Build(m models.Matchup) Row {
	imp := &imputer{}
	d := a.defaults

	home := resolve(m.Home, d, imp, "home")
	away := resolve(m.Away, d, imp, "away")

	backToBack := 0.0
	// a missing home rest value is not treated as a back-to-back
	if m.Home.RestDays != nil && *m.Home.RestDays == 0 {
		backToBack = 1
	}

	pace := (home.pace + away.pace) / 2.0

	values := map[string]float64{
		RollingPD5Diff:     home.pd5 - away.pd5,
		RollingPD10Diff:    home.pd10 - away.pd10,
		RestDaysDiff:       home.rest - away.rest,
		HomeBackToBack:     backToBack,
		HomeAdvantage:      1,
		SOSDiff:            home.sos - away.sos,
		DayOfWeek:          float64(m.GameDateET.Weekday()),
		PaceMetric:         pace,
		HomeGlassAdvantage: home.oreb - away.dreb,
	}

	names := Names()
	vec := models.FeatureVector{Names: names, Values: make([]float64, len(names))}
	for i, n := range names {
		vec.Values[i] = values[n]
	}

	return Row{
		Matchup: m,
		Vector:  vec,
		Context: Context{
			Pace:          pace,
			HomeSigmaBase: home.sigma,
			AwaySigmaBase: away.sigma,
			HomeDefRating: home.drtg,
			AwayDefRating: away.drtg,
		},
		Imputed: imp.fields,
	}
}

type resolved struct {
	pd5, pd10, rest, sos, pace, oreb, dreb, drtg, sigma float64
}

func resolve(t models.TeamRolling, d Defaults, imp *imputer, side string) resolved {
	return resolved{
		pd5:   imp.value(t.RollingPD5, d.PointDiff, side+".rolling_pd_5"),
		pd10:  imp.value(t.RollingPD10, d.PointDiff, side+".rolling_pd_10"),
		rest:  imp.value(t.RestDays, d.RestDays, side+".rest_days"),
		sos:   imp.value(t.SOS, d.SOS, side+".rolling_sos_10"),
		pace:  imp.value(t.Pace, d.Pace, side+".rolling_pace_10"),
		oreb:  imp.value(t.OffRebRate, d.OffRebRate, side+".rolling_oreb_10"),
		dreb:  imp.value(t.DefRebRate, d.DefRebRate, side+".rolling_dreb_10"),
		drtg:  imp.value(t.DefRating, d.DefRating, side+".rolling_drtg_10"),
		sigma: imp.value(t.ScoringVolatility, d.ScoringVolatility, side+".sigma_points_for"),
	}
}

type imputer struct {
	fields []string
}

func (i *imputer) value(v *float64, def float64, field string) float64 {
	if v == nil {
		i.fields = append(i.fields, field)
		return def
	}
	return *v
}
