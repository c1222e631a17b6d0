package models

import (
	"time"
)

// DateLayout is the ISO calendar-day layout used for game days and ledger dates.
const DateLayout = "2006-01-02"

// RangeZ converts a sigma into the half-width of a ~50% interval under a normal approximation.
const RangeZ = 0.67

// TeamRolling holds one team's rolling metrics entering a specific game.
// A nil field means the feature store had no value (insufficient history).
type TeamRolling struct {
	TeamID            int64    `json:"team_id"`
	Abbr              string   `json:"abbr"`
	RollingPD5        *float64 `json:"rolling_pd_5"`
	RollingPD10       *float64 `json:"rolling_pd_10"`
	RestDays          *float64 `json:"rest_days"`
	SOS               *float64 `json:"rolling_sos_10"`
	Pace              *float64 `json:"rolling_pace_10"`
	OffRating         *float64 `json:"rolling_ortg_10"`
	DefRating         *float64 `json:"rolling_drtg_10"`
	OffRebRate        *float64 `json:"rolling_oreb_10"`
	DefRebRate        *float64 `json:"rolling_dreb_10"`
	ScoringVolatility *float64 `json:"sigma_points_for"`
}

// Matchup is one scheduled game with a snapshot of both teams' rolling metrics.
type Matchup struct {
	GameID     string      `json:"game_id"`
	GameDateET time.Time   `json:"game_date_et"`
	Home       TeamRolling `json:"home"`
	Away       TeamRolling `json:"away"`
}

// Label returns "AWY @ HOM" for display.
func (m Matchup) Label() string {
	return m.Away.Abbr + " @ " + m.Home.Abbr
}

// CompletedGame is a matchup that was actually played to a final score.
type CompletedGame struct {
	Matchup
	HomePoints int `json:"home_pts"`
	AwayPoints int `json:"away_pts"`
}

// GameResult is a finalized score joined to a ledger row awaiting grading.
type GameResult struct {
	GameID       string `json:"game_id"`
	ModelVersion string `json:"model_version"`
	GameDate     string `json:"game_date"`
	HomePoints   int    `json:"home_pts"`
	AwayPoints   int    `json:"away_pts"`
}

// FeatureVector is an ordered set of named model inputs for exactly one matchup.
type FeatureVector struct {
	Names  []string  `json:"names"`
	Values []float64 `json:"values"`
}

// Get returns the value of a named feature.
func (v FeatureVector) Get(name string) (float64, bool) {
	for i, n := range v.Names {
		if n == name {
			return v.Values[i], true
		}
	}
	return 0, false
}

// Map returns the vector keyed by feature name.
func (v FeatureVector) Map() map[string]float64 {
	out := make(map[string]float64, len(v.Names))
	for i, n := range v.Names {
		out[n] = v.Values[i]
	}
	return out
}

// ForecastResult is the reconciled output of the ensemble for one game.
type ForecastResult struct {
	HomeScore   float64 `json:"home_score"`
	AwayScore   float64 `json:"away_score"`
	HomeWinProb float64 `json:"home_win_probability"`
	SigmaHome   float64 `json:"sigma_home"`
	SigmaAway   float64 `json:"sigma_away"`
}

// Margin is home score minus away score.
func (f ForecastResult) Margin() float64 { return f.HomeScore - f.AwayScore }

// Total is the combined predicted score.
func (f ForecastResult) Total() float64 { return f.HomeScore + f.AwayScore }

// HomeFavored reports whether the derived score margin picks the home team.
func (f ForecastResult) HomeFavored() bool { return f.HomeScore > f.AwayScore }

// HomeRange is the home score interval predicted ± RangeZ*sigma.
func (f ForecastResult) HomeRange() (float64, float64) {
	return f.HomeScore - RangeZ*f.SigmaHome, f.HomeScore + RangeZ*f.SigmaHome
}

// AwayRange is the away score interval predicted ± RangeZ*sigma.
func (f ForecastResult) AwayRange() (float64, float64) {
	return f.AwayScore - RangeZ*f.SigmaAway, f.AwayScore + RangeZ*f.SigmaAway
}

// Inconsistent reports whether the win probability favours the team the score margin disfavours.
func (f ForecastResult) Inconsistent() bool {
	m := f.Margin()
	return (f.HomeWinProb > 0.5 && m < 0) || (f.HomeWinProb < 0.5 && m > 0)
}

// PredictionRecord is one ledger row.
type PredictionRecord struct {
	GameID         string         `json:"game_id"`
	PredictionDate string         `json:"prediction_date"`
	ModelVersion   string         `json:"model_version"`
	Forecast       ForecastResult `json:"forecast"`
	ActualHome     *int           `json:"actual_home_score,omitempty"`
	ActualAway     *int           `json:"actual_away_score,omitempty"`
}

// Graded reports whether actual scores have been recorded.
func (r PredictionRecord) Graded() bool {
	return r.ActualHome != nil && r.ActualAway != nil
}

// GradedGame is a prediction compared against its final score.
type GradedGame struct {
	GameID         string  `json:"game_id"`
	Label          string  `json:"label,omitempty"`
	PredictionDate string  `json:"prediction_date"`
	ModelVersion   string  `json:"model_version"`
	PredHome       float64 `json:"pred_home"`
	PredAway       float64 `json:"pred_away"`
	ActualHome     int     `json:"actual_home"`
	ActualAway     int     `json:"actual_away"`
	CorrectWinner  bool    `json:"correct_winner"`
	TotalError     float64 `json:"total_error"`
	MarginError    float64 `json:"margin_error"`
	HomeError      float64 `json:"home_error"`
	AwayError      float64 `json:"away_error"`
}

// Metrics aggregates graded games. Accuracy is a percentage.
type Metrics struct {
	Games     int          `json:"games"`
	Correct   int          `json:"correct"`
	Accuracy  float64      `json:"accuracy"`
	MAETotal  float64      `json:"mae_total"`
	MAEScore  float64      `json:"mae_score"`
	MAEMargin float64      `json:"mae_margin"`
	Worst     []GradedGame `json:"worst,omitempty"`
}

// Empty reports whether no games were graded.
func (m Metrics) Empty() bool { return m.Games == 0 }

// DateWindow is an inclusive range of ET game days.
type DateWindow struct {
	From time.Time
	To   time.Time
}

// Days lists each calendar day in the window, oldest first.
func (w DateWindow) Days() []time.Time {
	var out []time.Time
	for d := w.From; !d.After(w.To); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// FromKey and ToKey return the window bounds as ledger date strings.
func (w DateWindow) FromKey() string { return w.From.Format(DateLayout) }
func (w DateWindow) ToKey() string   { return w.To.Format(DateLayout) }
