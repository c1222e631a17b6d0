package grading

import (
	"math"
	"sort"

	"github.com/Alias1177/nba-predictor/models"
)

// Compare grades one prediction against a final score. The predicted winner comes from the
// sign of the stored score margin, not from the win probability. Only an exact zero margin
// falls back to the probability, with 0.5 itself counted as an away pick.
func Compare(gameID, date, version string, f models.ForecastResult, actualHome, actualAway int) models.GradedGame {
	ah, aa := float64(actualHome), float64(actualAway)
	predHomeWin := f.HomeScore > f.AwayScore
	if f.HomeScore == f.AwayScore {
		predHomeWin = f.HomeWinProb > 0.5
	}
	actualHomeWin := actualHome > actualAway

	return models.GradedGame{
		GameID:         gameID,
		PredictionDate: date,
		ModelVersion:   version,
		PredHome:       f.HomeScore,
		PredAway:       f.AwayScore,
		ActualHome:     actualHome,
		ActualAway:     actualAway,
		CorrectWinner:  predHomeWin == actualHomeWin,
		TotalError:     math.Abs(f.Total() - (ah + aa)),
		MarginError:    math.Abs(f.Margin() - (ah - aa)),
		HomeError:      math.Abs(f.HomeScore - ah),
		AwayError:      math.Abs(f.AwayScore - aa),
	}
}

// FromRecord grades a ledger row. ok is false when the row has no actual scores.
func FromRecord(r models.PredictionRecord) (models.GradedGame, bool) {
	if !r.Graded() {
		return models.GradedGame{}, false
	}
	return Compare(r.GameID, r.PredictionDate, r.ModelVersion, r.Forecast, *r.ActualHome, *r.ActualAway), true
}

// Summarize aggregates graded games. Worst lists up to worstN games by descending total error,
// ties broken by game id then model version so the result is deterministic.
func Summarize(games []models.GradedGame, worstN int) models.Metrics {
	var m models.Metrics
	if len(games) == 0 {
		return m
	}

	var sumTotal, sumScore, sumMargin float64
	for _, g := range games {
		m.Games++
		if g.CorrectWinner {
			m.Correct++
		}
		sumTotal += g.TotalError
		sumMargin += g.MarginError
		sumScore += (g.HomeError + g.AwayError) / 2
	}

	n := float64(m.Games)
	m.Accuracy = float64(m.Correct) / n * 100
	m.MAETotal = sumTotal / n
	m.MAEScore = sumScore / n
	m.MAEMargin = sumMargin / n

	if worstN > 0 {
		sorted := make([]models.GradedGame, len(games))
		copy(sorted, games)
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].TotalError != sorted[j].TotalError {
				return sorted[i].TotalError > sorted[j].TotalError
			}
			if sorted[i].GameID != sorted[j].GameID {
				return sorted[i].GameID < sorted[j].GameID
			}
			return sorted[i].ModelVersion < sorted[j].ModelVersion
		})
		if len(sorted) > worstN {
			sorted = sorted[:worstN]
		}
		m.Worst = sorted
	}
	return m
}
