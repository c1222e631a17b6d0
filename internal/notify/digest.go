package notify

import (
	"fmt"
	"strings"

	"github.com/Alias1177/nba-predictor/internal/features"
	"github.com/Alias1177/nba-predictor/internal/pipeline"
	"github.com/Alias1177/nba-predictor/models"
)

// PredictionDigest renders a prediction run for humans. displayDay is the date the user asked
// for; the game day is the provider's ET date it mapped to.
func PredictionDigest(displayDay string, res pipeline.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "NBA predictions for %s (ET game day %s)\n", displayDay, res.GameDay.Format(models.DateLayout))

	for _, p := range res.Predictions {
		m := p.Row.Matchup
		f := p.Forecast

		b.WriteString("\n")
		b.WriteString(m.Label())
		b.WriteString("\n")
		awayLo, awayHi := f.AwayRange()
		homeLo, homeHi := f.HomeRange()
		writeTeamLine(&b, m.Away, f.AwayScore, 1-f.HomeWinProb, awayLo, awayHi)
		writeTeamLine(&b, m.Home, f.HomeScore, f.HomeWinProb, homeLo, homeHi)
		if len(f.Risks) > 0 {
			fmt.Fprintf(&b, "  risks: %s\n", strings.Join(f.Risks, ", "))
		}
		if p.Err != nil {
			b.WriteString("  not saved\n")
		}
	}

	fmt.Fprintf(&b, "\nSaved %d, failed %d\n", res.Written, res.Failed)
	return b.String()
}

func writeTeamLine(b *strings.Builder, t models.TeamRolling, score, winProb, lo, hi float64) {
	label, form := features.Form(t.RollingPD5)
	fmt.Fprintf(b, "  %-4s %5.1f  (%d-%d)  %5.1f%%  %s (%+.1f)\n",
		t.Abbr, score, int(lo), int(hi), winProb*100, label, form)
}

// MetricsDigest renders accuracy metrics over a window.
func MetricsDigest(title string, w models.DateWindow, m models.Metrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s to %s\n", title, w.FromKey(), w.ToKey())

	if m.Empty() {
		b.WriteString("No graded games in range\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Games: %d\n", m.Games)
	fmt.Fprintf(&b, "Winner accuracy: %d/%d (%.1f%%)\n", m.Correct, m.Games, m.Accuracy)
	fmt.Fprintf(&b, "Total MAE: %.2f\n", m.MAETotal)
	fmt.Fprintf(&b, "Score MAE: %.2f\n", m.MAEScore)
	fmt.Fprintf(&b, "Margin MAE: %.2f\n", m.MAEMargin)

	if len(m.Worst) > 0 {
		b.WriteString("Worst misses:\n")
		for _, g := range m.Worst {
			name := g.Label
			if name == "" {
				name = g.GameID
			}
			fmt.Fprintf(&b, "  %s %s: predicted %.0f-%.0f, actual %d-%d (total off %.1f)\n",
				g.PredictionDate, name, g.PredHome, g.PredAway, g.ActualHome, g.ActualAway, g.TotalError)
		}
	}
	return b.String()
}
