package features

// Form thresholds on a team's five-game rolling point differential.
const (
	HotThreshold  = 4.0
	ColdThreshold = -4.0
)

// Form labels recent form from a five-game rolling point differential. A missing value
// reads as zero.
func Form(rollingPD5 *float64) (label string, value float64) {
	if rollingPD5 != nil {
		value = *rollingPD5
	}
	switch {
	case value > HotThreshold:
		return "Hot", value
	case value < ColdThreshold:
		return "Cold", value
	default:
		return "Avg", value
	}
}
