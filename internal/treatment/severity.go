package treatment

// Severity labels, ordered from clear skin to severe. ModerateSevere only
// appears as an overall verdict, never as a raw classifier prediction.
type Severity string

const (
	SeverityCleanskin      Severity = "cleanskin"
	SeverityMild           Severity = "mild"
	SeverityModerate       Severity = "moderate"
	SeverityModerateSevere Severity = "moderate-severe"
	SeveritySevere         Severity = "severe"
	SeverityUnknown        Severity = "unknown"
)

func ValidPrediction(s string) bool {
	switch Severity(s) {
	case SeverityCleanskin, SeverityMild, SeverityModerate, SeveritySevere, SeverityUnknown:
		return true
	}
	return false
}

// DeriveOverallSeverity folds per-area predictions into one verdict.
// Precedence over averaging: a single severe area must not be diluted by
// several clear ones. A strict moderate majority (> half, not >=) escalates
// to moderate-severe.
func DeriveOverallSeverity(predictions []Severity) Severity {
	moderateCount := 0
	mildCount := 0
	for _, p := range predictions {
		switch p {
		case SeveritySevere:
			return SeveritySevere
		case SeverityModerate:
			moderateCount++
		case SeverityMild:
			mildCount++
		}
	}
	total := len(predictions)
	if moderateCount*2 > total {
		return SeverityModerateSevere
	}
	if moderateCount > 0 {
		return SeverityModerate
	}
	if mildCount > 0 {
		return SeverityMild
	}
	return SeverityCleanskin
}

// ProfileSignals are the questionnaire answers that adjust a raw
// classification score.
type ProfileSignals struct {
	AcneDuration string
	StressLevel  string
	SkinType     string
	SleepHours   string
}

var baseScores = map[Severity]float64{
	SeverityCleanskin: 0,
	SeverityMild:      1,
	SeverityModerate:  2,
	SeveritySevere:    4,
	SeverityUnknown:   0,
}

// ScorePrediction turns one classifier prediction plus profile context into
// a numeric severity score, a label and the adjustment rationale. The
// additive bumps are fixed: +1 for >3yrs duration, +0.5 each for high
// stress, oily skin and short sleep.
func ScorePrediction(prediction Severity, profile ProfileSignals) (score float64, finalSeverity Severity, reason string) {
	score = baseScores[prediction]
	reasons := make([]string, 0, 4)

	if profile.AcneDuration == ">3yrs" {
		score += 1
		reasons = append(reasons, "long_duration")
	}
	if profile.StressLevel == "High" {
		score += 0.5
		reasons = append(reasons, "high_stress")
	}
	if profile.SkinType == "Oily" {
		score += 0.5
		reasons = append(reasons, "oily_skin")
	}
	if profile.SleepHours == "<5" {
		score += 0.5
		reasons = append(reasons, "low_sleep")
	}

	finalSeverity = SeverityCleanskin
	switch {
	case score >= 4:
		finalSeverity = SeveritySevere
	case score >= 2:
		finalSeverity = SeverityModerate
	case score >= 1:
		finalSeverity = SeverityMild
	}

	return score, finalSeverity, joinReasons(reasons)
}

func joinReasons(reasons []string) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += ", "
		}
		out += r
	}
	return out
}
