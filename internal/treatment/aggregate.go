package treatment

import "errors"

// ErrNoPredictions is returned when a session has nothing to aggregate.
// Callers must surface this instead of defaulting to cleanskin.
var ErrNoPredictions = errors.New("no predictions found for session")

// SessionRecord is one scored prediction inside a session.
type SessionRecord struct {
	SeverityScore float64
	FaceArea      string
}

// SessionSummary reports the dominant record and the derived verdict.
// AverageScore is diagnostic only; the label always comes from the highest
// score.
type SessionSummary struct {
	FinalSeverity     Severity
	HighestScore      float64
	DominantArea      string
	AggregationReason string
	AverageScore      float64
}

// AggregateSession picks the record with the maximum severity score as
// dominant and maps its score to a label through fixed thresholds.
func AggregateSession(records []SessionRecord) (SessionSummary, error) {
	if len(records) == 0 {
		return SessionSummary{}, ErrNoPredictions
	}

	highest := records[0]
	totalScore := 0.0
	for _, r := range records {
		totalScore += r.SeverityScore
		if r.SeverityScore > highest.SeverityScore {
			highest = r
		}
	}

	finalSeverity := SeverityCleanskin
	switch {
	case highest.SeverityScore >= 4:
		finalSeverity = SeveritySevere
	case highest.SeverityScore >= 3:
		finalSeverity = SeverityModerateSevere
	case highest.SeverityScore >= 2:
		finalSeverity = SeverityModerate
	case highest.SeverityScore >= 1:
		finalSeverity = SeverityMild
	}

	return SessionSummary{
		FinalSeverity:     finalSeverity,
		HighestScore:      highest.SeverityScore,
		DominantArea:      highest.FaceArea,
		AggregationReason: "highest_area_dominates",
		AverageScore:      totalScore / float64(len(records)),
	}, nil
}
