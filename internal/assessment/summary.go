package assessment

import "grc-backoffice/internal/models"

// Summary is what an assessment records about its results.
type Summary struct {
	ControlsAssessed int
	OverallScore     float64
}

// Summarize recomputes the summary from every result of an assessment. The score is the mean
// of the per-result scores and zero when there are no results.
func Summarize(results []models.AssessmentResult) Summary {
	s := Summary{ControlsAssessed: len(results)}
	if len(results) == 0 {
		return s
	}
	var total float64
	for _, r := range results {
		total += r.Result.Score()
	}
	s.OverallScore = total / float64(len(results))
	return s
}
