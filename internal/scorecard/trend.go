package scorecard

import (
	"time"

	"grc-backoffice/internal/models"

	"github.com/google/uuid"
)

type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDeclining TrendDirection = "declining"
	TrendStable    TrendDirection = "stable"
)

const (
	trendWindowDays = 30
	trendThreshold  = 2
)

type Trend struct {
	PreviousPeriod int            `json:"previousPeriod"`
	Change         int            `json:"change"`
	Trend          TrendDirection `json:"trend"`
}

// CalculateTrend estimates the compliance of 30 days ago from control recency: controls
// implemented and touched inside the window are assumed not implemented before it.
// There is no historical scorecard store, so updated_at is the only signal available.
//
// Returns nil when the framework has no mapped controls.
func CalculateTrend(controlIDs []uuid.UUID, controls []models.UnifiedControl, current int, now time.Time) *Trend {
	if len(controlIDs) == 0 {
		return nil
	}

	since := now.AddDate(0, 0, -trendWindowDays)

	var implemented, recent int
	for _, c := range controls {
		if c.ImplementationStatus != models.ImplImplemented {
			continue
		}
		implemented++
		if !c.UpdatedAt.IsZero() && !c.UpdatedAt.Before(since) {
			recent++
		}
	}

	previous := current
	if len(controls) > 0 {
		previous = percent(implemented-recent, len(controls))
	}

	change := current - previous
	direction := TrendStable
	switch {
	case change > trendThreshold:
		direction = TrendImproving
	case change < -trendThreshold:
		direction = TrendDeclining
	}

	return &Trend{
		PreviousPeriod: previous,
		Change:         change,
		Trend:          direction,
	}
}
