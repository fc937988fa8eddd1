package services

import (
	"math"
	"time"

	"github.com/propcare/backend/internal/models"
)

// DefaultSLADays is assumed when a ticket carries no SLA duration.
const DefaultSLADays = 7

// aheadOfScheduleRatio marks a resolution as "exceeded" (ahead of
// schedule) when less than this fraction of the expected time was used.
const aheadOfScheduleRatio = 0.3

// SLAEvaluation is the write-once timing verdict attached to a resolution
// event. It is never recomputed retroactively.
type SLAEvaluation struct {
	ExpectedDays float64
	ActualDays   float64
	Status       models.SLAStatus
}

// ExpectedSLADays converts an SLA duration to days. Supported units are
// days, hours (calendar fraction, for elapsed-time comparison) and weeks.
func ExpectedSLADays(value int, unit string) float64 {
	if value <= 0 {
		return DefaultSLADays
	}
	switch unit {
	case "hours":
		return float64(value) / 24
	case "weeks":
		return float64(value) * 7
	default:
		return float64(value)
	}
}

// ClassifySLA grades elapsed time against the expectation: missed when the
// expectation was blown, exceeded when resolved well ahead of schedule,
// met otherwise.
func ClassifySLA(expectedDays, elapsedDays float64) models.SLAStatus {
	switch {
	case elapsedDays > expectedDays:
		return models.SLAMissed
	case elapsedDays < aheadOfScheduleRatio*expectedDays:
		return models.SLAExceeded
	default:
		return models.SLAMet
	}
}

// EvaluateSLA produces the timing verdict for a resolution event.
// Classification applies to the first workflow step only; later steps
// default to met until per-step time tracking lands.
func EvaluateSLA(createdAt, resolvedAt time.Time, slaValue int, slaUnit string, stepNumber int) SLAEvaluation {
	expected := ExpectedSLADays(slaValue, slaUnit)
	elapsed := roundDays(resolvedAt.Sub(createdAt).Hours() / 24)

	status := models.SLAMet
	if stepNumber <= 1 {
		status = ClassifySLA(expected, elapsed)
	}

	return SLAEvaluation{
		ExpectedDays: expected,
		ActualDays:   elapsed,
		Status:       status,
	}
}

func roundDays(d float64) float64 {
	return math.Round(d*100) / 100
}
