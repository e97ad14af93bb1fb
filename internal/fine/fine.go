// Package fine computes the monetary penalty for a red light violation from
// the driver's history, location factors and time of day.
package fine

import (
	"math"
	"time"

	"github.com/redgate-data/violation.report/internal/config"
	"github.com/redgate-data/violation.report/internal/profile"
)

// ZoneFactors carries the per-location multipliers supplied by the operator.
type ZoneFactors struct {
	IsSchoolZone bool
}

// Compute returns the fine amount for a violation at the given time. Factors
// apply in a fixed order: base amount, repeat-offender multiplier from the
// profile, school-zone factor, night factor. The result is rounded to cents.
//
// A nil profile (first offence for the plate) carries no repeat multiplier.
func Compute(p *profile.Aggregate, zone ZoneFactors, now time.Time, cfg *config.PipelineConfig) float64 {
	amount := cfg.GetBaseFine()

	if p != nil && p.TotalViolations > 0 {
		multiplier := 1.0 + float64(p.TotalViolations)*(cfg.GetRepeatOffenderMultiplier()-1.0)
		if multiplier < 1.0 {
			multiplier = 1.0
		}
		amount *= multiplier
	}

	if zone.IsSchoolZone {
		amount *= cfg.GetSchoolZoneFactor()
	}

	if IsNightHour(now.Hour(), cfg.GetNightHourStart(), cfg.GetNightHourEnd()) {
		amount *= cfg.GetNightFactor()
	}

	return math.Round(amount*100) / 100
}

// IsNightHour reports whether the hour falls in the configured night window.
//
// When start <= end the configured range [start, end) is the DAY window and
// night is its complement. When start > end the window wraps midnight and
// [start, 24) together with [0, end) is the night window. The two cases read
// the range differently on purpose; deployed configurations rely on it.
func IsNightHour(hour, start, end int) bool {
	if start <= end {
		return hour < start || hour >= end
	}
	return hour >= start || hour < end
}
