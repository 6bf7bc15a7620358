package filter

import "time"

var namedRanges = map[string]time.Duration{
	TimePastHour:    time.Hour,
	TimePast24Hours: 24 * time.Hour,
	TimePastWeek:    7 * 24 * time.Hour,
	TimePastMonth:   30 * 24 * time.Hour,
	TimePastYear:    365 * 24 * time.Hour,
}

// Threshold bounds a date filter. Nil bounds mean no filtering.
type Threshold struct {
	From *time.Time
	To   *time.Time
}

// Bounded reports whether both bounds are present.
func (t Threshold) Bounded() bool {
	return t.From != nil && t.To != nil
}

// DateThreshold resolves a time range token against now. Unrecognized tokens
// fall back to the custom bounds when both are present and otherwise resolve
// to no filter.
func DateThreshold(timeRange string, custom *DateRange, now time.Time) Threshold {
	if timeRange == TimeAny {
		return Threshold{}
	}
	if d, ok := namedRanges[timeRange]; ok {
		from := now.Add(-d)
		to := now
		return Threshold{From: &from, To: &to}
	}
	if custom.complete() {
		from, to := custom.From, custom.To
		return Threshold{From: &from, To: &to}
	}
	return Threshold{}
}

// SafetyThreshold maps a safe search level to the minimum safety score.
func SafetyThreshold(level string) float64 {
	switch level {
	case SafeStrict:
		return 0.9
	case SafeOff:
		return 0
	default:
		return 0.5
	}
}
