package market

import "time"

// TimeRange selects the resolution of a regenerated index history series.
type TimeRange string

const (
	Range1H  TimeRange = "1h"
	Range10H TimeRange = "10h"
	Range1D  TimeRange = "1d"
	Range1M  TimeRange = "1m"
	Range1Y  TimeRange = "1y"
	Range10Y TimeRange = "10y"
)

type rangeSpec struct {
	points     int
	interval   time.Duration
	volatility float64
}

// Wider ranges use fewer points with coarser spacing and more noise per
// step, so a decade looks rougher than an hour.
var rangeSpecs = map[TimeRange]rangeSpec{
	Range1H:  {points: 60, interval: time.Minute, volatility: 0.001},
	Range10H: {points: 60, interval: 10 * time.Minute, volatility: 0.002},
	Range1D:  {points: 24, interval: time.Hour, volatility: 0.005},
	Range1M:  {points: 30, interval: 24 * time.Hour, volatility: 0.01},
	Range1Y:  {points: 12, interval: 30 * 24 * time.Hour, volatility: 0.02},
	Range10Y: {points: 10, interval: 365 * 24 * time.Hour, volatility: 0.05},
}

// ParseTimeRange maps a query string to a TimeRange, defaulting to 1h for
// anything unrecognized.
func ParseTimeRange(s string) TimeRange {
	r := TimeRange(s)
	if _, ok := rangeSpecs[r]; !ok {
		return Range1H
	}
	return r
}

// historyLocked synthesizes a history series ending at the current time.
// The walk runs backwards from the live value so the newest point always
// matches what the caller just read. Callers must hold mu.
func (s *Simulator) historyLocked(current float64, r TimeRange) []HistoryPoint {
	spec, ok := rangeSpecs[r]
	if !ok {
		spec = rangeSpecs[Range1H]
	}

	now := s.now()
	points := make([]HistoryPoint, spec.points)
	v := current
	for i := spec.points - 1; i >= 0; i-- {
		ts := now.Add(-time.Duration(spec.points-1-i) * spec.interval)
		points[i] = HistoryPoint{Timestamp: ts.UnixMilli(), Value: round2(v)}
		v = s.fluctuate(v, spec.volatility)
	}
	return points
}
