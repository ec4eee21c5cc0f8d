package progress

import (
	"fmt"
	"math"
	"time"
)

type Timeframe string

const (
	TimeframeWeek       Timeframe = "7d"
	TimeframeMonth      Timeframe = "1m"
	TimeframeQuarter    Timeframe = "3m"
	TimeframeHalfYear   Timeframe = "6m"
	TimeframeYear       Timeframe = "1y"
	TimeframeAll        Timeframe = "all"
	DefaultMaxPoints              = 6
)

func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(s) {
	case TimeframeWeek, TimeframeMonth, TimeframeQuarter,
		TimeframeHalfYear, TimeframeYear, TimeframeAll:
		return Timeframe(s), nil
	default:
		return "", fmt.Errorf("invalid timeframe [%s]", s)
	}
}

// Cutoff returns the earliest date still inside the timeframe,
// relative to now. For TimeframeAll the zero time is returned, which
// cuts nothing off.
func (t Timeframe) Cutoff(now time.Time) time.Time {
	switch t {
	case TimeframeWeek:
		return now.AddDate(0, 0, -7)
	case TimeframeMonth:
		return now.AddDate(0, -1, 0)
	case TimeframeQuarter:
		return now.AddDate(0, -3, 0)
	case TimeframeHalfYear:
		return now.AddDate(0, -6, 0)
	case TimeframeYear:
		return now.AddDate(-1, 0, 0)
	default:
		return time.Time{}
	}
}

// Window narrows a progress series: drop points before the timeframe
// cutoff, then thin what is left down to at most MaxPoints. The zero
// Window keeps everything.
type Window struct {
	Timeframe Timeframe
	MaxPoints int
	Now       time.Time
}

func (w Window) Apply(points []DataPoint) []DataPoint {
	if w.Timeframe != "" && w.Timeframe != TimeframeAll {
		now := w.Now
		if now.IsZero() {
			now = time.Now()
		}
		cutoff := w.Timeframe.Cutoff(now)
		kept := make([]DataPoint, 0, len(points))
		for _, p := range points {
			if !p.Date.Before(cutoff) {
				kept = append(kept, p)
			}
		}
		points = kept
	}

	return downsample(points, w.MaxPoints)
}

// downsample keeps at most maxPoints points, always including the
// first and the last, with the interior picked at even strides.
func downsample(points []DataPoint, maxPoints int) []DataPoint {
	if maxPoints <= 0 || len(points) <= maxPoints {
		return points
	}
	if maxPoints == 1 {
		return points[len(points)-1:]
	}

	sampled := make([]DataPoint, 0, maxPoints)
	n := len(points)
	for i := 0; i < maxPoints; i++ {
		idx := int(math.Round(float64(i) * float64(n-1) / float64(maxPoints-1)))
		sampled = append(sampled, points[idx])
	}
	return sampled
}
