package util

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
)

// DurationStatistics represents statistics about measured durations.
// Comprises information about the mean and max as well as different
// percentiles (50, 95 and 99).
type DurationStatistics struct {
	Mean, Q50, Q95, Q99, Max time.Duration
}

// Calculates the DurationStatistics for a set of given durations.
func CalculateDurationStatistics(durations []float64) DurationStatistics {
	if len(durations) == 0 {
		return DurationStatistics{}
	}

	sort.Float64s(durations)
	return DurationStatistics{
		Mean: time.Duration(floats.Sum(durations)/float64(len(durations))*1000) * time.Millisecond,
		Q50:  time.Duration(durations[len(durations)/2]*1000) * time.Millisecond,
		Q95:  time.Duration(durations[int(float32(len(durations))*0.95)]*1000) * time.Millisecond,
		Q99:  time.Duration(durations[int(float32(len(durations))*0.99)]*1000) * time.Millisecond,
		Max:  time.Duration(durations[len(durations)-1]*1000) * time.Millisecond,
	}
}

// RateStatistics represents statistics about measure reporting rates,
// expressed as fractions in [0, 1].
type RateStatistics struct {
	Mean, Q50, Min, Max float64
}

// CalculateRateStatistics computes reporting-rate statistics for a set of rates.
func CalculateRateStatistics(rates []float64) RateStatistics {
	if len(rates) == 0 {
		return RateStatistics{}
	}

	sorted := make([]float64, len(rates))
	copy(sorted, rates)
	sort.Float64s(sorted)
	return RateStatistics{
		Mean: floats.Sum(sorted) / float64(len(sorted)),
		Q50:  sorted[len(sorted)/2],
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
	}
}

// FmtRatePercent formats a fractional rate as a percentage with two decimals.
func FmtRatePercent(rate float64) string {
	return fmt.Sprintf("%.2f %%", rate*100)
}

// FmtDurationHumanReadable takes a duration and returns it in a human readable form.
// This is basically equivalent to time.Duration.Round(time.Second) with the following differences:
//   - durations under a minute get printed with millisecond precision
//   - durations equal or above a minute get printed with second precision
func FmtDurationHumanReadable(d time.Duration) string {
	if d.Milliseconds() < 60000 {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
