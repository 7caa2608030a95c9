// Copyright 2023 - 2025 The Samply Community
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"fmt"
	"sort"
	"time"
)

// Day returns the given calendar day as a time.Time normalized to midnight UTC.
// All claim and episode dates in this module are day-precision values created
// through this function, so they are safe to compare with == and to use as map keys.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// A DateRange is a closed interval of calendar days. Start is never after End.
type DateRange struct {
	Start, End time.Time
}

// NewDateRange creates a DateRange from two dates in either order.
func NewDateRange(a, b time.Time) DateRange {
	if b.Before(a) {
		a, b = b, a
	}
	return DateRange{Start: a, End: b}
}

func (r DateRange) String() string {
	return fmt.Sprintf("DateRange(%s to %s)", r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
}

// Contains reports whether the date falls inside the range, inclusive on both ends.
func (r DateRange) Contains(date time.Time) bool {
	return !date.Before(r.Start) && !date.After(r.End)
}

// Overlaps reports whether two ranges share at least one day.
func Overlaps(a, b DateRange) bool {
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}
	end := a.End
	if b.End.Before(end) {
		end = b.End
	}
	return !start.After(end)
}

// MergeDateRanges reduces a list of ranges by merging every pair of ranges that
// overlap or lie on consecutive days. The result is sorted by start date and
// contains no two ranges closer than two days apart.
func MergeDateRanges(ranges []DateRange) []DateRange {
	if len(ranges) == 0 {
		return nil
	}

	sorted := make([]DateRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []DateRange{sorted[0]}
	for _, next := range sorted[1:] {
		last := &merged[len(merged)-1]
		// Sorting guarantees last.Start <= next.Start. Ranges on consecutive
		// days count as overlapping.
		if !next.Start.After(last.End.AddDate(0, 0, 1)) {
			if next.End.After(last.End) {
				last.End = next.End
			}
		} else {
			merged = append(merged, next)
		}
	}
	return merged
}
