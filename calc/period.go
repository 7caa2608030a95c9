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

package calc

import (
	"errors"
	"time"

	"github.com/samply/qualityctl/data"
	"github.com/samply/qualityctl/util"
)

// minimumReportingDays is the shortest allowed performance period.
const minimumReportingDays = 90

// ErrNoQualityCodes indicates a provider without any quality-coded claims in
// the requested window, so no performance period can be inferred.
var ErrNoQualityCodes = errors.New("no quality codes found in the date range")

// DeterminePerformancePeriod infers a provider's reporting period from their
// claims, bounded by the given window. The period spans the first to the last
// claim from date carrying any of the quality codes. A period shorter than
// the minimum is extended at the end, capped at the window's end; if the
// start itself lies too close to the window's end, the start is pulled back
// to the minimum length before the window's end instead.
func DeterminePerformancePeriod(claims []*data.Claim, qualityCodes map[string]bool,
	window util.DateRange) (util.DateRange, error) {

	var first, last time.Time
	for _, claim := range claims {
		if !claim.HasProcedureCode(qualityCodes) || !window.Contains(claim.FromDate) {
			continue
		}
		if first.IsZero() || claim.FromDate.Before(first) {
			first = claim.FromDate
		}
		if claim.FromDate.After(last) {
			last = claim.FromDate
		}
	}
	if first.IsZero() {
		return util.DateRange{}, ErrNoQualityCodes
	}

	lastPossibleStart := window.End.AddDate(0, 0, -minimumReportingDays)
	start := first
	if lastPossibleStart.Before(start) {
		start = lastPossibleStart
	}

	end := last
	if end.Sub(start) < minimumReportingDays*24*time.Hour {
		end = start.AddDate(0, 0, minimumReportingDays)
		if window.End.Before(end) {
			end = window.End
		}
	}
	return util.DateRange{Start: start, End: end}, nil
}
