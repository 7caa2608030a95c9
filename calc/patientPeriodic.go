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
	"fmt"
	"time"

	"github.com/samply/qualityctl/data"
	"github.com/samply/qualityctl/util"
)

// NewPatientPeriodic returns a calculator for patient-periodic measures,
// reported once per beneficiary per relevant calendar period. The periods are
// not part of the measure definition JSON, so they are enumerated here per
// measure number and year; an unknown combination is a configuration error.
func NewPatientPeriodic(def *data.MeasureDefinition, year int, period util.DateRange) (Calculator, error) {
	ranges, err := periodicDateRanges(def.MeasureNumber, year, period)
	if err != nil {
		return nil, err
	}
	m := newMeasure(def)
	m.dateRanges = ranges

	// A claim overlapping several periods contributes a distinct instance
	// per period, so the grouping key carries the period index.
	m.group = func(claims []*data.Claim) ([][]*data.Claim, error) {
		index := map[instanceKey]int{}
		var instances [][]*data.Claim
		for _, claim := range claims {
			for i, r := range ranges {
				if !claimInDateRange(claim, r) {
					continue
				}
				k := instanceKey{beneficiary: claim.BeneficiaryID, episode: i}
				if j, ok := index[k]; ok {
					instances[j] = append(instances[j], claim)
					continue
				}
				index[k] = len(instances)
				instances = append(instances, []*data.Claim{claim})
			}
		}
		return instances, nil
	}
	return m, nil
}

func periodicDateRanges(measureNumber string, year int, period util.DateRange) ([]util.DateRange, error) {
	switch {
	case measureNumber == "110":
		return fluSeasons(period), nil
	case measureNumber == "014" && year == 2018:
		// The single source carried wrong codes for this measure until
		// they were corrected in February 2018, so January is excluded.
		return []util.DateRange{util.NewDateRange(
			util.Day(2018, time.February, 1),
			util.Day(2018, time.December, 31),
		)}, nil
	}
	return nil, fmt.Errorf("measure %s is not a patient-periodic measure in year %d",
		measureNumber, year)
}

// fluSeasons returns the January to March and October to December windows of
// every year the period touches. Windows outside the period are harmless
// since no claim can match them.
func fluSeasons(period util.DateRange) []util.DateRange {
	var ranges []util.DateRange
	for year := period.Start.Year(); year <= period.End.Year(); year++ {
		ranges = append(ranges,
			util.NewDateRange(util.Day(year, time.January, 1), util.Day(year, time.March, 31)),
			util.NewDateRange(util.Day(year, time.October, 1), util.Day(year, time.December, 31)),
		)
	}
	return ranges
}
