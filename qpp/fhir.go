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

package qpp

import (
	"fmt"

	fm "github.com/samply/golang-fhir-models/fhir-models/fhir"
)

// measureURLBase prefixes the canonical measure URLs in exported reports.
const measureURLBase = "https://qpp.cms.gov/measures/quality/"

// MeasureReport converts a measurement set into a FHIR MeasureReport, one
// group per measure with a population per reporting bucket. Stratified
// measures map to a group stratifier. The export exists for interchange with
// FHIR tooling and carries the same counts as the submission payload.
func MeasureReport(set *MeasurementSet) fm.MeasureReport {
	report := fm.MeasureReport{
		Status:  fm.MeasureReportStatusComplete,
		Type:    fm.MeasureReportTypeSummary,
		Measure: measureURLBase + "claims",
		Period: fm.Period{
			Start: stringPtr(set.PerformanceStart.Format("2006-01-02")),
			End:   stringPtr(set.PerformanceEnd.Format("2006-01-02")),
		},
		Group: make([]fm.MeasureReportGroup, 0, len(set.Measurements)),
	}
	for _, measurement := range set.Measurements {
		report.Group = append(report.Group, measurementGroup(measurement))
	}
	return report
}

func measurementGroup(measurement Measurement) fm.MeasureReportGroup {
	group := fm.MeasureReportGroup{
		Code: &fm.CodeableConcept{
			Text: stringPtr(fmt.Sprintf("Measure %s", measurement.MeasureID)),
		},
	}
	if len(measurement.Value.Strata) > 0 {
		group.Stratifier = []fm.MeasureReportGroupStratifier{stratifier(measurement.Value.Strata)}
		return group
	}
	group.Population = populations(
		intValue(measurement.Value.PerformanceMet),
		intValue(measurement.Value.EligiblePopulationExclusion),
		intValue(measurement.Value.EligiblePopulationException),
		intValue(measurement.Value.PerformanceNotMet),
		intValue(measurement.Value.EligiblePopulation),
	)
	return group
}

func stratifier(strata []StratumValue) fm.MeasureReportGroupStratifier {
	s := fm.MeasureReportGroupStratifier{
		Code: []fm.CodeableConcept{{Text: stringPtr("stratum")}},
	}
	for _, stratum := range strata {
		s.Stratum = append(s.Stratum, fm.MeasureReportGroupStratifierStratum{
			Value:      &fm.CodeableConcept{Text: stringPtr(stratum.Stratum)},
			Population: stratumPopulations(stratum),
		})
	}
	return s
}

var populationCodes = []string{
	"performance-met",
	"eligible-population-exclusion",
	"eligible-population-exception",
	"performance-not-met",
	"eligible-population",
}

func populations(counts ...int) []fm.MeasureReportGroupPopulation {
	result := make([]fm.MeasureReportGroupPopulation, len(counts))
	for i, count := range counts {
		c := count
		result[i] = fm.MeasureReportGroupPopulation{
			Code:  &fm.CodeableConcept{Text: stringPtr(populationCodes[i])},
			Count: &c,
		}
	}
	return result
}

func stratumPopulations(stratum StratumValue) []fm.MeasureReportGroupStratifierStratumPopulation {
	counts := []int{
		stratum.PerformanceMet,
		stratum.EligiblePopulationExclusion,
		stratum.EligiblePopulationException,
		stratum.PerformanceNotMet,
		stratum.EligiblePopulation,
	}
	result := make([]fm.MeasureReportGroupStratifierStratumPopulation, len(counts))
	for i, count := range counts {
		c := count
		result[i] = fm.MeasureReportGroupStratifierStratumPopulation{
			Code:  &fm.CodeableConcept{Text: stringPtr(populationCodes[i])},
			Count: &c,
		}
	}
	return result
}

func intValue(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func stringPtr(s string) *string {
	return &s
}
