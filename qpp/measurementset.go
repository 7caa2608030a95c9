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

// Package qpp builds and submits measurement sets for the Quality Payment
// Program submissions API.
package qpp

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/samply/qualityctl/calc"
)

var (
	tinPattern = regexp.MustCompile(`^[0-9]{9}$`)
	npiPattern = regexp.MustCompile(`^[0-9]{10}$`)

	// The submissions API accepts obviously fake identifiers starting with
	// zeros for non-production use.
	fakeTINPattern = regexp.MustCompile(`^0{3}[0-9]{6}$`)
	fakeNPIPattern = regexp.MustCompile(`^0[0-9]{9}$`)
)

var (
	ErrTINFormat = errors.New("incorrectly formatted TIN")
	ErrNPIFormat = errors.New("incorrectly formatted NPI")
)

// A Date marshals as a plain YYYY-MM-DD string, the only date form the
// submissions API accepts.
type Date struct {
	time.Time
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format("2006-01-02"))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}
	d.Time = parsed
	return nil
}

// Submission identifies the provider and program a measurement set belongs
// to.
type Submission struct {
	ProgramName     string `json:"programName"`
	EntityType      string `json:"entityType"`
	TIN             string `json:"taxpayerIdentificationNumber"`
	NPI             string `json:"nationalProviderIdentifier"`
	PerformanceYear int    `json:"performanceYear"`
}

// A Measurement carries the population counts of one measure, either inline
// or split into strata.
type Measurement struct {
	MeasureID string           `json:"measureId"`
	Value     MeasurementValue `json:"value"`
}

type MeasurementValue struct {
	IsEndToEndReported bool `json:"isEndToEndReported"`

	PerformanceMet              *int `json:"performanceMet,omitempty"`
	EligiblePopulationExclusion *int `json:"eligiblePopulationExclusion,omitempty"`
	EligiblePopulationException *int `json:"eligiblePopulationException,omitempty"`
	PerformanceNotMet           *int `json:"performanceNotMet,omitempty"`
	EligiblePopulation          *int `json:"eligiblePopulation,omitempty"`

	Strata []StratumValue `json:"strata,omitempty"`
}

type StratumValue struct {
	Stratum                     string `json:"stratum"`
	PerformanceMet              int    `json:"performanceMet"`
	EligiblePopulationExclusion int    `json:"eligiblePopulationExclusion"`
	EligiblePopulationException int    `json:"eligiblePopulationException"`
	PerformanceNotMet           int    `json:"performanceNotMet"`
	EligiblePopulation          int    `json:"eligiblePopulation"`
}

// A MeasurementSet is the submission payload for one provider: one
// measurement per calculated claims quality measure.
type MeasurementSet struct {
	Submission       Submission    `json:"submission"`
	Category         string        `json:"category"`
	SubmissionMethod string        `json:"submissionMethod"`
	PerformanceStart Date          `json:"performanceStart"`
	PerformanceEnd   Date          `json:"performanceEnd"`
	Measurements     []Measurement `json:"measurements"`

	// FilterZeroReporting drops measures whose four reporting buckets are
	// all zero instead of adding them.
	FilterZeroReporting bool `json:"-"`
}

// MeasurementSetOptions configures construction of a MeasurementSet.
type MeasurementSetOptions struct {
	// ObscureProviders replaces real identifiers with fake ones, for runs
	// against non-production endpoints.
	ObscureProviders    bool
	FilterZeroReporting bool
}

// NewMeasurementSet returns an empty measurement set for the provider and
// performance period. The TIN must be 9 digits and the NPI 10; surrounding
// whitespace is tolerated.
func NewMeasurementSet(tin, npi string, start, end time.Time,
	opts MeasurementSetOptions) (*MeasurementSet, error) {

	if opts.ObscureProviders {
		tin, npi = obscureProvider(tin, npi)
	} else {
		var err error
		if tin, err = validateIdentifier(tin, tinPattern, ErrTINFormat); err != nil {
			return nil, err
		}
		if npi, err = validateIdentifier(npi, npiPattern, ErrNPIFormat); err != nil {
			return nil, err
		}
	}
	return &MeasurementSet{
		Submission: Submission{
			ProgramName:     "mips",
			EntityType:      "individual",
			TIN:             tin,
			NPI:             npi,
			PerformanceYear: end.Year(),
		},
		Category:            "quality",
		SubmissionMethod:    "claims",
		PerformanceStart:    Date{start},
		PerformanceEnd:      Date{end},
		FilterZeroReporting: opts.FilterZeroReporting,
	}, nil
}

func validateIdentifier(id string, pattern *regexp.Regexp, formatErr error) (string, error) {
	if pattern.MatchString(id) {
		return id, nil
	}
	if trimmed := strings.TrimSpace(id); pattern.MatchString(trimmed) {
		return trimmed, nil
	}
	return "", formatErr
}

// obscureProvider swaps real identifiers for fresh fake ones. Identifiers
// that are already fake pass through, keeping repeated runs stable.
func obscureProvider(tin, npi string) (string, string) {
	if !fakeTINPattern.MatchString(tin) {
		tin = fmt.Sprintf("%09d", rand.Intn(1_000_000))
	}
	if !fakeNPIPattern.MatchString(npi) {
		npi = fmt.Sprintf("%010d", rand.Intn(1_000_000_000))
	}
	return tin, npi
}

// IsEmpty reports whether no measurements were added.
func (s *MeasurementSet) IsEmpty() bool {
	return len(s.Measurements) == 0
}

// UpdatePerformancePeriod replaces the performance period.
func (s *MeasurementSet) UpdatePerformancePeriod(start, end time.Time) {
	s.PerformanceStart = Date{start}
	s.PerformanceEnd = Date{end}
	s.Submission.PerformanceYear = end.Year()
}

// AddMeasure adds the counts of a single-stratum measure. Measures with an
// empty eligible population are skipped, as are all-zero reporters when
// zero filtering is on. Reports whether the measure was added.
func (s *MeasurementSet) AddMeasure(measureNumber string, counts calc.Counts) bool {
	if counts.EligiblePopulation == 0 {
		return false
	}
	if s.FilterZeroReporting && !hasNonZeroReporting(counts) {
		return false
	}
	s.Measurements = append(s.Measurements, Measurement{
		MeasureID: formatMeasureID(measureNumber),
		Value: MeasurementValue{
			PerformanceMet:              intPtr(counts.PerformanceMet),
			EligiblePopulationExclusion: intPtr(counts.EligiblePopulationExclusion),
			EligiblePopulationException: intPtr(counts.EligiblePopulationException),
			PerformanceNotMet:           intPtr(counts.PerformanceNotMet),
			EligiblePopulation:          intPtr(counts.EligiblePopulation),
		},
	})
	return true
}

// AddMeasureWithStrata adds a multi-stratum measure. The measure is skipped
// when every stratum has an empty eligible population, or, with zero
// filtering on, when no stratum reports anything. Reports whether the
// measure was added.
func (s *MeasurementSet) AddMeasureWithStrata(measureNumber string, strata []calc.StratumResult) bool {
	anyEligible := false
	anyReporting := false
	for _, stratum := range strata {
		if stratum.Counts.EligiblePopulation > 0 {
			anyEligible = true
		}
		if hasNonZeroReporting(stratum.Counts) {
			anyReporting = true
		}
	}
	if !anyEligible {
		return false
	}
	if s.FilterZeroReporting && !anyReporting {
		return false
	}

	value := MeasurementValue{}
	for _, stratum := range strata {
		value.Strata = append(value.Strata, StratumValue{
			Stratum:                     stratum.Name,
			PerformanceMet:              stratum.Counts.PerformanceMet,
			EligiblePopulationExclusion: stratum.Counts.EligiblePopulationExclusion,
			EligiblePopulationException: stratum.Counts.EligiblePopulationException,
			PerformanceNotMet:           stratum.Counts.PerformanceNotMet,
			EligiblePopulation:          stratum.Counts.EligiblePopulation,
		})
	}
	s.Measurements = append(s.Measurements, Measurement{
		MeasureID: formatMeasureID(measureNumber),
		Value:     value,
	})
	return true
}

// AddResult adds a calculation result, routing to the stratified form when
// strata are present.
func (s *MeasurementSet) AddResult(measureNumber string, result calc.Result) bool {
	if len(result.Strata) > 0 {
		return s.AddMeasureWithStrata(measureNumber, result.Strata)
	}
	return s.AddMeasure(measureNumber, result.Counts)
}

func hasNonZeroReporting(counts calc.Counts) bool {
	return counts.PerformanceMet+counts.PerformanceNotMet+
		counts.EligiblePopulationExclusion+counts.EligiblePopulationException > 0
}

// formatMeasureID zero-pads numeric measure numbers to three digits.
func formatMeasureID(measureNumber string) string {
	if n, err := strconv.Atoi(measureNumber); err == nil {
		return fmt.Sprintf("%03d", n)
	}
	return measureNumber
}

func intPtr(i int) *int {
	return &i
}
