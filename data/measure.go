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

package data

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// A Stratum names one reporting stratum of a stratified measure.
type Stratum struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// A MeasureDefinition is the machine-readable definition of one quality
// measure as published in the measure single source. Call Compile before
// using it for calculation.
type MeasureDefinition struct {
	MeasureNumber      string              `json:"measureId"`
	Title              string              `json:"title,omitempty"`
	IsInverse          bool                `json:"isInverse"`
	EligibilityOptions []EligibilityOption `json:"eligibilityOptions"`
	PerformanceOptions []PerformanceOption `json:"performanceOptions"`
	Strata             []Stratum           `json:"strata,omitempty"`

	procedureCodeMap map[string][]*MeasureCode
	qualityCodeMap   map[string][]*MeasureCode
}

// Compile validates the definition and pre-computes the lookup structures of
// all nested options.
func (d *MeasureDefinition) Compile() error {
	if len(d.EligibilityOptions) == 0 {
		return fmt.Errorf("measure %s has no eligibility options", d.MeasureNumber)
	}
	if len(d.PerformanceOptions) == 0 {
		return fmt.Errorf("measure %s has no performance options", d.MeasureNumber)
	}
	d.procedureCodeMap = map[string][]*MeasureCode{}
	for i := range d.EligibilityOptions {
		d.EligibilityOptions[i].compile()
		mergeCodeMap(d.procedureCodeMap, d.EligibilityOptions[i].procedureMap)
	}
	d.qualityCodeMap = map[string][]*MeasureCode{}
	for i := range d.PerformanceOptions {
		if err := d.PerformanceOptions[i].compile(); err != nil {
			return fmt.Errorf("measure %s: %w", d.MeasureNumber, err)
		}
		mergeCodeMap(d.qualityCodeMap, d.PerformanceOptions[i].qualityCodeMap)
	}
	return nil
}

func mergeCodeMap(dst, src map[string][]*MeasureCode) {
	for code, variants := range src {
		dst[code] = append(dst[code], variants...)
	}
}

// QualityCodes returns the set of quality code strings across all performance
// options of the measure.
func (d *MeasureDefinition) QualityCodes() map[string]bool {
	codes := make(map[string]bool, len(d.qualityCodeMap))
	for code := range d.qualityCodeMap {
		codes[code] = true
	}
	return codes
}

// ProcedureCodes returns the set of encounter code strings across all
// eligibility options of the measure.
func (d *MeasureDefinition) ProcedureCodes() map[string]bool {
	codes := make(map[string]bool, len(d.procedureCodeMap))
	for code := range d.procedureCodeMap {
		codes[code] = true
	}
	return codes
}

// LineMatchesProcedureCode reports whether the claim line matches any
// encounter code of the measure's eligibility options, constraints included.
func (d *MeasureDefinition) LineMatchesProcedureCode(line ClaimLine) bool {
	for _, mc := range d.procedureCodeMap[line.ProcedureCode] {
		if mc.MatchesLine(line) {
			return true
		}
	}
	return false
}

// LoadSingleSource reads a measure single source file and returns the compiled
// definitions of all measures that carry performance options, keyed by
// measure number. Measures without performance options cannot be calculated
// from claims data and are skipped.
func LoadSingleSource(filename string) (map[string]*MeasureDefinition, error) {
	payload, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read single source: %w", err)
	}
	var raw map[string]*MeasureDefinition
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("parse single source %s: %w", filename, err)
	}
	definitions := make(map[string]*MeasureDefinition, len(raw))
	for number, definition := range raw {
		if len(definition.PerformanceOptions) == 0 {
			continue
		}
		definition.MeasureNumber = number
		if err := definition.Compile(); err != nil {
			return nil, err
		}
		definitions[number] = definition
	}
	return definitions, nil
}

// MeasureNumbers returns the sorted measure numbers of a definition map.
func MeasureNumbers(definitions map[string]*MeasureDefinition) []string {
	numbers := make([]string, 0, len(definitions))
	for number := range definitions {
		numbers = append(numbers, number)
	}
	sort.Strings(numbers)
	return numbers
}
