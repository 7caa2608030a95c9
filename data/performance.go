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

import "fmt"

// Performance option types in the order of their scoring advantage for a
// normal (non-inverse) measure.
const (
	OptionTypeMet       = "performanceMet"
	OptionTypeExclusion = "eligiblePopulationExclusion"
	OptionTypeException = "eligiblePopulationException"
	OptionTypeNotMet    = "performanceNotMet"
)

var validOptionTypes = map[string]bool{
	OptionTypeMet:       true,
	OptionTypeExclusion: true,
	OptionTypeException: true,
	OptionTypeNotMet:    true,
}

// A PerformanceOption describes one way a provider can report on an eligible
// instance. A claim matches the option iff it carries all of the option's
// quality codes on its lines.
type PerformanceOption struct {
	OptionType   string        `json:"optionType"`
	QualityCodes []MeasureCode `json:"qualityCodes"`

	qualityCodeMap map[string][]*MeasureCode
}

func (o *PerformanceOption) compile() error {
	if !validOptionTypes[o.OptionType] {
		return fmt.Errorf("invalid performance option type %q", o.OptionType)
	}
	if len(o.QualityCodes) == 0 {
		return fmt.Errorf("performance option of type %s has no quality codes", o.OptionType)
	}
	for i := range o.QualityCodes {
		o.QualityCodes[i].compile()
	}
	o.qualityCodeMap = codesByString(o.QualityCodes)
	return nil
}

// MatchesClaim reports whether the claim satisfies every quality code of the
// option. Each quality code must be matched by at least one line; a single
// line may satisfy several codes.
func (o *PerformanceOption) MatchesClaim(claim *Claim) bool {
	for i := range o.QualityCodes {
		if !claimMatchesCode(&o.QualityCodes[i], claim) {
			return false
		}
	}
	return true
}

func claimMatchesCode(code *MeasureCode, claim *Claim) bool {
	for _, line := range claim.Lines {
		if code.MatchesLine(line) {
			return true
		}
	}
	return false
}
