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
	"math"
	"strings"
)

// sexCodeMap translates the sex code of a measure definition into the numeric
// code used on claim records.
var sexCodeMap = map[string]string{"M": "1", "F": "2"}

// An EligibilityOption is one clause of a measure's denominator definition. A
// claim meets the option iff all configured sub-criteria pass; sub-criteria
// without configuration are not checked at all.
type EligibilityOption struct {
	SexCode                  string        `json:"sexCode"`
	MinAge                   float64       `json:"minAge"`
	MaxAge                   float64       `json:"maxAge"`
	DiagnosisCodes           []string      `json:"diagnosisCodes"`
	DiagnosisExclusionCodes  []string      `json:"diagnosisExclusionCodes"`
	AdditionalDiagnosisCodes []string      `json:"additionalDiagnosisCodes"`
	ProcedureCodes           []MeasureCode `json:"procedureCodes"`
	AdditionalProcedureCodes []MeasureCode `json:"additionalProcedureCodes"`

	minAgeBound   float64
	maxAgeBound   float64
	dxSet         map[string]bool
	dxXSet        map[string]bool
	addDxSet      map[string]bool
	procedureMap  map[string][]*MeasureCode
	additionalMap map[string][]*MeasureCode
}

// compile pre-computes the derived state used during filtering. Diagnosis codes
// in measure definitions use dotted ICD-10 notation while the record source
// stores codes without punctuation, so dots are stripped here once.
func (o *EligibilityOption) compile() {
	o.DiagnosisCodes = stripDots(o.DiagnosisCodes)
	o.DiagnosisExclusionCodes = stripDots(o.DiagnosisExclusionCodes)
	o.AdditionalDiagnosisCodes = stripDots(o.AdditionalDiagnosisCodes)

	o.dxSet = stringSet(o.DiagnosisCodes)
	o.dxXSet = stringSet(o.DiagnosisExclusionCodes)
	o.addDxSet = stringSet(o.AdditionalDiagnosisCodes)

	for i := range o.ProcedureCodes {
		o.ProcedureCodes[i].compile()
	}
	for i := range o.AdditionalProcedureCodes {
		o.AdditionalProcedureCodes[i].compile()
	}
	o.procedureMap = codesByString(o.ProcedureCodes)
	o.additionalMap = codesByString(o.AdditionalProcedureCodes)

	o.minAgeBound = o.MinAge
	// Ages are compared on half-open intervals so that a measure with a max
	// age of 75 counts a beneficiary aged 75.8 as 75. A fractional max age is
	// a hard cutoff instead.
	switch {
	case o.MaxAge == 0:
		o.maxAgeBound = math.Inf(1)
	case o.MaxAge == math.Trunc(o.MaxAge):
		o.maxAgeBound = o.MaxAge + 1.0
	default:
		o.maxAgeBound = o.MaxAge
	}
}

// MeetsEligibility reports whether the claim satisfies every configured
// sub-criterion of this option. Checks run cheapest first and short-circuit on
// the first failure.
func (o *EligibilityOption) MeetsEligibility(claim *Claim) bool {
	if (o.MinAge != 0 || o.MaxAge != 0) && !o.meetsAgeCriteria(claim) {
		return false
	}
	if o.SexCode != "" && claim.SexCode != sexCodeMap[o.SexCode] {
		return false
	}
	if len(o.dxSet) > 0 || len(o.dxXSet) > 0 {
		if !o.meetsDiagnosisCriteria(claim) {
			return false
		}
	}
	// Additional procedure codes are checked before ordinary ones, guided by
	// the hypothesis that they are less common than ordinary encounter codes.
	if len(o.additionalMap) > 0 && !o.MeetsAdditionalProcedureCriteria(claim) {
		return false
	}
	if len(o.procedureMap) > 0 && !o.MeetsProcedureCriteria(claim) {
		return false
	}
	return true
}

func (o *EligibilityOption) meetsAgeCriteria(claim *Claim) bool {
	age := claim.Age()
	return o.minAgeBound <= age && age < o.maxAgeBound
}

func (o *EligibilityOption) meetsDiagnosisCriteria(claim *Claim) bool {
	if len(o.dxXSet) > 0 && intersects(o.dxXSet, claim.DiagnosisCodes) {
		return false
	}
	if len(o.dxSet) > 0 && !intersects(o.dxSet, claim.DiagnosisCodes) {
		return false
	}
	if len(o.addDxSet) > 0 && !intersects(o.addDxSet, claim.DiagnosisCodes) {
		return false
	}
	return true
}

// MeetsProcedureCriteria reports whether any claim line matches one of the
// option's procedure codes. Lines are matched against every measure code
// sharing their code string, since the same code string may carry different
// constraints.
func (o *EligibilityOption) MeetsProcedureCriteria(claim *Claim) bool {
	return anyLineMatches(o.procedureMap, claim)
}

// MeetsAdditionalProcedureCriteria reports whether any claim line matches one
// of the option's additional procedure codes. Relevant for measures with
// compound denominators.
func (o *EligibilityOption) MeetsAdditionalProcedureCriteria(claim *Claim) bool {
	return anyLineMatches(o.additionalMap, claim)
}

func anyLineMatches(codeMap map[string][]*MeasureCode, claim *Claim) bool {
	for _, line := range claim.Lines {
		for _, mc := range codeMap[line.ProcedureCode] {
			if mc.MatchesLine(line) {
				return true
			}
		}
	}
	return false
}

func stripDots(codes []string) []string {
	for i, code := range codes {
		codes[i] = strings.ReplaceAll(code, ".", "")
	}
	return codes
}
