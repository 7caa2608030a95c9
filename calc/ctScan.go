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

import "github.com/samply/qualityctl/data"

// NewCTScan returns a calculator for the CT scan best-practice measures. On
// top of the usual eligibility filtering, a claim only stays relevant if a CT
// scan was recorded for the beneficiary on the date of a qualifying
// encounter line, possibly by a different provider; that lookup goes through
// the episode query service. Providers who never submitted any of the
// measure's quality codes report an empty result.
func NewCTScan(def *data.MeasureDefinition, episodes EpisodeQueryService) Calculator {
	m := newMeasure(def)
	encounterCodes := def.ProcedureCodes()
	qualityCodes := def.QualityCodes()

	m.filter = func(claims []*data.Claim) ([]*data.Claim, error) {
		if !anyClaimsHaveQualityCodes(claims, qualityCodes) {
			return nil, nil
		}
		relevant := m.filterByEligibility(claims)
		return filterByCTScan(relevant, encounterCodes, episodes)
	}
	m.group = func(claims []*data.Claim) ([][]*data.Claim, error) {
		return groupByBeneficiary(claims), nil
	}
	return m
}

// filterByCTScan keeps the claims with a qualifying encounter line on a date
// the beneficiary had a CT scan. Line-level from dates are used since the
// scan must coincide with the encounter itself.
func filterByCTScan(claims []*data.Claim, encounterCodes map[string]bool,
	episodes EpisodeQueryService) ([]*data.Claim, error) {

	seen := map[BeneficiaryDate]bool{}
	var pairs []BeneficiaryDate
	for _, claim := range claims {
		for _, line := range claim.Lines {
			if !encounterCodes[line.ProcedureCode] {
				continue
			}
			pair := BeneficiaryDate{BeneficiaryID: claim.BeneficiaryID, Date: line.FromDate}
			if !seen[pair] {
				seen[pair] = true
				pairs = append(pairs, pair)
			}
		}
	}
	if len(pairs) == 0 {
		return nil, nil
	}

	scanned, err := episodes.CTScanDates(pairs)
	if err != nil {
		return nil, err
	}

	var result []*data.Claim
	for _, claim := range claims {
		for _, line := range claim.Lines {
			if !encounterCodes[line.ProcedureCode] {
				continue
			}
			if scanned[BeneficiaryDate{BeneficiaryID: claim.BeneficiaryID, Date: line.FromDate}] {
				result = append(result, claim)
				break
			}
		}
	}
	return result, nil
}
