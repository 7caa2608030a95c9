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
	"fmt"

	"github.com/samply/qualityctl/data"
	"github.com/samply/qualityctl/util"
)

// ErrEpisodeAssignment indicates a claim that could not be assigned to any
// infection episode. Dropping such a claim silently would corrupt the
// population counts, so the calculation fails instead.
var ErrEpisodeAssignment = errors.New("no matching episode date range")

// NewMSSA returns a calculator for the MSSA bacteremia measure. Beneficiary
// infection episodes come from the episode query service as date ranges;
// overlapping or adjacent ranges are merged per beneficiary and each claim is
// assigned to the first episode containing its from date, falling back to
// line-level dates. Providers who never submitted any of the measure's
// quality codes report an empty result.
func NewMSSA(def *data.MeasureDefinition, episodes EpisodeQueryService,
	window util.DateRange) Calculator {

	m := newMeasure(def)
	qualityCodes := def.QualityCodes()

	m.filter = func(claims []*data.Claim) ([]*data.Claim, error) {
		if !anyClaimsHaveQualityCodes(claims, qualityCodes) {
			return nil, nil
		}
		return m.filterByEligibility(claims), nil
	}
	m.group = func(claims []*data.Claim) ([][]*data.Claim, error) {
		ranges, err := episodeDateRanges(def, episodes, claims, window)
		if err != nil {
			return nil, err
		}
		if len(ranges) == 0 {
			return nil, nil
		}
		return groupByEpisode(claims, ranges)
	}
	return m
}

// episodeDateRanges queries the infection date ranges for the beneficiaries
// on the claims and merges them per beneficiary. An empty answer despite
// submitted quality codes is a data-quality condition, not an error: the
// eligible population is simply zero.
func episodeDateRanges(def *data.MeasureDefinition, episodes EpisodeQueryService,
	claims []*data.Claim, window util.DateRange) (map[string][]util.DateRange, error) {

	seen := map[string]bool{}
	var beneficiaryIDs []string
	for _, claim := range claims {
		if !seen[claim.BeneficiaryID] {
			seen[claim.BeneficiaryID] = true
			beneficiaryIDs = append(beneficiaryIDs, claim.BeneficiaryID)
		}
	}

	encounterCodes := make([]string, 0, len(def.ProcedureCodes()))
	for code := range def.ProcedureCodes() {
		encounterCodes = append(encounterCodes, code)
	}

	ranges, err := episodes.MSSADateRanges(beneficiaryIDs, encounterCodes, window)
	if err != nil {
		return nil, err
	}
	merged := make(map[string][]util.DateRange, len(ranges))
	for beneficiaryID, beneficiaryRanges := range ranges {
		merged[beneficiaryID] = util.MergeDateRanges(beneficiaryRanges)
	}
	return merged, nil
}

func groupByEpisode(claims []*data.Claim, ranges map[string][]util.DateRange) ([][]*data.Claim, error) {
	index := map[instanceKey]int{}
	var instances [][]*data.Claim
	for _, claim := range claims {
		episode, ok := findEpisode(claim, ranges[claim.BeneficiaryID])
		if !ok {
			return nil, fmt.Errorf("claim %s: %w", claim.SplitClaimID, ErrEpisodeAssignment)
		}
		k := instanceKey{beneficiary: claim.BeneficiaryID, episode: episode}
		if i, ok := index[k]; ok {
			instances[i] = append(instances[i], claim)
			continue
		}
		index[k] = len(instances)
		instances = append(instances, []*data.Claim{claim})
	}
	return instances, nil
}

// findEpisode returns the index of the first date range containing the
// claim's from date, checking line-level dates when the claim level has no
// match.
func findEpisode(claim *data.Claim, ranges []util.DateRange) (int, bool) {
	for i, r := range ranges {
		if r.Contains(claim.FromDate) {
			return i, true
		}
	}
	for _, line := range claim.Lines {
		for i, r := range ranges {
			if r.Contains(line.FromDate) {
				return i, true
			}
		}
	}
	return 0, false
}
