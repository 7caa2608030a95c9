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

// NewIntersectingDiagnosis returns a calculator for episode-of-care measures
// where claims sharing measure-relevant diagnosis codes form an episode.
//
// The merge is single-pass and order-dependent: each claim is compared
// against the first existing episode only, joining it on any shared relevant
// diagnosis code and opening a new episode otherwise. Chains of pairwise
// overlapping diagnosis sets are therefore not merged transitively. Changing
// this would change established population counts, so the behavior is kept
// and pinned by a regression test.
func NewIntersectingDiagnosis(def *data.MeasureDefinition) Calculator {
	relevantCodes := map[string]bool{}
	for i := range def.EligibilityOptions {
		for _, code := range def.EligibilityOptions[i].DiagnosisCodes {
			relevantCodes[code] = true
		}
	}

	m := newMeasure(def)
	m.group = func(claims []*data.Claim) ([][]*data.Claim, error) {
		var instances [][]*data.Claim
		for _, subset := range groupByBeneficiary(claims) {
			instances = append(instances, episodesByDiagnosis(subset, relevantCodes)...)
		}
		return instances, nil
	}
	return m
}

func episodesByDiagnosis(claims []*data.Claim, relevantCodes map[string]bool) [][]*data.Claim {
	var episodes [][]*data.Claim
	for _, claim := range claims {
		if len(episodes) == 0 {
			episodes = append(episodes, []*data.Claim{claim})
			continue
		}
		claimCodes := relevantDiagnosisCodes([]*data.Claim{claim}, relevantCodes)
		episodeCodes := relevantDiagnosisCodes(episodes[0], relevantCodes)
		if setsIntersect(claimCodes, episodeCodes) {
			episodes[0] = append(episodes[0], claim)
		} else {
			episodes = append(episodes, []*data.Claim{claim})
		}
	}
	return episodes
}

// relevantDiagnosisCodes returns the diagnosis codes of the claims restricted
// to the measure's relevant code set.
func relevantDiagnosisCodes(claims []*data.Claim, relevantCodes map[string]bool) map[string]bool {
	codes := map[string]bool{}
	for _, claim := range claims {
		for _, code := range claim.DiagnosisCodes {
			if relevantCodes[code] {
				codes[code] = true
			}
		}
	}
	return codes
}

func setsIntersect(a, b map[string]bool) bool {
	for code := range a {
		if b[code] {
			return true
		}
	}
	return false
}
