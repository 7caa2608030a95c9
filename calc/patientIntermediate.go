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

// NewPatientIntermediate returns a calculator for patient-intermediate
// measures. These are reported once per beneficiary per year using the most
// recent visit where quality codes were submitted. If a beneficiary has no
// quality-coded claims at all, the most recent visit overall is used.
func NewPatientIntermediate(def *data.MeasureDefinition) Calculator {
	m := newMeasure(def)
	m.group = func(claims []*data.Claim) ([][]*data.Claim, error) {
		var instances [][]*data.Claim
		for _, subset := range groupByBeneficiary(claims) {
			relevant := m.filterByQualityCodePresence(subset)
			if len(relevant) == 0 {
				relevant = subset
			}
			instances = append(instances, claimsFromLatestDate(relevant))
		}
		return instances, nil
	}
	return m
}

// claimsFromLatestDate keeps the claims sharing the most recent from date.
// Ties keep every claim from that date as one instance.
func claimsFromLatestDate(claims []*data.Claim) []*data.Claim {
	latest := claims[0].FromDate
	for _, claim := range claims[1:] {
		if claim.FromDate.After(latest) {
			latest = claim.FromDate
		}
	}
	var result []*data.Claim
	for _, claim := range claims {
		if claim.FromDate.Equal(latest) {
			result = append(result, claim)
		}
	}
	return result
}
