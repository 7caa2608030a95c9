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

// minimumEncounters is the number of distinct encounter dates a beneficiary
// needs before contributing an eligible instance.
const minimumEncounters = 2

// NewMultipleEncounter returns a calculator for patient-process measures that
// require more than one encounter per year. Codes billed on the first
// encounter must not count toward performance, so the earliest date's claims
// are dropped from each instance; beneficiaries whose instance empties out
// (fewer distinct dates than the minimum) are dropped entirely.
func NewMultipleEncounter(def *data.MeasureDefinition) Calculator {
	m := newMeasure(def)
	m.group = func(claims []*data.Claim) ([][]*data.Claim, error) {
		var instances [][]*data.Claim
		for _, instance := range groupByBeneficiary(claims) {
			if trimmed := dropEarliestEncounter(instance); len(trimmed) > 0 {
				instances = append(instances, trimmed)
			}
		}
		return instances, nil
	}
	return m
}

func dropEarliestEncounter(instance []*data.Claim) []*data.Claim {
	earliest := instance[0].FromDate
	for _, claim := range instance[1:] {
		if claim.FromDate.Before(earliest) {
			earliest = claim.FromDate
		}
	}
	var rest []*data.Claim
	for _, claim := range instance {
		if claim.FromDate.After(earliest) {
			rest = append(rest, claim)
		}
	}
	return rest
}
