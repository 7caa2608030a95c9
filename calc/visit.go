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

// NewVisit returns a calculator for visit measures, reported each time the
// provider sees the patient. Instances group by beneficiary and date of
// service like procedure measures, but each measure-relevant claim line in an
// instance contributes one unit to the winning marker's count instead of one
// unit per instance.
func NewVisit(def *data.MeasureDefinition) Calculator {
	m := newMeasure(def)
	configureVisit(m)
	return m
}

func configureVisit(m *measure) {
	m.group = func(claims []*data.Claim) ([][]*data.Claim, error) {
		return groupByBeneficiaryAndDate(claims), nil
	}
	m.score = func(instances [][]*data.Claim) Counts {
		var counts Counts
		for _, instance := range instances {
			_, marker := m.mostAdvantageous(instance)
			counts.add(marker, instanceLineWeight(m.def, instance))
		}
		return counts
	}
}

// instanceLineWeight counts the claim lines across the instance that match an
// encounter code of the measure, constraints included.
func instanceLineWeight(def *data.MeasureDefinition, instance []*data.Claim) int {
	weight := 0
	for _, claim := range instance {
		for _, line := range claim.Lines {
			if def.LineMatchesProcedureCode(line) {
				weight++
			}
		}
	}
	return weight
}
