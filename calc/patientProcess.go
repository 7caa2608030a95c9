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

// NewPatientProcess returns a calculator for patient-process measures. These
// are reported once per beneficiary per year, scored on the most advantageous
// claim across the whole year.
func NewPatientProcess(def *data.MeasureDefinition) Calculator {
	m := newMeasure(def)
	m.group = func(claims []*data.Claim) ([][]*data.Claim, error) {
		return groupByBeneficiary(claims), nil
	}
	return m
}

// NewProcedure returns a calculator for procedure measures, reported each
// time the procedure is performed. Multiple qualifying procedures for the
// same beneficiary on the same date of service count as one instance.
func NewProcedure(def *data.MeasureDefinition) Calculator {
	m := newMeasure(def)
	m.group = func(claims []*data.Claim) ([][]*data.Claim, error) {
		return groupByBeneficiaryAndDate(claims), nil
	}
	return m
}
