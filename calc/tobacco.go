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
	"fmt"

	"github.com/samply/qualityctl/data"
)

// tobaccoOptionsByStratum hard-codes the performance options per stratum of
// the tobacco use screening measure. The declarative measure source cannot
// express eligibility and performance options that do not interact, so the
// pairing lives here; the coupling between stratum name and option set is a
// known fragility of the upstream data model, kept explicit rather than
// generalized.
var tobaccoOptionsByStratum = map[string][]data.PerformanceOption{
	"screenedForUse": {
		{OptionType: data.OptionTypeMet, QualityCodes: []data.MeasureCode{{Code: "G9902"}}},
		{OptionType: data.OptionTypeMet, QualityCodes: []data.MeasureCode{{Code: "G9903"}}},
		{OptionType: data.OptionTypeException, QualityCodes: []data.MeasureCode{{Code: "G9904"}}},
		{OptionType: data.OptionTypeNotMet, QualityCodes: []data.MeasureCode{{Code: "G9905"}}},
	},
	"intervention": {
		{OptionType: data.OptionTypeMet, QualityCodes: []data.MeasureCode{{Code: "G9906"}}},
		{OptionType: data.OptionTypeException, QualityCodes: []data.MeasureCode{{Code: "G9907"}}},
		{OptionType: data.OptionTypeNotMet, QualityCodes: []data.MeasureCode{{Code: "G9908"}}},
	},
	"overall": {
		{OptionType: data.OptionTypeMet, QualityCodes: []data.MeasureCode{
			{Code: "1036F", ModifierExclusions: []string{"1P", "2P", "3P", "8P"}},
		}},
		{OptionType: data.OptionTypeException, QualityCodes: []data.MeasureCode{
			{Code: "4004F", Modifiers: []string{"1P"}, ModifierExclusions: []string{"2P", "3P", "8P"}},
		}},
		{OptionType: data.OptionTypeMet, QualityCodes: []data.MeasureCode{
			{Code: "4004F", ModifierExclusions: []string{"1P", "2P", "3P", "8P"}},
		}},
		{OptionType: data.OptionTypeNotMet, QualityCodes: []data.MeasureCode{
			{Code: "4004F", Modifiers: []string{"8P"}, ModifierExclusions: []string{"1P", "2P", "3P"}},
		}},
		{OptionType: data.OptionTypeException, QualityCodes: []data.MeasureCode{
			{Code: "G9909", ModifierExclusions: []string{"1P", "2P", "3P", "8P"}},
		}},
	},
}

// A Tobacco calculator scores the tobacco use screening measure. Since 2018
// the measure has one stratum per eligibility option, each with its own
// performance option set, so it decomposes into independent patient-process
// submeasures whose results are reported side by side.
type Tobacco struct {
	def         *data.MeasureDefinition
	submeasures []tobaccoSubmeasure
}

type tobaccoSubmeasure struct {
	name string
	calc Calculator
}

// NewTobacco returns a calculator for the multi-stratum tobacco use
// screening measure. The definition must pair each stratum with one
// eligibility option, in order.
func NewTobacco(def *data.MeasureDefinition) (*Tobacco, error) {
	if len(def.Strata) < 2 {
		return nil, fmt.Errorf("measure %s: multiple strata expected", def.MeasureNumber)
	}
	if len(def.Strata) != len(def.EligibilityOptions) {
		return nil, fmt.Errorf("measure %s: %d strata but %d eligibility options",
			def.MeasureNumber, len(def.Strata), len(def.EligibilityOptions))
	}
	t := &Tobacco{def: def}
	for i, stratum := range def.Strata {
		options, ok := tobaccoOptionsByStratum[stratum.Name]
		if !ok {
			return nil, fmt.Errorf("measure %s: unknown stratum %q",
				def.MeasureNumber, stratum.Name)
		}
		subDef := &data.MeasureDefinition{
			MeasureNumber:      def.MeasureNumber,
			IsInverse:          def.IsInverse,
			EligibilityOptions: []data.EligibilityOption{def.EligibilityOptions[i]},
			PerformanceOptions: clonePerformanceOptions(options),
		}
		if err := subDef.Compile(); err != nil {
			return nil, err
		}
		t.submeasures = append(t.submeasures, tobaccoSubmeasure{
			name: stratum.Name,
			calc: NewPatientProcess(subDef),
		})
	}
	return t, nil
}

func clonePerformanceOptions(options []data.PerformanceOption) []data.PerformanceOption {
	cloned := make([]data.PerformanceOption, len(options))
	for i, option := range options {
		cloned[i] = data.PerformanceOption{
			OptionType:   option.OptionType,
			QualityCodes: append([]data.MeasureCode(nil), option.QualityCodes...),
		}
	}
	return cloned
}

func (t *Tobacco) Definition() *data.MeasureDefinition {
	return t.def
}

// Execute scores every submeasure independently over the full claim list.
func (t *Tobacco) Execute(claims []*data.Claim) (Result, error) {
	var result Result
	for _, sub := range t.submeasures {
		subResult, err := sub.calc.Execute(claims)
		if err != nil {
			return Result{}, err
		}
		result.Strata = append(result.Strata, StratumResult{
			Name:   sub.name,
			Counts: subResult.Counts,
		})
	}
	return result, nil
}
