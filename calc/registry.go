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
	"sort"

	"github.com/samply/qualityctl/data"
	"github.com/samply/qualityctl/util"
)

// family enumerates the calculator families a measure can map to.
type family int

const (
	familyPatientProcess family = iota
	familyPatientIntermediate
	familyPatientPeriodic
	familyProcedure
	familyVisit
	familyDateWindow
	familyIntersectingDiagnosis
	familyMultipleEncounter
	familyCTScan
	familyMSSA
	familyDischarge
	familyTobacco
)

// familyByMeasure2017 maps measure numbers to families for performance year
// 2017. The assignment is curated by hand since the family is not part of
// the measure definition JSON.
var familyByMeasure2017 = map[string]family{
	"001": familyPatientIntermediate,
	"012": familyPatientProcess,
	"014": familyPatientProcess,
	"019": familyPatientProcess,
	"021": familyProcedure,
	"023": familyProcedure,
	"024": familyIntersectingDiagnosis,
	"032": familyVisit,
	"039": familyPatientProcess,
	"046": familyDischarge,
	"047": familyPatientProcess,
	"048": familyPatientProcess,
	"050": familyPatientProcess,
	"051": familyPatientIntermediate,
	"052": familyPatientProcess,
	"076": familyProcedure,
	"091": familyDateWindow,
	"093": familyDateWindow,
	"099": familyProcedure,
	"100": familyProcedure,
	"109": familyVisit,
	"110": familyPatientPeriodic,
	"111": familyPatientProcess,
	"112": familyPatientProcess,
	"113": familyPatientProcess,
	"117": familyPatientProcess,
	"128": familyPatientIntermediate,
	"130": familyVisit,
	"131": familyVisit,
	"134": familyPatientProcess,
	"140": familyPatientProcess,
	"141": familyPatientProcess,
	"145": familyProcedure,
	"146": familyProcedure,
	"147": familyProcedure,
	"154": familyPatientProcess,
	"155": familyPatientProcess,
	"156": familyPatientProcess,
	"181": familyPatientProcess,
	"182": familyVisit,
	"185": familyProcedure,
	"195": familyProcedure,
	"204": familyPatientProcess,
	"225": familyProcedure,
	"226": familyPatientProcess,
	"236": familyPatientIntermediate,
	"249": familyProcedure,
	"250": familyProcedure,
	"251": familyProcedure,
	"254": familyProcedure,
	"255": familyProcedure,
	"261": familyPatientProcess,
	"268": familyPatientProcess,
	"317": familyPatientProcess,
	"320": familyPatientProcess,
	"326": familyPatientProcess,
	"395": familyProcedure,
	"396": familyProcedure,
	"397": familyProcedure,
	"405": familyProcedure,
	"406": familyProcedure,
	"407": familyMSSA,
	"410": familyPatientProcess,
	"415": familyCTScan,
	"416": familyCTScan,
	"418": familyIntersectingDiagnosis,
	"419": familyVisit,
	"422": familyProcedure,
	"423": familyProcedure,
	"425": familyProcedure,
	"429": familyProcedure,
	"435": familyMultipleEncounter,
	"436": familyProcedure,
	"437": familyProcedure,
}

// familyByMeasure2018 differs from 2017 in three places: measure 014 becomes
// patient-periodic for this one year, measure 226 becomes a multi-stratum
// measure, and measures 032 and 410 left the program.
var familyByMeasure2018 = func() map[string]family {
	m := make(map[string]family, len(familyByMeasure2017))
	for number, f := range familyByMeasure2017 {
		m[number] = f
	}
	m["014"] = familyPatientPeriodic
	m["226"] = familyTobacco
	delete(m, "032")
	delete(m, "410")
	return m
}()

func familyTable(year int) (map[string]family, error) {
	switch year {
	case 2017:
		return familyByMeasure2017, nil
	case 2018:
		return familyByMeasure2018, nil
	}
	return nil, fmt.Errorf("no measures registered for year %d", year)
}

// A Registry builds calculators for a performance year from compiled measure
// definitions.
type Registry struct {
	Year        int
	Definitions map[string]*data.MeasureDefinition

	// Episodes serves the families that need warehouse lookups. Building
	// such a measure without it is a configuration error.
	Episodes EpisodeQueryService

	// Period bounds the calculation, used by period-restricted families.
	Period util.DateRange
}

// SupportedMeasures returns the sorted measure numbers registered for the
// year.
func (r *Registry) SupportedMeasures() ([]string, error) {
	table, err := familyTable(r.Year)
	if err != nil {
		return nil, err
	}
	numbers := make([]string, 0, len(table))
	for number := range table {
		numbers = append(numbers, number)
	}
	sort.Strings(numbers)
	return numbers, nil
}

// Calculator builds the calculator for one measure number.
func (r *Registry) Calculator(measureNumber string) (Calculator, error) {
	table, err := familyTable(r.Year)
	if err != nil {
		return nil, err
	}
	f, ok := table[measureNumber]
	if !ok {
		return nil, fmt.Errorf("measure %s is not supported for year %d", measureNumber, r.Year)
	}
	def, ok := r.Definitions[measureNumber]
	if !ok {
		return nil, fmt.Errorf("no definition for measure %s", measureNumber)
	}

	switch f {
	case familyPatientProcess:
		return NewPatientProcess(def), nil
	case familyPatientIntermediate:
		return NewPatientIntermediate(def), nil
	case familyPatientPeriodic:
		return NewPatientPeriodic(def, r.Year, r.Period)
	case familyProcedure:
		return NewProcedure(def), nil
	case familyVisit:
		return NewVisit(def), nil
	case familyDateWindow:
		return NewDateWindow(def), nil
	case familyIntersectingDiagnosis:
		return NewIntersectingDiagnosis(def), nil
	case familyMultipleEncounter:
		return NewMultipleEncounter(def), nil
	case familyCTScan:
		return r.withEpisodes(measureNumber, func() Calculator {
			return NewCTScan(def, r.Episodes)
		})
	case familyMSSA:
		return r.withEpisodes(measureNumber, func() Calculator {
			return NewMSSA(def, r.Episodes, r.Period)
		})
	case familyDischarge:
		if r.Episodes == nil {
			return nil, fmt.Errorf("measure %s needs an episode query service", measureNumber)
		}
		return NewDischarge(def, r.Episodes)
	case familyTobacco:
		return NewTobacco(def)
	}
	return nil, fmt.Errorf("measure %s has no calculator family", measureNumber)
}

// Calculators builds the calculators for the given measure numbers.
func (r *Registry) Calculators(measureNumbers []string) (map[string]Calculator, error) {
	calculators := make(map[string]Calculator, len(measureNumbers))
	for _, number := range measureNumbers {
		calculator, err := r.Calculator(number)
		if err != nil {
			return nil, err
		}
		calculators[number] = calculator
	}
	return calculators, nil
}

func (r *Registry) withEpisodes(measureNumber string, build func() Calculator) (Calculator, error) {
	if r.Episodes == nil {
		return nil, fmt.Errorf("measure %s needs an episode query service", measureNumber)
	}
	return build(), nil
}
