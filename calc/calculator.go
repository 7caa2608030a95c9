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

// Package calc evaluates a provider's claims against quality measure
// definitions. Each measure family specializes the same template: filter the
// claims through the measure's eligibility options, group the surviving
// claims into eligible instances, then score each instance by its most
// advantageous performance marker.
package calc

import (
	"errors"
	"time"

	"github.com/samply/qualityctl/data"
	"github.com/samply/qualityctl/util"
)

// A Marker is the performance category assigned to a claim during scoring.
type Marker string

const (
	MarkerMet       Marker = data.OptionTypeMet
	MarkerExclusion Marker = data.OptionTypeExclusion
	MarkerException Marker = data.OptionTypeException
	MarkerNotMet    Marker = data.OptionTypeNotMet

	// MarkerNone marks instances where no performance option matched.
	MarkerNone Marker = "none"
)

// ErrMissingGrouping indicates a calculator without a grouping rule. This is
// a programming error in the family setup, not a data condition.
var ErrMissingGrouping = errors.New("calculator has no grouping rule")

// Counts aggregates eligible instances by performance marker. The eligible
// population is the sum of the four marker buckets plus the unmarked
// instances.
type Counts struct {
	PerformanceMet              int
	PerformanceNotMet           int
	EligiblePopulationExclusion int
	EligiblePopulationException int
	EligiblePopulation          int
}

// IsZero reports whether no eligible instances were counted.
func (c Counts) IsZero() bool {
	return c == Counts{}
}

// A StratumResult carries the counts of one reporting stratum.
type StratumResult struct {
	Name   string
	Counts Counts
}

// A Result is the outcome of one measure calculation. Strata is only set for
// multi-stratum measures; single-stratum measures report through Counts.
type Result struct {
	Counts Counts
	Strata []StratumResult
}

// A Calculator scores a provider's claims against one measure.
type Calculator interface {
	Definition() *data.MeasureDefinition
	Execute(claims []*data.Claim) (Result, error)
}

// markerRanking returns the advantageousness rank per marker, lower being
// better. Inverse measures reverse the met and not-met ends; the unmarked
// bucket is always last.
func markerRanking(isInverse bool) map[Marker]int {
	if isInverse {
		return map[Marker]int{
			MarkerMet:       3,
			MarkerExclusion: 2,
			MarkerException: 1,
			MarkerNotMet:    0,
			MarkerNone:      4,
		}
	}
	return map[Marker]int{
		MarkerMet:       0,
		MarkerExclusion: 1,
		MarkerException: 2,
		MarkerNotMet:    3,
		MarkerNone:      4,
	}
}

// measure is the shared template all families build on. The grouping and
// scoring behavior of a family is injected as closures, keeping the variants
// flat instead of stacked in an inheritance hierarchy.
type measure struct {
	def     *data.MeasureDefinition
	ranking map[Marker]int

	// dateRanges restricts the measure to parts of the year when non-empty.
	dateRanges []util.DateRange

	filter func(claims []*data.Claim) ([]*data.Claim, error)
	group  func(claims []*data.Claim) ([][]*data.Claim, error)
	score  func(instances [][]*data.Claim) Counts
}

func newMeasure(def *data.MeasureDefinition) *measure {
	m := &measure{def: def, ranking: markerRanking(def.IsInverse)}
	m.filter = func(claims []*data.Claim) ([]*data.Claim, error) {
		return m.filterByEligibility(claims), nil
	}
	m.score = m.scoreInstances
	return m
}

func (m *measure) Definition() *data.MeasureDefinition {
	return m.def
}

// Execute runs the calculation template: filter, group, score.
func (m *measure) Execute(claims []*data.Claim) (Result, error) {
	relevant, err := m.filter(claims)
	if err != nil {
		return Result{}, err
	}
	if len(m.dateRanges) > 0 {
		relevant = filterByValidDates(relevant, m.dateRanges)
	}
	var instances [][]*data.Claim
	if len(relevant) > 0 {
		if m.group == nil {
			return Result{}, ErrMissingGrouping
		}
		instances, err = m.group(relevant)
		if err != nil {
			return Result{}, err
		}
	}
	return Result{Counts: m.score(instances)}, nil
}

// filterByEligibility keeps the claims meeting at least one eligibility
// option. Options are disjunctive; the criteria within one option are
// conjunctive.
func (m *measure) filterByEligibility(claims []*data.Claim) []*data.Claim {
	var relevant []*data.Claim
	for _, claim := range claims {
		for i := range m.def.EligibilityOptions {
			if m.def.EligibilityOptions[i].MeetsEligibility(claim) {
				relevant = append(relevant, claim)
				break
			}
		}
	}
	return relevant
}

// assignMarkers returns the set of markers whose performance options the
// claim satisfies. A claim can satisfy several options at once.
func (m *measure) assignMarkers(claim *data.Claim) map[Marker]bool {
	markers := map[Marker]bool{}
	for i := range m.def.PerformanceOptions {
		option := &m.def.PerformanceOptions[i]
		if option.MatchesClaim(claim) {
			markers[Marker(option.OptionType)] = true
		}
	}
	return markers
}

// mostAdvantageous picks the claim and marker pair with the best rank across
// the instance. Ties keep the first pair encountered; the scan stops as soon
// as the best possible rank is seen. An instance where no claim carries a
// marker yields its first claim with MarkerNone.
func (m *measure) mostAdvantageous(instance []*data.Claim) (*data.Claim, Marker) {
	bestClaim := instance[0]
	bestMarker := MarkerNone
	for _, claim := range instance {
		markers := m.assignMarkers(claim)
		for _, marker := range orderedMarkers {
			if !markers[marker] {
				continue
			}
			if m.ranking[marker] < m.ranking[bestMarker] {
				bestClaim = claim
				bestMarker = marker
			}
			if m.ranking[bestMarker] == 0 {
				return bestClaim, bestMarker
			}
		}
	}
	return bestClaim, bestMarker
}

// orderedMarkers fixes the iteration order over a claim's marker set so that
// first-encountered tie-breaking is deterministic.
var orderedMarkers = []Marker{MarkerMet, MarkerExclusion, MarkerException, MarkerNotMet}

// scoreInstances picks the most advantageous marker per instance and tallies
// one unit each.
func (m *measure) scoreInstances(instances [][]*data.Claim) Counts {
	var counts Counts
	for _, instance := range instances {
		_, marker := m.mostAdvantageous(instance)
		counts.add(marker, 1)
	}
	return counts
}

func (c *Counts) add(marker Marker, weight int) {
	switch marker {
	case MarkerMet:
		c.PerformanceMet += weight
	case MarkerNotMet:
		c.PerformanceNotMet += weight
	case MarkerExclusion:
		c.EligiblePopulationExclusion += weight
	case MarkerException:
		c.EligiblePopulationException += weight
	}
	// Unmarked instances still count toward the eligible population.
	c.EligiblePopulation += weight
}

// groupByBeneficiary collects claims into one instance per beneficiary.
func groupByBeneficiary(claims []*data.Claim) [][]*data.Claim {
	return groupClaims(claims, func(claim *data.Claim) instanceKey {
		return instanceKey{beneficiary: claim.BeneficiaryID}
	})
}

// groupByBeneficiaryAndDate collects claims into one instance per beneficiary
// and date of service.
func groupByBeneficiaryAndDate(claims []*data.Claim) [][]*data.Claim {
	return groupClaims(claims, func(claim *data.Claim) instanceKey {
		return instanceKey{beneficiary: claim.BeneficiaryID, date: claim.FromDate}
	})
}

// instanceKey is comparable since claim dates are normalized to midnight UTC.
type instanceKey struct {
	beneficiary string
	date        time.Time
	episode     int
}

// groupClaims groups claims by key, preserving first-seen key order so that
// results are stable across runs.
func groupClaims(claims []*data.Claim, key func(*data.Claim) instanceKey) [][]*data.Claim {
	index := map[instanceKey]int{}
	var groups [][]*data.Claim
	for _, claim := range claims {
		k := key(claim)
		if i, ok := index[k]; ok {
			groups[i] = append(groups[i], claim)
			continue
		}
		index[k] = len(groups)
		groups = append(groups, []*data.Claim{claim})
	}
	return groups
}

// claimInDateRange is lenient: the claim matches if its from date or its thru
// date falls inside the range, boundaries included.
func claimInDateRange(claim *data.Claim, r util.DateRange) bool {
	return r.Contains(claim.FromDate) || r.Contains(claim.ThruDate)
}

func filterByValidDates(claims []*data.Claim, ranges []util.DateRange) []*data.Claim {
	var valid []*data.Claim
	for _, claim := range claims {
		for _, r := range ranges {
			if claimInDateRange(claim, r) {
				valid = append(valid, claim)
				break
			}
		}
	}
	return valid
}

// filterByQualityCodePresence keeps the claims carrying at least one
// performance marker.
func (m *measure) filterByQualityCodePresence(claims []*data.Claim) []*data.Claim {
	var withCodes []*data.Claim
	for _, claim := range claims {
		if len(m.assignMarkers(claim)) > 0 {
			withCodes = append(withCodes, claim)
		}
	}
	return withCodes
}

// anyClaimsHaveQualityCodes reports whether any claim bills one of the given
// quality codes on its lines. Families that require a demonstrated intent to
// report use this as a cheap pre-check.
func anyClaimsHaveQualityCodes(claims []*data.Claim, qualityCodes map[string]bool) bool {
	for _, claim := range claims {
		if claim.HasProcedureCode(qualityCodes) {
			return true
		}
	}
	return false
}
