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
	"math"
	"time"

	"github.com/samply/qualityctl/data"
)

// dischargePeriodDays is the window after a hospital discharge in which a
// medication reconciliation visit counts.
const dischargePeriodDays = 30

// dischargeHiddenCodes are inpatient evaluation codes that cannot stand in
// for the post-discharge reconciliation visit.
var dischargeHiddenCodes = []string{
	"99221", "99222", "99223",
	"99231", "99232", "99233",
	"99234", "99235", "99236",
	"99238", "99239",
	"99251", "99252", "99253", "99254", "99255",
}

var dischargeHiddenCodeSet = func() map[string]bool {
	set := make(map[string]bool, len(dischargeHiddenCodes))
	for _, code := range dischargeHiddenCodes {
		set[code] = true
	}
	return set
}()

type ageRange struct {
	min int
	max int
}

// dischargeStrataAges maps the stratum names of the medication reconciliation
// measure to beneficiary age ranges. Ages compare on the floor of the
// fractional age at date of service; the overall stratum spans every adult.
var dischargeStrataAges = map[string]ageRange{
	"18-64":   {min: 18, max: 64},
	"65+":     {min: 65, max: math.MaxInt32},
	"overall": {min: 18, max: math.MaxInt32},
}

// A Discharge calculator scores the medication reconciliation post-discharge
// measure. A claim is only relevant when its from date falls within the
// discharge period after a hospital discharge of the beneficiary; discharge
// dates come from the episode query service and are cached across Execute
// calls. The cache must be cleared between unrelated batches.
type Discharge struct {
	*measure
	episodes EpisodeQueryService

	// dischargeDates holds the known discharge dates per beneficiary. A
	// present beneficiary with an empty set is a cached negative answer.
	dischargeDates map[string]map[time.Time]bool
}

// NewDischarge returns a calculator for the medication reconciliation
// post-discharge measure. Scoring follows visit semantics with one stratum
// result per age stratum of the definition. Providers who never submitted
// any of the measure's quality codes report an empty result.
func NewDischarge(def *data.MeasureDefinition, episodes EpisodeQueryService) (*Discharge, error) {
	for _, stratum := range def.Strata {
		if _, ok := dischargeStrataAges[stratum.Name]; !ok {
			return nil, fmt.Errorf("measure %s: unknown age stratum %q",
				def.MeasureNumber, stratum.Name)
		}
	}
	m := newMeasure(def)
	configureVisit(m)
	d := &Discharge{
		measure:        m,
		episodes:       episodes,
		dischargeDates: map[string]map[time.Time]bool{},
	}
	qualityCodes := def.QualityCodes()
	m.filter = func(claims []*data.Claim) ([]*data.Claim, error) {
		if !anyClaimsHaveQualityCodes(claims, qualityCodes) {
			return nil, nil
		}
		relevant := dropInpatientOnlyClaims(def, m.filterByEligibility(claims))
		return d.filterByQualifyingDischarge(relevant)
	}
	return d, nil
}

// Execute scores each age stratum independently over the shared eligible
// instances.
func (d *Discharge) Execute(claims []*data.Claim) (Result, error) {
	relevant, err := d.filter(claims)
	if err != nil {
		return Result{}, err
	}
	var instances [][]*data.Claim
	if len(relevant) > 0 {
		instances, err = d.group(relevant)
		if err != nil {
			return Result{}, err
		}
	}

	var result Result
	for _, stratum := range d.def.Strata {
		ages := dischargeStrataAges[stratum.Name]
		result.Strata = append(result.Strata, StratumResult{
			Name:   stratum.Name,
			Counts: d.score(instancesInAgeRange(instances, ages)),
		})
	}
	return result, nil
}

// ClearCache drops the cached discharge dates. Callers clear between batches
// to bound memory and to keep answers from leaking across unrelated
// providers.
func (d *Discharge) ClearCache() {
	d.dischargeDates = map[string]map[time.Time]bool{}
}

// PrimeCache pre-fetches discharge dates for a whole batch of providers in
// one lookup. Only providers who submitted any of the measure's quality
// codes are included. The cache is cleared first.
func (d *Discharge) PrimeCache(batch map[data.ProviderKey][]*data.Claim) error {
	d.ClearCache()
	qualityCodes := d.def.QualityCodes()
	var tins, npis, beneficiaryIDs []string
	for provider, claims := range batch {
		if !anyClaimsHaveQualityCodes(claims, qualityCodes) {
			continue
		}
		tins = append(tins, provider.TIN)
		npis = append(npis, provider.NPI)
		for _, claim := range claims {
			beneficiaryIDs = append(beneficiaryIDs, claim.BeneficiaryID)
		}
	}
	return d.fetchDischargeDates(tins, npis, beneficiaryIDs)
}

// filterByQualifyingDischarge keeps the claims whose from date falls within
// the discharge period after a cached discharge date, fetching dates for
// beneficiaries not yet cached.
func (d *Discharge) filterByQualifyingDischarge(claims []*data.Claim) ([]*data.Claim, error) {
	var missing []string
	missingSet := map[string]bool{}
	tinSet := map[string]bool{}
	npiSet := map[string]bool{}
	var tins, npis []string
	for _, claim := range claims {
		if _, cached := d.dischargeDates[claim.BeneficiaryID]; cached {
			continue
		}
		if !missingSet[claim.BeneficiaryID] {
			missingSet[claim.BeneficiaryID] = true
			missing = append(missing, claim.BeneficiaryID)
		}
		if !tinSet[claim.ProviderTIN] {
			tinSet[claim.ProviderTIN] = true
			tins = append(tins, claim.ProviderTIN)
		}
		if !npiSet[claim.ProviderNPI] {
			npiSet[claim.ProviderNPI] = true
			npis = append(npis, claim.ProviderNPI)
		}
	}
	if len(missing) > 0 {
		if err := d.fetchDischargeDates(tins, npis, missing); err != nil {
			return nil, err
		}
	}

	var result []*data.Claim
	for _, claim := range claims {
		if d.followsDischarge(claim) {
			result = append(result, claim)
		}
	}
	return result, nil
}

func (d *Discharge) fetchDischargeDates(tins, npis, beneficiaryIDs []string) error {
	if len(tins) == 0 || len(npis) == 0 || len(beneficiaryIDs) == 0 {
		return nil
	}
	dates, err := d.episodes.DischargeDates(tins, npis, beneficiaryIDs, dischargePeriodDays)
	if err != nil {
		return err
	}
	for beneficiaryID, beneficiaryDates := range dates {
		set := d.dischargeDates[beneficiaryID]
		if set == nil {
			set = map[time.Time]bool{}
			d.dischargeDates[beneficiaryID] = set
		}
		for _, date := range beneficiaryDates {
			set[date] = true
		}
	}
	// Cache negative answers so the same beneficiaries are not queried again.
	for _, beneficiaryID := range beneficiaryIDs {
		if _, ok := d.dischargeDates[beneficiaryID]; !ok {
			d.dischargeDates[beneficiaryID] = map[time.Time]bool{}
		}
	}
	return nil
}

func (d *Discharge) followsDischarge(claim *data.Claim) bool {
	for date := range d.dischargeDates[claim.BeneficiaryID] {
		days := int(claim.FromDate.Sub(date).Hours() / 24)
		if days >= 0 && days <= dischargePeriodDays {
			return true
		}
	}
	return false
}

// dropInpatientOnlyClaims removes claims whose qualifying encounter lines
// are all inpatient evaluation codes. Inpatient lines do not disqualify a
// claim as long as any other encounter line remains. The discharge-date
// warehouse query excludes these codes at its boundary as well, so for a
// denominator of outpatient encounter codes this filter changes nothing.
func dropInpatientOnlyClaims(def *data.MeasureDefinition, claims []*data.Claim) []*data.Claim {
	var result []*data.Claim
	for _, claim := range claims {
		inpatientOnly := true
		for _, line := range claim.Lines {
			if !def.LineMatchesProcedureCode(line) {
				continue
			}
			if !dischargeHiddenCodeSet[line.ProcedureCode] {
				inpatientOnly = false
				break
			}
		}
		if !inpatientOnly {
			result = append(result, claim)
		}
	}
	return result
}

func instancesInAgeRange(instances [][]*data.Claim, ages ageRange) [][]*data.Claim {
	var result [][]*data.Claim
	for _, instance := range instances {
		age := int(math.Floor(instance[0].Age()))
		if ages.min <= age && age <= ages.max {
			result = append(result, instance)
		}
	}
	return result
}
