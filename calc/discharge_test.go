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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samply/qualityctl/data"
)

func dischargeDefinition(t *testing.T) *data.MeasureDefinition {
	t.Helper()
	def := testDefinition(t, false)
	def.MeasureNumber = "046"
	def.Strata = []data.Stratum{{Name: "18-64"}, {Name: "65+"}, {Name: "overall"}}
	return def
}

func TestNewDischarge_unknownStratum(t *testing.T) {
	def := dischargeDefinition(t)
	def.Strata = append(def.Strata, data.Stratum{Name: "90+"})

	_, err := NewDischarge(def, &fakeEpisodes{})

	assert.ErrorContains(t, err, "90+")
}

func TestDischarge(t *testing.T) {
	discharged := day(2018, time.March, 1)

	stratumCounts := func(t *testing.T, result Result, name string) Counts {
		t.Helper()
		for _, stratum := range result.Strata {
			if stratum.Name == name {
				return stratum.Counts
			}
		}
		t.Fatalf("stratum %q missing", name)
		return Counts{}
	}

	t.Run("VisitWithinDischargePeriodScores", func(t *testing.T) {
		episodes := &fakeEpisodes{dischargeDates: map[string][]time.Time{
			"bene-1": {discharged},
		}}
		calculator, err := NewDischarge(dischargeDefinition(t), episodes)
		require.NoError(t, err)

		// Born 1950, the beneficiary lands in the 65+ and overall strata.
		result, err := calculator.Execute([]*data.Claim{
			testClaim("bene-1", day(2018, time.March, 10), "99213", "G8427"),
		})

		require.NoError(t, err)
		assert.Equal(t, Counts{}, stratumCounts(t, result, "18-64"))
		assert.Equal(t, Counts{PerformanceMet: 1, EligiblePopulation: 1},
			stratumCounts(t, result, "65+"))
		assert.Equal(t, Counts{PerformanceMet: 1, EligiblePopulation: 1},
			stratumCounts(t, result, "overall"))
	})

	t.Run("VisitOutsideDischargePeriodIsDropped", func(t *testing.T) {
		episodes := &fakeEpisodes{dischargeDates: map[string][]time.Time{
			"bene-1": {discharged},
		}}
		calculator, err := NewDischarge(dischargeDefinition(t), episodes)
		require.NoError(t, err)

		result, err := calculator.Execute([]*data.Claim{
			testClaim("bene-1", day(2018, time.April, 15), "99213", "G8427"),
		})

		require.NoError(t, err)
		for _, stratum := range result.Strata {
			assert.Equal(t, Counts{}, stratum.Counts)
		}
	})

	t.Run("InpatientOnlyClaimCannotBeTheVisit", func(t *testing.T) {
		episodes := &fakeEpisodes{dischargeDates: map[string][]time.Time{
			"bene-1": {discharged},
		}}
		def := dischargeDefinition(t)
		def.EligibilityOptions[0].ProcedureCodes = append(
			def.EligibilityOptions[0].ProcedureCodes, data.MeasureCode{Code: "99238"})
		require.NoError(t, def.Compile())
		calculator, err := NewDischarge(def, episodes)
		require.NoError(t, err)

		result, err := calculator.Execute([]*data.Claim{
			testClaim("bene-1", day(2018, time.March, 10), "99238", "G8427"),
		})

		require.NoError(t, err)
		for _, stratum := range result.Strata {
			assert.Equal(t, Counts{}, stratum.Counts)
		}
	})

	t.Run("NegativeAnswersAreCached", func(t *testing.T) {
		episodes := &fakeEpisodes{}
		calculator, err := NewDischarge(dischargeDefinition(t), episodes)
		require.NoError(t, err)
		claims := []*data.Claim{
			testClaim("bene-1", day(2018, time.March, 10), "99213", "G8427"),
		}

		_, err = calculator.Execute(claims)
		require.NoError(t, err)
		_, err = calculator.Execute(claims)
		require.NoError(t, err)

		assert.Equal(t, 1, episodes.dischargeCalls)
	})

	t.Run("ClearCacheForcesAFreshLookup", func(t *testing.T) {
		episodes := &fakeEpisodes{}
		calculator, err := NewDischarge(dischargeDefinition(t), episodes)
		require.NoError(t, err)
		claims := []*data.Claim{
			testClaim("bene-1", day(2018, time.March, 10), "99213", "G8427"),
		}

		_, err = calculator.Execute(claims)
		require.NoError(t, err)
		calculator.ClearCache()
		_, err = calculator.Execute(claims)
		require.NoError(t, err)

		assert.Equal(t, 2, episodes.dischargeCalls)
	})

	t.Run("PrimeCacheSkipsProvidersWithoutQualityCodes", func(t *testing.T) {
		episodes := &fakeEpisodes{dischargeDates: map[string][]time.Time{
			"bene-1": {discharged},
		}}
		calculator, err := NewDischarge(dischargeDefinition(t), episodes)
		require.NoError(t, err)

		withQuality := testClaim("bene-1", day(2018, time.March, 10), "99213", "G8427")
		withoutQuality := testClaim("bene-2", day(2018, time.March, 10), "99213")
		withoutQuality.ProviderNPI = "1234567899"

		batch := map[data.ProviderKey][]*data.Claim{
			{TIN: withQuality.ProviderTIN, NPI: withQuality.ProviderNPI}:       {withQuality},
			{TIN: withoutQuality.ProviderTIN, NPI: withoutQuality.ProviderNPI}: {withoutQuality},
		}
		require.NoError(t, calculator.PrimeCache(batch))

		assert.Equal(t, 1, episodes.dischargeCalls)
		assert.Equal(t, []string{"bene-1"}, episodes.lastBeneficiaryIDs)

		// The primed cache answers the execute without another lookup.
		result, err := calculator.Execute([]*data.Claim{withQuality})
		require.NoError(t, err)
		assert.Equal(t, 1, episodes.dischargeCalls)
		assert.Equal(t, Counts{PerformanceMet: 1, EligiblePopulation: 1},
			stratumCounts(t, result, "overall"))
	})
}
