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
	"github.com/samply/qualityctl/util"
)

func TestMSSA(t *testing.T) {
	window := util.NewDateRange(day(2018, time.January, 1), day(2018, time.December, 31))

	t.Run("NoQualityCodesReportsEmpty", func(t *testing.T) {
		episodes := &fakeEpisodes{}
		calculator := NewMSSA(testDefinition(t, false), episodes, window)

		result, err := calculator.Execute([]*data.Claim{
			testClaim("bene-1", day(2018, time.March, 2), "99213"),
		})

		require.NoError(t, err)
		assert.Equal(t, Counts{}, result.Counts)
		assert.Zero(t, episodes.mssaCalls)
	})

	t.Run("ClaimsGroupByInfectionEpisode", func(t *testing.T) {
		// The first two ranges are consecutive and merge into one episode.
		episodes := &fakeEpisodes{mssaRanges: map[string][]util.DateRange{
			"bene-1": {
				util.NewDateRange(day(2018, time.March, 1), day(2018, time.March, 5)),
				util.NewDateRange(day(2018, time.March, 6), day(2018, time.March, 10)),
				util.NewDateRange(day(2018, time.April, 1), day(2018, time.April, 10)),
			},
		}}
		calculator := NewMSSA(testDefinition(t, false), episodes, window)

		result, err := calculator.Execute([]*data.Claim{
			testClaim("bene-1", day(2018, time.March, 2), "99213", "G8427"),
			testClaim("bene-1", day(2018, time.March, 8), "99213", "G8428"),
			testClaim("bene-1", day(2018, time.April, 5), "99213", "G8428"),
		})

		require.NoError(t, err)
		assert.Equal(t, Counts{
			PerformanceMet:     1,
			PerformanceNotMet:  1,
			EligiblePopulation: 2,
		}, result.Counts)
		assert.Equal(t, 1, episodes.mssaCalls)
		assert.Equal(t, []string{"bene-1"}, episodes.lastBeneficiaryIDs)
		assert.ElementsMatch(t, []string{"99213", "99214"}, episodes.lastEncounterCodes)
	})

	t.Run("LineDateAssignsWhenClaimDateMisses", func(t *testing.T) {
		episodes := &fakeEpisodes{mssaRanges: map[string][]util.DateRange{
			"bene-1": {util.NewDateRange(day(2018, time.March, 1), day(2018, time.March, 10))},
		}}
		calculator := NewMSSA(testDefinition(t, false), episodes, window)

		claim := testClaim("bene-1", day(2018, time.March, 2), "99213", "G8427")
		claim.FromDate = day(2018, time.May, 1)

		result, err := calculator.Execute([]*data.Claim{claim})

		require.NoError(t, err)
		assert.Equal(t, Counts{PerformanceMet: 1, EligiblePopulation: 1}, result.Counts)
	})

	t.Run("UnassignableClaimFailsTheCalculation", func(t *testing.T) {
		episodes := &fakeEpisodes{mssaRanges: map[string][]util.DateRange{
			"bene-1": {util.NewDateRange(day(2018, time.March, 1), day(2018, time.March, 10))},
		}}
		calculator := NewMSSA(testDefinition(t, false), episodes, window)

		_, err := calculator.Execute([]*data.Claim{
			testClaim("bene-1", day(2018, time.May, 1), "99213", "G8427"),
		})

		assert.ErrorIs(t, err, ErrEpisodeAssignment)
	})

	t.Run("NoEpisodesMeansEmptyPopulation", func(t *testing.T) {
		episodes := &fakeEpisodes{}
		calculator := NewMSSA(testDefinition(t, false), episodes, window)

		result, err := calculator.Execute([]*data.Claim{
			testClaim("bene-1", day(2018, time.March, 2), "99213", "G8427"),
		})

		require.NoError(t, err)
		assert.Equal(t, Counts{}, result.Counts)
	})
}
