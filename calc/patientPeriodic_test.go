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

func year2018() util.DateRange {
	return util.DateRange{
		Start: day(2018, time.January, 1),
		End:   day(2018, time.December, 31),
	}
}

func TestPeriodicDateRanges(t *testing.T) {
	t.Run("FluSeasonsPerYear", func(t *testing.T) {
		ranges, err := periodicDateRanges("110", 2018, year2018())
		require.NoError(t, err)

		assert.Equal(t, []util.DateRange{
			{Start: day(2018, time.January, 1), End: day(2018, time.March, 31)},
			{Start: day(2018, time.October, 1), End: day(2018, time.December, 31)},
		}, ranges)
	})

	t.Run("Measure014StartsInFebruary2018", func(t *testing.T) {
		ranges, err := periodicDateRanges("014", 2018, year2018())
		require.NoError(t, err)

		assert.Equal(t, []util.DateRange{
			{Start: day(2018, time.February, 1), End: day(2018, time.December, 31)},
		}, ranges)
	})

	t.Run("Measure014IsNotPeriodicIn2017", func(t *testing.T) {
		_, err := periodicDateRanges("014", 2017, year2018())
		assert.Error(t, err)
	})
}

func TestPatientPeriodic(t *testing.T) {
	def := testDefinition(t, false)
	def.MeasureNumber = "110"
	calculator, err := NewPatientPeriodic(def, 2018, year2018())
	require.NoError(t, err)

	t.Run("OneInstancePerBeneficiaryAndSeason", func(t *testing.T) {
		result, err := calculator.Execute([]*data.Claim{
			testClaim("bene-1", day(2018, time.January, 15), "99213", "G8427"),
			testClaim("bene-1", day(2018, time.November, 3), "99213", "G8428"),
		})

		require.NoError(t, err)
		assert.Equal(t, Counts{
			PerformanceMet:     1,
			PerformanceNotMet:  1,
			EligiblePopulation: 2,
		}, result.Counts)
	})

	t.Run("ClaimsOutsideTheSeasonsAreDropped", func(t *testing.T) {
		result, err := calculator.Execute([]*data.Claim{
			testClaim("bene-1", day(2018, time.June, 15), "99213", "G8427"),
		})

		require.NoError(t, err)
		assert.True(t, result.Counts.IsZero())
	})

	t.Run("ClaimsInTheSameSeasonShareAnInstance", func(t *testing.T) {
		result, err := calculator.Execute([]*data.Claim{
			testClaim("bene-1", day(2018, time.October, 5), "99213", "G8428"),
			testClaim("bene-1", day(2018, time.December, 5), "99213", "G8427"),
		})

		require.NoError(t, err)
		assert.Equal(t, Counts{PerformanceMet: 1, EligiblePopulation: 1}, result.Counts)
	})
}
