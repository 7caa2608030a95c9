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
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samply/qualityctl/data"
	"github.com/samply/qualityctl/util"
)

func testRegistry(t *testing.T, year int, episodes EpisodeQueryService) *Registry {
	t.Helper()
	definitions := map[string]*data.MeasureDefinition{}
	for _, number := range []string{"014", "032", "046", "047", "110", "226", "407", "415"} {
		def := testDefinition(t, false)
		def.MeasureNumber = number
		definitions[number] = def
	}
	definitions["046"].Strata = []data.Stratum{{Name: "overall"}}
	definitions["226"].Strata = []data.Stratum{{Name: "screenedForUse"}, {Name: "intervention"}}
	definitions["226"].EligibilityOptions = append(definitions["226"].EligibilityOptions,
		definitions["226"].EligibilityOptions[0])
	return &Registry{
		Year:        year,
		Definitions: definitions,
		Episodes:    episodes,
		Period:      util.NewDateRange(day(year, time.January, 1), day(year, time.December, 31)),
	}
}

func TestRegistry_SupportedMeasures(t *testing.T) {
	t.Run("Sorted", func(t *testing.T) {
		numbers, err := (&Registry{Year: 2018}).SupportedMeasures()

		require.NoError(t, err)
		assert.True(t, sort.StringsAreSorted(numbers))
		assert.Contains(t, numbers, "047")
	})

	t.Run("MeasuresThatLeftTheProgram", func(t *testing.T) {
		for _, number := range []string{"032", "410"} {
			numbers2017, err := (&Registry{Year: 2017}).SupportedMeasures()
			require.NoError(t, err)
			numbers2018, err := (&Registry{Year: 2018}).SupportedMeasures()
			require.NoError(t, err)

			assert.Contains(t, numbers2017, number)
			assert.NotContains(t, numbers2018, number)
		}
	})

	t.Run("UnknownYear", func(t *testing.T) {
		_, err := (&Registry{Year: 2019}).SupportedMeasures()

		assert.ErrorContains(t, err, "2019")
	})
}

func TestRegistry_Calculator(t *testing.T) {
	episodes := &fakeEpisodes{}

	t.Run("PatientProcessMeasure", func(t *testing.T) {
		calculator, err := testRegistry(t, 2018, episodes).Calculator("047")

		require.NoError(t, err)
		assert.Equal(t, "047", calculator.Definition().MeasureNumber)
	})

	t.Run("Measure014SwitchesFamilyIn2018", func(t *testing.T) {
		// Periodic in 2018, plain patient-process in 2017. The periodic
		// constructor rejects 2017, so a successful build for both years
		// shows the family switch.
		_, err := testRegistry(t, 2018, episodes).Calculator("014")
		require.NoError(t, err)
		_, err = testRegistry(t, 2017, episodes).Calculator("014")
		require.NoError(t, err)
	})

	t.Run("Measure226BecomesMultiStratumIn2018", func(t *testing.T) {
		calculator, err := testRegistry(t, 2018, episodes).Calculator("226")

		require.NoError(t, err)
		assert.IsType(t, &Tobacco{}, calculator)
	})

	t.Run("UnsupportedMeasure", func(t *testing.T) {
		_, err := testRegistry(t, 2018, episodes).Calculator("032")

		assert.ErrorContains(t, err, "not supported")
	})

	t.Run("MissingDefinition", func(t *testing.T) {
		registry := testRegistry(t, 2018, episodes)
		delete(registry.Definitions, "047")

		_, err := registry.Calculator("047")

		assert.ErrorContains(t, err, "no definition")
	})

	t.Run("EpisodeFamiliesNeedTheQueryService", func(t *testing.T) {
		registry := testRegistry(t, 2018, nil)

		for _, number := range []string{"046", "407", "415"} {
			_, err := registry.Calculator(number)

			assert.ErrorContains(t, err, "episode query service", number)
		}
	})
}

func TestRegistry_Calculators(t *testing.T) {
	registry := testRegistry(t, 2018, &fakeEpisodes{})

	calculators, err := registry.Calculators([]string{"047", "110"})

	require.NoError(t, err)
	require.Len(t, calculators, 2)
	assert.Equal(t, "110", calculators["110"].Definition().MeasureNumber)
}
