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

func TestVisit_weightsByMatchingLines(t *testing.T) {
	calculator := NewVisit(testDefinition(t, false))

	t.Run("TwoEncounterLinesCountTwice", func(t *testing.T) {
		result, err := calculator.Execute([]*data.Claim{
			testClaim("bene-1", day(2018, time.March, 1), "99213", "99214", "G8427"),
		})

		require.NoError(t, err)
		assert.Equal(t, Counts{PerformanceMet: 2, EligiblePopulation: 2}, result.Counts)
	})

	t.Run("QualityLinesCarryNoWeight", func(t *testing.T) {
		result, err := calculator.Execute([]*data.Claim{
			testClaim("bene-1", day(2018, time.March, 1), "99213", "G8428"),
		})

		require.NoError(t, err)
		assert.Equal(t, Counts{PerformanceNotMet: 1, EligiblePopulation: 1}, result.Counts)
	})

	t.Run("SameDateClaimsShareAnInstance", func(t *testing.T) {
		sameDay := day(2018, time.March, 1)
		result, err := calculator.Execute([]*data.Claim{
			testClaim("bene-1", sameDay, "99213", "G8427"),
			testClaim("bene-1", sameDay, "99214"),
		})

		require.NoError(t, err)
		assert.Equal(t, Counts{PerformanceMet: 2, EligiblePopulation: 2}, result.Counts)
	})
}
