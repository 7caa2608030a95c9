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

func TestDeterminePerformancePeriod(t *testing.T) {
	window := util.NewDateRange(day(2018, time.January, 1), day(2018, time.December, 31))
	qualityCodes := map[string]bool{"G8427": true}

	t.Run("SpansFirstToLastQualityCodedClaim", func(t *testing.T) {
		period, err := DeterminePerformancePeriod([]*data.Claim{
			testClaim("bene-1", day(2018, time.February, 1), "G8427"),
			testClaim("bene-1", day(2018, time.January, 15), "99213"),
			testClaim("bene-2", day(2018, time.August, 20), "G8427"),
		}, qualityCodes, window)

		require.NoError(t, err)
		assert.Equal(t, day(2018, time.February, 1), period.Start)
		assert.Equal(t, day(2018, time.August, 20), period.End)
	})

	t.Run("ShortPeriodIsExtendedToTheMinimum", func(t *testing.T) {
		period, err := DeterminePerformancePeriod([]*data.Claim{
			testClaim("bene-1", day(2018, time.March, 1), "G8427"),
			testClaim("bene-1", day(2018, time.March, 20), "G8427"),
		}, qualityCodes, window)

		require.NoError(t, err)
		assert.Equal(t, day(2018, time.March, 1), period.Start)
		assert.Equal(t, day(2018, time.May, 30), period.End)
	})

	t.Run("LateStartIsPulledBackIntoTheWindow", func(t *testing.T) {
		// A single claim on Dec 31 cannot anchor a 90 day period, so the
		// start moves to 90 days before the window end.
		period, err := DeterminePerformancePeriod([]*data.Claim{
			testClaim("bene-1", day(2018, time.December, 31), "G8427"),
		}, qualityCodes, window)

		require.NoError(t, err)
		assert.Equal(t, day(2018, time.October, 2), period.Start)
		assert.Equal(t, day(2018, time.December, 31), period.End)
	})

	t.Run("ClaimsOutsideTheWindowAreIgnored", func(t *testing.T) {
		_, err := DeterminePerformancePeriod([]*data.Claim{
			testClaim("bene-1", day(2017, time.June, 1), "G8427"),
		}, qualityCodes, window)

		assert.ErrorIs(t, err, ErrNoQualityCodes)
	})

	t.Run("NoQualityCodes", func(t *testing.T) {
		_, err := DeterminePerformancePeriod([]*data.Claim{
			testClaim("bene-1", day(2018, time.June, 1), "99213"),
		}, qualityCodes, window)

		assert.ErrorIs(t, err, ErrNoQualityCodes)
	})
}
