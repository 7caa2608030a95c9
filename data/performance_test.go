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

package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samply/qualityctl/util"
)

func TestPerformanceOption_compile(t *testing.T) {
	t.Run("InvalidOptionType", func(t *testing.T) {
		option := PerformanceOption{
			OptionType:   "performanceAlmostMet",
			QualityCodes: []MeasureCode{{Code: "G9902"}},
		}
		assert.Error(t, option.compile())
	})

	t.Run("NoQualityCodes", func(t *testing.T) {
		option := PerformanceOption{OptionType: OptionTypeMet}
		assert.Error(t, option.compile())
	})
}

func TestPerformanceOption_MatchesClaim(t *testing.T) {
	option := PerformanceOption{
		OptionType:   OptionTypeMet,
		QualityCodes: []MeasureCode{{Code: "G9902"}, {Code: "G9903"}},
	}
	require.NoError(t, option.compile())

	day := util.Day(2018, time.March, 1)

	t.Run("AllCodesAcrossLines", func(t *testing.T) {
		claim := claimWithCodes("bene-1", day, "G9902", "G9903", "99213")
		assert.True(t, option.MatchesClaim(claim))
	})

	t.Run("OneCodeMissing", func(t *testing.T) {
		claim := claimWithCodes("bene-1", day, "G9902", "99213")
		assert.False(t, option.MatchesClaim(claim))
	})
}
