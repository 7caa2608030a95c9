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

	"github.com/samply/qualityctl/util"
)

// claimWithCodes builds a claim with one line per procedure code, all on the
// given date.
func claimWithCodes(beneficiary string, date time.Time, codes ...string) *Claim {
	claim := &Claim{
		BeneficiaryID: beneficiary,
		BirthDate:     util.Day(1950, time.January, 1),
		SexCode:       "1",
		FromDate:      date,
		ThruDate:      date,
	}
	for i, code := range codes {
		claim.Lines = append(claim.Lines, ClaimLine{
			LineNumber:    i + 1,
			ProcedureCode: code,
			FromDate:      date,
			ThruDate:      date,
		})
	}
	return claim
}

func TestClaim_Age(t *testing.T) {
	t.Run("ExactBirthday", func(t *testing.T) {
		claim := &Claim{
			BirthDate: util.Day(1950, time.January, 1),
			FromDate:  util.Day(2018, time.January, 1),
		}
		assert.Equal(t, 68.0, claim.Age())
	})

	t.Run("DayBeforeBirthday", func(t *testing.T) {
		claim := &Claim{
			BirthDate: util.Day(1950, time.June, 15),
			FromDate:  util.Day(2018, time.June, 14),
		}
		// 67 years, 11 months and 30 days (May has 31 days).
		assert.InDelta(t, 67.0+11.0/12.0+30.0/365.0, claim.Age(), 1e-9)
	})

	t.Run("MidYear", func(t *testing.T) {
		claim := &Claim{
			BirthDate: util.Day(1950, time.March, 15),
			FromDate:  util.Day(2018, time.September, 20),
		}
		assert.InDelta(t, 68.0+6.0/12.0+5.0/365.0, claim.Age(), 1e-9)
	})

	t.Run("MonthEndBirthDateClampsToFebruary", func(t *testing.T) {
		claim := &Claim{
			BirthDate: util.Day(1981, time.January, 31),
			FromDate:  util.Day(2018, time.March, 1),
		}
		// One month past Jan 31 is Feb 28, so the remainder is a single day.
		assert.InDelta(t, 37.0+1.0/12.0+1.0/365.0, claim.Age(), 1e-9)
	})

	t.Run("MonthEndBirthDateClampsToLeapFebruary", func(t *testing.T) {
		claim := &Claim{
			BirthDate: util.Day(1980, time.January, 31),
			FromDate:  util.Day(2016, time.March, 1),
		}
		assert.InDelta(t, 36.0+1.0/12.0+1.0/365.0, claim.Age(), 1e-9)
	})
}

func TestCalendarDiff(t *testing.T) {
	tests := map[string]struct {
		a, b                time.Time
		years, months, days int
	}{
		"WholeYears":       {util.Day(1950, time.January, 1), util.Day(2018, time.January, 1), 68, 0, 0},
		"BorrowsFromMay":   {util.Day(1950, time.June, 15), util.Day(2018, time.June, 14), 67, 11, 30},
		"ClampsJanuary31":  {util.Day(2018, time.January, 31), util.Day(2018, time.March, 1), 0, 1, 1},
		"ClampsInLeapYear": {util.Day(2016, time.January, 31), util.Day(2016, time.March, 1), 0, 1, 1},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			years, months, days := calendarDiff(test.a, test.b)
			assert.Equal(t, test.years, years)
			assert.Equal(t, test.months, months)
			assert.Equal(t, test.days, days)
			assert.GreaterOrEqual(t, days, 0)
		})
	}
}

func TestClaim_HasProcedureCode(t *testing.T) {
	claim := claimWithCodes("bene-1", util.Day(2018, time.March, 1), "99213", "G9902")

	assert.True(t, claim.HasProcedureCode(map[string]bool{"G9902": true}))
	assert.False(t, claim.HasProcedureCode(map[string]bool{"G9903": true}))
	assert.False(t, claim.HasProcedureCode(nil))
}

func TestClaim_ProcedureCodes(t *testing.T) {
	claim := claimWithCodes("bene-1", util.Day(2018, time.March, 1), "99213", "99213", "G9902")

	assert.Equal(t, map[string]bool{"99213": true, "G9902": true}, claim.ProcedureCodes())
}
