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
	"fmt"
	"time"
)

// A ClaimLine carries the encounter, procedure and quality codes billed for a
// single line item of a claim.
type ClaimLine struct {
	LineNumber     int
	ProcedureCode  string
	ModifierCodes  []string
	PlaceOfService string
	FromDate       time.Time
	ThruDate       time.Time
}

// A Claim represents one split claim submitted by a provider, merged from its
// claim lines. Claims are treated as immutable value objects after construction;
// their identity is the split claim id together with the provider TIN/NPI pair.
type Claim struct {
	SplitClaimID   string
	ProviderNPI    string
	ProviderTIN    string
	BeneficiaryID  string
	BirthDate      time.Time
	SexCode        string // "1" for male, "2" for female
	FromDate       time.Time
	ThruDate       time.Time
	DiagnosisCodes []string
	Lines          []ClaimLine
}

func (c *Claim) String() string {
	return fmt.Sprintf("Claim-Split Claim ID: %s, npi: %s, claim_lines: %d",
		c.SplitClaimID, c.ProviderNPI, len(c.Lines))
}

// Age returns the beneficiary's age in fractional years at the claim's from
// date. The age is derived from a calendar year/month/day decomposition as
// years + months/12 + days/365, not from a plain day count; eligibility age
// boundaries depend on this exact arithmetic.
func (c *Claim) Age() float64 {
	years, months, days := calendarDiff(c.BirthDate, c.FromDate)
	return float64(years) + float64(months)/12.0 + float64(days)/365.0
}

// HasProcedureCode reports whether any claim line bills one of the given codes.
func (c *Claim) HasProcedureCode(codes map[string]bool) bool {
	for _, line := range c.Lines {
		if codes[line.ProcedureCode] {
			return true
		}
	}
	return false
}

// ProcedureCodes returns the set of procedure codes billed on any line.
func (c *Claim) ProcedureCodes() map[string]bool {
	codes := make(map[string]bool, len(c.Lines))
	for _, line := range c.Lines {
		codes[line.ProcedureCode] = true
	}
	return codes
}

// calendarDiff decomposes the span from a to b into whole years, months and
// days, the way humans state ages. Requires a <= b.
func calendarDiff(a, b time.Time) (years, months, days int) {
	years = b.Year() - a.Year()
	months = int(b.Month()) - int(a.Month())
	days = b.Day() - a.Day()

	if days < 0 {
		months--
		// Re-anchor a in the month preceding b, clamping the day of month so
		// that a month-end date like Jan 31 lands on Feb 28 instead of
		// spilling into March. The day remainder counts from that anchor.
		idx := int(a.Month()) - 1 + years*12 + months
		anchorYear, anchorMonth := a.Year()+idx/12, time.Month(idx%12+1)
		day := a.Day()
		if last := daysInMonth(anchorYear, anchorMonth); day > last {
			day = last
		}
		anchor := time.Date(anchorYear, anchorMonth, day, 0, 0, 0, 0, time.UTC)
		days = int(b.Sub(anchor).Hours() / 24)
	}
	if months < 0 {
		months += 12
		years--
	}
	return years, months, days
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
