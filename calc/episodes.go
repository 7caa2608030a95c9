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
	"time"

	"github.com/samply/qualityctl/util"
)

// A BeneficiaryDate pairs a beneficiary with a date of service.
type BeneficiaryDate struct {
	BeneficiaryID string
	Date          time.Time
}

// An EpisodeQueryService answers the warehouse lookups some measure families
// need beyond the provider's own claims. Calls happen at most once per
// Execute; transient failures are returned to the caller for batch-level
// retry, never retried here. Implementations must be safe for concurrent use
// when calculators run in parallel.
type EpisodeQueryService interface {
	// CTScanDates reports which of the given beneficiary/date pairs had a
	// CT scan recorded, possibly by a different provider.
	CTScanDates(pairs []BeneficiaryDate) (map[BeneficiaryDate]bool, error)

	// MSSADateRanges returns per-beneficiary infection date ranges for
	// claims with the given encounter codes inside the window.
	MSSADateRanges(beneficiaryIDs []string, encounterCodes []string,
		window util.DateRange) (map[string][]util.DateRange, error)

	// DischargeDates returns hospital discharge dates per beneficiary for
	// the given providers, looking back dischargePeriodDays.
	DischargeDates(tins, npis, beneficiaryIDs []string,
		dischargePeriodDays int) (map[string][]time.Time, error)
}
