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
	"github.com/samply/qualityctl/data"
	"github.com/samply/qualityctl/util"
)

// FilterClaimsByDate keeps the claims whose from date lies in the window,
// boundaries included.
func FilterClaimsByDate(claims []*data.Claim, window util.DateRange) []*data.Claim {
	var result []*data.Claim
	for _, claim := range claims {
		if window.Contains(claim.FromDate) {
			result = append(result, claim)
		}
	}
	return result
}

// FilterClaimsByMeasureCodes keeps the claims billing any encounter code of
// any of the given measures. Running this once per provider avoids feeding
// plainly irrelevant claims through every calculator.
func FilterClaimsByMeasureCodes(claims []*data.Claim,
	definitions map[string]*data.MeasureDefinition) []*data.Claim {

	relevant := map[string]bool{}
	for _, def := range definitions {
		for code := range def.ProcedureCodes() {
			relevant[code] = true
		}
	}
	var result []*data.Claim
	for _, claim := range claims {
		if claim.HasProcedureCode(relevant) {
			result = append(result, claim)
		}
	}
	return result
}
