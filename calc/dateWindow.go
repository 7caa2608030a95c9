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

	"github.com/samply/qualityctl/data"
)

// episodeWindowDays is the length of a date-window episode of care. A claim
// within this many days of the episode's start date joins the episode; the
// window is measured from the episode start, not from the previous claim.
const episodeWindowDays = 30

// NewDateWindow returns a calculator for episode-of-care measures where
// episodes are delimited by a rolling date window. Within each episode only
// the earliest quality-coded claims are scored, falling back to the earliest
// claims overall when no quality codes were submitted for the episode.
func NewDateWindow(def *data.MeasureDefinition) Calculator {
	m := newMeasure(def)
	m.group = func(claims []*data.Claim) ([][]*data.Claim, error) {
		var instances [][]*data.Claim
		for _, subset := range groupByBeneficiary(claims) {
			for _, episode := range episodesByDateWindow(subset) {
				relevant := m.filterByQualityCodePresence(episode)
				if len(relevant) == 0 {
					relevant = episode
				}
				instances = append(instances, claimsFromEarliestDate(relevant))
			}
		}
		return instances, nil
	}
	return m
}

// episodesByDateWindow splits one beneficiary's claims into episodes. Claims
// are sorted by from date; a claim more than episodeWindowDays after the
// current episode's start opens a new episode.
func episodesByDateWindow(claims []*data.Claim) [][]*data.Claim {
	sorted := make([]*data.Claim, len(claims))
	copy(sorted, claims)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FromDate.Before(sorted[j].FromDate)
	})

	episodes := [][]*data.Claim{{sorted[0]}}
	episodeStart := sorted[0].FromDate
	for _, claim := range sorted[1:] {
		days := int(claim.FromDate.Sub(episodeStart).Hours() / 24)
		if days <= episodeWindowDays {
			episodes[len(episodes)-1] = append(episodes[len(episodes)-1], claim)
		} else {
			episodes = append(episodes, []*data.Claim{claim})
			episodeStart = claim.FromDate
		}
	}
	return episodes
}

// claimsFromEarliestDate keeps the claims sharing the earliest from date.
func claimsFromEarliestDate(claims []*data.Claim) []*data.Claim {
	earliest := claims[0].FromDate
	for _, claim := range claims[1:] {
		if claim.FromDate.Before(earliest) {
			earliest = claim.FromDate
		}
	}
	var result []*data.Claim
	for _, claim := range claims {
		if claim.FromDate.Equal(earliest) {
			result = append(result, claim)
		}
	}
	return result
}
