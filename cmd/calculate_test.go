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

package cmd

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/samply/qualityctl/calc"
	"github.com/samply/qualityctl/data"
	"github.com/samply/qualityctl/util"
)

func TestReportingCounts(t *testing.T) {
	t.Run("SingleStratum", func(t *testing.T) {
		reported, eligible := reportingCounts(calc.Result{
			Counts: calc.Counts{
				PerformanceMet:              2,
				PerformanceNotMet:           1,
				EligiblePopulationException: 1,
				EligiblePopulation:          5,
			},
		})

		assert.Equal(t, 4, reported)
		assert.Equal(t, 5, eligible)
	})

	t.Run("OverallStratumWins", func(t *testing.T) {
		reported, eligible := reportingCounts(calc.Result{
			Strata: []calc.StratumResult{
				{Name: "18-64", Counts: calc.Counts{PerformanceMet: 1, EligiblePopulation: 1}},
				{Name: "overall", Counts: calc.Counts{PerformanceMet: 2, EligiblePopulation: 3}},
				{Name: "65+", Counts: calc.Counts{PerformanceMet: 1, EligiblePopulation: 2}},
			},
		})

		assert.Equal(t, 2, reported)
		assert.Equal(t, 3, eligible)
	})

	t.Run("NoOverallStratumFallsBackToLast", func(t *testing.T) {
		reported, eligible := reportingCounts(calc.Result{
			Strata: []calc.StratumResult{
				{Name: "screenedForUse", Counts: calc.Counts{PerformanceMet: 1, EligiblePopulation: 1}},
				{Name: "intervention", Counts: calc.Counts{PerformanceNotMet: 1, EligiblePopulation: 2}},
			},
		})

		assert.Equal(t, 1, reported)
		assert.Equal(t, 2, eligible)
	})
}

func TestAggregateProviderResults(t *testing.T) {
	resultCh := make(chan providerResult)
	statsCh := make(chan util.CommandStats)
	go aggregateProviderResults(4, resultCh, statsCh)

	resultCh <- providerResult{
		provider:     data.ProviderKey{TIN: "123456789", NPI: "1234567890"},
		measurements: 3,
		rate:         0.5,
		hasRate:      true,
		duration:     2 * time.Second,
	}
	resultCh <- providerResult{
		provider:     data.ProviderKey{TIN: "123456789", NPI: "1234567891"},
		measurements: 1,
		duration:     time.Second,
	}
	resultCh <- providerResult{
		provider:  data.ProviderKey{TIN: "123456789", NPI: "1234567892"},
		noQuality: true,
	}
	resultCh <- providerResult{
		provider: data.ProviderKey{TIN: "123456789", NPI: "1234567893"},
		err:      errors.New("boom"),
	}
	close(resultCh)

	stats := <-statsCh
	assert.Equal(t, 4, stats.TotalProviders)
	assert.Equal(t, 1, stats.ProvidersWithoutData)
	assert.Equal(t, 4, stats.TotalMeasurements)
	assert.Equal(t, []float64{0.5}, stats.ReportingRates)
	assert.Len(t, stats.CalcDurations, 2)
	assert.Len(t, stats.Errors, 1)
}
