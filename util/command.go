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

package util

import (
	"fmt"
	"strings"
	"time"
)

// CommandStats aggregates the outcome of a calculation run over a batch of
// providers: how many providers were processed, how many yielded measurements,
// per-provider calculation durations and reporting rates, and any errors.
type CommandStats struct {
	TotalProviders       int
	ProvidersWithoutData int
	TotalMeasurements    int
	CalcDurations        []float64
	ReportingRates       []float64
	TotalDuration        time.Duration
	Errors               map[string]error
}

func (cs *CommandStats) String() string {
	builder := strings.Builder{}

	builder.WriteString(fmt.Sprintf("Providers	[total, empty, errors]	%d, %d, %d\n",
		cs.TotalProviders, cs.ProvidersWithoutData, len(cs.Errors)))
	builder.WriteString(fmt.Sprintf("Measurements	[total]			%d\n", cs.TotalMeasurements))
	builder.WriteString(fmt.Sprintf("Duration	[total]			%s\n",
		FmtDurationHumanReadable(cs.TotalDuration)))

	if len(cs.CalcDurations) > 0 {
		p := CalculateDurationStatistics(cs.CalcDurations)
		builder.WriteString(fmt.Sprintf("Calc. Latencies	[mean, 50, 95, 99, max]	%s, %s, %s, %s, %s\n",
			p.Mean, p.Q50, p.Q95, p.Q99, p.Max))
	}

	if len(cs.ReportingRates) > 0 {
		r := CalculateRateStatistics(cs.ReportingRates)
		builder.WriteString(fmt.Sprintf("Report. Rates	[mean, 50, min, max]	%s, %s, %s, %s\n",
			FmtRatePercent(r.Mean), FmtRatePercent(r.Q50), FmtRatePercent(r.Min), FmtRatePercent(r.Max)))
	}

	if len(cs.Errors) > 0 {
		builder.WriteString("\nErrors:\n")
		for provider, err := range cs.Errors {
			builder.WriteString(Indent(2, fmt.Sprintf("%s : %s\n", provider, err)))
		}
	}

	return builder.String()
}
