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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/samply/qualityctl/calc"
	"github.com/samply/qualityctl/data"
	"github.com/samply/qualityctl/qpp"
	"github.com/samply/qualityctl/util"
)

var claimsFile string
var outputDir string
var concurrency int

// providerResult is the outcome of calculating one provider's measurement
// set.
type providerResult struct {
	provider     data.ProviderKey
	measurements int
	rate         float64
	hasRate      bool
	duration     time.Duration
	noQuality    bool
	err          error
}

func aggregateProviderResults(totalProviders int, resultCh <-chan providerResult,
	statsCh chan<- util.CommandStats) {

	stats := util.CommandStats{
		TotalProviders: totalProviders,
		Errors:         map[string]error{},
	}
	for result := range resultCh {
		switch {
		case result.err != nil:
			stats.Errors[result.provider.TIN+"/"+result.provider.NPI] = result.err
		case result.noQuality:
			stats.ProvidersWithoutData++
		default:
			stats.TotalMeasurements += result.measurements
			stats.CalcDurations = append(stats.CalcDurations, result.duration.Seconds())
			if result.hasRate {
				stats.ReportingRates = append(stats.ReportingRates, result.rate)
			}
		}
	}
	statsCh <- stats
}

// buildCalculators resolves the configured measure numbers into calculators.
// An explicitly configured measure that cannot be built is an error; when the
// measure list was defaulted from the registry, unbuildable measures are
// skipped instead. Measures backed by the claims warehouse need an episode
// query service and fall into the skipped set on plain CSV runs.
func buildCalculators(registry *calc.Registry) (map[string]calc.Calculator, error) {
	measures := cfg.Calculation.Measures
	explicit := len(measures) > 0
	if !explicit {
		var err error
		measures, err = registry.SupportedMeasures()
		if err != nil {
			return nil, err
		}
	}

	calculators := map[string]calc.Calculator{}
	for _, number := range measures {
		calculator, err := registry.Calculator(number)
		if err != nil {
			if explicit {
				return nil, err
			}
			log.Debug().Str("measure", number).Err(err).Msg("skipping measure")
			continue
		}
		calculators[number] = calculator
	}
	if len(calculators) == 0 {
		return nil, errors.New("no calculable measures configured")
	}
	return calculators, nil
}

// calculateProvider runs every calculator over one provider's claims and
// returns the measurement set, or nil if the provider has no quality-coded
// claims in the window.
func calculateProvider(provider data.ProviderKey, claims []*data.Claim,
	calculators map[string]calc.Calculator, qualityCodes map[string]bool,
	definitions map[string]*data.MeasureDefinition,
	window util.DateRange) (*qpp.MeasurementSet, float64, bool, error) {

	claims = calc.FilterClaimsByDate(claims, window)

	period, err := calc.DeterminePerformancePeriod(claims, qualityCodes, window)
	if err != nil {
		if errors.Is(err, calc.ErrNoQualityCodes) {
			return nil, 0, false, nil
		}
		return nil, 0, false, err
	}

	claims = calc.FilterClaimsByDate(claims, period)
	claims = calc.FilterClaimsByMeasureCodes(claims, definitions)

	set, err := qpp.NewMeasurementSet(provider.TIN, provider.NPI, period.Start, period.End,
		qpp.MeasurementSetOptions{
			ObscureProviders:    cfg.Submission.ObscureProviders,
			FilterZeroReporting: cfg.Submission.FilterZeroReporting,
		})
	if err != nil {
		return nil, 0, false, err
	}

	var reported, eligible int
	for _, number := range sortedMeasureNumbers(calculators) {
		result, err := calculators[number].Execute(claims)
		if err != nil {
			return nil, 0, false, fmt.Errorf("measure %s: %w", number, err)
		}
		set.AddResult(number, result)
		r, e := reportingCounts(result)
		reported += r
		eligible += e
	}

	rate := 0.0
	if eligible > 0 {
		rate = float64(reported) / float64(eligible)
	}
	return set, rate, eligible > 0, nil
}

// reportingCounts sums a result's reported and eligible instances. For
// multi-stratum measures the overall stratum wins to avoid double counting.
func reportingCounts(result calc.Result) (reported, eligible int) {
	counts := result.Counts
	if len(result.Strata) > 0 {
		counts = result.Strata[len(result.Strata)-1].Counts
		for _, stratum := range result.Strata {
			if stratum.Name == "overall" {
				counts = stratum.Counts
				break
			}
		}
	}
	reported = counts.PerformanceMet + counts.PerformanceNotMet +
		counts.EligiblePopulationExclusion + counts.EligiblePopulationException
	return reported, counts.EligiblePopulation
}

func sortedMeasureNumbers(calculators map[string]calc.Calculator) []string {
	numbers := make([]string, 0, len(calculators))
	for number := range calculators {
		numbers = append(numbers, number)
	}
	sort.Strings(numbers)
	return numbers
}

func writeMeasurementSet(set *qpp.MeasurementSet, provider data.ProviderKey) error {
	payload, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return err
	}
	filename := filepath.Join(outputDir, fmt.Sprintf("%s-%s.json", provider.TIN, provider.NPI))
	return os.WriteFile(filename, payload, 0644)
}

func progressContainer() *mpb.Progress {
	if noProgress {
		return mpb.New(mpb.WithOutput(io.Discard))
	}
	return mpb.New()
}

var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Calculate measurement sets for every provider in a claims export",
	Long: `Calculates the configured quality measures for every provider found in the
claim-line CSV export and writes one measurement set JSON file per provider
into the output directory.

Providers without any quality-coded claims inside the calculation window are
reported as empty and produce no file.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return readConfig()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		window, err := cfg.Period()
		if err != nil {
			return err
		}
		definitions, err := data.LoadSingleSource(cfg.Calculation.SingleSource)
		if err != nil {
			return err
		}

		registry := &calc.Registry{
			Year:        cfg.Calculation.Year,
			Definitions: definitions,
			Period:      window,
		}
		calculators, err := buildCalculators(registry)
		if err != nil {
			return err
		}

		// The quality-code union and the prefilter only consider the
		// measures actually being calculated.
		qualityCodes := map[string]bool{}
		used := map[string]*data.MeasureDefinition{}
		for number, calculator := range calculators {
			def := calculator.Definition()
			used[number] = def
			for code := range def.QualityCodes() {
				qualityCodes[code] = true
			}
		}

		reader := data.ClaimsReader{
			MinClaimLines: cfg.Calculation.MinClaimLines,
			Logger:        log,
		}
		batch, err := reader.LoadBatchCSV(claimsFile)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return err
		}

		// Discharge-linked measures read a shared date cache. Priming it
		// for the whole batch up front keeps the parallel phase read-only.
		for _, calculator := range calculators {
			if discharge, ok := calculator.(*calc.Discharge); ok {
				discharge.ClearCache()
				if err := discharge.PrimeCache(batch); err != nil {
					return err
				}
			}
		}

		fmt.Printf("Calculating %d measures for %d providers ...\n", len(calculators), len(batch))

		progress := progressContainer()
		bar := progress.AddBar(int64(len(batch)),
			mpb.BarRemoveOnComplete(),
			mpb.PrependDecorators(
				decor.Name("calculate", decor.WC{W: 10, C: decor.DidentRight}),
				decor.OnComplete(decor.EwmaETA(decor.ET_STYLE_GO, 60, decor.WC{W: 4}), "done"),
			),
			mpb.AppendDecorators(decor.Percentage()),
		)

		// Aggregate results in one single goroutine
		resultCh := make(chan providerResult)
		statsCh := make(chan util.CommandStats)
		go aggregateProviderResults(len(batch), resultCh, statsCh)

		sem := make(chan bool, concurrency)
		start := time.Now()
		for provider, claims := range batch {
			sem <- true
			go func(provider data.ProviderKey, claims []*data.Claim) {
				defer func() { <-sem }()
				calcStart := time.Now()
				set, rate, hasRate, err := calculateProvider(provider, claims,
					calculators, qualityCodes, used, window)
				if err == nil && set != nil && !set.IsEmpty() {
					err = writeMeasurementSet(set, provider)
				}
				resultCh <- providerResult{
					provider:     provider,
					measurements: measurementCount(set),
					rate:         rate,
					hasRate:      hasRate,
					duration:     time.Since(calcStart),
					noQuality:    err == nil && set == nil,
					err:          err,
				}
				bar.EwmaIncrement(time.Duration(time.Since(calcStart).Nanoseconds() / int64(concurrency)))
			}(provider, claims)
		}

		// Wait for all providers to finish
		for i := 0; i < cap(sem); i++ {
			sem <- true
		}
		close(resultCh)
		progress.Wait()

		stats := <-statsCh
		stats.TotalDuration = time.Since(start)
		fmt.Print(stats.String())
		return nil
	},
}

func measurementCount(set *qpp.MeasurementSet) int {
	if set == nil {
		return 0
	}
	return len(set.Measurements)
}

func init() {
	rootCmd.AddCommand(calculateCmd)
	calculateCmd.Flags().StringVar(&claimsFile, "claims", "", "path of the claim-line CSV export")
	calculateCmd.Flags().StringVar(&outputDir, "out", "measurement-sets", "directory the measurement set files are written to")
	calculateCmd.Flags().IntVar(&concurrency, "concurrency", 4, "number of providers calculated in parallel")
	_ = calculateCmd.MarkFlagRequired("claims")
}
