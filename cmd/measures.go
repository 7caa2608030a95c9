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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samply/qualityctl/calc"
	"github.com/samply/qualityctl/data"
)

// measuresCmd represents the measures command
var measuresCmd = &cobra.Command{
	Use:   "measures",
	Short: "List the measures supported for the configured performance year",
	Long: `Lists every measure number registered for the configured performance year.
When the measure definitions file is available, the measure titles and the
inverse flag are shown alongside.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return readConfig()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := &calc.Registry{Year: cfg.Calculation.Year}
		numbers, err := registry.SupportedMeasures()
		if err != nil {
			return err
		}

		definitions, err := data.LoadSingleSource(cfg.Calculation.SingleSource)
		if err != nil {
			definitions = nil
			log.Debug().Err(err).Msg("Measure definitions unavailable, listing numbers only")
		}

		fmt.Printf("Measures supported for %d: %d\n\n", cfg.Calculation.Year, len(numbers))
		for _, number := range numbers {
			def, ok := definitions[number]
			if !ok {
				fmt.Println(number)
				continue
			}
			inverse := ""
			if def.IsInverse {
				inverse = " (inverse)"
			}
			fmt.Printf("%s  %s%s\n", number, def.Title, inverse)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(measuresCmd)
}
