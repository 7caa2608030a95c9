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
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"text/template"

	"github.com/spf13/cobra"

	"github.com/samply/qualityctl/qpp"
)

//go:embed report-template.gotmpl
var reportTemplate string

var reportFHIR bool

func renderReport(wr io.Writer, set qpp.MeasurementSet) error {
	funcMap := template.FuncMap{
		"day": func(d qpp.Date) string {
			return d.Format("2006-01-02")
		},
		"n": func(p *int) int {
			if p == nil {
				return 0
			}
			return *p
		},
		"ratio": func(met int, eligible int) string {
			if eligible == 0 {
				return "no eligible population"
			}
			return fmt.Sprintf("%.1f %%", float64(met*100)/float64(eligible))
		},
	}

	tmpl := template.Must(template.New("report").Funcs(funcMap).Parse(reportTemplate))

	return tmpl.Execute(wr, set)
}

var reportCmd = &cobra.Command{
	Use:   "report [file]",
	Short: "Render a measurement set as a readable report",
	Long: `Renders a measurement set JSON file as a human-readable report. Without a
file argument the measurement set is read from stdin.

With --fhir the measurement set is converted into a FHIR® MeasureReport
resource and written as JSON instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var payload []byte
		var err error
		if len(args) == 1 {
			payload, err = os.ReadFile(args[0])
		} else {
			payload, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return err
		}

		var set qpp.MeasurementSet
		if err := json.Unmarshal(payload, &set); err != nil {
			return err
		}

		if reportFHIR {
			report := qpp.MeasureReport(&set)
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		return renderReport(os.Stdout, set)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVar(&reportFHIR, "fhir", false, "write a FHIR MeasureReport instead of the text report")
}
