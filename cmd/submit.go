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
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/samply/qualityctl/qpp"
	"github.com/samply/qualityctl/util"
)

var scorePreview bool

func newSubmissionsClient() (*qpp.Client, error) {
	if cfg.Submission.Endpoint == "" {
		return nil, fmt.Errorf("submission.endpoint is not configured")
	}
	baseURL, err := url.ParseRequestURI(cfg.Submission.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("could not parse submission endpoint: %v", err)
	}
	return qpp.NewClient(*baseURL, qpp.ClientAuth{
		APIToken: cfg.Submission.APIToken,
		Cookie:   cfg.Submission.Cookie,
	}), nil
}

func readMeasurementSet(filename string) (*qpp.MeasurementSet, error) {
	payload, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var set qpp.MeasurementSet
	if err := json.Unmarshal(payload, &set); err != nil {
		return nil, fmt.Errorf("parse measurement set %s: %w", filename, err)
	}
	return &set, nil
}

func measurementSetFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

var submitCmd = &cobra.Command{
	Use:   "submit [directory]",
	Short: "Submit measurement sets to the QPP submissions API",
	Long: `Submits every measurement set JSON file in the given directory to the
submissions API. Providers with an existing claims quality measurement set
for the performance year get that set updated instead of duplicated.

With --score-preview nothing is submitted; the API's score preview for each
measurement set is printed instead.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 {
			return fmt.Errorf("requires a directory argument")
		}
		if info, err := os.Stat(args[0]); os.IsNotExist(err) {
			return fmt.Errorf("directory `%s` doesn't exist", args[0])
		} else if !info.IsDir() {
			return fmt.Errorf("`%s` isn't a directory", args[0])
		}
		return nil
	},
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return readConfig()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := measurementSetFiles(args[0])
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no measurement set files in `%s`", args[0])
		}

		client, err := newSubmissionsClient()
		if err != nil {
			return err
		}

		ctx := context.Background()

		if scorePreview {
			for _, filename := range files {
				set, err := readMeasurementSet(filename)
				if err != nil {
					return err
				}
				score, err := client.ScorePreview(ctx, set)
				if err != nil {
					return fmt.Errorf("score preview for %s: %w", filename, err)
				}
				fmt.Printf("%s:\n%s\n", filename, score)
			}
			return nil
		}

		submitter := &qpp.Submitter{
			Client:      client,
			PatchUpdate: cfg.Submission.PatchUpdate,
			Logger:      log,
		}

		fmt.Printf("Submitting %d measurement sets to %s ...\n", len(files), cfg.Submission.Endpoint)

		progress := progressContainer()
		bar := progress.AddBar(int64(len(files)),
			mpb.BarRemoveOnComplete(),
			mpb.PrependDecorators(
				decor.Name("submit", decor.WC{W: 7, C: decor.DidentRight}),
				decor.OnComplete(decor.EwmaETA(decor.ET_STYLE_GO, 60, decor.WC{W: 4}), "done"),
			),
			mpb.AppendDecorators(decor.Percentage()),
		)

		// The API rate-limits aggressively, so sets go out one at a time.
		start := time.Now()
		errs := map[string]error{}
		for _, filename := range files {
			submitStart := time.Now()
			set, err := readMeasurementSet(filename)
			if err == nil {
				err = submitter.Submit(ctx, set)
			}
			if err != nil {
				errs[filename] = err
			}
			bar.EwmaIncrement(time.Since(submitStart))
		}
		progress.Wait()

		fmt.Printf("Submissions	[total, errors]		%d, %d\n", len(files), len(errs))
		fmt.Printf("Duration	[total]			%s\n", util.FmtDurationHumanReadable(time.Since(start)))
		if len(errs) > 0 {
			fmt.Print("\nErrors:\n")
			for _, filename := range files {
				if err, ok := errs[filename]; ok {
					fmt.Print(util.Indent(2, fmt.Sprintf("%s : %s\n", filename, err)))
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().BoolVar(&scorePreview, "score-preview", false, "fetch score previews instead of submitting")
}
