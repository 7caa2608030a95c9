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
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/samply/qualityctl/config"
	"github.com/samply/qualityctl/logging"
)

var configFile string
var noProgress bool
var pretty bool

var cfg *config.Config
var log zerolog.Logger

// readConfig loads the run configuration and initializes logging. Commands
// that need the configuration call it from their PreRunE.
func readConfig() error {
	var err error
	cfg, err = config.Read(configFile)
	if err != nil {
		return err
	}
	log = logging.New(cfg.LogLevel, pretty)
	return nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "qualityctl",
	Short: "Calculate and submit claims-based quality measures",
	Long: `qualityctl calculates CMS claims-based quality measures from a
claim-line CSV export and builds QPP measurement sets.

You can calculate measurement sets for every provider in a claims export,
submit them to the QPP submissions API, list the measures supported for a
performance year and render measurement sets as readable reports.`,
	Version: "0.3.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yml", "path of the run configuration file")
	rootCmd.PersistentFlags().BoolVarP(&noProgress, "no-progress", "", false, "don't show progress bar")
	rootCmd.PersistentFlags().BoolVarP(&pretty, "pretty", "", false, "human-friendly log output instead of JSON")
}
