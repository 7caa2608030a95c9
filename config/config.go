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

// Package config reads the calculation run configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/samply/qualityctl/util"
)

// Calculation configures what to calculate.
type Calculation struct {
	// Year is the performance year the measure registry is keyed by.
	Year int `yaml:"year"`

	// StartDate and EndDate bound the performance period, YYYY-MM-DD.
	StartDate string `yaml:"startDate"`
	EndDate   string `yaml:"endDate"`

	// Measures lists the measure numbers to calculate. Empty means every
	// measure supported for the year.
	Measures []string `yaml:"measures"`

	// SingleSource is the path of the measure definition JSON.
	SingleSource string `yaml:"singleSource"`

	// MinClaimLines drops providers with fewer claim rows, guarding
	// development data sets against rare-value re-identification.
	MinClaimLines int `yaml:"minClaimLines"`
}

// Submission configures the submissions API client.
type Submission struct {
	Endpoint            string `yaml:"endpoint"`
	APIToken            string `yaml:"apiToken"`
	Cookie              string `yaml:"cookie"`
	PatchUpdate         bool   `yaml:"patchUpdate"`
	ObscureProviders    bool   `yaml:"obscureProviders"`
	FilterZeroReporting bool   `yaml:"filterZeroReporting"`
}

// Config is the root of the configuration file.
type Config struct {
	Calculation Calculation `yaml:"calculation"`
	Submission  Submission  `yaml:"submission"`
	LogLevel    string      `yaml:"logLevel"`
}

// Read loads and validates the configuration file.
func Read(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	cfg := Config{}

	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", filename, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", filename, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Calculation.Year == 0 {
		return fmt.Errorf("calculation.year is required")
	}
	if _, err := c.Period(); err != nil {
		return err
	}
	if c.Calculation.SingleSource == "" {
		return fmt.Errorf("calculation.singleSource is required")
	}
	return nil
}

// Period returns the configured performance period bounds.
func (c *Config) Period() (util.DateRange, error) {
	start, err := parseDay(c.Calculation.StartDate, "calculation.startDate")
	if err != nil {
		return util.DateRange{}, err
	}
	end, err := parseDay(c.Calculation.EndDate, "calculation.endDate")
	if err != nil {
		return util.DateRange{}, err
	}
	if end.Before(start) {
		return util.DateRange{}, fmt.Errorf("calculation.endDate is before calculation.startDate")
	}
	return util.DateRange{Start: start, End: end}, nil
}

func parseDay(value, key string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%s is required", key)
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: invalid date %q", key, value)
	}
	return util.Day(parsed.Year(), parsed.Month(), parsed.Day()), nil
}
