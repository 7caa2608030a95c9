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

// Package logging configures the process-wide logger. Claims data carries
// protected health information, so identifiers are masked before they reach
// the log output.
package logging

import (
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// Identifiers embedded in free-form log messages. TINs are 9 digits, NPIs 10.
var identifierPattern = regexp.MustCompile(`\b\d{9,10}\b`)

// New returns a logger writing to stderr at the given level. Unknown level
// strings fall back to info. With pretty set, output uses the human-readable
// console format instead of JSON.
func New(level string, pretty bool) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	var out io.Writer = scrubWriter{w: os.Stderr}
	if pretty {
		out = zerolog.ConsoleWriter{Out: scrubWriter{w: os.Stderr}}
	}
	return zerolog.New(out).Level(parsed).With().Timestamp().Logger()
}

// scrubWriter masks identifier-shaped digit runs in everything written
// through it. This is a safety net for values that reach a message string
// unmasked; callers should still prefer the Mask helpers for fields.
type scrubWriter struct {
	w io.Writer
}

func (s scrubWriter) Write(p []byte) (int, error) {
	masked := identifierPattern.ReplaceAllFunc(p, func(match []byte) []byte {
		return []byte(Mask(string(match)))
	})
	if _, err := s.w.Write(masked); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Mask replaces all but the last two characters of an identifier with
// asterisks. Short values are masked entirely.
func Mask(id string) string {
	if len(id) <= 2 {
		return strings.Repeat("*", len(id))
	}
	return strings.Repeat("*", len(id)-2) + id[len(id)-2:]
}
