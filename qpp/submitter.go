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

package qpp

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// ErrNoMatchingMeasurementSet indicates an existing submission without a
// claims quality measurement set to update.
var ErrNoMatchingMeasurementSet = errors.New("no matching measurement set in existing submission")

// A Submitter sends measurement sets to the submissions API, updating an
// existing claims quality measurement set in place when one exists. Failed
// attempts with a retryable status are repeated after a fixed wait; the wait
// has to clear the API's rate limit window, so it is long.
type Submitter struct {
	Client *Client

	// PatchUpdate updates existing measurement sets with PATCH instead of
	// replacing them with PUT.
	PatchUpdate bool

	// Attempts and Wait configure the fixed-delay retry. Zero values mean
	// two attempts 15 minutes apart.
	Attempts int
	Wait     time.Duration

	Logger zerolog.Logger
}

// Submit sends one measurement set. When the provider already has a
// submission for the performance year with a claims quality measurement set,
// that set is updated; otherwise a new one is created.
func (s *Submitter) Submit(ctx context.Context, set *MeasurementSet) error {
	attempts := s.Attempts
	if attempts <= 0 {
		attempts = 2
	}
	wait := s.Wait
	if wait <= 0 {
		wait = 15 * time.Minute
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = s.submitOnce(ctx, set)
		if err == nil || attempt >= attempts || !IsRetryable(err) {
			return err
		}
		s.Logger.Warn().Err(err).Int("attempt", attempt).Dur("wait", wait).
			Msg("Submission failed, retrying after wait")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Submitter) submitOnce(ctx context.Context, set *MeasurementSet) error {
	id, err := s.existingMeasurementSetID(ctx, set)
	if err != nil {
		if errors.Is(err, ErrNoMatchingMeasurementSet) {
			s.Logger.Debug().Msg("No existing measurement set, creating a new one")
			return s.Client.PostMeasurementSet(ctx, set)
		}
		return err
	}
	if s.PatchUpdate {
		s.Logger.Debug().Str("id", id).Msg("Patching existing measurement set")
		return s.Client.PatchMeasurementSet(ctx, id, set)
	}
	s.Logger.Debug().Str("id", id).Msg("Replacing existing measurement set")
	return s.Client.PutMeasurementSet(ctx, id, set)
}

// existingMeasurementSetID finds the claims quality measurement set of the
// provider's submission for the same performance year.
func (s *Submitter) existingMeasurementSetID(ctx context.Context, set *MeasurementSet) (string, error) {
	submissions, err := s.Client.Submissions(ctx, set.Submission.TIN, set.Submission.NPI)
	if err != nil {
		return "", err
	}
	for _, submission := range submissions {
		if submission.PerformanceYear != set.Submission.PerformanceYear {
			continue
		}
		for _, existing := range submission.MeasurementSets {
			if existing.Category == "quality" && existing.SubmissionMethod == "claims" {
				return existing.ID, nil
			}
		}
		break
	}
	return "", ErrNoMatchingMeasurementSet
}
