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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

const jsonContentType = "application/json"

// tinHeader carries the provider TIN on submission lookups.
const tinHeader = "Qpp-Taxpayer-Identification-Number"

// A Client talks to the QPP submissions API. At minimum the base URL and the
// bearer token have to be set; the HTTP client can be left at its default
// value.
type Client struct {
	httpClient http.Client
	baseURL    url.URL
	auth       ClientAuth
}

// ClientAuth comprises the authentication information for the submissions
// API. Cookie is optional and only needed by some gateway setups.
type ClientAuth struct {
	APIToken string
	Cookie   string
}

// NewClient creates a new Client with the given base URL and auth
// configuration.
func NewClient(baseURL url.URL, auth ClientAuth) *Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxConnsPerHost = 100
	t.MaxIdleConnsPerHost = 100

	return &Client{
		httpClient: http.Client{Transport: t},
		baseURL:    baseURL,
		auth:       auth,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values,
	body io.Reader) (*http.Request, error) {

	u := c.baseURL.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", jsonContentType)
	req.Header.Set("Authorization", "Bearer "+c.auth.APIToken)
	// A fresh request id lets the API operators correlate follow-ups.
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.auth.Cookie != "" {
		req.Header.Set("Cookie", c.auth.Cookie)
	}
	if body != nil {
		req.Header.Set("Content-Type", jsonContentType)
	}
	return req, nil
}

// SubmissionSummary is the submissions API's view of one existing
// submission.
type SubmissionSummary struct {
	ID              string                  `json:"id"`
	PerformanceYear int                     `json:"performanceYear"`
	MeasurementSets []MeasurementSetSummary `json:"measurementSets"`
}

type MeasurementSetSummary struct {
	ID               string `json:"id"`
	Category         string `json:"category"`
	SubmissionMethod string `json:"submissionMethod"`
}

type submissionsEnvelope struct {
	Data struct {
		Submissions []SubmissionSummary `json:"submissions"`
	} `json:"data"`
}

// Submissions lists the existing submissions for a provider.
func (c *Client) Submissions(ctx context.Context, tin, npi string) ([]SubmissionSummary, error) {
	query := url.Values{}
	query.Set("itemsPerPage", strconv.Itoa(99999))
	if npi != "" {
		query.Set("nationalProviderIdentifier", npi)
	}
	req, err := c.newRequest(ctx, http.MethodGet, "submissions", query, nil)
	if err != nil {
		return nil, err
	}
	if tin != "" {
		req.Header.Set(tinHeader, tin)
	}

	var envelope submissionsEnvelope
	if err := c.do(req, &envelope); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return envelope.Data.Submissions, nil
}

// PostMeasurementSet creates a new measurement set.
func (c *Client) PostMeasurementSet(ctx context.Context, set *MeasurementSet) error {
	return c.writeMeasurementSet(ctx, http.MethodPost, "measurement-sets", set)
}

// PutMeasurementSet replaces the measurement set with the given id.
func (c *Client) PutMeasurementSet(ctx context.Context, id string, set *MeasurementSet) error {
	return c.writeMeasurementSet(ctx, http.MethodPut, "measurement-sets/"+id, set)
}

// PatchMeasurementSet partially updates the measurement set with the given
// id.
func (c *Client) PatchMeasurementSet(ctx context.Context, id string, set *MeasurementSet) error {
	return c.writeMeasurementSet(ctx, http.MethodPatch, "measurement-sets/"+id, set)
}

// DeleteMeasurementSet removes the measurement set with the given id.
func (c *Client) DeleteMeasurementSet(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "measurement-sets/"+id, nil, nil)
	if err != nil {
		return err
	}
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("delete measurement set %s: %w", id, err)
	}
	return nil
}

// ScorePreview submits the measurement set to the score-preview endpoint and
// returns the raw preview document.
func (c *Client) ScorePreview(ctx context.Context, set *MeasurementSet) (json.RawMessage, error) {
	payload, err := scoringPayload(set)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "submissions/score-preview", nil,
		bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	var preview json.RawMessage
	if err := c.do(req, &preview); err != nil {
		return nil, fmt.Errorf("score preview: %w", err)
	}
	return preview, nil
}

func (c *Client) writeMeasurementSet(ctx context.Context, method, path string,
	set *MeasurementSet) error {

	payload, err := json.Marshal(set)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, method, path, nil, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("%s measurement set: %w", method, err)
	}
	return nil
}

// do sends the request and decodes a JSON response into out when non-nil.
// Non-2xx responses become a *ResponseError carrying the status and body.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &ResponseError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// scoringPayload wraps the measurement set the way the score-preview
// endpoint wants it: provider identity at the top, the set itself nested
// without its submission block.
func scoringPayload(set *MeasurementSet) ([]byte, error) {
	type strippedSet struct {
		Category         string        `json:"category"`
		SubmissionMethod string        `json:"submissionMethod"`
		PerformanceStart Date          `json:"performanceStart"`
		PerformanceEnd   Date          `json:"performanceEnd"`
		Measurements     []Measurement `json:"measurements"`
	}
	return json.Marshal(map[string]any{
		"programName":                  set.Submission.ProgramName,
		"entityType":                   set.Submission.EntityType,
		"taxpayerIdentificationNumber": set.Submission.TIN,
		"nationalProviderIdentifier":   set.Submission.NPI,
		"performanceYear":              set.Submission.PerformanceYear,
		"measurementSets": []strippedSet{{
			Category:         set.Category,
			SubmissionMethod: set.SubmissionMethod,
			PerformanceStart: set.PerformanceStart,
			PerformanceEnd:   set.PerformanceEnd,
			Measurements:     set.Measurements,
		}},
	})
}
