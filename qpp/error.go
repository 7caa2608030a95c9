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
	"errors"
	"fmt"
	"net/http"
)

// retryableStatusCodes are the responses worth a retry. 403 is included
// because the API answers rate limiting with Forbidden.
var retryableStatusCodes = map[int]bool{
	http.StatusForbidden:           true,
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// A ResponseError is a non-2xx answer from the submissions API.
type ResponseError struct {
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP error %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether a retry could plausibly fix the error.
func (e *ResponseError) Retryable() bool {
	return retryableStatusCodes[e.StatusCode]
}

// IsRetryable reports whether err is a retryable API response.
func IsRetryable(err error) bool {
	var respErr *ResponseError
	return errors.As(err, &respErr) && respErr.Retryable()
}
