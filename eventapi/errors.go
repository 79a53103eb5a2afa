// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventapi

import (
	"errors"
	"fmt"
)

// APIError is a non-2xx response that carried no check-in
// classification. Callers can use errors.As to extract it:
//
//	var apiErr *APIError
//	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized { ... }
type APIError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`
	// Message is the server's "message" field, if the body had one.
	Message string `json:"message"`
	// Body is the raw response body, for diagnostics.
	Body string `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("eventapi: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("eventapi: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsAPIError reports whether err is an *APIError with the given status
// code.
func IsAPIError(err error, statusCode int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == statusCode
	}
	return false
}
