// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bureau-foundation/checkin/lib/credential"
	"github.com/bureau-foundation/checkin/lib/netutil"
	"github.com/bureau-foundation/checkin/lib/schema/checkin"
)

// RequestIDHeader carries the client-generated id of a check-in
// attempt, so server logs can be correlated with the device.
const RequestIDHeader = "X-Request-ID"

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the API root (e.g., "https://events.example.edu/api").
	BaseURL string
	// Token is the bearer token for every request. Empty sends none.
	Token string
	// HTTPClient is used for all requests. If nil, a client with
	// Timeout is created.
	HTTPClient *http.Client
	// Timeout bounds each request when HTTPClient is nil. Zero means
	// 15 seconds.
	Timeout time.Duration
	// Logger is used for structured logging. If nil, logs are
	// discarded.
	Logger *slog.Logger
}

// Client calls the event REST API. Safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("eventapi: BaseURL is required")
	}
	parsed, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("eventapi: invalid BaseURL %q: %w", config.BaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("eventapi: BaseURL %q must be http or https", config.BaseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		token:      config.Token,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// CheckIn submits a scanned credential for an event.
func (c *Client) CheckIn(ctx context.Context, eventID string, qrCode credential.Credential, requestID string) (checkin.CheckinResponse, error) {
	path := "/events/" + url.PathEscape(eventID) + "/check-in"
	return c.checkin(ctx, path, checkin.CheckinRequest{QRCode: qrCode.String()}, requestID)
}

// ManualCheckIn asks the server to resolve a student id or email to a
// ticket for the event and check it in.
func (c *Client) ManualCheckIn(ctx context.Context, eventID, searchQuery, requestID string) (checkin.CheckinResponse, error) {
	path := "/events/" + url.PathEscape(eventID) + "/manual-check-in"
	return c.checkin(ctx, path, checkin.ManualCheckinRequest{SearchQuery: searchQuery}, requestID)
}

func (c *Client) checkin(ctx context.Context, path string, body any, requestID string) (checkin.CheckinResponse, error) {
	header := http.Header{}
	if requestID != "" {
		header.Set(RequestIDHeader, requestID)
	}
	statusCode, responseBody, err := c.do(ctx, http.MethodPost, path, header, body)
	if err != nil {
		return checkin.CheckinResponse{}, err
	}

	var response checkin.CheckinResponse
	decodeErr := json.Unmarshal(responseBody, &response)
	if statusCode >= 200 && statusCode < 300 {
		if decodeErr != nil {
			return checkin.CheckinResponse{}, fmt.Errorf("eventapi: decoding %s response: %w", path, decodeErr)
		}
		if !response.Status.IsKnown() {
			return checkin.CheckinResponse{}, fmt.Errorf("eventapi: %s returned unknown status %q", path, response.Status)
		}
		return response, nil
	}

	// Rejections (FAKE, WRONG_EVENT, sometimes USED) come back as 4xx
	// with the classification in the body.
	if decodeErr == nil && response.Status.IsKnown() {
		c.logger.Debug("check-in classified by error response",
			"path", path,
			"http_status", statusCode,
			"status", string(response.Status),
		)
		return response, nil
	}
	return checkin.CheckinResponse{}, newAPIError(statusCode, responseBody)
}

// MyTickets returns the authenticated attendee's tickets.
func (c *Client) MyTickets(ctx context.Context) ([]checkin.Ticket, error) {
	var response checkin.TicketListResponse
	if err := c.get(ctx, "/tickets/my-tickets", &response); err != nil {
		return nil, err
	}
	return response.Tickets, nil
}

// Ticket returns one ticket.
func (c *Client) Ticket(ctx context.Context, ticketID string) (checkin.Ticket, error) {
	var response checkin.TicketResponse
	if err := c.get(ctx, "/tickets/"+url.PathEscape(ticketID), &response); err != nil {
		return checkin.Ticket{}, err
	}
	return response.Ticket, nil
}

// EventSeats returns the seat map of an event.
func (c *Client) EventSeats(ctx context.Context, eventID string) ([]checkin.Seat, error) {
	var response checkin.SeatListResponse
	if err := c.get(ctx, "/events/"+url.PathEscape(eventID)+"/seats", &response); err != nil {
		return nil, err
	}
	return response.Seats, nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	statusCode, body, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	if statusCode < 200 || statusCode >= 300 {
		return newAPIError(statusCode, body)
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("eventapi: decoding %s response: %w", path, err)
	}
	return nil
}

// do performs one request and returns the status code and bounded
// body. Only transport failures are errors here; status handling is
// the caller's.
func (c *Client) do(ctx context.Context, method, path string, header http.Header, requestBody any) (int, []byte, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return 0, nil, fmt.Errorf("eventapi: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("eventapi: creating request: %w", err)
	}
	for key, values := range header {
		request.Header[key] = values
	}
	request.Header.Set("Accept", "application/json")
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return 0, nil, fmt.Errorf("eventapi: %s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("eventapi: reading %s %s response: %w", method, path, err)
	}
	return response.StatusCode, body, nil
}

func newAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode, Body: strings.TrimSpace(string(body))}
	var parsed struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		apiErr.Message = parsed.Message
	}
	return apiErr
}
