package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds the charter marketplace API configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client posts trip requests to the third-party charter marketplace
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a new marketplace client
func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Owner identifies the account that owns the request on the marketplace
type Owner struct {
	ID string `json:"id"`
}

// Customer is the traveller contact block
type Customer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone"`
}

// Airport is a leg endpoint with coordinates
type Airport struct {
	Code      string  `json:"icao"`
	Name      string  `json:"name,omitempty"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Leg is one flight segment of the journey
type Leg struct {
	Departure     Airport   `json:"departure"`
	Arrival       Airport   `json:"arrival"`
	DepartureTime time.Time `json:"departureTime"`
	Pax           int       `json:"pax"`
}

// Journey groups the requested legs
type Journey struct {
	Legs []Leg `json:"legs"`
}

// TripRequest is the marketplace request schema
type TripRequest struct {
	ExternalListingID string    `json:"externalListingId,omitempty"`
	ClientReference   string    `json:"clientReference"`
	Owner             Owner     `json:"owner"`
	Customer          Customer  `json:"customer"`
	Journey           Journey   `json:"journey"`
	RequestedAt       time.Time `json:"requestedAt"`
}

// tripRequestResponse is the success envelope: {"data": {"requestId": "..."}}
type tripRequestResponse struct {
	Data struct {
		RequestID string `json:"requestId"`
	} `json:"data"`
}

// APIError is returned for non-2xx responses
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketplace returned http %d: %s", e.StatusCode, e.Body)
}

// maxErrorBody caps how much of an error body is kept
const maxErrorBody = 512

// SubmitTripRequest posts one trip request and returns the marketplace request id.
// It makes a single attempt.
func (c *Client) SubmitTripRequest(ctx context.Context, tripReq TripRequest) (string, error) {
	payload, err := json.Marshal(tripReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal trip request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/trip-requests", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create trip request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send trip request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read trip request response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return "", &APIError{StatusCode: resp.StatusCode, Body: snippet}
	}

	var parsed tripRequestResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse trip request response: %w", err)
	}
	if parsed.Data.RequestID == "" {
		return "", fmt.Errorf("marketplace response missing data.requestId")
	}

	return parsed.Data.RequestID, nil
}
