// Package adminui is the admin-side client of the reservation API: it holds
// the session token, calls the API and keeps the panel state that a front
// end renders.
package adminui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/reservadesk/reservadesk/internal/model"
)

// ErrUnauthorized is returned for any 401 response.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response other than 401.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// Client calls the reservation API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a Client for the API at baseURL. A nil httpClient uses
// one with a 15 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, username, password string) (*model.LoginResponse, error) {
	var out model.LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/login", "", model.LoginRequest{Username: username, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// List fetches all reservations.
func (c *Client) List(ctx context.Context, token string) ([]model.Reservation, error) {
	var out []model.Reservation
	if err := c.do(ctx, http.MethodGet, "/api/reservations", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create adds a reservation.
func (c *Client) Create(ctx context.Context, token string, in model.ReservationInput) (*model.Reservation, error) {
	var out model.Reservation
	if err := c.do(ctx, http.MethodPost, "/api/reservations", token, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update applies a partial update.
func (c *Client) Update(ctx context.Context, token string, patch model.ReservationPatch) (*model.Reservation, error) {
	var out model.Reservation
	if err := c.do(ctx, http.MethodPut, "/api/reservations", token, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a reservation.
func (c *Client) Delete(ctx context.Context, token string, ref model.ReservationRef) error {
	var out model.MessageResponse
	return c.do(ctx, http.MethodDelete, "/api/reservations", token, ref, &out)
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e model.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&e) == nil {
			apiErr.Message = e.Error
			apiErr.Fields = e.Fields
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
