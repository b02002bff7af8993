// Package recordstore is the REST client for the hosted record store that
// owns destination, snapshot, and alert rows. The store is an external
// collaborator; this client is the narrow read/write contract to it.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/trailhaven/ecowatch/internal/domain"
)

// Client talks to the record store REST endpoint. Individual row writes
// are atomic on the store side; the client needs no transactions.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a record store client.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ListActiveDestinations returns every destination with the active flag set.
func (c *Client) ListActiveDestinations(ctx context.Context) ([]domain.Destination, error) {
	var out []domain.Destination
	query := url.Values{"active": {"true"}}
	if err := c.do(ctx, http.MethodGet, "/destinations", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LatestSnapshot returns the most recent persisted snapshot for a
// destination, or domain.ErrNotFound when none exists.
func (c *Client) LatestSnapshot(ctx context.Context, destinationID string) (domain.Snapshot, error) {
	var out domain.Snapshot
	path := "/destinations/" + url.PathEscape(destinationID) + "/snapshots/latest"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return domain.Snapshot{}, err
	}
	return out, nil
}

// InsertSnapshot persists a new immutable snapshot row.
func (c *Client) InsertSnapshot(ctx context.Context, s domain.Snapshot) error {
	return c.do(ctx, http.MethodPost, "/snapshots", nil, s, nil)
}

// ActiveAlerts lists currently-active alerts, optionally filtered to one
// destination.
func (c *Client) ActiveAlerts(ctx context.Context, destinationID string) ([]domain.Alert, error) {
	query := url.Values{"active": {"true"}}
	if destinationID != "" {
		query.Set("destination", destinationID)
	}
	var out []domain.Alert
	if err := c.do(ctx, http.MethodGet, "/alerts", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// InsertAlert writes a new alert row.
func (c *Client) InsertAlert(ctx context.Context, a domain.Alert) error {
	return c.do(ctx, http.MethodPost, "/alerts", nil, a, nil)
}

// DeactivateAlerts marks active alerts of one type inactive. An empty
// destinationID targets all destinations.
func (c *Client) DeactivateAlerts(ctx context.Context, destinationID string, typ domain.AlertType) error {
	body := map[string]string{"type": string(typ)}
	if destinationID != "" {
		body["destination_id"] = destinationID
	}
	return c.do(ctx, http.MethodPost, "/alerts/deactivate", nil, body, nil)
}

// PurgeInactiveAlerts hard-deletes inactive alerts of one type created
// before the cutoff, bounding storage growth.
func (c *Client) PurgeInactiveAlerts(ctx context.Context, typ domain.AlertType, before time.Time) error {
	query := url.Values{
		"active": {"false"},
		"type":   {string(typ)},
		"before": {before.UTC().Format(time.RFC3339)},
	}
	return c.do(ctx, http.MethodDelete, "/alerts", query, nil, nil)
}

// do executes one request against the store. A 404 maps to
// domain.ErrNotFound; any other non-2xx status is an error carrying the
// response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
