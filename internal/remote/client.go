// Package remote wraps the upstream freight service API. All tolerance for
// the upstream's loose payloads (field aliases, flexible date formats,
// array-or-object envelopes) lives here; the rest of the application sees
// only canonical types.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/freteops/freteops/internal/consignment"
)

// Client talks to the upstream freight API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient constructs a new client. token is attached as a bearer
// credential on every request.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Ping checks if the upstream service is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	return nil
}

// FetchConsignments loads the grid working set for the given period.
func (c *Client) FetchConsignments(ctx context.Context, period consignment.Period) ([]consignment.Consignment, error) {
	query := url.Values{}
	query.Set("dataInicio", period.DataInicio.Format(consignment.DateLayout))
	query.Set("dataFim", period.DataFim.Format(consignment.DateLayout))

	var wire []consignmentWire
	if err := c.getJSON(ctx, "/api/ctrcs/grid?"+query.Encode(), &wire); err != nil {
		return nil, fmt.Errorf("fetch consignments: %w", err)
	}

	records := make([]consignment.Consignment, 0, len(wire))
	for _, w := range wire {
		records = append(records, w.canonical())
	}
	return records, nil
}

// lookupEnvelope is the upstream lookup response shape.
type lookupEnvelope struct {
	StatusesEntrega []consignment.StatusEntry `json:"statusesEntrega"`
}

// FetchLookups loads the delivery status vocabulary.
func (c *Client) FetchLookups(ctx context.Context) ([]consignment.StatusEntry, error) {
	var lookups lookupEnvelope
	if err := c.getJSON(ctx, "/api/ctrcs/lookups", &lookups); err != nil {
		return nil, fmt.Errorf("fetch lookups: %w", err)
	}
	return lookups.StatusesEntrega, nil
}

// UpdateConsignment writes one consignment's accumulated patch upstream.
func (c *Client) UpdateConsignment(ctx context.Context, id int64, payload consignment.UpdatePayload) error {
	if err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/api/ctrcs/%d", id), payload, nil); err != nil {
		return fmt.Errorf("update consignment %d: %w", id, err)
	}
	return nil
}

// CreateAgenda creates or replaces the schedule sub-entity for a consignment.
func (c *Client) CreateAgenda(ctx context.Context, req consignment.AgendaRequest) error {
	if err := c.sendJSON(ctx, http.MethodPost, "/api/agenda", req, nil); err != nil {
		return fmt.Errorf("create agenda for %d: %w", req.CtrcID, err)
	}
	return nil
}

// FetchAgendaTypes loads the schedule-type vocabulary.
func (c *Client) FetchAgendaTypes(ctx context.Context) ([]consignment.StatusEntry, error) {
	var types []consignment.StatusEntry
	if err := c.getJSON(ctx, "/api/agenda/tipos", &types); err != nil {
		return nil, fmt.Errorf("fetch agenda types: %w", err)
	}
	return types, nil
}

// ============================================================================
// REQUEST PLUMBING
// ============================================================================

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	return c.sendJSON(ctx, http.MethodGet, path, nil, target)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body, target any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s returned status %d", method, path, resp.StatusCode)
	}
	if target == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(target)
}
