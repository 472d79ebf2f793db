package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/lootsolver/internal/domain/model"
)

// HTTPClient talks to a running loot solver over its JSON API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the service at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Health checks that the service answers on /healthz.
func (c *HTTPClient) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return nil
}

// PutTeam stores team and returns its version.
func (c *HTTPClient) PutTeam(ctx context.Context, team model.Team) (uint64, error) { //nolint:gocritic // mirrors the service
	var out struct {
		Version uint64 `json:"version"`
	}
	if err := c.call(ctx, http.MethodPut, "/teams/"+team.ID.String(), team, nil, &out); err != nil {
		return 0, err
	}
	return out.Version, nil
}

// Plan returns the encoded plan of the stored team.
func (c *HTTPClient) Plan(ctx context.Context, id uuid.UUID, conservative *bool) (json.RawMessage, error) {
	path := "/teams/" + id.String() + "/plan"
	if conservative != nil {
		path += "?" + url.Values{"conservative": {strconv.FormatBool(*conservative)}}.Encode()
	}
	var out json.RawMessage
	if err := c.call(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RecordLoot submits records under the idempotency key.
func (c *HTTPClient) RecordLoot(ctx context.Context, id uuid.UUID, key string, records []model.LootRecord, applyGear bool) (model.LootReceipt, error) {
	body := struct {
		Records   []model.LootRecord `json:"records"`
		ApplyGear bool               `json:"apply_gear"`
	}{Records: records, ApplyGear: applyGear}
	headers := map[string]string{"Idempotency-Key": key}

	var out model.LootReceipt
	if err := c.call(ctx, http.MethodPost, "/teams/"+id.String()+"/loot", body, headers, &out); err != nil {
		return model.LootReceipt{}, err
	}
	return out, nil
}

// call sends in as JSON and decodes a successful answer into out.
func (c *HTTPClient) call(ctx context.Context, method, path string, in any, headers map[string]string, out any) error {
	resp, err := c.do(ctx, method, path, in, headers)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in any, headers map[string]string) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrRequest, method, path, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer func() { _ = resp.Body.Close() }()
		se := &StatusError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(se); err != nil {
			se.Message = http.StatusText(resp.StatusCode)
		}
		return nil, se
	}
	return resp, nil
}
