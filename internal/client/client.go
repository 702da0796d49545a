// Package client talks to the tracker's sync API from the downstream side.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Wenjie0329/email-pitch-tool/internal/dto"
)

const maxErrorBody = 4 << 10

// APIError is a non-2xx reply from the tracker
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("tracker returned %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("tracker returned %d %s", e.StatusCode, e.Code)
}

// Temporary reports whether retrying the same call may succeed
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// IsAPIError unwraps err to an *APIError
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	log        *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func New(serverURL string, timeout time.Duration, log *zap.Logger, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server url %q must use http or https", serverURL)
	}

	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListOpens fetches opens; limit <= 0 leaves the server default in place
func (c *Client) ListOpens(ctx context.Context, limit int, all bool) (*dto.ListOpensResponse, error) {
	var response dto.ListOpensResponse
	if err := c.get(ctx, "/api/opens", listQuery(limit, all), &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// ListClicks fetches clicks; limit <= 0 leaves the server default in place
func (c *Client) ListClicks(ctx context.Context, limit int, all bool) (*dto.ListClicksResponse, error) {
	var response dto.ListClicksResponse
	if err := c.get(ctx, "/api/clicks", listQuery(limit, all), &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// MarkSynced acknowledges ids. Safe to repeat after a lost reply.
func (c *Client) MarkSynced(ctx context.Context, openIDs, clickIDs []int64) (*dto.MarkSyncedResponse, error) {
	req := dto.MarkSyncedRequest{
		OpenIDs:  rawIDs(openIDs),
		ClickIDs: rawIDs(clickIDs),
	}

	var response dto.MarkSyncedResponse
	if err := c.post(ctx, "/api/mark_synced", req, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *Client) Stats(ctx context.Context) (*dto.StatsResponse, error) {
	var response dto.StatsResponse
	if err := c.get(ctx, "/api/stats", nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *Client) Status(ctx context.Context) (*dto.StatusResponse, error) {
	var response dto.StatusResponse
	if err := c.get(ctx, "/", nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func listQuery(limit int, all bool) url.Values {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if all {
		q.Set("all", "true")
	}
	return q
}

func rawIDs(ids []int64) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		out = append(out, json.RawMessage(strconv.FormatInt(id, 10)))
	}
	return out
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("Tracker call completed",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload dto.ErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		apiErr.Code = payload.Error
		apiErr.Message = payload.Message
	} else {
		apiErr.Code = http.StatusText(resp.StatusCode)
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
