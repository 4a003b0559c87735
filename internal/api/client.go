// Package api is the REST client for the Unveil backend.
package api

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

	"github.com/google/uuid"

	"unveil/internal/logging"
	"unveil/internal/types"
)

// Endpoints lists the backend paths. Vote carries an {id} placeholder.
type Endpoints struct {
	Search    string
	Report    string
	Vote      string
	OTPSend   string
	OTPVerify string
}

// DefaultEndpoints returns the v1 API paths.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Search:    "/api/v1/search",
		Report:    "/api/v1/case/report",
		Vote:      "/api/v1/case/{id}/vote",
		OTPSend:   "/api/v1/otp/send",
		OTPVerify: "/api/v1/otp/verify",
	}
}

// Options configures a Client. Zero fields take defaults.
type Options struct {
	BaseURL         string
	Timeout         time.Duration
	Endpoints       Endpoints
	DefaultPageSize int
	HTTPClient      *http.Client
}

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	baseURL     string
	timeout     time.Duration
	endpoints   Endpoints
	defaultSize int
	httpClient  *http.Client
}

// NewClient creates a client for the given backend.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Endpoints == (Endpoints{}) {
		opts.Endpoints = DefaultEndpoints()
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 20
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		timeout:     opts.Timeout,
		endpoints:   opts.Endpoints,
		defaultSize: opts.DefaultPageSize,
		httpClient:  opts.HTTPClient,
	}
}

// BaseURL returns the backend root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SearchParams selects a page of search results. Page is zero-based;
// a zero Size uses the configured default.
type SearchParams struct {
	Filter types.Filter
	Value  string
	Page   int
	Size   int
}

// Search queries cases matching Value in the Filter field.
func (c *Client) Search(ctx context.Context, p SearchParams) (*types.SearchResponse, error) {
	size := p.Size
	if size <= 0 {
		size = c.defaultSize
	}
	page := p.Page
	if page < 0 {
		page = 0
	}

	q := url.Values{}
	q.Set("filter", string(p.Filter))
	q.Set("value", p.Value)
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var resp types.SearchResponse
	if err := c.do(ctx, http.MethodGet, c.endpoints.Search+"?"+q.Encode(), "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReportCase submits a new case. token is the verification token, if any.
func (c *Client) ReportCase(ctx context.Context, req types.ReportRequest, token string) (*types.ReportResponse, error) {
	var resp types.ReportResponse
	if err := c.do(ctx, http.MethodPost, c.endpoints.Report, token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Vote records a vote on a case. email is omitted from the body when empty.
func (c *Client) Vote(ctx context.Context, caseID int64, vote types.Vote, email, token string) (*types.VoteResponse, error) {
	path := strings.ReplaceAll(c.endpoints.Vote, "{id}", strconv.FormatInt(caseID, 10))
	body := types.VoteRequest{Vote: vote, Email: email}

	var resp types.VoteResponse
	if err := c.do(ctx, http.MethodPost, path, token, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendOTP asks the backend to email a one-time code.
func (c *Client) SendOTP(ctx context.Context, email string) error {
	body := types.OTPSendRequest{Email: strings.ToLower(strings.TrimSpace(email))}
	return c.do(ctx, http.MethodPost, c.endpoints.OTPSend, "", body, nil)
}

// VerifyOTP exchanges a code for a verification token.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (*types.OTPVerifyResponse, error) {
	body := types.OTPVerifyRequest{
		Email: strings.ToLower(strings.TrimSpace(email)),
		OTP:   strings.TrimSpace(otp),
	}
	var resp types.OTPVerifyResponse
	if err := c.do(ctx, http.MethodPost, c.endpoints.OTPVerify, "", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do performs one request. A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	requestID := uuid.NewString()
	log := logging.Get(logging.CategoryAPI).With("request_id", requestID)
	timer := logging.StartTimer(logging.CategoryAPI, method+" "+path)

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log.Debug("%s %s", method, path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			log.Warn("%s %s timed out after %v", method, path, c.timeout)
			return &APIError{Status: StatusTimeout, Message: "Request timeout"}
		}
		log.Error("%s %s failed: %v", method, path, err)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return &APIError{Status: StatusTimeout, Message: "Request timeout"}
		}
		return fmt.Errorf("failed to read response: %w", err)
	}
	timer.StopWithThreshold(2 * time.Second)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp.StatusCode, data)
		log.Warn("%s %s -> %d: %s", method, path, resp.StatusCode, apiErr.Message)
		return apiErr
	}
	log.Debug("%s %s -> %d (%d bytes)", method, path, resp.StatusCode, len(data))

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// decodeError takes the message from the body's error field. A body that
// is not JSON yields the status text instead.
func decodeError(status int, data []byte) *APIError {
	apiErr := &APIError{Status: status}

	var envelope types.ErrorBody
	if err := json.Unmarshal(data, &envelope); err != nil {
		apiErr.Message = http.StatusText(status)
		return apiErr
	}
	apiErr.Message = envelope.Error
	apiErr.Code = decodeCode(envelope.Code)
	return apiErr
}

// decodeCode accepts a string or numeric code.
func decodeCode(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
