// Package client is the Go request layer for the OTP API. It normalizes
// phone input, talks to the /v1/otp endpoints and tracks a verification
// flow's progress for callers that drive a UI from it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wondertwin-ai/app-otp/internal/models"
	"github.com/wondertwin-ai/app-otp/internal/utils"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// VerifyResult is the outcome of a successful verification
type VerifyResult struct {
	Credential string
	IsNewUser  bool
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithDefaultRegion sets the region used to parse phone numbers entered
// without a country prefix
func WithDefaultRegion(region string) Option {
	return func(c *Client) { c.defaultRegion = region }
}

// Client calls the OTP API
type Client struct {
	baseURL       string
	httpClient    *http.Client
	defaultRegion string
}

// New creates a client for the API at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: defaultTimeout},
		defaultRegion: "US",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizePhone converts free-form phone input to the E.164 form the API
// expects
func (c *Client) NormalizePhone(phone string) (string, error) {
	return utils.NormalizePhoneNumber(phone, c.defaultRegion)
}

// Start requests a verification code for the phone. The phone may be
// free-form; it is normalized before sending.
func (c *Client) Start(ctx context.Context, phone string) error {
	normalized, err := c.NormalizePhone(phone)
	if err != nil {
		return err
	}

	var resp models.StartVerificationResponse
	if err := c.post(ctx, "/v1/otp/start", models.StartVerificationRequest{Phone: normalized}, &resp); err != nil {
		return err
	}
	return nil
}

// Verify submits a code for the phone and returns the issued credential on
// success
func (c *Client) Verify(ctx context.Context, phone, code string) (*VerifyResult, error) {
	normalized, err := c.NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	var resp models.VerifyCodeResponse
	if err := c.post(ctx, "/v1/otp/verify", models.VerifyCodeRequest{Phone: normalized, Code: code}, &resp); err != nil {
		return nil, err
	}
	return &VerifyResult{Credential: resp.Credential, IsNewUser: resp.IsNewUser}, nil
}

// Me returns the identity bound to a credential
func (c *Client) Me(ctx context.Context, credential string) (*models.MeResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	var resp models.MeResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp models.ErrorResponse
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Message != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Message}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
