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
	"strings"
	"time"

	"github.com/carbonx-dev/carbonx/internal/common"
	"github.com/carbonx-dev/carbonx/internal/identity"
	"github.com/carbonx-dev/carbonx/internal/logging"
)

// Client is the transport-agnostic contract the CLI services depend on.
type Client interface {
	Signup(ctx context.Context, req SignupRequest) (*identity.User, error)
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	Me(ctx context.Context, token string) (*identity.User, error)
	Calculate(ctx context.Context, token string, req CalculateRequest) (*CalculateResponse, error)
	Ping(ctx context.Context) error
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type LoginResponse struct {
	Token string        `json:"token"`
	User  identity.User `json:"user"`
}

type CalculateRequest struct {
	Num1      float64 `json:"num1"`
	Num2      float64 `json:"num2"`
	Operation string  `json:"operation"`
}

type Calculation struct {
	Num1        float64 `json:"num1"`
	Num2        float64 `json:"num2"`
	Operation   string  `json:"operation"`
	Description string  `json:"description"`
}

type CalculateResponse struct {
	Result      float64     `json:"result"`
	Calculation Calculation `json:"calculation"`
}

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 1 << 20

// HTTPClient implements Client over the CarbonX HTTP API.
type HTTPClient struct {
	base   *url.URL
	http   *http.Client
	logger logging.Logger
}

// HTTPClientOption customises an HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client. Its Timeout is
// overwritten by the timeout passed to NewHTTPClient.
func WithHTTPClient(hc *http.Client) HTTPClientOption {
	return func(c *HTTPClient) { c.http = hc }
}

func WithClientLogger(l logging.Logger) HTTPClientOption {
	return func(c *HTTPClient) { c.logger = l }
}

// NewHTTPClient returns a client for the API rooted at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, opts ...HTTPClientOption) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	c := &HTTPClient{base: u, http: &http.Client{}, logger: logging.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	c.http.Timeout = timeout
	c.logger = c.logger.With("module", "apiclient")
	return c, nil
}

func (c *HTTPClient) Signup(ctx context.Context, req SignupRequest) (*identity.User, error) {
	var resp struct {
		Msg  string        `json:"msg"`
		User identity.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/signup", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password}

	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, errors.New("login response carries no token")
	}
	return &resp, nil
}

func (c *HTTPClient) Me(ctx context.Context, token string) (*identity.User, error) {
	var resp struct {
		User identity.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (c *HTTPClient) Calculate(ctx context.Context, token string, req CalculateRequest) (*CalculateResponse, error) {
	var resp CalculateResponse
	if err := c.do(ctx, http.MethodPost, "/calculator/calculate", token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ping calls GET /health.
func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", "", nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		c.logger.Debug(ctx, "request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	c.logger.Debug(ctx, "request done", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Code string `json:"code"`
			Msg  string `json:"msg"`
		}
		if json.Unmarshal(data, &envelope) == nil {
			apiErr.Code = envelope.Code
			apiErr.Msg = envelope.Msg
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
