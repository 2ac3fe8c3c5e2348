package api

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

	"horsemarket-web/internal/config"

	"github.com/VictoriaMetrics/metrics"
	"github.com/pkg/errors"
)

const (
	defaultTimeoutMs = 10_000
	maxBodyBytes     = 4 << 20
)

var (
	clientSuccessCounter   = metrics.GetOrCreateCounter(`api_client_requests_total{result="success"}`)
	clientHTTPErrorCounter = metrics.GetOrCreateCounter(`api_client_requests_total{result="http_error"}`)
	clientFailedCounter    = metrics.GetOrCreateCounter(`api_client_requests_total{result="transport_error"}`)
	clientDecodeCounter    = metrics.GetOrCreateCounter(`api_client_requests_total{result="decode_error"}`)

	clientDurationHistogram = metrics.GetOrCreateHistogram(`api_client_duration_milliseconds`)
)

// ErrUnsuccessful is returned when the API answers 2xx with success=false.
var ErrUnsuccessful = errors.New("api reported unsuccessful response")

// ErrMalformedResponse is returned when a 2xx body cannot be decoded or misses required fields.
var ErrMalformedResponse = errors.New("malformed response")

// ResponseError is returned for non-success HTTP statuses.
type ResponseError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *ResponseError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("error response: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("error response: status %d", e.StatusCode)
}

// StatusCode extracts the HTTP status from a *ResponseError anywhere in err's chain.
func StatusCode(err error) (int, bool) {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode, true
	}
	return 0, false
}

// Credentials are attached to outgoing requests. Cookie is forwarded verbatim;
// Token, when set, is sent as a bearer Authorization header.
type Credentials struct {
	Token  string
	Cookie string
}

// Anonymous carries the cookie but drops the bearer token.
func (c Credentials) Anonymous() Credentials {
	return Credentials{Cookie: c.Cookie}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(cfg config.API, logger *slog.Logger) *Client {
	timeoutMs := cfg.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = defaultTimeoutMs
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		logger:  logger,
	}
}

type request struct {
	method      string
	path        string
	query       url.Values
	creds       Credentials
	body        io.Reader
	contentType string
}

func jsonRequest(method, path string, creds Credentials, payload any) (request, error) {
	req := request{method: method, path: path, creds: creds}
	if payload == nil {
		return req, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return req, errors.Wrap(err, "encode request body")
	}
	req.body = bytes.NewReader(b)
	req.contentType = "application/json"
	return req, nil
}

// do performs the request, decodes the envelope and unmarshals data into out.
// Response cookies are returned so callers can forward them.
func (c *Client) do(ctx context.Context, r request, out any) ([]*http.Cookie, error) {
	startTime := time.Now()
	defer func() {
		clientDurationHistogram.Update(float64(time.Since(startTime).Milliseconds()))
	}()

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.creds.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.creds.Token)
	}
	if r.creds.Cookie != "" {
		req.Header.Set("Cookie", r.creds.Cookie)
	}

	c.logger.DebugContext(ctx, "Sending API request", "method", r.method, "path", r.path)

	resp, err := c.client.Do(req)
	if err != nil {
		clientFailedCounter.Inc()
		return nil, errors.Wrapf(err, "%s %s", r.method, r.path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		clientFailedCounter.Inc()
		return nil, errors.Wrapf(err, "read response body of %s %s", r.method, r.path)
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode >= 400 {
		clientHTTPErrorCounter.Inc()
		c.logger.WarnContext(ctx, "Received error response", "method", r.method, "path", r.path, "status", resp.Status)
		return nil, &ResponseError{StatusCode: resp.StatusCode, Status: resp.Status, Message: env.Message}
	}

	if decodeErr != nil {
		clientDecodeCounter.Inc()
		return nil, errors.Wrapf(ErrMalformedResponse, "decode response of %s %s: %v", r.method, r.path, decodeErr)
	}
	if !env.Success {
		clientHTTPErrorCounter.Inc()
		if env.Message != "" {
			return nil, errors.Wrap(ErrUnsuccessful, env.Message)
		}
		return nil, ErrUnsuccessful
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			clientDecodeCounter.Inc()
			return nil, errors.Wrapf(ErrMalformedResponse, "decode data of %s %s: %v", r.method, r.path, err)
		}
	}

	clientSuccessCounter.Inc()
	return resp.Cookies(), nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, creds Credentials, out any) error {
	_, err := c.do(ctx, request{method: http.MethodGet, path: path, query: query, creds: creds}, out)
	return err
}

func (c *Client) send(ctx context.Context, method, path string, creds Credentials, payload, out any) error {
	req, err := jsonRequest(method, path, creds, payload)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, req, out)
	return err
}
