package storeapi

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

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/pos-terminal/internal/obs"
	"github.com/noah-isme/pos-terminal/internal/resilience"
)

const maxBody = 4 << 20

type tokenKey struct{}

// WithToken attaches the operator's bearer token to ctx. Every call made with
// the returned context is authenticated as that operator.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the bearer token stored by WithToken.
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	Breaker     *resilience.Breaker
	MaxAttempts int
	RetryBase   time.Duration
	RetryJitter float64
	Transport   http.RoundTripper
	Logger      zerolog.Logger
}

// Client talks to the store API. All responses use the
// {success, data, error} envelope.
type Client struct {
	base   *url.URL
	http   resilience.HTTPClient
	logger zerolog.Logger
}

// New builds a Client whose outbound requests are traced with otelhttp and
// guarded by the configured breaker.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("storeapi: invalid base url %q", opts.BaseURL)
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	breaker := opts.Breaker
	if breaker == nil {
		breaker = resilience.NewBreaker(5, 0.5, 30*time.Second)
	}
	breaker.WithTarget("store-api").WithLogger(opts.Logger)
	return &Client{
		base: base,
		http: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(transport)},
			Breaker:     breaker,
			Target:      "store-api",
			Logger:      opts.Logger,
			Timeout:     opts.Timeout,
			MaxAttempts: opts.MaxAttempts,
			BaseBackoff: opts.RetryBase,
			Jitter:      opts.RetryJitter,
		},
		logger: opts.Logger,
	}, nil
}

// Get fetches path and decodes the envelope's data into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) (Page, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Send issues a write (POST, PUT, DELETE) with an optional JSON body.
func (c *Client) Send(ctx context.Context, method, path string, body, out any) error {
	_, err := c.do(ctx, method, path, nil, body, out)
	return err
}

// Ping checks that the store API answers HTTP at all. Any status counts as
// reachable; only transport errors fail.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.base.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (Page, error) {
	start := time.Now()
	page, err := c.roundTrip(ctx, method, path, query, body, out)
	label := metricPath(path)
	if obs.StoreAPILatency != nil {
		obs.StoreAPILatency.WithLabelValues(method, label).Observe(obs.DurationMillis(time.Since(start)))
	}
	obs.Inc(obs.StoreAPIRequests, method, label, resultLabel(err))
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("store_api_failed")
	}
	return page, err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body, out any) (Page, error) {
	target := c.base.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return Page{}, fmt.Errorf("storeapi: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return Page{}, fmt.Errorf("storeapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Page{}, fmt.Errorf("storeapi: read %s %s: %w", method, path, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &Error{Method: method, Path: path, Status: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Message = env.message()
		}
		return Page{}, apiErr
	}
	if decodeErr != nil {
		return Page{}, fmt.Errorf("storeapi: decode %s %s: %w", method, path, decodeErr)
	}
	if !env.Success {
		return Page{}, &Error{Method: method, Path: path, Status: resp.StatusCode, Message: env.message()}
	}
	if out != nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return Page{}, fmt.Errorf("storeapi: decode data %s %s: %w", method, path, err)
		}
	}
	return env.Page, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, resilience.ErrOpenCircuit):
		return "circuit_open"
	case errors.Is(err, ErrUnsuccessful):
		return "rejected"
	default:
		return "error"
	}
}

// metricPath collapses id segments so labels stay bounded.
func metricPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if i > 0 && looksLikeID(part) {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}

func looksLikeID(s string) bool {
	if s == "" {
		return false
	}
	digits := true
	for _, r := range s {
		if r < '0' || r > '9' {
			digits = false
			break
		}
	}
	return digits || len(s) >= 16
}

// Caller is the part of Client that domain services depend on, so tests can
// substitute an in-memory store API.
type Caller interface {
	Get(ctx context.Context, path string, query url.Values, out any) (Page, error)
	Send(ctx context.Context, method, path string, body, out any) error
}

var _ Caller = (*Client)(nil)
