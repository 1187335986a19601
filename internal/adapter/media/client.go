// Package media holds the HTTP clients for the media services the assistant
// can act on: Plex, Sonarr, Radarr and Overseerr.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/xiaot623/thinkarr/internal/domain"
	"github.com/xiaot623/thinkarr/internal/infra/tracer"
)

// overviewLimit caps synopsis text handed to the model.
const overviewLimit = 200

// CredentialSource resolves service connection details at call time.
type CredentialSource interface {
	Service(ctx context.Context, name domain.ServiceName) (domain.ServiceCredentials, error)
}

// Options tune the shared HTTP behaviour of every service client.
type Options struct {
	Timeout    time.Duration
	RateLimit  float64
	Burst      int
	HTTPClient *http.Client
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 5
	}
	if o.Burst <= 0 {
		o.Burst = 10
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
	return o
}

// client is the JSON-over-HTTP core shared by the service clients.
type client struct {
	service    domain.ServiceName
	label      string
	authHeader string
	apiPrefix  string
	creds      CredentialSource
	http       *http.Client
	limiter    *rate.Limiter
}

func newClient(service domain.ServiceName, label, authHeader, apiPrefix string, creds CredentialSource, opts Options) *client {
	opts = opts.withDefaults()
	return &client{
		service:    service,
		label:      label,
		authHeader: authHeader,
		apiPrefix:  apiPrefix,
		creds:      creds,
		http:       opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
	}
}

func (c *client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	ctx, span := tracer.StartSpan(ctx, "media.request",
		tracer.StringAttr("service", string(c.service)),
		tracer.StringAttr("http.method", method),
		tracer.StringAttr("http.path", path))
	defer span.End()

	creds, err := c.creds.Service(ctx, c.service)
	if err != nil {
		return fmt.Errorf("%s not configured: %w", c.label, err)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate limit: %w", c.label, err)
	}

	target := creds.URL + c.apiPrefix + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", c.label, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", c.label, err)
	}
	req.Header.Set(c.authHeader, creds.Key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		tracer.RecordError(span, err)
		return fmt.Errorf("%s request failed: %w", c.label, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("%s API error: HTTP %d", c.label, resp.StatusCode)
		tracer.RecordError(span, err)
		return err
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", c.label, err)
	}
	tracer.SetOK(span)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
