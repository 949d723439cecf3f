// Package anthropic provides a client for the organization cost and usage
// report endpoints of the Anthropic Admin API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Strob0t/missioncontrol/internal/port/billing"
	"github.com/Strob0t/missioncontrol/internal/resilience"
)

const (
	costPath  = "/v1/organizations/cost_report"
	usagePath = "/v1/organizations/usage_report/messages"

	// maxPages bounds pagination within a single report fetch.
	maxPages = 20
)

// Client implements billing.Client against the Admin API.
type Client struct {
	baseURL    string
	apiKey     string
	version    string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates an Admin API client. The HTTP transport is instrumented
// with OpenTelemetry.
func NewClient(baseURL, apiKey, version string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		version: version,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

type page[T any] struct {
	Data     []T    `json:"data"`
	HasMore  bool   `json:"has_more"`
	NextPage string `json:"next_page"`
}

type costBucket struct {
	StartingAt time.Time `json:"starting_at"`
	Results    []struct {
		Amount string `json:"amount"`
	} `json:"results"`
}

type usageBucket struct {
	StartingAt time.Time `json:"starting_at"`
	Results    []struct {
		UncachedInputTokens  int64 `json:"uncached_input_tokens"`
		CacheReadInputTokens int64 `json:"cache_read_input_tokens"`
		OutputTokens         int64 `json:"output_tokens"`
		CacheCreation        struct {
			Ephemeral5m int64 `json:"ephemeral_5m_input_tokens"`
			Ephemeral1h int64 `json:"ephemeral_1h_input_tokens"`
		} `json:"cache_creation"`
	} `json:"results"`
}

// CostReport returns the cost per bucket in cents. Amounts are decimal
// strings in cents and are rounded per result before summing. A missing
// amount counts as zero.
func (c *Client) CostReport(ctx context.Context, q billing.Query) ([]billing.CostBucket, error) {
	raw, err := fetchAll[costBucket](ctx, c, costPath, q)
	if err != nil {
		return nil, fmt.Errorf("cost report: %w", err)
	}

	out := make([]billing.CostBucket, 0, len(raw))
	for _, b := range raw {
		var cents int64
		for _, r := range b.Results {
			if r.Amount == "" {
				continue
			}
			amount, err := strconv.ParseFloat(r.Amount, 64)
			if err != nil {
				return nil, fmt.Errorf("cost report: parse amount %q: %w", r.Amount, err)
			}
			cents += int64(math.Round(amount))
		}
		out = append(out, billing.CostBucket{StartingAt: b.StartingAt, Cents: cents})
	}
	return out, nil
}

// UsageReport returns summed token counts per bucket. Cache creation counts
// both the 5 minute and the 1 hour ephemeral tiers.
func (c *Client) UsageReport(ctx context.Context, q billing.Query) ([]billing.UsageBucket, error) {
	raw, err := fetchAll[usageBucket](ctx, c, usagePath, q)
	if err != nil {
		return nil, fmt.Errorf("usage report: %w", err)
	}

	out := make([]billing.UsageBucket, 0, len(raw))
	for _, b := range raw {
		ub := billing.UsageBucket{StartingAt: b.StartingAt}
		for _, r := range b.Results {
			ub.Tokens.Input += r.UncachedInputTokens
			ub.Tokens.Output += r.OutputTokens
			ub.Tokens.CacheRead += r.CacheReadInputTokens
			ub.Tokens.CacheCreation += r.CacheCreation.Ephemeral5m + r.CacheCreation.Ephemeral1h
		}
		out = append(out, ub)
	}
	return out, nil
}

// fetchAll follows next_page cursors until the report is exhausted.
func fetchAll[T any](ctx context.Context, c *Client, path string, q billing.Query) ([]T, error) {
	params := url.Values{}
	params.Set("starting_at", q.Start.UTC().Format(time.RFC3339))
	params.Set("ending_at", q.End.UTC().Format(time.RFC3339))
	params.Set("bucket_width", string(q.Width))

	var all []T
	for range maxPages {
		data, err := c.doRequest(ctx, path+"?"+params.Encode())
		if err != nil {
			return nil, err
		}
		var p page[T]
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", path, err)
		}
		all = append(all, p.Data...)
		if !p.HasMore || p.NextPage == "" {
			return all, nil
		}
		params.Set("page", p.NextPage)
	}
	slog.WarnContext(ctx, "admin API report truncated", "path", path, "max_pages", maxPages, "items", len(all))
	return all, nil
}

func (c *Client) doRequest(ctx context.Context, pathAndQuery string) ([]byte, error) {
	var result []byte
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathAndQuery, http.NoBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", c.version)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("admin API error %d: %s", resp.StatusCode, truncate(data, 512))
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
