package quotesource

//go:generate mockgen -package=quotesource -destination=mock_source.go -source=client.go Source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"stock_ingestion_backend/models"
)

// DefaultBaseURL is the public chart-data host
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Source fetches quote data for one symbol at a time. It never writes to storage.
type Source interface {
	FetchLatestQuote(ctx context.Context, symbol string) (*models.QuoteSnapshot, error)
	FetchHistoricalSeries(ctx context.Context, symbol, rangeKey string) ([]models.OHLCVPoint, error)
}

// Client talks to the chart endpoint: GET {base}/v8/finance/chart/{symbol}
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   uint64
	retryBackoff time.Duration
	now          func() time.Time
}

var _ Source = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a chart API client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default().With("component", "quotesource"),
		maxRetries:   2,
		retryBackoff: 500 * time.Millisecond,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets how many times a transient failure is retried and the initial backoff.
func WithRetries(max uint64, initial time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = initial
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// FetchLatestQuote returns the most recent price fields for symbol
func (c *Client) FetchLatestQuote(ctx context.Context, symbol string) (*models.QuoteSnapshot, error) {
	symbol = normalizeSymbol(symbol)

	result, err := c.fetchChart(ctx, symbol, nil)
	if err != nil {
		return nil, err
	}

	snap, ok := result.snapshot(symbol, c.now())
	if !ok {
		return nil, &NotFoundError{Symbol: symbol, Reason: "response has no market price"}
	}
	return snap, nil
}

// FetchHistoricalSeries returns OHLCV points for the span selected by rangeKey,
// ordered by ascending timestamp, without null-open entries.
func (c *Client) FetchHistoricalSeries(ctx context.Context, symbol, rangeKey string) ([]models.OHLCVPoint, error) {
	symbol = normalizeSymbol(symbol)
	spec := ResolveRange(rangeKey)

	query := url.Values{}
	query.Set("range", spec.Range)
	query.Set("interval", spec.Interval)

	result, err := c.fetchChart(ctx, symbol, query)
	if err != nil {
		return nil, err
	}

	points := result.series()
	c.logger.Debug("historical series fetched",
		"symbol", symbol,
		"range", spec.Range,
		"interval", spec.Interval,
		"raw_points", len(result.Timestamp),
		"points", len(points),
	)
	return points, nil
}

// fetchChart performs the request, retrying transient upstream failures
func (c *Client) fetchChart(ctx context.Context, symbol string, query url.Values) (*chartResult, error) {
	if symbol == "" {
		return nil, &NotFoundError{Symbol: symbol, Reason: "empty symbol"}
	}

	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, url.PathEscape(symbol))
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var result *chartResult
	operation := func() error {
		r, err := c.doRequest(ctx, symbol, fullURL)
		if err != nil {
			var upstream *UpstreamError
			if errors.As(err, &upstream) && upstream.Transient {
				return err
			}
			return backoff.Permanent(err)
		}
		result = r
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryBackoff
	policy.MaxElapsedTime = 0

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("retrying chart request", "symbol", symbol, "wait", wait, "error", err)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx), notify)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) doRequest(ctx context.Context, symbol, fullURL string) (*chartResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, &UpstreamError{Symbol: symbol, Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Symbol: symbol, Transient: ctx.Err() == nil, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Symbol: symbol, Transient: true, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{Symbol: symbol, Reason: describeChartError(body)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{
			Symbol:     symbol,
			StatusCode: resp.StatusCode,
			Transient:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			Err:        fmt.Errorf("API error: %s", truncate(string(body), 200)),
		}
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, &UpstreamError{Symbol: symbol, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	if len(chart.Chart.Result) == 0 {
		reason := ""
		if chart.Chart.Error != nil {
			reason = chart.Chart.Error.Description
		}
		return nil, &NotFoundError{Symbol: symbol, Reason: reason}
	}

	return &chart.Chart.Result[0], nil
}

// describeChartError extracts the provider's error description, if any
func describeChartError(body []byte) string {
	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil || chart.Chart.Error == nil {
		return ""
	}
	return chart.Chart.Error.Description
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
