package alphaapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Options configures the feed client
type Options struct {
	DataURL           string
	PriceURL          string
	UserAgent         string
	Referer           string
	Timeout           time.Duration
	RequestsPerMinute int
}

// Client fetches the airdrop data feed and the price feed
type Client struct {
	dataURL    string
	priceURL   string
	userAgent  string
	referer    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger
}

// NewClient creates a new feed client
func NewClient(opts Options, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(opts.RequestsPerMinute) / 60.0)
	}

	return &Client{
		dataURL:   opts.DataURL,
		priceURL:  opts.PriceURL,
		userAgent: opts.UserAgent,
		referer:   opts.Referer,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, 1),
		log:     log.With("component", "alphaapi"),
	}
}

func (c *Client) doRequest(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.referer != "" {
		req.Header.Set("Referer", c.referer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, truncate(data, 200))
	}

	return data, nil
}

// GetAirdrops returns the records of the data feed
func (c *Client) GetAirdrops(ctx context.Context) ([]Airdrop, error) {
	data, err := c.doRequest(ctx, c.dataURL)
	if err != nil {
		return nil, fmt.Errorf("fetch airdrops: %w", err)
	}

	var resp AirdropsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal airdrops: %w", err)
	}

	airdrops := make([]Airdrop, 0, len(resp.Airdrops))
	for i, raw := range resp.Airdrops {
		var a Airdrop
		if err := json.Unmarshal(raw, &a); err != nil {
			c.log.Warn("skipping malformed airdrop", "index", i, "record", truncate(raw, 200), "error", err)
			continue
		}
		airdrops = append(airdrops, a)
	}

	return airdrops, nil
}

// GetPrices returns the raw price payload. Its shape varies (array or
// object), so decoding is left to the pricing package.
func (c *Client) GetPrices(ctx context.Context) (json.RawMessage, error) {
	data, err := c.doRequest(ctx, c.priceURL)
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("fetch prices: malformed JSON (%d bytes)", len(data))
	}
	return json.RawMessage(data), nil
}

// Fetch pulls both feeds. Any failure fails the whole fetch.
func (c *Client) Fetch(ctx context.Context) ([]Airdrop, json.RawMessage, error) {
	airdrops, err := c.GetAirdrops(ctx)
	if err != nil {
		return nil, nil, err
	}
	prices, err := c.GetPrices(ctx)
	if err != nil {
		return nil, nil, err
	}
	c.log.Info("feeds fetched", "airdrops", len(airdrops), "price_bytes", len(prices))
	return airdrops, prices, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
