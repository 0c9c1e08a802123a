package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	geckoAPIEndpoint = "https://api.geckoterminal.com/api/v2"
	geckoUserAgent   = "Blockhead/1.0 (+https://github.com/xpelch/ai-chatbot)"

	geckoRetryDelay = 300 * time.Millisecond
)

// TrendingPool is one entry of the GeckoTerminal trending pools feed. The
// upstream attributes are strings; conversion happens at format time with
// tolerant fallbacks.
type TrendingPool struct {
	Name             string
	BaseTokenPriceUSD string
	PriceChange      map[string]string
}

// GeckoTerminal is a client for the public GeckoTerminal API. Requests that
// hit a 429 or a 5xx are retried exactly once after a short fixed delay.
type GeckoTerminal struct {
	network string
	apiBase string
	client  *http.Client

	logger *slog.Logger
}

type geckoTrendingResponse struct {
	Data []struct {
		Attributes struct {
			Name                  string            `json:"name"`
			BaseTokenPriceUSD     string            `json:"base_token_price_usd"`
			PriceChangePercentage map[string]string `json:"price_change_percentage"`
		} `json:"attributes"`
	} `json:"data"`
}

// NewGeckoTerminal creates a client scoped to the given network, defaulting
// to Base.
func NewGeckoTerminal(network string, logger *slog.Logger) *GeckoTerminal {
	if network == "" {
		network = "base"
	}
	return &GeckoTerminal{
		network: network,
		apiBase: geckoAPIEndpoint,
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger.With(slog.String("module", "gecko")),
	}
}

// TrendingPools fetches the trending pools for the configured network over
// the given duration window ("1h", "6h", "24h"), truncated to limit entries.
func (g *GeckoTerminal) TrendingPools(ctx context.Context, duration string, limit int) ([]TrendingPool, error) {
	if duration == "" {
		duration = "1h"
	}
	if limit <= 0 {
		limit = 5
	}

	u := fmt.Sprintf("%s/networks/%s/trending_pools?include=base_token&page=1&duration=%s",
		g.apiBase, url.PathEscape(g.network), url.QueryEscape(duration))

	resp, err := g.doGet(ctx, u)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		g.logger.Debug("Retrying trending pools fetch",
			slog.Int("status", resp.StatusCode))

		select {
		case <-time.After(geckoRetryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		resp, err = g.doGet(ctx, u)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gecko trending http %d", resp.StatusCode)
	}

	var res geckoTrendingResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}

	pools := make([]TrendingPool, 0, limit)
	for _, d := range res.Data {
		if len(pools) == limit {
			break
		}
		pools = append(pools, TrendingPool{
			Name:              d.Attributes.Name,
			BaseTokenPriceUSD: d.Attributes.BaseTokenPriceUSD,
			PriceChange:       d.Attributes.PriceChangePercentage,
		})
	}
	return pools, nil
}

func (g *GeckoTerminal) doGet(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", geckoUserAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	return resp, nil
}

// FormatTrendingPools renders the pools into the fixed numbered-list grammar
// the top gainers card parser understands. Unparseable numbers degrade to
// "?" placeholders instead of failing.
func FormatTrendingPools(pools []TrendingPool, duration string) string {
	if len(pools) == 0 {
		return "Top gainers: No trending pools found right now."
	}

	changeKey := "h1"
	switch duration {
	case "6h":
		changeKey = "h6"
	case "24h":
		changeKey = "h24"
	}

	lines := make([]string, 0, len(pools)+1)
	lines = append(lines, "Top gainers (trending):")
	for i, p := range pools {
		name := p.Name
		if name == "" {
			name = "?"
		}
		priceText := "?"
		if v, err := strconv.ParseFloat(p.BaseTokenPriceUSD, 64); err == nil {
			priceText = fmt.Sprintf("$%.6f", v)
		}
		changeText := "?%"
		if v, err := strconv.ParseFloat(p.PriceChange[changeKey], 64); err == nil {
			changeText = fmt.Sprintf("%.1f%%", v)
		}
		lines = append(lines, fmt.Sprintf("%d. %s — %s (%s)", i+1, name, priceText, changeText))
	}
	return strings.Join(lines, "\n")
}
