package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trendingBody = `{"data":[
	{"attributes":{"name":"WOW / WETH","base_token_price_usd":"0.001234","price_change_percentage":{"h1":"12.5","h24":"40.1"}}},
	{"attributes":{"name":"DEGEN / WETH","base_token_price_usd":"0.02","price_change_percentage":{"h1":"-3.2"}}},
	{"attributes":{"name":"MYSTERY","base_token_price_usd":"","price_change_percentage":{}}}
]}`

func stubGeckoServer(t *testing.T, statuses ...int) (*GeckoTerminal, *int) {
	t.Helper()
	calls := new(int)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := statuses[len(statuses)-1]
		if *calls < len(statuses) {
			status = statuses[*calls]
		}
		*calls++

		w.WriteHeader(status)
		if status == http.StatusOK {
			fmt.Fprint(w, trendingBody)
		}
	}))
	t.Cleanup(srv.Close)

	g := NewGeckoTerminal("base", discardLogger())
	g.apiBase = srv.URL
	return g, calls
}

func TestTrendingPools(t *testing.T) {
	g, calls := stubGeckoServer(t, http.StatusOK)

	pools, err := g.TrendingPools(context.Background(), "1h", 5)
	require.NoError(t, err)
	require.Len(t, pools, 3)
	assert.Equal(t, 1, *calls)

	assert.Equal(t, "WOW / WETH", pools[0].Name)
	assert.Equal(t, "0.001234", pools[0].BaseTokenPriceUSD)
	assert.Equal(t, "12.5", pools[0].PriceChange["h1"])
}

func TestTrendingPoolsLimit(t *testing.T) {
	g, _ := stubGeckoServer(t, http.StatusOK)

	pools, err := g.TrendingPools(context.Background(), "1h", 2)
	require.NoError(t, err)
	assert.Len(t, pools, 2)
}

func TestTrendingPoolsRetriesOnce(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantErr   bool
		wantCalls int
	}{
		{name: "recovers after 429", statuses: []int{429, 200}, wantCalls: 2},
		{name: "recovers after 500", statuses: []int{500, 200}, wantCalls: 2},
		{name: "gives up after second 5xx", statuses: []int{503, 503}, wantErr: true, wantCalls: 2},
		{name: "does not retry 404", statuses: []int{404}, wantErr: true, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, calls := stubGeckoServer(t, tt.statuses...)

			pools, err := g.TrendingPools(context.Background(), "1h", 5)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, pools)
			}
			assert.Equal(t, tt.wantCalls, *calls)
		})
	}
}

func TestFormatTrendingPools(t *testing.T) {
	pools := []TrendingPool{
		{Name: "WOW / WETH", BaseTokenPriceUSD: "0.001234", PriceChange: map[string]string{"h1": "12.5"}},
		{Name: "DEGEN / WETH", BaseTokenPriceUSD: "bogus", PriceChange: map[string]string{"h1": "-3.2"}},
		{Name: "", BaseTokenPriceUSD: "1", PriceChange: nil},
	}
	want := "Top gainers (trending):\n" +
		"1. WOW / WETH — $0.001234 (12.5%)\n" +
		"2. DEGEN / WETH — ? (-3.2%)\n" +
		"3. ? — $1.000000 (?%)"
	assert.Equal(t, want, FormatTrendingPools(pools, "1h"))
}

func TestFormatTrendingPoolsEmpty(t *testing.T) {
	assert.Equal(t,
		"Top gainers: No trending pools found right now.",
		FormatTrendingPools(nil, "1h"))
}

func TestFormatTrendingPoolsDurationKey(t *testing.T) {
	pools := []TrendingPool{
		{Name: "A", BaseTokenPriceUSD: "1", PriceChange: map[string]string{"h1": "1.0", "h24": "24.0"}},
	}
	assert.Contains(t, FormatTrendingPools(pools, "24h"), "(24.0%)")
	assert.Contains(t, FormatTrendingPools(pools, "1h"), "(1.0%)")
}
