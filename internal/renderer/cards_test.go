package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletSummaryRoundTrip(t *testing.T) {
	card := BuildWalletSummaryCard("0x1234...5678", 1.2345, 2500.5, 3086.74)

	data := ParseWalletSummary(card)
	require.NotNil(t, data)

	assert.Equal(t, "My bags — Base", data.Title)
	assert.Equal(t, "0x1234...5678", data.AddressShort)
	assert.Equal(t, 1.2345, data.BalanceETH)
	assert.Equal(t, 2500.5, data.PriceUSD)
	assert.Equal(t, 3086.74, data.ValueUSD)

	// Rebuilding from the parse is a fixed point of the grammar.
	rebuilt := BuildWalletSummaryCard(data.AddressShort, data.BalanceETH, data.PriceUSD, data.ValueUSD)
	assert.Equal(t, card, rebuilt)
}

func TestWalletSummaryNoAddress(t *testing.T) {
	card := BuildWalletSummaryCard("", 0, 0, 0)

	data := ParseWalletSummary(card)
	require.NotNil(t, data)
	assert.Empty(t, data.AddressShort)
	assert.Zero(t, data.BalanceETH)
}

func TestParseWalletSummaryRejectsOtherContent(t *testing.T) {
	assert.Nil(t, ParseWalletSummary("just some markdown"))
	assert.Nil(t, ParseWalletSummary("**My thoughts — Base**"))
	assert.Nil(t, ParseWalletSummary(""))
}

func TestParseTopGainers(t *testing.T) {
	content := "Top gainers (trending):\n" +
		"1. WOW / WETH — $0.001234 (12.5%)\n" +
		"2. DEGEN / WETH — ? (-3.2%)\n" +
		"3. MYSTERY — $1.000000 (?%)"

	data := ParseTopGainers(content)
	require.NotNil(t, data)
	assert.Equal(t, "Top gainers (trending):", data.Title)
	require.Len(t, data.Items, 3)

	assert.Equal(t, 1, data.Items[0].Index)
	assert.Equal(t, "WOW / WETH", data.Items[0].SymbolPair)
	assert.Equal(t, "$0.001234", data.Items[0].PriceText)
	assert.Equal(t, "12.5%", data.Items[0].ChangeText)

	// No $-prefixed price, so the whole cell stays in PriceText.
	assert.Equal(t, "? (-3.2%)", data.Items[1].PriceText)
	assert.Empty(t, data.Items[1].ChangeText)

	assert.Equal(t, "$1.000000", data.Items[2].PriceText)
	assert.Equal(t, "?%", data.Items[2].ChangeText)
}

func TestParseTopGainersRejectsWithoutRows(t *testing.T) {
	assert.Nil(t, ParseTopGainers("Top gainers (trending):"))
	assert.Nil(t, ParseTopGainers("Top gainers (trending):\nno numbered rows here"))
	assert.Nil(t, ParseTopGainers("Something else entirely"))
}

func TestParseGasSummary(t *testing.T) {
	content := "Gas (Base):\n" +
		"- Low: maxFee 0.9 gwei, tip 0.1 gwei\n" +
		"- Standard: maxFee 1.3 gwei, tip 0.2 gwei\n" +
		"- Fast: maxFee 2.1 gwei, tip 0.4 gwei"

	data := ParseGasSummary(content)
	require.NotNil(t, data)
	assert.Equal(t, "Gas (Base):", data.Title)
	assert.Equal(t, GasTier{Label: "Low", MaxFeeGwei: 0.9, TipGwei: 0.1}, data.Low)
	assert.Equal(t, GasTier{Label: "Standard", MaxFeeGwei: 1.3, TipGwei: 0.2}, data.Standard)
	assert.Equal(t, GasTier{Label: "Fast", MaxFeeGwei: 2.1, TipGwei: 0.4}, data.Fast)
}

func TestParseGasSummaryRejectsPartial(t *testing.T) {
	// Mid-stream text: the header is visible but the tiers are not all there
	// yet. The match must fail so the content falls through to Markdown.
	assert.Nil(t, ParseGasSummary("Gas (Base):"))
	assert.Nil(t, ParseGasSummary("Gas (Base):\n- Low: maxFee 0.9 gwei, tip 0.1 gwei"))
	assert.Nil(t, ParseGasSummary("Gas (Base):\n- Low: maxFee 0.9 gwei, tip 0.1 gwei\n- Standard: maxFee 1."))
	assert.Nil(t, ParseGasSummary("Totally unrelated"))
}
