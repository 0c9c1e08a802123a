package renderer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// The card grammars are fixed text formats produced server-side and
// recognized back by prefix and pattern matching. Parsing is tolerant:
// numeric misses default to zero, but a recognizable header without any
// parseable rows rejects the match so partial mid-stream text falls through
// to Markdown until the grammar resolves.

// WalletSummaryData is the parsed wallet summary card.
type WalletSummaryData struct {
	Title        string
	AddressShort string
	BalanceETH   float64
	PriceUSD     float64
	ValueUSD     float64
}

// TopGainerItem is one row of the top gainers card.
type TopGainerItem struct {
	Index      int
	SymbolPair string
	PriceText  string
	ChangeText string
	URL        string
}

// TopGainersData is the parsed top gainers card.
type TopGainersData struct {
	Title string
	Items []TopGainerItem
}

// GasTier is one parsed fee tier row.
type GasTier struct {
	Label      string
	MaxFeeGwei float64
	TipGwei    float64
}

// GasSummaryData is the parsed gas summary card.
type GasSummaryData struct {
	Title    string
	Low      GasTier
	Standard GasTier
	Fast     GasTier
}

const walletCardPrefix = "**My bags — Base**"

var (
	numberPattern       = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)`)
	usdPattern          = regexp.MustCompile(`\$([0-9]+(?:\.[0-9]+)?)`)
	gainerRowPattern    = regexp.MustCompile(`^(\d+)\.\s+([^—]+?)\s+—\s+([^—]*?)\s*(?:—\s*(.+))?$`)
	priceChangePattern  = regexp.MustCompile(`^(\$\S+)\s*\(([^)]+)\)`)
	gainersTitlePattern = regexp.MustCompile(`(?i)^top gainers`)
	gasTitlePattern     = regexp.MustCompile(`(?i)^gas\s*\(`)
	gasTierPattern      = regexp.MustCompile(`(?i)maxFee\s+([0-9]+(?:\.[0-9]+)?)\s*gwei\s*,\s*tip\s+([0-9]+(?:\.[0-9]+)?)\s*gwei`)
)

// BuildWalletSummaryCard renders the wallet summary into its card grammar.
// It is the inverse of ParseWalletSummary on the numeric fields.
func BuildWalletSummaryCard(shortAddress string, balanceETH, priceUSD, valueUSD float64) string {
	lines := []string{walletCardPrefix}
	if shortAddress != "" {
		lines = append(lines, "`"+shortAddress+"`")
	}
	lines = append(lines,
		"",
		fmt.Sprintf("- **ETH**: %.4f", balanceETH),
		fmt.Sprintf("- **Price**: $%.2f", priceUSD),
		fmt.Sprintf("- **Value**: $%.2f", valueUSD),
	)
	return strings.Join(lines, "\n")
}

// ParseWalletSummary recognizes the wallet summary card. It returns nil when
// the content does not carry the card prefix.
func ParseWalletSummary(content string) *WalletSummaryData {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, walletCardPrefix) {
		return nil
	}

	lines := splitTrimmedLines(trimmed)
	data := WalletSummaryData{
		Title: strings.ReplaceAll(lines[0], "**", ""),
	}
	if len(lines) > 1 && strings.HasPrefix(lines[1], "`") {
		data.AddressShort = strings.TrimSpace(strings.ReplaceAll(lines[1], "`", ""))
	}

	for _, l := range lines {
		lower := strings.ToLower(l)
		switch {
		case strings.Contains(lower, "eth"):
			if m := numberPattern.FindStringSubmatch(l); m != nil {
				data.BalanceETH, _ = strconv.ParseFloat(m[1], 64)
			}
		case strings.Contains(lower, "price"):
			if m := usdPattern.FindStringSubmatch(l); m != nil {
				data.PriceUSD, _ = strconv.ParseFloat(m[1], 64)
			}
		case strings.Contains(lower, "value"):
			if m := usdPattern.FindStringSubmatch(l); m != nil {
				data.ValueUSD, _ = strconv.ParseFloat(m[1], 64)
			}
		}
	}
	return &data
}

// ParseTopGainers recognizes the top gainers card. A title without at least
// one parseable row rejects the match.
func ParseTopGainers(content string) *TopGainersData {
	trimmed := strings.TrimSpace(content)
	if !gainersTitlePattern.MatchString(trimmed) {
		return nil
	}

	lines := strings.Split(trimmed, "\n")
	data := TopGainersData{Title: strings.TrimRight(lines[0], "\r")}
	for _, l := range lines[1:] {
		m := gainerRowPattern.FindStringSubmatch(strings.TrimRight(l, "\r"))
		if m == nil {
			continue
		}
		item := TopGainerItem{
			SymbolPair: strings.TrimSpace(m[2]),
			URL:        strings.TrimSpace(m[4]),
		}
		item.Index, _ = strconv.Atoi(m[1])

		priceAndChange := strings.TrimSpace(m[3])
		if cm := priceChangePattern.FindStringSubmatch(priceAndChange); cm != nil {
			item.PriceText = cm[1]
			item.ChangeText = cm[2]
		} else {
			item.PriceText = priceAndChange
		}
		data.Items = append(data.Items, item)
	}

	if len(data.Items) == 0 {
		return nil
	}
	return &data
}

// ParseGasSummary recognizes the gas summary card. All three tier rows must
// parse for the match to hold.
func ParseGasSummary(content string) *GasSummaryData {
	lines := splitTrimmedLines(strings.TrimSpace(content))
	if len(lines) == 0 || !gasTitlePattern.MatchString(lines[0]) {
		return nil
	}

	for i, l := range lines {
		lines[i] = strings.TrimLeft(l, "-• \t")
	}

	parseTier := func(label string) *GasTier {
		prefix := strings.ToLower(label) + ":"
		for _, l := range lines {
			if !strings.HasPrefix(strings.ToLower(l), prefix) {
				continue
			}
			m := gasTierPattern.FindStringSubmatch(l)
			if m == nil {
				return nil
			}
			t := GasTier{Label: label}
			t.MaxFeeGwei, _ = strconv.ParseFloat(m[1], 64)
			t.TipGwei, _ = strconv.ParseFloat(m[2], 64)
			return &t
		}
		return nil
	}

	low := parseTier("Low")
	standard := parseTier("Standard")
	fast := parseTier("Fast")
	if low == nil || standard == nil || fast == nil {
		return nil
	}
	return &GasSummaryData{
		Title:    strings.TrimSpace(lines[0]),
		Low:      *low,
		Standard: *standard,
		Fast:     *fast,
	}
}

func splitTrimmedLines(s string) []string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}
