package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"strings"
)

// GasTierLabel names one of the three suggestion tiers.
type GasTierLabel string

const (
	// GasTierLow is the patient tier.
	GasTierLow GasTierLabel = "low"
	// GasTierStandard tracks the live estimate as-is.
	GasTierStandard GasTierLabel = "standard"
	// GasTierFast pays a premium for quick inclusion.
	GasTierFast GasTierLabel = "fast"
)

// GasSuggestion is a single fee tier, in gwei, rounded to one decimal.
type GasSuggestion struct {
	Label           GasTierLabel
	MaxFeeGwei      float64
	MaxPriorityGwei float64
}

// GasSuggestions holds the three tiers derived from a live fee estimate.
type GasSuggestions struct {
	Low      GasSuggestion
	Standard GasSuggestion
	Fast     GasSuggestion
}

// GasService derives fee suggestions from the chain RPC. The primary source
// is the EIP-1559 estimate (latest block base fee plus the node's suggested
// tip); when the chain or node predates that, it falls back to the legacy
// gas price.
type GasService struct {
	rpc *RPCClient

	logger *slog.Logger
}

// NewGasService creates a GasService on top of the given RPC client.
func NewGasService(rpc *RPCClient, logger *slog.Logger) *GasService {
	return &GasService{
		rpc:    rpc,
		logger: logger.With(slog.String("module", "gas")),
	}
}

// Suggestions fetches a live fee estimate and derives the three tiers. The
// standard tier is the estimate itself; low and fast apply the fixed
// multipliers, clamped at zero and rounded to one decimal.
func (g *GasService) Suggestions(ctx context.Context) (GasSuggestions, error) {
	base, tip, err := g.eip1559Estimate(ctx)
	if err == nil {
		g.logger.Debug("EIP-1559 estimate",
			slog.Float64("maxFeeGwei", base),
			slog.Float64("tipGwei", tip))
		return GasSuggestions{
			Low: roundSuggestion(GasSuggestion{
				Label:           GasTierLow,
				MaxFeeGwei:      math.Max(base*0.95, base-0.2),
				MaxPriorityGwei: math.Max(tip*0.8, tip-0.2),
			}),
			Standard: roundSuggestion(GasSuggestion{
				Label:           GasTierStandard,
				MaxFeeGwei:      base,
				MaxPriorityGwei: tip,
			}),
			Fast: roundSuggestion(GasSuggestion{
				Label:           GasTierFast,
				MaxFeeGwei:      base*1.2 + 0.5,
				MaxPriorityGwei: tip*1.2 + 0.2,
			}),
		}, nil
	}
	g.logger.Debug("EIP-1559 estimate unavailable, falling back to gas price",
		slog.String("err", err.Error()))

	price, err := g.rpc.CallHexQuantity(ctx, "eth_gasPrice", []any{})
	if err != nil {
		return GasSuggestions{}, fmt.Errorf("error fetching gas price: %w", err)
	}
	gwei := weiToGwei(price)
	return GasSuggestions{
		Low: roundSuggestion(GasSuggestion{
			Label:           GasTierLow,
			MaxFeeGwei:      gwei * 0.95,
			MaxPriorityGwei: math.Max(gwei*0.2, 0.2),
		}),
		Standard: roundSuggestion(GasSuggestion{
			Label:           GasTierStandard,
			MaxFeeGwei:      gwei,
			MaxPriorityGwei: math.Max(gwei*0.3, 0.3),
		}),
		Fast: roundSuggestion(GasSuggestion{
			Label:           GasTierFast,
			MaxFeeGwei:      gwei*1.2 + 0.5,
			MaxPriorityGwei: math.Max(gwei*0.4+0.2, 0.5),
		}),
	}, nil
}

// eip1559Estimate returns (maxFeeGwei, tipGwei). The max fee follows the
// common client heuristic of 1.2x the latest base fee plus the tip.
func (g *GasService) eip1559Estimate(ctx context.Context) (float64, float64, error) {
	var block struct {
		BaseFeePerGas string `json:"baseFeePerGas"`
	}
	if err := g.rpc.Call(ctx, "eth_getBlockByNumber", []any{"latest", false}, &block); err != nil {
		return 0, 0, fmt.Errorf("error fetching latest block: %w", err)
	}
	if block.BaseFeePerGas == "" {
		return 0, 0, fmt.Errorf("latest block has no base fee")
	}
	baseFee, err := parseHexQuantity(block.BaseFeePerGas)
	if err != nil {
		return 0, 0, err
	}

	tipWei, err := g.rpc.CallHexQuantity(ctx, "eth_maxPriorityFeePerGas", []any{})
	if err != nil {
		return 0, 0, fmt.Errorf("error fetching priority fee: %w", err)
	}

	tip := weiToGwei(tipWei)
	maxFee := weiToGwei(baseFee)*1.2 + tip
	return maxFee, tip, nil
}

func roundSuggestion(s GasSuggestion) GasSuggestion {
	s.MaxFeeGwei = math.Max(0, math.Round(s.MaxFeeGwei*10)/10)
	s.MaxPriorityGwei = math.Max(0, math.Round(s.MaxPriorityGwei*10)/10)
	return s
}

func weiToGwei(wei *big.Int) float64 {
	f, _ := new(big.Float).SetInt(wei).Float64()
	return f / 1e9
}

// FormatGasSuggestions renders the tiers into the fixed chat grammar the
// client-side gas card parser understands.
func FormatGasSuggestions(s GasSuggestions) string {
	fmtTier := func(g GasSuggestion) string {
		return fmt.Sprintf("maxFee %.1f gwei, tip %.1f gwei", g.MaxFeeGwei, g.MaxPriorityGwei)
	}
	return strings.Join([]string{
		"Gas (Base):",
		"- Low: " + fmtTier(s.Low),
		"- Standard: " + fmtTier(s.Standard),
		"- Fast: " + fmtTier(s.Fast),
	}, "\n")
}
