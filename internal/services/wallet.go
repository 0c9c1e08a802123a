package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"regexp"
	"strings"
	"time"
)

// chainlinkETHUSD is the Chainlink ETH/USD aggregator on Base.
const chainlinkETHUSD = "0x71041dddad3595F9CEd3DcCFBe3D1F4b0a16Bb70"

// Function selectors for the aggregator reads.
const (
	selLatestRoundData = "0xfeaf968c"
	selDecimals        = "0x313ce567"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsAddress reports whether s looks like a 20-byte hex Ethereum address.
func IsAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// WalletSummary is the result of a balance plus price lookup for an address.
type WalletSummary struct {
	Chain      string  `json:"chain"`
	Address    string  `json:"address"`
	BalanceETH float64 `json:"balance"`
	PriceUSD   float64 `json:"priceUsd"`
	ValueUSD   float64 `json:"valueUsd"`
	Timestamp  int64   `json:"ts"`
}

// WalletService reads native balances and the Chainlink ETH/USD price from
// the chain RPC.
type WalletService struct {
	rpc *RPCClient

	logger *slog.Logger
}

// NewWalletService creates a WalletService on top of the given RPC client.
func NewWalletService(rpc *RPCClient, logger *slog.Logger) *WalletService {
	return &WalletService{
		rpc:    rpc,
		logger: logger.With(slog.String("module", "wallet")),
	}
}

// Summary fetches the ETH balance of the address and the current ETH/USD
// price, and returns them with the derived USD value. The address must have
// been validated by the caller; invalid addresses never reach the RPC.
func (w *WalletService) Summary(ctx context.Context, address string) (WalletSummary, error) {
	if !IsAddress(address) {
		return WalletSummary{}, fmt.Errorf("invalid address")
	}

	balance, err := w.balanceETH(ctx, address)
	if err != nil {
		return WalletSummary{}, fmt.Errorf("error fetching balance: %w", err)
	}

	price, err := w.ethUSDPrice(ctx)
	if err != nil {
		return WalletSummary{}, fmt.Errorf("error fetching price: %w", err)
	}

	return WalletSummary{
		Chain:      "base",
		Address:    address,
		BalanceETH: balance,
		PriceUSD:   price,
		ValueUSD:   balance * price,
		Timestamp:  time.Now().UnixMilli(),
	}, nil
}

func (w *WalletService) balanceETH(ctx context.Context, address string) (float64, error) {
	wei, err := w.rpc.CallHexQuantity(ctx, "eth_getBalance", []any{address, "latest"})
	if err != nil {
		return 0, err
	}
	f, _ := new(big.Float).SetInt(wei).Float64()
	return f / 1e18, nil
}

func (w *WalletService) ethUSDPrice(ctx context.Context) (float64, error) {
	answer, err := w.aggregatorCall(ctx, selLatestRoundData, 1)
	if err != nil {
		return 0, err
	}

	decimalsWord, err := w.aggregatorCall(ctx, selDecimals, 0)
	if err != nil {
		return 0, err
	}
	decimals := int(decimalsWord.Int64())
	if decimals < 0 || decimals > 30 {
		return 0, fmt.Errorf("implausible decimals %d", decimals)
	}

	price, _ := new(big.Float).SetInt(answer).Float64()
	return price / math.Pow10(decimals), nil
}

// aggregatorCall performs an eth_call against the price feed and returns the
// 32-byte word at the given index, decoded as a signed integer.
func (w *WalletService) aggregatorCall(ctx context.Context, selector string, word int) (*big.Int, error) {
	var raw string
	err := w.rpc.Call(ctx, "eth_call", []any{
		map[string]string{"to": chainlinkETHUSD, "data": selector},
		"latest",
	}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeWord(raw, word)
}

func decodeWord(data string, idx int) (*big.Int, error) {
	hexData := strings.TrimPrefix(data, "0x")
	if len(hexData) < (idx+1)*64 {
		return nil, fmt.Errorf("return data too short for word %d", idx)
	}
	n, ok := new(big.Int).SetString(hexData[idx*64:(idx+1)*64], 16)
	if !ok {
		return nil, fmt.Errorf("invalid return data word %d", idx)
	}
	// int256 two's complement
	if n.Bit(255) == 1 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	return n, nil
}

// ShortAddress abbreviates an address for display, e.g. 0x1234...abcd.
func ShortAddress(address string) string {
	if len(address) < 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
