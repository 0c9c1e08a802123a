package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"
)

// DefaultRPCEndpoint is the public Base mainnet RPC node used when the
// configuration does not name one.
const DefaultRPCEndpoint = "https://base-rpc.publicnode.com"

const rpcCallTimeout = 5 * time.Second

// RPCClient is a minimal Ethereum JSON-RPC client. It only implements the
// handful of read calls the gas estimator and the wallet service need, and it
// bounds every call with a fixed timeout.
type RPCClient struct {
	endpoint string
	client   *http.Client

	logger *slog.Logger
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// NewRPCClient creates an RPCClient against the given endpoint. An empty
// endpoint falls back to the Base public node.
func NewRPCClient(endpoint string, logger *slog.Logger) *RPCClient {
	if endpoint == "" {
		endpoint = DefaultRPCEndpoint
	}
	return &RPCClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: rpcCallTimeout},
		logger:   logger.With(slog.String("module", "rpc")),
	}
}

// Call performs a single JSON-RPC call and decodes the result into out.
func (c *RPCClient) Call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var res rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	if res.Error != nil {
		return res.Error
	}

	c.logger.Debug("RPC call",
		slog.String("method", method),
		slog.String("result", string(res.Result)))

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(res.Result, out); err != nil {
		return fmt.Errorf("error unmarshaling result: %w", err)
	}
	return nil
}

// CallHexQuantity performs a call whose result is a 0x-prefixed hex quantity
// and returns it as a big integer.
func (c *RPCClient) CallHexQuantity(ctx context.Context, method string, params []any) (*big.Int, error) {
	var raw string
	if err := c.Call(ctx, method, params, &raw); err != nil {
		return nil, err
	}
	n, err := parseHexQuantity(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return n, nil
}

func parseHexQuantity(s string) (*big.Int, error) {
	t := strings.TrimPrefix(s, "0x")
	if t == "" {
		return nil, fmt.Errorf("empty hex quantity %q", s)
	}
	n, ok := new(big.Int).SetString(t, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex quantity %q", s)
	}
	return n, nil
}
