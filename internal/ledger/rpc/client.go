// Package rpc is a minimal JSON-RPC 2.0 client for ledger nodes and the
// user-controlled signing agent. Both speak the same envelope; the agent
// additionally answers the wallet_* methods.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
)

// Well-known error codes surfaced by signing agents and nodes.
const (
	// CodeUserRejected is returned when the user declines a request (EIP-1193).
	CodeUserRejected = 4001
	// CodeUnknownChain is returned by wallet_switchEthereumChain when the
	// agent does not know the requested network (EIP-3326).
	CodeUnknownChain = 4902
)

// Error is a JSON-RPC error object returned by the remote side.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Client issues JSON-RPC calls against a single HTTP endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	nextID     atomic.Uint64
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// New creates a client for the given endpoint URL. Per-call deadlines come
// from the caller's context; the transport itself carries no timeout so long
// confirmation waits stay cancellable rather than silently cut off.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL this client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *Error          `json:"error"`
}

// Call invokes method with params and unmarshals the result into result,
// which may be nil for methods with no meaningful return.
func (c *Client) Call(ctx context.Context, result any, method string, params ...any) error {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute rpc request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read rpc response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected rpc status %d", resp.StatusCode)
	}

	var parsed response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("parse rpc response: %w", err)
	}
	if parsed.Error != nil {
		return parsed.Error
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(parsed.Result, result); err != nil {
		return fmt.Errorf("unmarshal rpc result: %w", err)
	}
	return nil
}

// BlockNumber is the trivial liveness probe used during endpoint resolution.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var hex string
	if err := c.Call(ctx, &hex, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return parseQuantity(hex)
}

// ChainID returns the network identifier the remote side is attached to.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	var hex string
	if err := c.Call(ctx, &hex, "eth_chainId"); err != nil {
		return 0, err
	}
	return parseQuantity(hex)
}

// EthCall executes a read-only contract call and returns the hex result data.
func (c *Client) EthCall(ctx context.Context, to, data string) (string, error) {
	var out string
	arg := map[string]string{"to": to, "data": data}
	if err := c.Call(ctx, &out, "eth_call", arg, "latest"); err != nil {
		return "", err
	}
	return out, nil
}

// EstimateGas asks the remote side for the operation's resource cost.
func (c *Client) EstimateGas(ctx context.Context, from, to, data string) (uint64, error) {
	var hex string
	arg := map[string]string{"from": from, "to": to, "data": data}
	if err := c.Call(ctx, &hex, "eth_estimateGas", arg); err != nil {
		return 0, err
	}
	return parseQuantity(hex)
}

// SendTransaction submits a write through the signing agent, which signs and
// broadcasts on the user's behalf. Returns the transaction hash.
func (c *Client) SendTransaction(ctx context.Context, from, to, data string, gas uint64) (string, error) {
	var txHash string
	arg := map[string]string{
		"from": from,
		"to":   to,
		"data": data,
		"gas":  formatQuantity(gas),
	}
	if err := c.Call(ctx, &txHash, "eth_sendTransaction", arg); err != nil {
		return "", err
	}
	return txHash, nil
}

// Receipt is the confirmation record for a submitted transaction.
type Receipt struct {
	TxHash      string `json:"transactionHash"`
	Status      string `json:"status"`
	BlockNumber string `json:"blockNumber"`
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return r.Status == "0x1"
}

// TransactionReceipt returns the receipt for a transaction hash, or nil when
// the transaction is not yet mined.
func (c *Client) TransactionReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	var receipt *Receipt
	if err := c.Call(ctx, &receipt, "eth_getTransactionReceipt", txHash); err != nil {
		return nil, err
	}
	return receipt, nil
}

// RequestAccounts asks the signing agent for the accounts it controls,
// prompting the user on first use.
func (c *Client) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := c.Call(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Accounts returns the agent's accounts without prompting.
func (c *Client) Accounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := c.Call(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

// SwitchChain asks the agent to select the given network (EIP-3326).
func (c *Client) SwitchChain(ctx context.Context, chainID uint64) error {
	arg := map[string]string{"chainId": formatQuantity(chainID)}
	return c.Call(ctx, nil, "wallet_switchEthereumChain", arg)
}

// NativeCurrency describes the network's native currency for registration.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// ChainDescriptor is the fixed registration payload for wallet_addEthereumChain
// (EIP-3085), used only when the agent does not already know the network.
type ChainDescriptor struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls"`
}

// AddChain registers a network with the signing agent.
func (c *Client) AddChain(ctx context.Context, desc ChainDescriptor) error {
	return c.Call(ctx, nil, "wallet_addEthereumChain", desc)
}

// FormatChainID renders a chain identifier as the 0x-prefixed hex quantity the
// wallet_* methods expect.
func FormatChainID(chainID uint64) string {
	return formatQuantity(chainID)
}

func parseQuantity(hex string) (uint64, error) {
	s := strings.TrimPrefix(hex, "0x")
	if s == "" {
		return 0, fmt.Errorf("empty quantity %q", hex)
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity %q: %w", hex, err)
	}
	return v, nil
}

func formatQuantity(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}

// IsTimeout reports whether err was caused by a context deadline, so callers
// can separate slow endpoints from broken ones.
func IsTimeout(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() == context.DeadlineExceeded
}
