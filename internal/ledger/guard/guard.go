// Package guard confirms the signing agent sits on the expected network
// before any write, switching or registering the network when it does not.
package guard

import (
	"context"
	"errors"
	"log/slog"

	"attest/internal/ledger/rpc"
	dErrors "attest/pkg/domain-errors"
)

// Agent is the slice of the signing agent the guard needs.
type Agent interface {
	ChainID(ctx context.Context) (uint64, error)
	SwitchChain(ctx context.Context, chainID uint64) error
	AddChain(ctx context.Context, desc rpc.ChainDescriptor) error
}

// Guard checks and corrects the agent's selected network. The check runs
// immediately before every write and is never cached: the user can change
// networks between calls.
type Guard struct {
	chainID    uint64
	descriptor rpc.ChainDescriptor
	logger     *slog.Logger
}

// Option configures the Guard.
type Option func(*Guard)

// WithLogger configures a logger for the guard.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

// New creates a guard for the expected chain, registering it with the given
// descriptor when the agent does not know the network.
func New(chainID uint64, descriptor rpc.ChainDescriptor, opts ...Option) *Guard {
	g := &Guard{chainID: chainID, descriptor: descriptor}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Ensure verifies the agent's selected network matches the expected chain.
// On mismatch it attempts a switch; when the agent does not know the network
// it registers it and switches. Any failure is a hard stop for the write path,
// surfaced as a wrong_network error rather than attempting the write anyway.
func (g *Guard) Ensure(ctx context.Context, agent Agent) error {
	current, err := agent.ChainID(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeLedgerWriteFailed, "query agent network")
	}
	if current == g.chainID {
		return nil
	}

	if g.logger != nil {
		g.logger.Info("agent on wrong network, switching",
			"current_chain_id", current,
			"expected_chain_id", g.chainID,
		)
	}

	err = agent.SwitchChain(ctx, g.chainID)
	if err == nil {
		return nil
	}

	var rpcErr *rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.Code == rpc.CodeUnknownChain {
		if err := agent.AddChain(ctx, g.descriptor); err != nil {
			return dErrors.Wrap(err, dErrors.CodeWrongNetwork, "register network with agent")
		}
		if err := agent.SwitchChain(ctx, g.chainID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeWrongNetwork, "switch to registered network")
		}
		return nil
	}
	return dErrors.Wrap(err, dErrors.CodeWrongNetwork, "switch agent network")
}

// SepoliaDescriptor is the fixed registration payload for the default network.
func SepoliaDescriptor() rpc.ChainDescriptor {
	return rpc.ChainDescriptor{
		ChainID:   rpc.FormatChainID(11155111),
		ChainName: "Sepolia",
		NativeCurrency: rpc.NativeCurrency{
			Name:     "Sepolia Ether",
			Symbol:   "ETH",
			Decimals: 18,
		},
		RPCURLs:           []string{"https://rpc.sepolia.org"},
		BlockExplorerURLs: []string{"https://sepolia.etherscan.io"},
	}
}
