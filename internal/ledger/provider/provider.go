// Package provider owns the process-wide ledger connection: a read-only
// handle won by racing public endpoints, or a write-capable handle backed by
// the user-controlled signing agent. The active handle is the only shared
// mutable state in the subsystem and follows a single-writer/multi-reader
// discipline: readers see the previous valid handle or the new one, never an
// intermediate state.
package provider

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"attest/internal/ledger/guard"
	"attest/internal/ledger/metrics"
	"attest/internal/ledger/rpc"
	"attest/internal/ledger/tracer"
	"attest/pkg/platform/circuit"
	dErrors "attest/pkg/domain-errors"
)

// Node is the read-only slice of an endpoint client.
type Node interface {
	Endpoint() string
	BlockNumber(ctx context.Context) (uint64, error)
	EthCall(ctx context.Context, to, data string) (string, error)
}

// Agent is the signing agent client used by the write-capable handle.
type Agent interface {
	guard.Agent
	RequestAccounts(ctx context.Context) ([]string, error)
	Accounts(ctx context.Context) ([]string, error)
	EthCall(ctx context.Context, to, data string) (string, error)
	EstimateGas(ctx context.Context, from, to, data string) (uint64, error)
	SendTransaction(ctx context.Context, from, to, data string, gas uint64) (string, error)
	TransactionReceipt(ctx context.Context, txHash string) (*rpc.Receipt, error)
}

// Mode distinguishes the two handle kinds.
type Mode string

const (
	ModeReadOnly     Mode = "read_only"
	ModeWriteCapable Mode = "write_capable"
)

// Handle is the active ledger connection. Exactly one is active per process.
type Handle struct {
	Mode     Mode
	Endpoint string
	Account  string

	node  Node
	agent Agent
}

// ErrNoProvider is reported when every endpoint fails resolution. Downstream
// components treat it as "ledger verification unavailable", never as fatal.
var ErrNoProvider = dErrors.New(dErrors.CodeNoProvider, "no ledger provider available")

// Config carries the manager's fixed ledger parameters.
type Config struct {
	Endpoints       []string
	SigningAgentURL string
	ChainID         uint64
	ContractAddress string
	ProbeTimeout    time.Duration
	ConfirmInterval time.Duration
}

// Manager resolves and maintains the active handle.
type Manager struct {
	cfg   Config
	guard *guard.Guard

	mu     sync.RWMutex
	handle *Handle

	resolve singleflight.Group

	dialNode  func(endpoint string) Node
	dialAgent func(url string) Agent

	breaker *circuit.Breaker
	tracer  tracer.Tracer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithTracer configures a tracer around ledger operations.
func WithTracer(t tracer.Tracer) Option {
	return func(m *Manager) { m.tracer = t }
}

// WithMetrics configures ledger metrics.
func WithMetrics(mx *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mx }
}

// WithNodeDialer overrides endpoint client construction (for testing).
func WithNodeDialer(dial func(endpoint string) Node) Option {
	return func(m *Manager) { m.dialNode = dial }
}

// WithAgentDialer overrides signing agent client construction (for testing).
func WithAgentDialer(dial func(url string) Agent) Option {
	return func(m *Manager) { m.dialAgent = dial }
}

// New creates a provider manager. No connection is attempted until the first
// read resolution or explicit Connect.
func New(cfg Config, g *guard.Guard, opts ...Option) *Manager {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 3 * time.Second
	}
	if cfg.ConfirmInterval <= 0 {
		cfg.ConfirmInterval = 2 * time.Second
	}
	m := &Manager{
		cfg:     cfg,
		guard:   g,
		breaker: circuit.New("ledger-read"),
		tracer:  tracer.Noop{},
		dialNode: func(endpoint string) Node {
			return rpc.New(endpoint)
		},
		dialAgent: func(url string) Agent {
			return rpc.New(url)
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Active returns the current handle without resolving one.
func (m *Manager) Active() (*Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handle, m.handle != nil
}

// WriteCapable reports whether the active handle can submit transactions.
func (m *Manager) WriteCapable() bool {
	h, ok := m.Active()
	return ok && h.Mode == ModeWriteCapable
}

// Connect establishes the write-capable handle through the signing agent.
// This is the only path that upgrades from read-only: switching modes never
// happens implicitly. The returned handle is fully built before it is
// installed.
func (m *Manager) Connect(ctx context.Context) (*Handle, error) {
	if m.cfg.SigningAgentURL == "" {
		return nil, dErrors.New(dErrors.CodeNoProvider, "signing agent not configured")
	}

	ctx, span := m.tracer.Start(ctx, "ledger.connect")
	var err error
	defer func() { span.End(err) }()

	agent := m.dialAgent(m.cfg.SigningAgentURL)
	accounts, err := agent.RequestAccounts(ctx)
	if err != nil {
		var rpcErr *rpc.Error
		if errors.As(err, &rpcErr) && rpcErr.Code == rpc.CodeUserRejected {
			err = dErrors.Wrap(err, dErrors.CodeUserDeclined, "user declined connection")
			return nil, err
		}
		err = dErrors.Wrap(err, dErrors.CodeNoProvider, "signing agent unreachable")
		return nil, err
	}
	if len(accounts) == 0 {
		err = dErrors.New(dErrors.CodeNoProvider, "signing agent has no accounts")
		return nil, err
	}

	handle := &Handle{
		Mode:     ModeWriteCapable,
		Endpoint: m.cfg.SigningAgentURL,
		Account:  accounts[0],
		agent:    agent,
	}

	m.mu.Lock()
	m.handle = handle
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Info("write-capable ledger connection established",
			"account", handle.Account,
		)
	}
	return handle, nil
}

// Invalidate drops the active handle. The next read falls back to read-only
// resolution, so losing the agent never leaves the system without ledger access.
func (m *Manager) Invalidate(reason string) {
	m.mu.Lock()
	had := m.handle != nil
	m.handle = nil
	m.mu.Unlock()

	if had {
		if m.metrics != nil {
			m.metrics.HandleInvalidated.Inc()
		}
		if m.logger != nil {
			m.logger.Info("ledger handle invalidated", "reason", reason)
		}
	}
	m.breaker.Reset()
}

// InvalidateIfChanged checks whether the signing agent behind the
// write-capable handle still reports the expected account and network, and
// invalidates the handle when either changed. Returns true when invalidated.
func (m *Manager) InvalidateIfChanged(ctx context.Context) (bool, error) {
	m.mu.RLock()
	h := m.handle
	m.mu.RUnlock()
	if h == nil || h.Mode != ModeWriteCapable {
		return false, nil
	}

	accounts, err := h.agent.Accounts(ctx)
	if err != nil {
		m.Invalidate("agent unreachable")
		return true, err
	}
	if len(accounts) == 0 || accounts[0] != h.Account {
		m.Invalidate("agent account changed")
		return true, nil
	}
	chainID, err := h.agent.ChainID(ctx)
	if err != nil {
		m.Invalidate("agent unreachable")
		return true, err
	}
	if chainID != m.cfg.ChainID {
		m.Invalidate("agent network changed")
		return true, nil
	}
	return false, nil
}

// readHandle returns the active handle, resolving a read-only one when none
// is usable. Reads route through the write-capable handle when one is active;
// a read-only handle is reused until its breaker trips. Concurrent callers
// share a single resolution race.
func (m *Manager) readHandle(ctx context.Context) (*Handle, error) {
	if h, ok := m.Active(); ok && (h.Mode == ModeWriteCapable || !m.breaker.IsOpen()) {
		return h, nil
	}

	v, err, _ := m.resolve.Do("resolve", func() (any, error) {
		// Re-check under the flight: another caller may have resolved already.
		if h, ok := m.Active(); ok && (h.Mode == ModeWriteCapable || !m.breaker.IsOpen()) {
			return h, nil
		}
		return m.raceEndpoints(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

// ethCall routes a read through whichever side backs the handle.
func (h *Handle) ethCall(ctx context.Context, to, data string) (string, error) {
	if h.Mode == ModeWriteCapable {
		return h.agent.EthCall(ctx, to, data)
	}
	return h.node.EthCall(ctx, to, data)
}

// errResolved short-circuits the errgroup once an endpoint answers.
var errResolved = errors.New("endpoint resolved")

// raceEndpoints probes the configured endpoints in a light parallel race.
// Each probe is bounded by the per-endpoint timeout; the first endpoint that
// answers the block height probe becomes the active read handle and the rest
// are abandoned.
func (m *Manager) raceEndpoints(ctx context.Context) (*Handle, error) {
	ctx, span := m.tracer.Start(ctx, "ledger.resolve")
	start := time.Now()

	if len(m.cfg.Endpoints) == 0 {
		span.End(ErrNoProvider)
		return nil, ErrNoProvider
	}

	winner := make(chan Node, 1)
	g, gctx := errgroup.WithContext(ctx)
	for _, endpoint := range m.cfg.Endpoints {
		node := m.dialNode(endpoint)
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(gctx, m.cfg.ProbeTimeout)
			defer cancel()
			if _, err := node.BlockNumber(probeCtx); err != nil {
				if m.logger != nil {
					m.logger.Warn("endpoint probe failed",
						"endpoint", node.Endpoint(),
						"timeout", rpc.IsTimeout(probeCtx, err),
						"error", err,
					)
				}
				return nil // keep racing the others
			}
			select {
			case winner <- node:
			default:
			}
			return errResolved
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, errResolved) {
		span.End(err)
		return nil, err
	}

	select {
	case node := <-winner:
		handle := &Handle{
			Mode:     ModeReadOnly,
			Endpoint: node.Endpoint(),
			node:     node,
		}
		m.mu.Lock()
		// A concurrent explicit Connect wins over the race result.
		if m.handle != nil && m.handle.Mode == ModeWriteCapable {
			handle = m.handle
		} else {
			m.handle = handle
		}
		m.mu.Unlock()
		m.breaker.Reset()

		if m.metrics != nil {
			m.metrics.ResolutionLatency.Observe(time.Since(start).Seconds())
		}
		if m.logger != nil {
			m.logger.Info("read-only ledger provider resolved", "endpoint", handle.Endpoint)
		}
		span.End(nil)
		return handle, nil
	default:
		if m.metrics != nil {
			m.metrics.ResolutionFailed.Inc()
		}
		span.End(ErrNoProvider)
		return nil, ErrNoProvider
	}
}
