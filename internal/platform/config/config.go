package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	DatabaseURL string
	Ledger      Ledger
}

// Ledger holds everything needed to reach the external certificate ledger.
type Ledger struct {
	// Endpoints is the ordered pool of public read-only JSON-RPC endpoints.
	Endpoints []string
	// SigningAgentURL points at the user-controlled signing agent. Empty means
	// no write-capable connection can be established.
	SigningAgentURL string
	// ChainID identifies the network the contract is deployed on.
	ChainID uint64
	// ContractAddress is the deployed certificate contract.
	ContractAddress string
	// ProbeTimeout bounds each endpoint liveness probe during resolution.
	ProbeTimeout time.Duration
	// ConfirmInterval is the receipt polling interval while awaiting a write.
	ConfirmInterval time.Duration
}

// Defaults for the Sepolia deployment the certificate contract lives on.
// All of these are overridable from the environment.
const (
	DefaultChainID         = 11155111
	DefaultContractAddress = "0xD2afa4f1a7D4Bd0b8Aff8496dDFa5332DA423ee2"
	DefaultProbeTimeout    = 3 * time.Second
	DefaultConfirmInterval = 2 * time.Second
)

// DefaultEndpoints is the public endpoint pool used when none is configured.
func DefaultEndpoints() []string {
	return []string{
		"https://eth-sepolia.public.blastapi.io",
		"https://rpc.sepolia.org",
		"https://rpc2.sepolia.org",
		"https://sepolia.gateway.tenderly.co",
	}
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("ATTEST_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	endpoints := DefaultEndpoints()
	if raw := os.Getenv("LEDGER_RPC_ENDPOINTS"); raw != "" {
		endpoints = nil
		for _, e := range strings.Split(raw, ",") {
			if e = strings.TrimSpace(e); e != "" {
				endpoints = append(endpoints, e)
			}
		}
	}

	contract := os.Getenv("LEDGER_CONTRACT_ADDRESS")
	if contract == "" {
		contract = DefaultContractAddress
	}

	probeTimeout := DefaultProbeTimeout
	if raw := os.Getenv("LEDGER_PROBE_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			probeTimeout = d
		}
	}

	chainID := uint64(DefaultChainID)
	if raw := os.Getenv("LEDGER_CHAIN_ID"); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 64); err == nil {
			chainID = v
		}
	}

	confirmInterval := DefaultConfirmInterval
	if raw := os.Getenv("LEDGER_CONFIRM_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			confirmInterval = d
		}
	}

	return Server{
		Addr:        addr,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Ledger: Ledger{
			Endpoints:       endpoints,
			SigningAgentURL: os.Getenv("SIGNING_AGENT_URL"),
			ChainID:         chainID,
			ContractAddress: contract,
			ProbeTimeout:    probeTimeout,
			ConfirmInterval: confirmInterval,
		},
	}
}
