package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"attest/internal/ledger/provider"
	"attest/internal/platform/middleware"
	"attest/pkg/platform/httputil"
)

// Provider defines the interface for ledger connection management.
type Provider interface {
	Connect(ctx context.Context) (*provider.Handle, error)
	Active() (*provider.Handle, bool)
}

// Handler handles ledger connection endpoints.
type Handler struct {
	logger   *slog.Logger
	provider Provider
	chainID  uint64
}

// New creates a new ledger Handler.
func New(p Provider, chainID uint64, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		provider: p,
		chainID:  chainID,
	}
}

// Register registers the ledger routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/ledger/connect", h.handleConnect)
	r.Get("/ledger/status", h.handleStatus)
}

type statusResponse struct {
	Connected bool   `json:"connected"`
	Mode      string `json:"mode,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	Account   string `json:"account,omitempty"`
	ChainID   uint64 `json:"chain_id"`
}

// handleConnect upgrades to a write-capable connection through the signing
// agent. This is the only upgrade path; issuance never connects implicitly.
func (h *Handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	handle, err := h.provider.Connect(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "ledger connect failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, statusResponse{
		Connected: true,
		Mode:      string(handle.Mode),
		Endpoint:  handle.Endpoint,
		Account:   handle.Account,
		ChainID:   h.chainID,
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{ChainID: h.chainID}
	if handle, ok := h.provider.Active(); ok {
		resp.Connected = true
		resp.Mode = string(handle.Mode)
		resp.Endpoint = handle.Endpoint
		resp.Account = handle.Account
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
