package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"attest/internal/certificate/models"
	"attest/internal/platform/middleware"
	"attest/pkg/platform/httputil"
	dErrors "attest/pkg/domain-errors"
)

// Service defines the interface for certificate operations.
type Service interface {
	Issue(ctx context.Context, req models.IssueRequest) (models.IssueResult, error)
	Get(ctx context.Context, id string) (models.CertificateRecord, error)
	Verify(ctx context.Context, id string) (models.VerifyResult, error)
	Revoke(ctx context.Context, id string) error
}

// Handler handles certificate endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// New creates a new certificate Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

// Register registers the certificate routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/certificates", h.handleIssue)
	r.Get("/certificates/{id}", h.handleGet)
	r.Get("/certificates/{id}/verify", h.handleVerify)
	r.Post("/certificates/{id}/revoke", h.handleRevoke)
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req models.IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode issue request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.service.Issue(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "issuance rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	record, err := h.service.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := h.service.Revoke(ctx, id); err != nil {
		h.logger.WarnContext(ctx, "revocation rejected",
			"request_id", middleware.GetRequestID(ctx),
			"certificate_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "certificate revoked",
		"request_id", middleware.GetRequestID(ctx),
		"certificate_id", id,
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"id":     id,
		"status": "revoked",
	})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	result, err := h.service.Verify(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.logger.WarnContext(ctx, "verification failed",
			"request_id", requestID,
			"certificate_id", chi.URLParam(r, "id"),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}
