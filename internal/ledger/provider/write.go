package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"attest/internal/ledger/contract"
	"attest/internal/ledger/rpc"
	"attest/internal/ledger/tracer"
	dErrors "attest/pkg/domain-errors"
)

// gasMarginPercent is the fixed safety margin added to the cost estimate.
const gasMarginPercent = 20

// WriteRequest carries the fields recorded on the ledger for a certificate.
type WriteRequest struct {
	ID          string
	SubjectID   string
	SubjectName string
	Course      string
	IssuerName  string
}

// SubmitCertificate runs the full write path: network guard, cost estimate
// with safety margin, submission through the signing agent, and confirmation
// wait. The wait is cancellable; cancellation before confirmation returns a
// cancelled classification and never reports the write as confirmed.
func (m *Manager) SubmitCertificate(ctx context.Context, req WriteRequest) (string, error) {
	ctx, span := m.tracer.Start(ctx, "ledger.submit_certificate",
		tracer.String("certificate_id", req.ID))
	txRef, err := m.submitCertificate(ctx, req)
	span.End(err)

	if m.metrics != nil {
		outcome := "confirmed"
		if err != nil {
			outcome = string(dErrors.CodeOf(err))
		}
		m.metrics.Writes.WithLabelValues(outcome).Inc()
	}
	return txRef, err
}

func (m *Manager) submitCertificate(ctx context.Context, req WriteRequest) (string, error) {
	h, ok := m.Active()
	if !ok || h.Mode != ModeWriteCapable {
		return "", dErrors.New(dErrors.CodeNoProvider, "no write-capable ledger connection")
	}

	// The guard runs immediately before every write; the user can have
	// changed networks since the last call.
	if err := m.guard.Ensure(ctx, h.agent); err != nil {
		return "", err
	}

	data := contract.EncodeIssueCertificate(req.ID, req.SubjectID, req.SubjectName, req.Course, req.IssuerName)

	estimate, err := h.agent.EstimateGas(ctx, h.Account, m.cfg.ContractAddress, data)
	if err != nil {
		return "", classifyWriteError(err, "estimate ledger write cost")
	}
	gasCeiling := estimate + estimate*gasMarginPercent/100

	txHash, err := h.agent.SendTransaction(ctx, h.Account, m.cfg.ContractAddress, data, gasCeiling)
	if err != nil {
		return "", classifyWriteError(err, "submit ledger write")
	}

	if err := m.awaitConfirmation(ctx, h, txHash); err != nil {
		return "", err
	}
	return txHash, nil
}

// awaitConfirmation polls for the transaction receipt until confirmed or the
// caller cancels. There is no internal timeout: confirmation latency is
// governed by the ledger itself.
func (m *Manager) awaitConfirmation(ctx context.Context, h *Handle, txHash string) error {
	ticker := time.NewTicker(m.cfg.ConfirmInterval)
	defer ticker.Stop()

	for {
		receipt, err := h.agent.TransactionReceipt(ctx, txHash)
		if err != nil {
			if ctx.Err() != nil {
				return dErrors.Wrap(ctx.Err(), dErrors.CodeCancelled, "confirmation wait cancelled")
			}
			return dErrors.Wrap(err, dErrors.CodeLedgerWriteFailed, "query transaction receipt")
		}
		if receipt != nil {
			if !receipt.Succeeded() {
				return dErrors.New(dErrors.CodeLedgerWriteFailed, "transaction reverted")
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return dErrors.Wrap(ctx.Err(), dErrors.CodeCancelled, "confirmation wait cancelled")
		case <-ticker.C:
		}
	}
}

// classifyWriteError maps agent and node failures onto the write-path error
// taxonomy. None of these escalate past the coordinator: they all result in a
// persisted record with degraded trust.
func classifyWriteError(err error, msg string) error {
	var rpcErr *rpc.Error
	if errors.As(err, &rpcErr) {
		lower := strings.ToLower(rpcErr.Message)
		switch {
		case rpcErr.Code == rpc.CodeUserRejected:
			return dErrors.Wrap(err, dErrors.CodeUserDeclined, msg)
		case strings.Contains(lower, "insufficient funds"):
			return dErrors.Wrap(err, dErrors.CodeInsufficientFunds, msg)
		case strings.Contains(lower, "already exists"):
			// Remote revert: the entry is on the ledger under this identifier.
			return dErrors.Wrap(err, dErrors.CodeAlreadyOnLedger, msg)
		}
	}
	return dErrors.Wrap(err, dErrors.CodeLedgerWriteFailed, msg)
}
