package provider

import (
	"context"

	"attest/internal/ledger/contract"
	"attest/internal/ledger/tracer"
	dErrors "attest/pkg/domain-errors"
)

// ReadEntry fetches the ledger's view of a certificate, resolving a provider
// if none is active. Absence and exists=false are reported identically through
// Entry.Exists. Failures here are infrastructure failures: callers downgrade
// to "ledger unverified" instead of failing their request.
func (m *Manager) ReadEntry(ctx context.Context, id string) (contract.Entry, error) {
	ctx, span := m.tracer.Start(ctx, "ledger.read_entry", tracer.String("certificate_id", id))
	entry, err := m.readEntry(ctx, id)
	span.End(err)
	return entry, err
}

func (m *Manager) readEntry(ctx context.Context, id string) (contract.Entry, error) {
	handle, err := m.readHandle(ctx)
	if err != nil {
		if m.metrics != nil {
			m.metrics.Reads.WithLabelValues("no_provider").Inc()
		}
		return contract.Entry{}, err
	}

	data, err := handle.ethCall(ctx, m.cfg.ContractAddress, contract.EncodeCertificatesQuery(id))
	if err != nil {
		m.recordReadFailure(handle)
		return contract.Entry{}, dErrors.Wrap(err, dErrors.CodeNoProvider, "ledger read failed")
	}

	entry, err := contract.DecodeCertificate(data)
	if err != nil {
		m.recordReadFailure(handle)
		return contract.Entry{}, dErrors.Wrap(err, dErrors.CodeNoProvider, "malformed ledger response")
	}

	m.breaker.RecordSuccess()
	if m.metrics != nil {
		m.metrics.Reads.WithLabelValues("ok").Inc()
	}
	return entry, nil
}

// recordReadFailure feeds the breaker; a tripped breaker drops the read-only
// handle so the next read re-resolves instead of hammering a dead endpoint.
func (m *Manager) recordReadFailure(handle *Handle) {
	if m.metrics != nil {
		m.metrics.Reads.WithLabelValues("error").Inc()
	}
	if handle.Mode != ModeReadOnly {
		return
	}
	if opened := m.breaker.RecordFailure(); opened {
		if m.logger != nil {
			m.logger.Warn("read endpoint circuit opened, will re-resolve",
				"endpoint", handle.Endpoint,
			)
		}
	}
}
