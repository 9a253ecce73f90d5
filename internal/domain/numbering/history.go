package numbering

import (
	"time"

	"numera/internal/core/id"
)

// HistoryRecord is the immutable audit entry for one generated number.
// State machine: active (set at creation) → voided (terminal, via Void).
// A void never deletes, renumbers, or frees the formatted number.
type HistoryRecord struct {
	ID           id.ID  `db:"id"`
	TenantID     string `db:"tenant_id"`
	DocumentType string `db:"document_type"`

	// DocumentNumber is the full formatted number; unique per tenant by
	// virtue of the counter mechanism, not re-derived here.
	DocumentNumber string `db:"document_number"`

	// Resolved components, recorded at generation time.
	Period   string  `db:"period"`
	Prefix1  *string `db:"prefix1"`
	Prefix2  *string `db:"prefix2"`
	Sequence int64   `db:"sequence"`

	// CounterID links back to the counter row that produced the number.
	CounterID id.ID `db:"counter_id"`

	// Business document association; often set after generation, once the
	// owning record's id exists (see Service.LinkToDocument).
	ReferenceID   *string `db:"reference_id"`
	ReferenceKind *string `db:"reference_kind"`

	GeneratedBy string    `db:"generated_by"`
	GeneratedAt time.Time `db:"generated_at"`

	Voided     bool       `db:"voided"`
	VoidedAt   *time.Time `db:"voided_at"`
	VoidedBy   *string    `db:"voided_by"`
	VoidReason *string    `db:"void_reason"`
}

// Components returns the recorded number parts (round-trip counterpart
// of ParseNumber).
func (h *HistoryRecord) Components() Components {
	return Components{
		DocumentType: h.DocumentType,
		Period:       h.Period,
		Prefix1:      FromPtr(h.Prefix1),
		Prefix2:      FromPtr(h.Prefix2),
		Sequence:     h.Sequence,
	}
}

// IsVoided reports whether the record reached its terminal state.
func (h *HistoryRecord) IsVoided() bool {
	return h.Voided
}
