package dto

import (
	"time"

	"numera/internal/domain/numbering"
)

// --- Generate / Preview ---

// GenerateRequest asks for the next document number.
// Prefix fields distinguish absent (field omitted or null) from present
// but empty; both are legal and produce different counters.
type GenerateRequest struct {
	DocumentType  string                   `json:"documentType" binding:"required"`
	Prefix1       numbering.OptionalString `json:"prefix1"`
	Prefix2       numbering.OptionalString `json:"prefix2"`
	ReferenceID   numbering.OptionalString `json:"referenceId"`
	ReferenceKind numbering.OptionalString `json:"referenceKind"`
}

// ToInput converts the request to the domain input.
func (r GenerateRequest) ToInput() numbering.GenerateInput {
	return numbering.GenerateInput{
		DocumentType:  r.DocumentType,
		Prefix1:       r.Prefix1,
		Prefix2:       r.Prefix2,
		ReferenceID:   r.ReferenceID,
		ReferenceKind: r.ReferenceKind,
	}
}

// GenerateResponse carries the freshly issued number.
type GenerateResponse struct {
	DocumentNumber string `json:"documentNumber"`
	HistoryID      string `json:"historyId"`
}

// PreviewRequest asks what the next number would look like.
type PreviewRequest struct {
	DocumentType string                   `json:"documentType" binding:"required"`
	Prefix1      numbering.OptionalString `json:"prefix1"`
	Prefix2      numbering.OptionalString `json:"prefix2"`
}

// ToInput converts the request to the domain input.
func (r PreviewRequest) ToInput() numbering.PreviewInput {
	return numbering.PreviewInput{
		DocumentType: r.DocumentType,
		Prefix1:      r.Prefix1,
		Prefix2:      r.Prefix2,
	}
}

// PreviewResponse carries the candidate number. Informational only:
// a concurrent caller may take the value before the requester does.
type PreviewResponse struct {
	DocumentNumber string `json:"documentNumber"`
}

// --- Void / Link ---

// VoidRequest flags a generated number as voided.
type VoidRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// LinkRequest associates a history record with a business document.
type LinkRequest struct {
	ReferenceID   string `json:"referenceId" binding:"required"`
	ReferenceKind string `json:"referenceKind" binding:"required"`
}

// --- History ---

// HistoryResponse is one generation history record.
type HistoryResponse struct {
	ID             string     `json:"id"`
	DocumentType   string     `json:"documentType"`
	DocumentNumber string     `json:"documentNumber"`
	Period         string     `json:"period"`
	Prefix1        *string    `json:"prefix1,omitempty"`
	Prefix2        *string    `json:"prefix2,omitempty"`
	Sequence       int64      `json:"sequence"`
	ReferenceID    *string    `json:"referenceId,omitempty"`
	ReferenceKind  *string    `json:"referenceKind,omitempty"`
	GeneratedBy    string     `json:"generatedBy,omitempty"`
	GeneratedAt    time.Time  `json:"generatedAt"`
	Voided         bool       `json:"voided"`
	VoidedAt       *time.Time `json:"voidedAt,omitempty"`
	VoidedBy       *string    `json:"voidedBy,omitempty"`
	VoidReason     *string    `json:"voidReason,omitempty"`
}

// FromHistory converts a domain record to its API shape.
func FromHistory(rec *numbering.HistoryRecord) HistoryResponse {
	return HistoryResponse{
		ID:             rec.ID.String(),
		DocumentType:   rec.DocumentType,
		DocumentNumber: rec.DocumentNumber,
		Period:         rec.Period,
		Prefix1:        rec.Prefix1,
		Prefix2:        rec.Prefix2,
		Sequence:       rec.Sequence,
		ReferenceID:    rec.ReferenceID,
		ReferenceKind:  rec.ReferenceKind,
		GeneratedBy:    rec.GeneratedBy,
		GeneratedAt:    rec.GeneratedAt,
		Voided:         rec.Voided,
		VoidedAt:       rec.VoidedAt,
		VoidedBy:       rec.VoidedBy,
		VoidReason:     rec.VoidReason,
	}
}

// FromHistoryList converts a slice of domain records.
func FromHistoryList(recs []*numbering.HistoryRecord) []HistoryResponse {
	out := make([]HistoryResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, FromHistory(rec))
	}
	return out
}
