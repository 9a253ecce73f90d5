// Package numbering provides the document numbering sequence generator:
// per-tenant numbering configuration, period-partitioned sequence counters,
// and the immutable generation history with void support.
package numbering

import (
	"context"
	"strings"
	"time"

	"numera/internal/core/apperror"
	"numera/internal/core/id"
)

// PeriodFormat selects how the period label is derived from the current date.
type PeriodFormat string

const (
	// PeriodMonthShort renders month + 2-digit year, e.g. "0125" for January 2025.
	PeriodMonthShort PeriodFormat = "MMYY"

	// PeriodMonthLong renders month + 4-digit year, e.g. "012025".
	PeriodMonthLong PeriodFormat = "MMYYYY"

	// PeriodWeekShort renders ISO week + 2-digit ISO year, e.g. "0525".
	PeriodWeekShort PeriodFormat = "WWYY"

	// PeriodWeekLong renders ISO week + 4-digit ISO year, e.g. "052025".
	PeriodWeekLong PeriodFormat = "WWYYYY"
)

// Valid reports whether the format is one of the supported values.
func (f PeriodFormat) Valid() bool {
	switch f {
	case PeriodMonthShort, PeriodMonthLong, PeriodWeekShort, PeriodWeekLong:
		return true
	}
	return false
}

// PrefixSpec describes one of the two optional prefix slots of a config.
type PrefixSpec struct {
	// Label is the human-readable name shown to administrators (e.g. "Warehouse").
	Label string `json:"label"`

	// Default is a suggestion to callers; the generator never enforces it.
	Default string `json:"default,omitempty"`

	// Required rejects generate/preview calls that omit this prefix.
	Required bool `json:"required"`
}

// Defaults applied by Normalize when the administrator leaves fields empty.
const (
	DefaultSequenceLength = 5
	DefaultPadChar        = "0"
	DefaultSeparator      = "-"

	maxSequenceLength = 12
)

// NumberingConfig is the per-(tenant, document type) numbering rule.
// Created and maintained by administrators; read-only to the generator.
type NumberingConfig struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// TenantID scopes the config; unique together with DocumentType
	TenantID string `db:"tenant_id" json:"tenantId"`

	// DocumentType is the short code leading every number (e.g. "PO", "INV")
	DocumentType string `db:"document_type" json:"documentType"`

	// Label is the human-readable name (e.g. "Purchase Order")
	Label string `db:"label" json:"label"`

	// PeriodFormat drives the period label computation
	PeriodFormat PeriodFormat `db:"period_format" json:"periodFormat"`

	// Prefix slot 1 (declared when Prefix1Label is non-nil)
	Prefix1Label    *string `db:"prefix1_label" json:"prefix1Label,omitempty"`
	Prefix1Default  *string `db:"prefix1_default" json:"prefix1Default,omitempty"`
	Prefix1Required bool    `db:"prefix1_required" json:"prefix1Required"`

	// Prefix slot 2 (declared when Prefix2Label is non-nil)
	Prefix2Label    *string `db:"prefix2_label" json:"prefix2Label,omitempty"`
	Prefix2Default  *string `db:"prefix2_default" json:"prefix2Default,omitempty"`
	Prefix2Required bool    `db:"prefix2_required" json:"prefix2Required"`

	// SequenceLength is the zero-pad width of the sequence segment
	SequenceLength int `db:"sequence_length" json:"sequenceLength"`

	// PadChar is the single pad character (usually "0")
	PadChar string `db:"pad_char" json:"padChar"`

	// Separator joins the number segments (usually "-")
	Separator string `db:"separator" json:"separator"`

	// IsActive gates the generator; inactive configs fail lookups
	IsActive bool `db:"is_active" json:"isActive"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	UpdatedBy string    `db:"updated_by" json:"updatedBy,omitempty"`
}

// NewNumberingConfig creates a config with required fields and defaults applied.
func NewNumberingConfig(tenantID, documentType, label string, format PeriodFormat) *NumberingConfig {
	now := time.Now().UTC()
	cfg := &NumberingConfig{
		ID:           id.New(),
		TenantID:     tenantID,
		DocumentType: strings.ToUpper(strings.TrimSpace(documentType)),
		Label:        label,
		PeriodFormat: format,
		IsActive:     true,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	cfg.Normalize()
	return cfg
}

// Prefix1 returns the first prefix slot and whether it is declared.
func (c *NumberingConfig) Prefix1() (PrefixSpec, bool) {
	return c.prefixSpec(c.Prefix1Label, c.Prefix1Default, c.Prefix1Required)
}

// Prefix2 returns the second prefix slot and whether it is declared.
func (c *NumberingConfig) Prefix2() (PrefixSpec, bool) {
	return c.prefixSpec(c.Prefix2Label, c.Prefix2Default, c.Prefix2Required)
}

func (c *NumberingConfig) prefixSpec(label, def *string, required bool) (PrefixSpec, bool) {
	if label == nil {
		return PrefixSpec{}, false
	}
	spec := PrefixSpec{Label: *label, Required: required}
	if def != nil {
		spec.Default = *def
	}
	return spec, true
}

// Normalize fills zero-value formatting fields with defaults.
func (c *NumberingConfig) Normalize() {
	if c.SequenceLength == 0 {
		c.SequenceLength = DefaultSequenceLength
	}
	if c.PadChar == "" {
		c.PadChar = DefaultPadChar
	}
	if c.Separator == "" {
		c.Separator = DefaultSeparator
	}
}

// Touch updates the UpdatedAt timestamp and increments version.
func (c *NumberingConfig) Touch() {
	c.UpdatedAt = time.Now().UTC()
	c.Version++
}

// Validate checks config invariants.
func (c *NumberingConfig) Validate(ctx context.Context) error {
	if c.TenantID == "" {
		return apperror.NewValidation("tenant_id is required")
	}
	if c.DocumentType == "" {
		return apperror.NewValidation("document_type is required").
			WithDetail("field", "documentType")
	}
	if !c.PeriodFormat.Valid() {
		return apperror.NewValidation("invalid period format").
			WithDetail("field", "periodFormat").
			WithDetail("value", string(c.PeriodFormat))
	}
	if len(c.Separator) != 1 {
		return apperror.NewValidation("separator must be a single character").
			WithDetail("field", "separator").
			WithDetail("value", c.Separator)
	}
	if len(c.PadChar) != 1 {
		return apperror.NewValidation("pad_char must be a single character").
			WithDetail("field", "padChar").
			WithDetail("value", c.PadChar)
	}
	// A nonzero digit pad cannot be told apart from leading sequence
	// digits when parsing a number back, so only "0" is allowed among
	// the digits.
	if c.PadChar != "0" && c.PadChar[0] >= '0' && c.PadChar[0] <= '9' {
		return apperror.NewValidation("pad_char must not be a nonzero digit").
			WithDetail("field", "padChar").
			WithDetail("value", c.PadChar)
	}
	if c.SequenceLength < 1 || c.SequenceLength > maxSequenceLength {
		return apperror.NewValidation("sequence_length out of range").
			WithDetail("field", "sequenceLength").
			WithDetail("value", c.SequenceLength)
	}

	// Segments are joined and re-split on the separator; no segment may
	// contain it, otherwise parsing becomes ambiguous.
	if strings.Contains(c.DocumentType, c.Separator) {
		return apperror.NewValidation("document_type must not contain the separator").
			WithDetail("field", "documentType").
			WithDetail("value", c.DocumentType)
	}
	if c.Prefix2Label != nil && c.Prefix1Label == nil {
		return apperror.NewValidation("prefix2 cannot be declared without prefix1")
	}
	for _, def := range []*string{c.Prefix1Default, c.Prefix2Default} {
		if def != nil && strings.Contains(*def, c.Separator) {
			return apperror.NewValidation("prefix default must not contain the separator").
				WithDetail("value", *def)
		}
	}

	return nil
}
