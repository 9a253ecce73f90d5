package dto

import (
	"time"

	"numera/internal/domain/numbering"
)

// PrefixSpecDTO describes one prefix slot of a config.
type PrefixSpecDTO struct {
	Label    string `json:"label" binding:"required"`
	Default  string `json:"default"`
	Required bool   `json:"required"`
}

// CreateConfigRequest creates a numbering rule for a document type.
type CreateConfigRequest struct {
	DocumentType   string                 `json:"documentType" binding:"required"`
	Label          string                 `json:"label" binding:"required"`
	PeriodFormat   numbering.PeriodFormat `json:"periodFormat" binding:"required"`
	Prefix1        *PrefixSpecDTO         `json:"prefix1"`
	Prefix2        *PrefixSpecDTO         `json:"prefix2"`
	SequenceLength int                    `json:"sequenceLength"`
	PadChar        string                 `json:"padChar"`
	Separator      string                 `json:"separator"`
}

// ToConfig builds the domain config for the tenant.
func (r CreateConfigRequest) ToConfig(tenantID string) *numbering.NumberingConfig {
	cfg := numbering.NewNumberingConfig(tenantID, r.DocumentType, r.Label, r.PeriodFormat)
	if r.SequenceLength > 0 {
		cfg.SequenceLength = r.SequenceLength
	}
	if r.PadChar != "" {
		cfg.PadChar = r.PadChar
	}
	if r.Separator != "" {
		cfg.Separator = r.Separator
	}
	applyPrefix(r.Prefix1, &cfg.Prefix1Label, &cfg.Prefix1Default, &cfg.Prefix1Required)
	applyPrefix(r.Prefix2, &cfg.Prefix2Label, &cfg.Prefix2Default, &cfg.Prefix2Required)
	return cfg
}

func applyPrefix(p *PrefixSpecDTO, label, def **string, required *bool) {
	if p == nil {
		return
	}
	l := p.Label
	*label = &l
	if p.Default != "" {
		d := p.Default
		*def = &d
	}
	*required = p.Required
}

// UpdateConfigRequest updates a numbering rule. Nil fields stay unchanged.
type UpdateConfigRequest struct {
	Label          *string                 `json:"label"`
	PeriodFormat   *numbering.PeriodFormat `json:"periodFormat"`
	Prefix1        *PrefixSpecDTO          `json:"prefix1"`
	Prefix2        *PrefixSpecDTO          `json:"prefix2"`
	SequenceLength *int                    `json:"sequenceLength"`
	PadChar        *string                 `json:"padChar"`
	Separator      *string                 `json:"separator"`
	IsActive       *bool                   `json:"isActive"`
	Version        int                     `json:"version" binding:"required,min=1"`
}

// ToInput converts the request to the domain update input.
func (r UpdateConfigRequest) ToInput() numbering.UpdateConfigInput {
	in := numbering.UpdateConfigInput{
		Label:          r.Label,
		PeriodFormat:   r.PeriodFormat,
		SequenceLength: r.SequenceLength,
		PadChar:        r.PadChar,
		Separator:      r.Separator,
		IsActive:       r.IsActive,
		Version:        r.Version,
	}
	if r.Prefix1 != nil {
		in.Prefix1Label = &r.Prefix1.Label
		in.Prefix1Default = &r.Prefix1.Default
		in.Prefix1Required = &r.Prefix1.Required
	}
	if r.Prefix2 != nil {
		in.Prefix2Label = &r.Prefix2.Label
		in.Prefix2Default = &r.Prefix2.Default
		in.Prefix2Required = &r.Prefix2.Required
	}
	return in
}

// DeactivateConfigRequest carries the expected version.
type DeactivateConfigRequest struct {
	Version int `json:"version" binding:"required,min=1"`
}

// ConfigResponse is the API shape of a numbering rule.
type ConfigResponse struct {
	ID             string                 `json:"id"`
	DocumentType   string                 `json:"documentType"`
	Label          string                 `json:"label"`
	PeriodFormat   numbering.PeriodFormat `json:"periodFormat"`
	Prefix1        *PrefixSpecDTO         `json:"prefix1,omitempty"`
	Prefix2        *PrefixSpecDTO         `json:"prefix2,omitempty"`
	SequenceLength int                    `json:"sequenceLength"`
	PadChar        string                 `json:"padChar"`
	Separator      string                 `json:"separator"`
	IsActive       bool                   `json:"isActive"`
	Version        int                    `json:"version"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

// FromConfig converts a domain config to its API shape.
func FromConfig(cfg *numbering.NumberingConfig) ConfigResponse {
	resp := ConfigResponse{
		ID:             cfg.ID.String(),
		DocumentType:   cfg.DocumentType,
		Label:          cfg.Label,
		PeriodFormat:   cfg.PeriodFormat,
		SequenceLength: cfg.SequenceLength,
		PadChar:        cfg.PadChar,
		Separator:      cfg.Separator,
		IsActive:       cfg.IsActive,
		Version:        cfg.Version,
		CreatedAt:      cfg.CreatedAt,
		UpdatedAt:      cfg.UpdatedAt,
	}
	if spec, ok := cfg.Prefix1(); ok {
		resp.Prefix1 = &PrefixSpecDTO{Label: spec.Label, Default: spec.Default, Required: spec.Required}
	}
	if spec, ok := cfg.Prefix2(); ok {
		resp.Prefix2 = &PrefixSpecDTO{Label: spec.Label, Default: spec.Default, Required: spec.Required}
	}
	return resp
}

// FromConfigList converts a slice of domain configs.
func FromConfigList(cfgs []*numbering.NumberingConfig) []ConfigResponse {
	out := make([]ConfigResponse, 0, len(cfgs))
	for _, cfg := range cfgs {
		out = append(out, FromConfig(cfg))
	}
	return out
}
