package numbering

import (
	"context"

	"numera/internal/core/id"
	"numera/internal/core/security"
	"numera/pkg/logger"
)

// Auditor records configuration changes. Implemented by the postgres
// audit store; nil disables auditing (tests).
type Auditor interface {
	RecordConfigChange(ctx context.Context, action string, cfg *NumberingConfig) error
}

// Audit actions for config changes.
const (
	AuditActionCreate     = "create"
	AuditActionUpdate     = "update"
	AuditActionDeactivate = "deactivate"
)

// UpdateConfigInput carries the mutable config fields. Nil pointers leave
// the current value untouched.
type UpdateConfigInput struct {
	Label           *string
	PeriodFormat    *PeriodFormat
	Prefix1Label    *string
	Prefix1Default  *string
	Prefix1Required *bool
	Prefix2Label    *string
	Prefix2Default  *string
	Prefix2Required *bool
	SequenceLength  *int
	PadChar         *string
	Separator       *string
	IsActive        *bool

	// Version must match the stored row (optimistic locking).
	Version int
}

// AdminService maintains numbering configurations. The generator reads
// configs through the same repository but never writes them.
type AdminService struct {
	configs ConfigRepository
	audit   Auditor
}

// NewAdminService creates the config administration service.
func NewAdminService(configs ConfigRepository, audit Auditor) *AdminService {
	return &AdminService{configs: configs, audit: audit}
}

// CreateConfig validates and stores a new numbering rule.
// Unique per (tenant, document type); duplicates fail with DUPLICATE_ENTRY.
func (s *AdminService) CreateConfig(ctx context.Context, cfg *NumberingConfig) error {
	if id.IsNil(cfg.ID) {
		cfg.ID = id.New()
	}
	cfg.Normalize()
	cfg.CreatedBy = security.GetUserID(ctx)
	cfg.UpdatedBy = cfg.CreatedBy
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if err := cfg.Validate(ctx); err != nil {
		return err
	}
	if err := s.configs.Create(ctx, cfg); err != nil {
		return err
	}

	s.recordAudit(ctx, AuditActionCreate, cfg)
	return nil
}

// UpdateConfig applies changes with optimistic locking.
func (s *AdminService) UpdateConfig(ctx context.Context, tenantID string, configID id.ID, in UpdateConfigInput) (*NumberingConfig, error) {
	cfg, err := s.configs.GetByID(ctx, tenantID, configID)
	if err != nil {
		return nil, err
	}
	cfg.Version = in.Version

	applyUpdate(cfg, in)
	cfg.Normalize()
	cfg.UpdatedBy = security.GetUserID(ctx)

	if err := cfg.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.configs.Update(ctx, cfg); err != nil {
		return nil, err
	}

	action := AuditActionUpdate
	if in.IsActive != nil && !*in.IsActive {
		action = AuditActionDeactivate
	}
	s.recordAudit(ctx, action, cfg)
	return cfg, nil
}

// DeactivateConfig stops the generator from using a rule. Existing
// counters and history stay untouched.
func (s *AdminService) DeactivateConfig(ctx context.Context, tenantID string, configID id.ID, version int) (*NumberingConfig, error) {
	inactive := false
	return s.UpdateConfig(ctx, tenantID, configID, UpdateConfigInput{
		IsActive: &inactive,
		Version:  version,
	})
}

// GetConfig returns one config scoped by tenant.
func (s *AdminService) GetConfig(ctx context.Context, tenantID string, configID id.ID) (*NumberingConfig, error) {
	return s.configs.GetByID(ctx, tenantID, configID)
}

// ListConfigs returns a page of configs plus the total count.
func (s *AdminService) ListConfigs(ctx context.Context, tenantID string, limit, offset int) ([]*NumberingConfig, int64, error) {
	return s.configs.List(ctx, tenantID, limit, offset)
}

func applyUpdate(cfg *NumberingConfig, in UpdateConfigInput) {
	if in.Label != nil {
		cfg.Label = *in.Label
	}
	if in.PeriodFormat != nil {
		cfg.PeriodFormat = *in.PeriodFormat
	}
	if in.Prefix1Label != nil {
		cfg.Prefix1Label = in.Prefix1Label
	}
	if in.Prefix1Default != nil {
		cfg.Prefix1Default = in.Prefix1Default
	}
	if in.Prefix1Required != nil {
		cfg.Prefix1Required = *in.Prefix1Required
	}
	if in.Prefix2Label != nil {
		cfg.Prefix2Label = in.Prefix2Label
	}
	if in.Prefix2Default != nil {
		cfg.Prefix2Default = in.Prefix2Default
	}
	if in.Prefix2Required != nil {
		cfg.Prefix2Required = *in.Prefix2Required
	}
	if in.SequenceLength != nil {
		cfg.SequenceLength = *in.SequenceLength
	}
	if in.PadChar != nil {
		cfg.PadChar = *in.PadChar
	}
	if in.Separator != nil {
		cfg.Separator = *in.Separator
	}
	if in.IsActive != nil {
		cfg.IsActive = *in.IsActive
	}
}

// recordAudit is best-effort: an audit write failure never fails the
// config operation itself.
func (s *AdminService) recordAudit(ctx context.Context, action string, cfg *NumberingConfig) {
	if s.audit == nil {
		return
	}
	if err := s.audit.RecordConfigChange(ctx, action, cfg); err != nil {
		logger.Warn(ctx, "config audit write failed",
			"action", action,
			"config_id", cfg.ID.String(),
			"error", err,
		)
	}
}
