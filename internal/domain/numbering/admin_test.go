package numbering

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureAuditor struct {
	actions []string
}

func (a *captureAuditor) RecordConfigChange(_ context.Context, action string, _ *NumberingConfig) error {
	a.actions = append(a.actions, action)
	return nil
}

func TestAdmin_CreateConfig(t *testing.T) {
	configs := newFakeConfigs()
	auditor := &captureAuditor{}
	admin := NewAdminService(configs, auditor)
	ctx := authedCtx(t)

	cfg := NewNumberingConfig(testTenant, "inv", "Invoice", PeriodMonthLong)
	require.NoError(t, admin.CreateConfig(ctx, cfg))

	assert.Equal(t, "INV", cfg.DocumentType)
	assert.Equal(t, "user-7", cfg.CreatedBy)
	assert.Equal(t, []string{AuditActionCreate}, auditor.actions)

	stored, err := configs.GetActive(ctx, testTenant, "INV")
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, stored.ID)

	// Same (tenant, document type) again is a duplicate.
	err = admin.CreateConfig(ctx, NewNumberingConfig(testTenant, "INV", "Invoice 2", PeriodMonthLong))
	require.Error(t, err)
}

func TestAdmin_CreateConfig_Invalid(t *testing.T) {
	admin := NewAdminService(newFakeConfigs(), nil)

	cfg := NewNumberingConfig(testTenant, "INV", "Invoice", PeriodFormat("bogus"))
	err := admin.CreateConfig(authedCtx(t), cfg)
	require.Error(t, err)
}

func TestAdmin_UpdateConfig(t *testing.T) {
	cfg := testConfig()
	configs := newFakeConfigs(cfg)
	auditor := &captureAuditor{}
	admin := NewAdminService(configs, auditor)
	ctx := authedCtx(t)

	newLen := 6
	updated, err := admin.UpdateConfig(ctx, testTenant, cfg.ID, UpdateConfigInput{
		SequenceLength: &newLen,
		Version:        cfg.Version,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, updated.SequenceLength)
	assert.Equal(t, "user-7", updated.UpdatedBy)
	assert.Equal(t, []string{AuditActionUpdate}, auditor.actions)
}

func TestAdmin_DeactivateConfig(t *testing.T) {
	cfg := testConfig()
	configs := newFakeConfigs(cfg)
	auditor := &captureAuditor{}
	admin := NewAdminService(configs, auditor)
	ctx := authedCtx(t)

	updated, err := admin.DeactivateConfig(ctx, testTenant, cfg.ID, cfg.Version)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, []string{AuditActionDeactivate}, auditor.actions)

	// The generator stops seeing the config.
	_, err = configs.GetActive(ctx, testTenant, "PO")
	require.Error(t, err)
}
