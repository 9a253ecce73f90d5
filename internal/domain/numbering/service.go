package numbering

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"numera/internal/core/apperror"
	"numera/internal/core/id"
	"numera/internal/core/security"
	"numera/pkg/logger"
)

// Clock supplies the current instant. Injected so the period computation
// is deterministic under test.
type Clock func() time.Time

// Generator is the contract document-producing callers depend on.
type Generator interface {
	Generate(ctx context.Context, tenantID string, in GenerateInput) (*GenerateResult, error)
	Preview(ctx context.Context, tenantID string, in PreviewInput) (string, error)
}

// GenerateInput carries one generate call. The caller principal is taken
// from the request context (security.GetUserID).
type GenerateInput struct {
	DocumentType string
	Prefix1      OptionalString
	Prefix2      OptionalString

	// Optional association with the business document, when its id is
	// already known at generation time.
	ReferenceID   OptionalString
	ReferenceKind OptionalString
}

// GenerateResult is the outcome of a successful generation.
type GenerateResult struct {
	DocumentNumber string
	HistoryID      id.ID
}

// PreviewInput carries one preview call.
type PreviewInput struct {
	DocumentType string
	Prefix1      OptionalString
	Prefix2      OptionalString
}

// VoidInput carries one void call.
type VoidInput struct {
	Reason string
}

// LinkInput associates a generated number with its business document.
type LinkInput struct {
	ReferenceID   string
	ReferenceKind string
}

const (
	// maxAdvanceRetries bounds the internal retry of the atomic increment
	// on transient conflicts. Retrying a FAILED increment attempt cannot
	// produce a duplicate; retrying after success could, and never happens.
	maxAdvanceRetries = 3

	advanceRetryInterval = 25 * time.Millisecond
)

// Service is the sequence generator. All state lives in the repositories;
// the service itself holds no counters, so any number of instances can
// run against the same store.
type Service struct {
	configs  ConfigRepository
	counters CounterRepository
	history  HistoryRepository
	clock    Clock
}

// Option configures optional Service behavior.
type Option func(*Service)

// WithClock overrides the wall clock (tests pin the period this way).
func WithClock(clock Clock) Option {
	return func(s *Service) { s.clock = clock }
}

// NewService creates the sequence generator service.
func NewService(configs ConfigRepository, counters CounterRepository, history HistoryRepository, opts ...Option) *Service {
	s := &Service{
		configs:  configs,
		counters: counters,
		history:  history,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ensure compile-time interface compliance.
var _ Generator = (*Service)(nil)

// Generate hands out the next document number for the key derived from
// (tenant, document type, current period, prefixes) and records history.
//
// The counter advance is a single atomic statement; its post-increment
// value is used as-is and never re-read. A history insert failure after
// a successful advance leaves a gap in the audit trail, never a duplicate
// number; the full number is logged for manual recovery in that case.
func (s *Service) Generate(ctx context.Context, tenantID string, in GenerateInput) (*GenerateResult, error) {
	cfg, err := s.configs.GetActive(ctx, tenantID, in.DocumentType)
	if err != nil {
		return nil, err
	}
	if err := validatePrefixes(cfg, in.Prefix1, in.Prefix2); err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	period, err := PeriodLabel(cfg.PeriodFormat, now)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	key := CounterKey{
		TenantID:     tenantID,
		DocumentType: cfg.DocumentType,
		Period:       period,
		Prefix1:      in.Prefix1,
		Prefix2:      in.Prefix2,
	}

	adv, err := s.advance(ctx, key)
	if err != nil {
		return nil, err
	}

	number := FormatNumber(cfg, Components{
		DocumentType: cfg.DocumentType,
		Period:       period,
		Prefix1:      in.Prefix1,
		Prefix2:      in.Prefix2,
		Sequence:     adv.Value,
	})

	rec := &HistoryRecord{
		ID:             id.New(),
		TenantID:       tenantID,
		DocumentType:   cfg.DocumentType,
		DocumentNumber: number,
		Period:         period,
		Prefix1:        in.Prefix1.Ptr(),
		Prefix2:        in.Prefix2.Ptr(),
		Sequence:       adv.Value,
		CounterID:      adv.CounterID,
		ReferenceID:    in.ReferenceID.Ptr(),
		ReferenceKind:  in.ReferenceKind.Ptr(),
		GeneratedBy:    security.GetUserID(ctx),
		GeneratedAt:    now,
	}
	if err := s.history.Insert(ctx, rec); err != nil {
		// The counter already advanced: the number is burned either way.
		// Log everything needed to reconstruct the audit entry by hand.
		logger.Error(ctx, "history insert failed after counter advance",
			"document_number", number,
			"counter_id", adv.CounterID.String(),
			"sequence", adv.Value,
			"key", key.String(),
			"error", err,
		)
		return nil, fmt.Errorf("record history for %s: %w", number, err)
	}

	// Bookkeeping on the counter row; not part of the atomicity contract.
	if err := s.counters.RecordLastNumber(ctx, adv.CounterID, number); err != nil {
		logger.Warn(ctx, "record last number failed",
			"counter_id", adv.CounterID.String(),
			"document_number", number,
			"error", err,
		)
	}

	return &GenerateResult{DocumentNumber: number, HistoryID: rec.ID}, nil
}

// advance runs the atomic increment with a small bounded retry on
// transient conflicts (deadlock, serialization failure). Everything else
// is surfaced immediately.
func (s *Service) advance(ctx context.Context, key CounterKey) (*CounterAdvance, error) {
	var adv *CounterAdvance

	op := func() error {
		a, err := s.counters.IncrementOrCreate(ctx, key)
		if err != nil {
			if apperror.IsConflict(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		adv = a
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(advanceRetryInterval), maxAdvanceRetries),
		ctx,
	)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return adv, nil
}

// Preview formats the number the next Generate call would produce for the
// key, without mutating anything. Best-effort by contract: another caller
// may consume the previewed value immediately after.
func (s *Service) Preview(ctx context.Context, tenantID string, in PreviewInput) (string, error) {
	cfg, err := s.configs.GetActive(ctx, tenantID, in.DocumentType)
	if err != nil {
		return "", err
	}
	if err := validatePrefixes(cfg, in.Prefix1, in.Prefix2); err != nil {
		return "", err
	}

	now := s.clock().UTC()
	period, err := PeriodLabel(cfg.PeriodFormat, now)
	if err != nil {
		return "", apperror.NewInternal(err)
	}

	current, err := s.counters.Current(ctx, CounterKey{
		TenantID:     tenantID,
		DocumentType: cfg.DocumentType,
		Period:       period,
		Prefix1:      in.Prefix1,
		Prefix2:      in.Prefix2,
	})
	if err != nil {
		return "", err
	}

	return FormatNumber(cfg, Components{
		DocumentType: cfg.DocumentType,
		Period:       period,
		Prefix1:      in.Prefix1,
		Prefix2:      in.Prefix2,
		Sequence:     current + 1,
	}), nil
}

// Void flags a generated number as voided. Terminal and idempotent by
// rejection: a second void fails with ALREADY_VOIDED so the caller learns
// their request was redundant. The number stays permanently burned.
func (s *Service) Void(ctx context.Context, tenantID string, historyID id.ID, in VoidInput) (*HistoryRecord, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return nil, apperror.NewValidation("void reason is required").
			WithDetail("field", "reason")
	}
	return s.history.MarkVoided(ctx, tenantID, historyID, security.GetUserID(ctx), in.Reason, s.clock().UTC())
}

// LinkToDocument sets the business document association after the owning
// record's id becomes known (the number is usually generated first).
func (s *Service) LinkToDocument(ctx context.Context, tenantID string, historyID id.ID, in LinkInput) error {
	if strings.TrimSpace(in.ReferenceID) == "" {
		return apperror.NewValidation("reference id is required").
			WithDetail("field", "referenceId")
	}
	if strings.TrimSpace(in.ReferenceKind) == "" {
		return apperror.NewValidation("reference kind is required").
			WithDetail("field", "referenceKind")
	}
	return s.history.SetReference(ctx, tenantID, historyID, in.ReferenceID, in.ReferenceKind)
}

// GetHistory returns one history record scoped by tenant.
func (s *Service) GetHistory(ctx context.Context, tenantID string, historyID id.ID) (*HistoryRecord, error) {
	return s.history.GetByID(ctx, tenantID, historyID)
}

// ListByReference returns all numbers issued for a business document.
func (s *Service) ListByReference(ctx context.Context, tenantID, referenceID string) ([]*HistoryRecord, error) {
	return s.history.ListByReference(ctx, tenantID, referenceID)
}

// ListHistory returns a page of history for a document type.
func (s *Service) ListHistory(ctx context.Context, tenantID, documentType string, limit, offset int) ([]*HistoryRecord, int64, error) {
	return s.history.ListByType(ctx, tenantID, documentType, limit, offset)
}

// validatePrefixes enforces required-ness and slot ordering. The generator
// never enforces specific values: a config's declared default is only a
// suggestion to callers.
func validatePrefixes(cfg *NumberingConfig, p1, p2 OptionalString) error {
	if spec, ok := cfg.Prefix1(); ok && spec.Required && !p1.IsSet() {
		return apperror.NewMissingRequiredPrefix(spec.Label)
	}
	if spec, ok := cfg.Prefix2(); ok && spec.Required && !p2.IsSet() {
		return apperror.NewMissingRequiredPrefix(spec.Label)
	}

	// A lone middle segment must always be prefix1, otherwise formatted
	// numbers stop being parseable back into components.
	if p2.IsSet() && !p1.IsSet() {
		return apperror.NewValidation("prefix2 cannot be supplied without prefix1")
	}

	for name, p := range map[string]OptionalString{"prefix1": p1, "prefix2": p2} {
		if v, ok := p.Get(); ok && strings.Contains(v, cfg.Separator) {
			return apperror.NewValidation("prefix must not contain the separator").
				WithDetail("field", name).
				WithDetail("value", v)
		}
	}

	return nil
}
