package numbering

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"numera/internal/core/apperror"
	"numera/internal/core/id"
	"numera/internal/core/security"
)

// --- In-memory fakes ---

type fakeConfigs struct {
	mu   sync.RWMutex
	rows map[string]*NumberingConfig // tenantID + "|" + documentType
}

func newFakeConfigs(cfgs ...*NumberingConfig) *fakeConfigs {
	f := &fakeConfigs{rows: make(map[string]*NumberingConfig)}
	for _, c := range cfgs {
		f.rows[c.TenantID+"|"+c.DocumentType] = c
	}
	return f
}

func (f *fakeConfigs) GetActive(_ context.Context, tenantID, documentType string) (*NumberingConfig, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	cfg, ok := f.rows[tenantID+"|"+documentType]
	if !ok || !cfg.IsActive {
		return nil, apperror.NewConfigNotFound(tenantID, documentType)
	}
	return cfg, nil
}

func (f *fakeConfigs) GetByID(_ context.Context, tenantID string, configID id.ID) (*NumberingConfig, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, cfg := range f.rows {
		if cfg.TenantID == tenantID && cfg.ID == configID {
			return cfg, nil
		}
	}
	return nil, apperror.NewNotFound("numbering_config", configID)
}

func (f *fakeConfigs) List(_ context.Context, tenantID string, _, _ int) ([]*NumberingConfig, int64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []*NumberingConfig
	for _, cfg := range f.rows {
		if cfg.TenantID == tenantID {
			out = append(out, cfg)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeConfigs) Create(_ context.Context, cfg *NumberingConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := cfg.TenantID + "|" + cfg.DocumentType
	if _, ok := f.rows[key]; ok {
		return apperror.NewDuplicate("numbering_config", "document_type", cfg.DocumentType)
	}
	f.rows[key] = cfg
	return nil
}

func (f *fakeConfigs) Update(_ context.Context, cfg *NumberingConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[cfg.TenantID+"|"+cfg.DocumentType] = cfg
	return nil
}

// fakeCounters emulates the single-statement upsert: the whole
// find-or-create-then-increment happens under one lock.
type fakeCounters struct {
	mu   sync.Mutex
	rows map[CounterKey]*SequenceCounter

	// conflictsLeft injects transient PERSISTENCE_CONFLICT failures
	// before increments start succeeding.
	conflictsLeft int
	attempts      int
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{rows: make(map[CounterKey]*SequenceCounter)}
}

func (f *fakeCounters) IncrementOrCreate(_ context.Context, key CounterKey) (*CounterAdvance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.attempts++
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		return nil, apperror.NewPersistenceConflict(errors.New("deadlock detected"))
	}

	row, ok := f.rows[key]
	if !ok {
		row = &SequenceCounter{
			ID:           id.New(),
			TenantID:     key.TenantID,
			DocumentType: key.DocumentType,
			Period:       key.Period,
			Prefix1:      key.Prefix1.Ptr(),
			Prefix2:      key.Prefix2.Ptr(),
		}
		f.rows[key] = row
	}
	row.CurrentValue++
	return &CounterAdvance{CounterID: row.ID, Value: row.CurrentValue}, nil
}

func (f *fakeCounters) Current(_ context.Context, key CounterKey) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[key]; ok {
		return row.CurrentValue, nil
	}
	return 0, nil
}

func (f *fakeCounters) RecordLastNumber(_ context.Context, counterID id.ID, number string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ID == counterID {
			n := number
			row.LastNumber = &n
			return nil
		}
	}
	return apperror.NewNotFound("sequence_counter", counterID)
}

func (f *fakeCounters) rowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeHistory struct {
	mu   sync.Mutex
	rows map[id.ID]*HistoryRecord

	insertErr error
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{rows: make(map[id.ID]*HistoryRecord)}
}

func (f *fakeHistory) Insert(_ context.Context, rec *HistoryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	cp := *rec
	f.rows[rec.ID] = &cp
	return nil
}

func (f *fakeHistory) GetByID(_ context.Context, tenantID string, historyID id.ID) (*HistoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.rows[historyID]
	if !ok || rec.TenantID != tenantID {
		return nil, apperror.NewNotFound("numbering_history", historyID)
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeHistory) MarkVoided(_ context.Context, tenantID string, historyID id.ID, voidedBy, reason string, at time.Time) (*HistoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.rows[historyID]
	if !ok || rec.TenantID != tenantID {
		return nil, apperror.NewNotFound("numbering_history", historyID)
	}
	if rec.Voided {
		return nil, apperror.NewAlreadyVoided(historyID.String())
	}
	rec.Voided = true
	rec.VoidedAt = &at
	rec.VoidedBy = &voidedBy
	rec.VoidReason = &reason
	cp := *rec
	return &cp, nil
}

func (f *fakeHistory) SetReference(_ context.Context, tenantID string, historyID id.ID, referenceID, referenceKind string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.rows[historyID]
	if !ok || rec.TenantID != tenantID {
		return apperror.NewNotFound("numbering_history", historyID)
	}
	rec.ReferenceID = &referenceID
	rec.ReferenceKind = &referenceKind
	return nil
}

func (f *fakeHistory) ListByReference(_ context.Context, tenantID, referenceID string) ([]*HistoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*HistoryRecord
	for _, rec := range f.rows {
		if rec.TenantID == tenantID && rec.ReferenceID != nil && *rec.ReferenceID == referenceID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeHistory) ListByType(_ context.Context, tenantID, documentType string, _, _ int) ([]*HistoryRecord, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*HistoryRecord
	for _, rec := range f.rows {
		if rec.TenantID == tenantID && (documentType == "" || rec.DocumentType == documentType) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

// --- Test setup ---

const testTenant = "tenant-1"

type fixture struct {
	svc      *Service
	configs  *fakeConfigs
	counters *fakeCounters
	history  *fakeHistory
	now      time.Time
}

func newFixture(t *testing.T, cfgs ...*NumberingConfig) *fixture {
	t.Helper()
	f := &fixture{
		configs:  newFakeConfigs(cfgs...),
		counters: newFakeCounters(),
		history:  newFakeHistory(),
		now:      time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.configs, f.counters, f.history, WithClock(func() time.Time { return f.now }))
	return f
}

func authedCtx(t *testing.T) context.Context {
	t.Helper()
	return security.WithUserID(t.Context(), "user-7")
}

// --- Generate ---

func TestGenerate_FormatsAndRecords(t *testing.T) {
	fx := newFixture(t, testConfig())
	ctx := authedCtx(t)

	res, err := fx.svc.Generate(ctx, testTenant, GenerateInput{
		DocumentType: "PO",
		Prefix1:      Some("WH1"),
		Prefix2:      Some("LOCAL"),
	})
	require.NoError(t, err)
	assert.Equal(t, "PO-0125-WH1-LOCAL-0001", res.DocumentNumber)
	require.False(t, id.IsNil(res.HistoryID))

	rec, err := fx.history.GetByID(ctx, testTenant, res.HistoryID)
	require.NoError(t, err)
	assert.Equal(t, "PO", rec.DocumentType)
	assert.Equal(t, "0125", rec.Period)
	assert.Equal(t, int64(1), rec.Sequence)
	assert.Equal(t, "user-7", rec.GeneratedBy)
	assert.False(t, rec.Voided)
	require.NotNil(t, rec.Prefix1)
	assert.Equal(t, "WH1", *rec.Prefix1)

	// Sequential calls on the same key keep counting.
	res2, err := fx.svc.Generate(ctx, testTenant, GenerateInput{
		DocumentType: "PO",
		Prefix1:      Some("WH1"),
		Prefix2:      Some("LOCAL"),
	})
	require.NoError(t, err)
	assert.Equal(t, "PO-0125-WH1-LOCAL-0002", res2.DocumentNumber)
}

func TestGenerate_ConcurrentUniqueness(t *testing.T) {
	fx := newFixture(t, testConfig())
	ctx := authedCtx(t)

	const n = 200
	numbers := make([]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := fx.svc.Generate(ctx, testTenant, GenerateInput{
				DocumentType: "PO",
				Prefix1:      Some("WH1"),
			})
			if err != nil {
				errs[i] = err
				return
			}
			numbers[i] = res.DocumentNumber
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		_, dup := seen[numbers[i]]
		require.False(t, dup, "duplicate number %s", numbers[i])
		seen[numbers[i]] = struct{}{}
	}

	// Every sequence value 1..n handed out exactly once, no gaps.
	for seq := 1; seq <= n; seq++ {
		want := fmt.Sprintf("PO-0125-WH1-%04d", seq)
		_, ok := seen[want]
		assert.True(t, ok, "missing %s", want)
	}
	assert.Equal(t, 1, fx.counters.rowCount())
}

func TestGenerate_IndependentKeys(t *testing.T) {
	fx := newFixture(t, testConfig())
	ctx := authedCtx(t)

	res1, err := fx.svc.Generate(ctx, testTenant, GenerateInput{DocumentType: "PO", Prefix1: Some("WH1")})
	require.NoError(t, err)
	res2, err := fx.svc.Generate(ctx, testTenant, GenerateInput{DocumentType: "PO", Prefix1: Some("WH2")})
	require.NoError(t, err)
	res3, err := fx.svc.Generate(ctx, testTenant, GenerateInput{DocumentType: "PO", Prefix1: Some("WH1"), Prefix2: Some("LOCAL")})
	require.NoError(t, err)

	// Each distinct prefix combination is a separate counter starting at 1.
	assert.Equal(t, "PO-0125-WH1-0001", res1.DocumentNumber)
	assert.Equal(t, "PO-0125-WH2-0001", res2.DocumentNumber)
	assert.Equal(t, "PO-0125-WH1-LOCAL-0001", res3.DocumentNumber)
	assert.Equal(t, 3, fx.counters.rowCount())
}

func TestGenerate_PeriodRollover(t *testing.T) {
	fx := newFixture(t, testConfig())
	ctx := authedCtx(t)

	in := GenerateInput{DocumentType: "PO", Prefix1: Some("WH1")}

	res, err := fx.svc.Generate(ctx, testTenant, in)
	require.NoError(t, err)
	assert.Equal(t, "PO-0125-WH1-0001", res.DocumentNumber)

	// New month: fresh counter, old one untouched.
	fx.now = time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	res, err = fx.svc.Generate(ctx, testTenant, in)
	require.NoError(t, err)
	assert.Equal(t, "PO-0225-WH1-0001", res.DocumentNumber)

	fx.now = time.Date(2025, time.January, 31, 23, 59, 0, 0, time.UTC)
	res, err = fx.svc.Generate(ctx, testTenant, in)
	require.NoError(t, err)
	assert.Equal(t, "PO-0125-WH1-0002", res.DocumentNumber)
}

func TestGenerate_MissingRequiredPrefix(t *testing.T) {
	cfg := testConfig()
	cfg.Prefix1Required = true
	fx := newFixture(t, cfg)

	_, err := fx.svc.Generate(authedCtx(t), testTenant, GenerateInput{DocumentType: "PO"})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeMissingRequiredPrefix, appErr.Code)

	// Validation happens before the counter is touched.
	assert.Equal(t, 0, fx.counters.rowCount())
	assert.Equal(t, 0, fx.counters.attempts)
}

func TestGenerate_Prefix2WithoutPrefix1(t *testing.T) {
	fx := newFixture(t, testConfig())

	_, err := fx.svc.Generate(authedCtx(t), testTenant, GenerateInput{
		DocumentType: "PO",
		Prefix2:      Some("LOCAL"),
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestGenerate_PrefixContainingSeparator(t *testing.T) {
	fx := newFixture(t, testConfig())

	_, err := fx.svc.Generate(authedCtx(t), testTenant, GenerateInput{
		DocumentType: "PO",
		Prefix1:      Some("WH-1"),
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestGenerate_ConfigNotFound(t *testing.T) {
	fx := newFixture(t, testConfig())

	_, err := fx.svc.Generate(authedCtx(t), testTenant, GenerateInput{DocumentType: "INV"})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConfigNotFound, appErr.Code)
}

func TestGenerate_InactiveConfig(t *testing.T) {
	cfg := testConfig()
	cfg.IsActive = false
	fx := newFixture(t, cfg)

	_, err := fx.svc.Generate(authedCtx(t), testTenant, GenerateInput{DocumentType: "PO"})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConfigNotFound, appErr.Code)
}

func TestGenerate_RetriesTransientConflict(t *testing.T) {
	fx := newFixture(t, testConfig())
	fx.counters.conflictsLeft = 2

	res, err := fx.svc.Generate(authedCtx(t), testTenant, GenerateInput{DocumentType: "PO", Prefix1: Some("WH1")})
	require.NoError(t, err)
	assert.Equal(t, "PO-0125-WH1-0001", res.DocumentNumber)
	assert.Equal(t, 3, fx.counters.attempts)
}

func TestGenerate_GivesUpAfterRetryBudget(t *testing.T) {
	fx := newFixture(t, testConfig())
	fx.counters.conflictsLeft = maxAdvanceRetries + 1

	_, err := fx.svc.Generate(authedCtx(t), testTenant, GenerateInput{DocumentType: "PO", Prefix1: Some("WH1")})
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
}

func TestGenerate_HistoryInsertFailureBurnsNumber(t *testing.T) {
	fx := newFixture(t, testConfig())
	fx.history.insertErr = errors.New("connection reset")
	ctx := authedCtx(t)

	in := GenerateInput{DocumentType: "PO", Prefix1: Some("WH1")}
	_, err := fx.svc.Generate(ctx, testTenant, in)
	require.Error(t, err)

	// The counter advanced anyway: the next successful call gets 2, the
	// failed call's number stays burned.
	fx.history.insertErr = nil
	res, err := fx.svc.Generate(ctx, testTenant, in)
	require.NoError(t, err)
	assert.Equal(t, "PO-0125-WH1-0002", res.DocumentNumber)
}

// --- Preview ---

func TestPreview_DoesNotMutate(t *testing.T) {
	fx := newFixture(t, testConfig())
	ctx := authedCtx(t)

	in := PreviewInput{DocumentType: "PO", Prefix1: Some("WH1")}
	for i := 0; i < 50; i++ {
		num, err := fx.svc.Preview(ctx, testTenant, in)
		require.NoError(t, err)
		assert.Equal(t, "PO-0125-WH1-0001", num)
	}
	assert.Equal(t, 0, fx.counters.rowCount())

	// Generation after all those previews still starts at 1.
	res, err := fx.svc.Generate(ctx, testTenant, GenerateInput{DocumentType: "PO", Prefix1: Some("WH1")})
	require.NoError(t, err)
	assert.Equal(t, "PO-0125-WH1-0001", res.DocumentNumber)

	num, err := fx.svc.Preview(ctx, testTenant, in)
	require.NoError(t, err)
	assert.Equal(t, "PO-0125-WH1-0002", num)
}

func TestPreview_EnforcesRequiredPrefix(t *testing.T) {
	cfg := testConfig()
	cfg.Prefix1Required = true
	fx := newFixture(t, cfg)

	_, err := fx.svc.Preview(authedCtx(t), testTenant, PreviewInput{DocumentType: "PO"})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeMissingRequiredPrefix, appErr.Code)
}

// --- Void ---

func TestVoid(t *testing.T) {
	fx := newFixture(t, testConfig())
	ctx := authedCtx(t)

	res, err := fx.svc.Generate(ctx, testTenant, GenerateInput{DocumentType: "PO", Prefix1: Some("WH1")})
	require.NoError(t, err)

	rec, err := fx.svc.Void(ctx, testTenant, res.HistoryID, VoidInput{Reason: "duplicate order"})
	require.NoError(t, err)
	assert.True(t, rec.IsVoided())
	require.NotNil(t, rec.VoidReason)
	assert.Equal(t, "duplicate order", *rec.VoidReason)
	require.NotNil(t, rec.VoidedBy)
	assert.Equal(t, "user-7", *rec.VoidedBy)

	// Second void is rejected, not silently accepted.
	_, err = fx.svc.Void(ctx, testTenant, res.HistoryID, VoidInput{Reason: "again"})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeAlreadyVoided, appErr.Code)

	// The record survives the void; nothing is deleted or renumbered.
	kept, err := fx.svc.GetHistory(ctx, testTenant, res.HistoryID)
	require.NoError(t, err)
	assert.Equal(t, res.DocumentNumber, kept.DocumentNumber)

	// The counter does not rewind: next number continues the sequence.
	next, err := fx.svc.Generate(ctx, testTenant, GenerateInput{DocumentType: "PO", Prefix1: Some("WH1")})
	require.NoError(t, err)
	assert.Equal(t, "PO-0125-WH1-0002", next.DocumentNumber)
}

func TestVoid_RequiresReason(t *testing.T) {
	fx := newFixture(t, testConfig())

	_, err := fx.svc.Void(authedCtx(t), testTenant, id.New(), VoidInput{Reason: "   "})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestVoid_UnknownRecord(t *testing.T) {
	fx := newFixture(t, testConfig())

	_, err := fx.svc.Void(authedCtx(t), testTenant, id.New(), VoidInput{Reason: "typo"})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestVoid_OtherTenantRecordInvisible(t *testing.T) {
	fx := newFixture(t, testConfig())
	ctx := authedCtx(t)

	res, err := fx.svc.Generate(ctx, testTenant, GenerateInput{DocumentType: "PO", Prefix1: Some("WH1")})
	require.NoError(t, err)

	_, err = fx.svc.Void(ctx, "tenant-2", res.HistoryID, VoidInput{Reason: "not mine"})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

// --- LinkToDocument ---

func TestLinkToDocument(t *testing.T) {
	fx := newFixture(t, testConfig())
	ctx := authedCtx(t)

	res, err := fx.svc.Generate(ctx, testTenant, GenerateInput{DocumentType: "PO", Prefix1: Some("WH1")})
	require.NoError(t, err)

	err = fx.svc.LinkToDocument(ctx, testTenant, res.HistoryID, LinkInput{
		ReferenceID:   "order-42",
		ReferenceKind: "purchase_order",
	})
	require.NoError(t, err)

	recs, err := fx.svc.ListByReference(ctx, testTenant, "order-42")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, res.DocumentNumber, recs[0].DocumentNumber)
}

func TestLinkToDocument_Validation(t *testing.T) {
	fx := newFixture(t, testConfig())
	ctx := authedCtx(t)

	err := fx.svc.LinkToDocument(ctx, testTenant, id.New(), LinkInput{ReferenceKind: "purchase_order"})
	require.Error(t, err)

	err = fx.svc.LinkToDocument(ctx, testTenant, id.New(), LinkInput{ReferenceID: "order-42"})
	require.Error(t, err)
}

func TestGenerate_ReferenceKnownUpfront(t *testing.T) {
	fx := newFixture(t, testConfig())
	ctx := authedCtx(t)

	res, err := fx.svc.Generate(ctx, testTenant, GenerateInput{
		DocumentType:  "PO",
		Prefix1:       Some("WH1"),
		ReferenceID:   Some("order-7"),
		ReferenceKind: Some("purchase_order"),
	})
	require.NoError(t, err)

	recs, err := fx.svc.ListByReference(ctx, testTenant, "order-7")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, res.DocumentNumber, recs[0].DocumentNumber)
}
