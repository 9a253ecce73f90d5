package numbering

import (
	"context"
	"time"

	"numera/internal/core/id"
)

// ConfigRepository persists NumberingConfig rows.
// Implementations live in infrastructure/storage/postgres/numbering_repo.
type ConfigRepository interface {
	// GetActive returns the active config for (tenant, document type),
	// or apperror CONFIG_NOT_FOUND.
	GetActive(ctx context.Context, tenantID, documentType string) (*NumberingConfig, error)

	// GetByID returns the config scoped by tenant, or apperror NOT_FOUND.
	GetByID(ctx context.Context, tenantID string, configID id.ID) (*NumberingConfig, error)

	// List returns a page of configs plus the total count for the tenant.
	List(ctx context.Context, tenantID string, limit, offset int) ([]*NumberingConfig, int64, error)

	// Create inserts a new config; apperror DUPLICATE_ENTRY when
	// (tenant, document type) already exists.
	Create(ctx context.Context, cfg *NumberingConfig) error

	// Update saves a config with optimistic locking on Version;
	// apperror CONCURRENT_MODIFICATION on version mismatch.
	Update(ctx context.Context, cfg *NumberingConfig) error
}

// CounterRepository persists sequence counters. The increment is the
// whole concurrency contract of the generator; see IncrementOrCreate.
type CounterRepository interface {
	// IncrementOrCreate advances the counter for the key as ONE atomic
	// unit: find-or-create-then-increment must not be observable as two
	// steps by a concurrent caller. Returns the post-increment value
	// (1 on first use of a key). Transient database conflicts surface
	// as apperror PERSISTENCE_CONFLICT (safe to retry); infrastructure
	// failures as PERSISTENCE_UNAVAILABLE.
	IncrementOrCreate(ctx context.Context, key CounterKey) (*CounterAdvance, error)

	// Current reads the counter value without advancing it; 0 when no
	// row exists yet for the key. Staleness is acceptable (preview path).
	Current(ctx context.Context, key CounterKey) (int64, error)

	// RecordLastNumber stores the last formatted number on the counter
	// row. Best-effort bookkeeping, outside the atomicity contract.
	RecordLastNumber(ctx context.Context, counterID id.ID, number string) error
}

// HistoryRepository persists generation history.
type HistoryRepository interface {
	// Insert stores a new history record (initial state: active).
	Insert(ctx context.Context, rec *HistoryRecord) error

	// GetByID returns the record scoped by tenant, or apperror NOT_FOUND.
	GetByID(ctx context.Context, tenantID string, historyID id.ID) (*HistoryRecord, error)

	// MarkVoided transitions active → voided exactly once and returns the
	// updated record. apperror NOT_FOUND when the record does not exist
	// for the tenant; ALREADY_VOIDED when the first void already happened.
	MarkVoided(ctx context.Context, tenantID string, historyID id.ID, voidedBy, reason string, at time.Time) (*HistoryRecord, error)

	// SetReference associates the record with a business document.
	// apperror NOT_FOUND when the record does not exist for the tenant.
	SetReference(ctx context.Context, tenantID string, historyID id.ID, referenceID, referenceKind string) error

	// ListByReference returns all numbers issued for a business document,
	// newest first.
	ListByReference(ctx context.Context, tenantID, referenceID string) ([]*HistoryRecord, error)

	// ListByType returns a page of records for a document type plus the
	// total count, newest first. Empty documentType lists all types.
	ListByType(ctx context.Context, tenantID, documentType string, limit, offset int) ([]*HistoryRecord, int64, error)
}
