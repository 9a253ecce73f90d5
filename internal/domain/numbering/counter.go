package numbering

import (
	"fmt"
	"time"

	"numera/internal/core/id"
)

// CounterKey identifies exactly one independent monotonic counter:
// (tenant, document type, period, prefix1-or-absent, prefix2-or-absent).
// A new period yields a brand-new counter row, never a reset of an
// existing one.
type CounterKey struct {
	TenantID     string
	DocumentType string
	Period       string
	Prefix1      OptionalString
	Prefix2      OptionalString
}

// String renders the key for logs.
func (k CounterKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s/%s",
		k.TenantID, k.DocumentType, k.Period, k.Prefix1, k.Prefix2)
}

// SequenceCounter is one counter row. CurrentValue only ever increases
// within its key; rows are created lazily on first generation and never
// deleted.
type SequenceCounter struct {
	ID           id.ID     `db:"id"`
	TenantID     string    `db:"tenant_id"`
	DocumentType string    `db:"document_type"`
	Period       string    `db:"period"`
	Prefix1      *string   `db:"prefix1"`
	Prefix2      *string   `db:"prefix2"`
	CurrentValue int64     `db:"current_value"`
	LastNumber   *string   `db:"last_number"`
	LastUsedAt   time.Time `db:"last_used_at"`
	CreatedAt    time.Time `db:"created_at"`
}

// Key reconstructs the composite key of the row.
func (c *SequenceCounter) Key() CounterKey {
	return CounterKey{
		TenantID:     c.TenantID,
		DocumentType: c.DocumentType,
		Period:       c.Period,
		Prefix1:      FromPtr(c.Prefix1),
		Prefix2:      FromPtr(c.Prefix2),
	}
}

// CounterAdvance is the result of one atomic increment-or-create:
// the counter row used and the post-increment value, the single source
// of truth for "what number did I get".
type CounterAdvance struct {
	CounterID id.ID
	Value     int64
}
