package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"numera/internal/core/id"
	"numera/internal/domain/numbering"
)

type auditedRow struct {
	ID        id.ID     `db:"id"`
	Version   int       `db:"version"`
	CreatedAt time.Time `db:"created_at"`
}

type counterRow struct {
	auditedRow
	TenantID     string  `db:"tenant_id"`
	DocumentType string  `db:"document_type"`
	Prefix1      *string `db:"prefix1"`
	Internal     string  `db:"-"`
}

func TestExtractDBColumns_EmbeddedFields(t *testing.T) {
	cols := ExtractDBColumns[counterRow]()

	expectedCols := []string{
		"id", "version", "created_at", "tenant_id", "document_type", "prefix1",
	}

	for _, expected := range expectedCols {
		assert.Contains(t, cols, expected)
	}
	assert.NotContains(t, cols, "-")
	assert.NotContains(t, cols, "Internal")
}

func TestExtractDBColumns_NumberingConfig(t *testing.T) {
	cols := ExtractDBColumns[numbering.NumberingConfig]()

	for _, expected := range []string{
		"id", "tenant_id", "document_type", "period_format",
		"prefix1_label", "prefix2_required", "sequence_length",
	} {
		assert.Contains(t, cols, expected)
	}
}

func TestStructToMap_EmbeddedAndPointerFields(t *testing.T) {
	wh := "WH1"
	row := counterRow{
		auditedRow: auditedRow{
			ID:      id.New(),
			Version: 5,
		},
		TenantID:     "tenant-1",
		DocumentType: "PO",
		Prefix1:      &wh,
		Internal:     "dropped",
	}

	m := StructToMap(row)

	assert.Equal(t, row.ID, m["id"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "tenant-1", m["tenant_id"])
	assert.Equal(t, "PO", m["document_type"])
	assert.Equal(t, &wh, m["prefix1"])
	assert.NotContains(t, m, "Internal")
}

func TestStructToMap_NilPointerKeptAsNull(t *testing.T) {
	row := counterRow{
		auditedRow:   auditedRow{ID: id.New(), Version: 1},
		TenantID:     "tenant-1",
		DocumentType: "INV",
	}

	m := StructToMap(row)

	v, ok := m["prefix1"]
	assert.True(t, ok)
	assert.Nil(t, v)
}
