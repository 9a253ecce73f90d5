package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"numera/internal/core/id"
	"numera/internal/core/security"
	"numera/internal/domain/numbering"
)

// CompressionAlgo specifies the compression algorithm used for snapshots.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// ConfigAuditEntry is one recorded configuration change. The full config
// snapshot is stored so any historical number can be explained even after
// the config itself changed.
type ConfigAuditEntry struct {
	ID                 id.ID           `db:"id"`
	TenantID           string          `db:"tenant_id"`
	ConfigID           id.ID           `db:"config_id"`
	DocumentType       string          `db:"document_type"`
	Action             string          `db:"action"`
	UserID             string          `db:"user_id"`
	Snapshot           json.RawMessage `db:"snapshot"`
	SnapshotCompressed []byte          `db:"snapshot_compressed"`
	CompressionAlgo    CompressionAlgo `db:"compression_algo"`
	ConfigVersion      int             `db:"config_version"`
	CreatedAt          time.Time       `db:"created_at"`
}

// ConfigAuditStore persists configuration change snapshots.
// Implements numbering.Auditor.
type ConfigAuditStore struct {
	txManager *TxManager
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder

	// snapshots above this size are stored zstd-compressed
	compressThreshold int
}

// NewConfigAuditStore creates the audit store.
func NewConfigAuditStore(txManager *TxManager) (*ConfigAuditStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &ConfigAuditStore{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 4 * 1024,
	}, nil
}

var _ numbering.Auditor = (*ConfigAuditStore)(nil)

// RecordConfigChange stores a snapshot of the config as it looks after
// the change.
func (s *ConfigAuditStore) RecordConfigChange(ctx context.Context, action string, cfg *numbering.NumberingConfig) error {
	snapshot, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config snapshot: %w", err)
	}

	entry := ConfigAuditEntry{
		ID:              id.New(),
		TenantID:        cfg.TenantID,
		ConfigID:        cfg.ID,
		DocumentType:    cfg.DocumentType,
		Action:          action,
		UserID:          security.GetUserID(ctx),
		Snapshot:        snapshot,
		CompressionAlgo: CompressionNone,
		ConfigVersion:   cfg.Version,
		CreatedAt:       time.Now().UTC(),
	}

	if len(entry.Snapshot) > s.compressThreshold {
		entry.SnapshotCompressed = s.encoder.EncodeAll(entry.Snapshot, nil)
		entry.Snapshot = nil
		entry.CompressionAlgo = CompressionZstd
	}

	sql := `
		INSERT INTO numbering_config_audit (
			id, tenant_id, config_id, document_type, action, user_id,
			snapshot, snapshot_compressed, compression_algo,
			config_version, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	querier := s.txManager.GetQuerier(ctx)
	_, err = querier.Exec(ctx, sql,
		entry.ID, entry.TenantID, entry.ConfigID, entry.DocumentType,
		entry.Action, entry.UserID,
		entry.Snapshot, entry.SnapshotCompressed, entry.CompressionAlgo,
		entry.ConfigVersion, entry.CreatedAt,
	)
	return ClassifyError(err)
}

// GetConfigHistory returns the change trail of one config, newest first.
func (s *ConfigAuditStore) GetConfigHistory(ctx context.Context, tenantID string, configID id.ID, limit int) ([]ConfigAuditEntry, error) {
	sql := `
		SELECT id, tenant_id, config_id, document_type, action, user_id,
		       snapshot, snapshot_compressed, compression_algo,
		       config_version, created_at
		FROM numbering_config_audit
		WHERE tenant_id = $1 AND config_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, tenantID, configID, limit)
	if err != nil {
		return nil, ClassifyError(err)
	}
	defer rows.Close()

	var entries []ConfigAuditEntry
	for rows.Next() {
		var e ConfigAuditEntry
		err := rows.Scan(
			&e.ID, &e.TenantID, &e.ConfigID, &e.DocumentType, &e.Action, &e.UserID,
			&e.Snapshot, &e.SnapshotCompressed, &e.CompressionAlgo,
			&e.ConfigVersion, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		if e.CompressionAlgo == CompressionZstd && len(e.SnapshotCompressed) > 0 {
			decompressed, err := s.decoder.DecodeAll(e.SnapshotCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress snapshot: %w", err)
			}
			e.Snapshot = decompressed
			e.SnapshotCompressed = nil
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
