// Package numbering_repo provides PostgreSQL implementations of the
// numbering repositories. All tables carry tenant_id; isolation is by
// composite keys, not by separate databases.
package numbering_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"numera/internal/core/apperror"
	"numera/internal/core/id"
	"numera/internal/domain/numbering"
	"numera/internal/infrastructure/storage/postgres"
)

const configTable = "numbering_configs"

var configCols = postgres.ExtractDBColumns[numbering.NumberingConfig]()

// ConfigRepo implements numbering.ConfigRepository.
type ConfigRepo struct {
	txManager *postgres.TxManager
}

// NewConfigRepo creates the config repository.
func NewConfigRepo(txManager *postgres.TxManager) *ConfigRepo {
	return &ConfigRepo{txManager: txManager}
}

var _ numbering.ConfigRepository = (*ConfigRepo)(nil)

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *ConfigRepo) GetActive(ctx context.Context, tenantID, documentType string) (*numbering.NumberingConfig, error) {
	q := builder().
		Select(configCols...).
		From(configTable).
		Where(squirrel.Eq{
			"tenant_id":     tenantID,
			"document_type": documentType,
			"is_active":     true,
		}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var cfg numbering.NumberingConfig
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &cfg, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewConfigNotFound(tenantID, documentType)
		}
		return nil, fmt.Errorf("get active config: %w", postgres.ClassifyError(err))
	}
	return &cfg, nil
}

func (r *ConfigRepo) GetByID(ctx context.Context, tenantID string, configID id.ID) (*numbering.NumberingConfig, error) {
	q := builder().
		Select(configCols...).
		From(configTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": configID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var cfg numbering.NumberingConfig
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &cfg, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(configTable, configID.String())
		}
		return nil, fmt.Errorf("get config: %w", postgres.ClassifyError(err))
	}
	return &cfg, nil
}

func (r *ConfigRepo) List(ctx context.Context, tenantID string, limit, offset int) ([]*numbering.NumberingConfig, int64, error) {
	querier := r.txManager.GetQuerier(ctx)

	countSQL, countArgs, err := builder().
		Select("COUNT(*)").
		From(configTable).
		Where(squirrel.Eq{"tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}

	var total int64
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count configs: %w", postgres.ClassifyError(err))
	}

	q := builder().
		Select(configCols...).
		From(configTable).
		Where(squirrel.Eq{"tenant_id": tenantID}).
		OrderBy("document_type ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit)).Offset(uint64(offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var cfgs []*numbering.NumberingConfig
	if err := pgxscan.Select(ctx, querier, &cfgs, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list configs: %w", postgres.ClassifyError(err))
	}
	return cfgs, total, nil
}

func (r *ConfigRepo) Create(ctx context.Context, cfg *numbering.NumberingConfig) error {
	data := postgres.StructToMap(cfg)

	sql, args, err := builder().
		Insert(configTable).
		SetMap(data).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return apperror.NewDuplicate(configTable, "document_type", cfg.DocumentType)
		}
		return fmt.Errorf("insert config: %w", postgres.ClassifyError(err))
	}
	return nil
}

func (r *ConfigRepo) Update(ctx context.Context, cfg *numbering.NumberingConfig) error {
	data := postgres.StructToMap(cfg)
	delete(data, "id")
	delete(data, "tenant_id")
	delete(data, "version")
	delete(data, "created_at")
	delete(data, "created_by")
	data["updated_at"] = squirrel.Expr("now()")

	q := builder().
		Update(configTable).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{
			"tenant_id": cfg.TenantID,
			"id":        cfg.ID,
			"version":   cfg.Version, // optimistic lock: expect current version
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update config: %w", postgres.ClassifyError(err))
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(configTable, cfg.ID)
	}

	cfg.Version++
	return nil
}
