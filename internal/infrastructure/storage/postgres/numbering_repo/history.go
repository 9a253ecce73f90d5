package numbering_repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"numera/internal/core/apperror"
	"numera/internal/core/id"
	"numera/internal/domain/numbering"
	"numera/internal/infrastructure/storage/postgres"
)

const historyTable = "numbering_history"

var historyCols = postgres.ExtractDBColumns[numbering.HistoryRecord]()

// HistoryRepo implements numbering.HistoryRepository.
type HistoryRepo struct {
	txManager *postgres.TxManager
}

// NewHistoryRepo creates the history repository.
func NewHistoryRepo(txManager *postgres.TxManager) *HistoryRepo {
	return &HistoryRepo{txManager: txManager}
}

var _ numbering.HistoryRepository = (*HistoryRepo)(nil)

func (r *HistoryRepo) Insert(ctx context.Context, rec *numbering.HistoryRecord) error {
	data := postgres.StructToMap(rec)

	sql, args, err := builder().
		Insert(historyTable).
		SetMap(data).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert history: %w", postgres.ClassifyError(err))
	}
	return nil
}

func (r *HistoryRepo) GetByID(ctx context.Context, tenantID string, historyID id.ID) (*numbering.HistoryRecord, error) {
	q := builder().
		Select(historyCols...).
		From(historyTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": historyID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rec numbering.HistoryRecord
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(historyTable, historyID.String())
		}
		return nil, fmt.Errorf("get history: %w", postgres.ClassifyError(err))
	}
	return &rec, nil
}

// MarkVoided is a conditional update: the WHERE NOT voided clause makes
// the transition first-writer-wins under concurrency. When no row comes
// back, a second lookup tells NOT_FOUND apart from ALREADY_VOIDED.
func (r *HistoryRepo) MarkVoided(ctx context.Context, tenantID string, historyID id.ID, voidedBy, reason string, at time.Time) (*numbering.HistoryRecord, error) {
	q := builder().
		Update(historyTable).
		Set("voided", true).
		Set("voided_at", at).
		Set("voided_by", voidedBy).
		Set("void_reason", reason).
		Where(squirrel.Eq{
			"tenant_id": tenantID,
			"id":        historyID,
			"voided":    false,
		}).
		Suffix("RETURNING " + strings.Join(historyCols, ", "))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}

	var rec numbering.HistoryRecord
	querier := r.txManager.GetQuerier(ctx)
	err = pgxscan.Get(ctx, querier, &rec, sql, args...)
	if err == nil {
		return &rec, nil
	}
	if !pgxscan.NotFound(err) && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("void history: %w", postgres.ClassifyError(err))
	}

	// No row updated: either the record is unknown or already voided.
	// The lookup propagates NOT_FOUND; a record that exists but did not
	// match the update was voided before us.
	if _, getErr := r.GetByID(ctx, tenantID, historyID); getErr != nil {
		return nil, getErr
	}
	return nil, apperror.NewAlreadyVoided(historyID.String())
}

func (r *HistoryRepo) SetReference(ctx context.Context, tenantID string, historyID id.ID, referenceID, referenceKind string) error {
	sql, args, err := builder().
		Update(historyTable).
		Set("reference_id", referenceID).
		Set("reference_kind", referenceKind).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": historyID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set reference: %w", postgres.ClassifyError(err))
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(historyTable, historyID.String())
	}
	return nil
}

func (r *HistoryRepo) ListByReference(ctx context.Context, tenantID, referenceID string) ([]*numbering.HistoryRecord, error) {
	q := builder().
		Select(historyCols...).
		From(historyTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "reference_id": referenceID}).
		OrderBy("generated_at DESC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var recs []*numbering.HistoryRecord
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &recs, sql, args...); err != nil {
		return nil, fmt.Errorf("list by reference: %w", postgres.ClassifyError(err))
	}
	return recs, nil
}

func (r *HistoryRepo) ListByType(ctx context.Context, tenantID, documentType string, limit, offset int) ([]*numbering.HistoryRecord, int64, error) {
	where := squirrel.Eq{"tenant_id": tenantID}
	if documentType != "" {
		where["document_type"] = documentType
	}

	querier := r.txManager.GetQuerier(ctx)

	countSQL, countArgs, err := builder().
		Select("COUNT(*)").
		From(historyTable).
		Where(where).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}

	var total int64
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count history: %w", postgres.ClassifyError(err))
	}

	q := builder().
		Select(historyCols...).
		From(historyTable).
		Where(where).
		OrderBy("generated_at DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit)).Offset(uint64(offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var recs []*numbering.HistoryRecord
	if err := pgxscan.Select(ctx, querier, &recs, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list history: %w", postgres.ClassifyError(err))
	}
	return recs, total, nil
}
