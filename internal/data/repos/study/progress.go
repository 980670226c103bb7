package study

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/studyflow-backend/internal/domain"
	"github.com/yungbote/studyflow-backend/internal/domain/study"
	"github.com/yungbote/studyflow-backend/internal/platform/dbctx"
	"github.com/yungbote/studyflow-backend/internal/platform/logger"
)

type ProgressRepo interface {
	Create(dbc dbctx.Context, rows []*study.Progress) ([]*study.Progress, error)
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*study.Progress, error)
	GetByUserIDs(dbc dbctx.Context, userIDs []uuid.UUID) ([]*study.Progress, error)
	// CompareAndSwap writes every mutable field of next if the stored
	// version equals expectedVersion, and bumps the version. A stale
	// expectedVersion yields domain.ErrVersionConflict.
	CompareAndSwap(dbc dbctx.Context, next *study.Progress, expectedVersion int64) error
	SetAccountActive(dbc dbctx.Context, userID uuid.UUID, active bool) (*study.Progress, error)
	ListReminderCandidates(dbc dbctx.Context) ([]*study.Progress, error)
	CountByPhase(dbc dbctx.Context) (map[study.Phase]int64, error)
	CountActive(dbc dbctx.Context) (int64, error)
	FullDeleteByUserIDs(dbc dbctx.Context, userIDs []uuid.UUID) error
}

type progressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRepo {
	repoLog := baseLog.With("repo", "ProgressRepo")
	return &progressRepo{db: db, log: repoLog}
}

func (r *progressRepo) Create(dbc dbctx.Context, rows []*study.Progress) ([]*study.Progress, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*study.Progress{}, nil
	}
	for _, p := range rows {
		if p.Completed == nil {
			p.Completed = study.CompletionSet{}
		}
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *progressRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*study.Progress, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var out study.Progress
	err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if out.Completed == nil {
		out.Completed = study.CompletionSet{}
	}
	return &out, nil
}

func (r *progressRepo) GetByUserIDs(dbc dbctx.Context, userIDs []uuid.UUID) ([]*study.Progress, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*study.Progress
	if len(userIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id IN ?", userIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *progressRepo) CompareAndSwap(dbc dbctx.Context, next *study.Progress, expectedVersion int64) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	now := time.Now().UTC()
	res := transaction.WithContext(dbc.Ctx).
		Model(&study.Progress{}).
		Where("user_id = ? AND version = ?", next.UserID, expectedVersion).
		Updates(map[string]any{
			"current_phase":        next.CurrentPhase,
			"training_day_counter": next.TrainingDay,
			"baseline_date":        next.BaselineDate,
			"completed_activities": next.Completed,
			"account_active":       next.AccountActive,
			"completed_flag":       next.CompletedFlag,
			"version":              expectedVersion + 1,
			"updated_at":           now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrVersionConflict
	}
	next.Version = expectedVersion + 1
	next.UpdatedAt = now
	return nil
}

func (r *progressRepo) SetAccountActive(dbc dbctx.Context, userID uuid.UUID, active bool) (*study.Progress, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(dbc.Ctx).
		Model(&study.Progress{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"account_active": active,
			"version":        gorm.Expr("version + 1"),
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByUserID(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, userID)
}

func (r *progressRepo) ListReminderCandidates(dbc dbctx.Context) ([]*study.Progress, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*study.Progress
	if err := transaction.WithContext(dbc.Ctx).
		Where("account_active = ?", true).
		Where("completed_flag = ?", false).
		Where("current_phase <> ?", study.PhaseDone).
		Where("baseline_date IS NOT NULL").
		Order("user_id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *progressRepo) CountByPhase(dbc dbctx.Context) (map[study.Phase]int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var rows []struct {
		CurrentPhase study.Phase
		N            int64
	}
	if err := transaction.WithContext(dbc.Ctx).
		Model(&study.Progress{}).
		Select("current_phase, COUNT(*) AS n").
		Group("current_phase").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[study.Phase]int64, len(rows))
	for _, row := range rows {
		out[row.CurrentPhase] = row.N
	}
	return out, nil
}

func (r *progressRepo) CountActive(dbc dbctx.Context) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&study.Progress{}).
		Where("account_active = ?", true).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *progressRepo) FullDeleteByUserIDs(dbc dbctx.Context, userIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(userIDs) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("user_id IN ?", userIDs).
		Delete(&study.Progress{}).Error
}
