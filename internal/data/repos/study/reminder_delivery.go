package study

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/studyflow-backend/internal/domain/study"
	"github.com/yungbote/studyflow-backend/internal/platform/clock"
	"github.com/yungbote/studyflow-backend/internal/platform/dbctx"
	"github.com/yungbote/studyflow-backend/internal/platform/logger"
)

type ReminderDeliveryRepo interface {
	Create(dbc dbctx.Context, rows []*study.ReminderDelivery) ([]*study.ReminderDelivery, error)
	SentOn(dbc dbctx.Context, userID uuid.UUID, day clock.Date) (bool, error)
	ListByDate(dbc dbctx.Context, day clock.Date) ([]*study.ReminderDelivery, error)
	FullDeleteByUserIDs(dbc dbctx.Context, userIDs []uuid.UUID) error
}

type reminderDeliveryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReminderDeliveryRepo(db *gorm.DB, baseLog *logger.Logger) ReminderDeliveryRepo {
	repoLog := baseLog.With("repo", "ReminderDeliveryRepo")
	return &reminderDeliveryRepo{db: db, log: repoLog}
}

func (r *reminderDeliveryRepo) Create(dbc dbctx.Context, rows []*study.ReminderDelivery) ([]*study.ReminderDelivery, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*study.ReminderDelivery{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SentOn reports whether a successful delivery exists for userID on day.
func (r *reminderDeliveryRepo) SentOn(dbc dbctx.Context, userID uuid.UUID, day clock.Date) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&study.ReminderDelivery{}).
		Where("user_id = ? AND sweep_date = ? AND status = ?", userID, day, study.DeliverySent).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *reminderDeliveryRepo) ListByDate(dbc dbctx.Context, day clock.Date) ([]*study.ReminderDelivery, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*study.ReminderDelivery
	if err := transaction.WithContext(dbc.Ctx).
		Where("sweep_date = ?", day).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *reminderDeliveryRepo) FullDeleteByUserIDs(dbc dbctx.Context, userIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(userIDs) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("user_id IN ?", userIDs).
		Delete(&study.ReminderDelivery{}).Error
}
