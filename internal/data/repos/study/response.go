package study

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/studyflow-backend/internal/domain/study"
	"github.com/yungbote/studyflow-backend/internal/platform/dbctx"
	"github.com/yungbote/studyflow-backend/internal/platform/logger"
)

type ResponseFilter struct {
	UserIDs []uuid.UUID
	Phases  []study.Phase
}

type ResponseRepo interface {
	Create(dbc dbctx.Context, rows []*study.Response) ([]*study.Response, error)
	List(dbc dbctx.Context, filter ResponseFilter) ([]*study.Response, error)
	CountByPhase(dbc dbctx.Context) (map[study.Phase]int64, error)
	FullDeleteByUserIDs(dbc dbctx.Context, userIDs []uuid.UUID) error
}

type responseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResponseRepo(db *gorm.DB, baseLog *logger.Logger) ResponseRepo {
	repoLog := baseLog.With("repo", "ResponseRepo")
	return &responseRepo{db: db, log: repoLog}
}

func (r *responseRepo) Create(dbc dbctx.Context, rows []*study.Response) ([]*study.Response, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*study.Response{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// List returns responses oldest first. An empty filter returns everything.
func (r *responseRepo) List(dbc dbctx.Context, filter ResponseFilter) ([]*study.Response, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(dbc.Ctx).Model(&study.Response{})
	if len(filter.UserIDs) > 0 {
		q = q.Where("user_id IN ?", filter.UserIDs)
	}
	if len(filter.Phases) > 0 {
		q = q.Where("phase IN ?", filter.Phases)
	}

	var results []*study.Response
	if err := q.Order("created_at ASC").Order("id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *responseRepo) CountByPhase(dbc dbctx.Context) (map[study.Phase]int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var rows []struct {
		Phase study.Phase
		N     int64
	}
	if err := transaction.WithContext(dbc.Ctx).
		Model(&study.Response{}).
		Select("phase, COUNT(*) AS n").
		Group("phase").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[study.Phase]int64, len(rows))
	for _, row := range rows {
		out[row.Phase] = row.N
	}
	return out, nil
}

func (r *responseRepo) FullDeleteByUserIDs(dbc dbctx.Context, userIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(userIDs) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("user_id IN ?", userIDs).
		Delete(&study.Response{}).Error
}
