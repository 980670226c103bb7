package study

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/yungbote/studyflow-backend/internal/data/db"
	"github.com/yungbote/studyflow-backend/internal/data/repos"
	"github.com/yungbote/studyflow-backend/internal/domain/study"
	"github.com/yungbote/studyflow-backend/internal/platform/dbctx"
)

// Store persists engine transitions: the progress compare-and-swap and the
// response insert share one transaction.
type Store struct {
	db        *gorm.DB
	progress  repos.ProgressRepo
	responses repos.ResponseRepo
}

func NewStore(db *gorm.DB, progress repos.ProgressRepo, responses repos.ResponseRepo) *Store {
	return &Store{db: db, progress: progress, responses: responses}
}

func (s *Store) Load(ctx context.Context, userID uuid.UUID) (*study.Progress, error) {
	p, err := s.progress.GetByUserID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, dbpkg.MapError(err)
	}
	return p, nil
}

func (s *Store) Commit(ctx context.Context, next *study.Progress, expectedVersion int64, resp *study.Response) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.progress.CompareAndSwap(dbc, next, expectedVersion); err != nil {
			return err
		}
		if resp != nil {
			if _, err := s.responses.Create(dbc, []*study.Response{resp}); err != nil {
				return err
			}
		}
		return nil
	})
	return dbpkg.MapError(err)
}
