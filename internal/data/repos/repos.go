package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/studyflow-backend/internal/data/repos/auth"
	"github.com/yungbote/studyflow-backend/internal/data/repos/study"
	"github.com/yungbote/studyflow-backend/internal/data/repos/user"
	"github.com/yungbote/studyflow-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type UserListFilter = user.ListFilter
type UserTokenRepo = auth.UserTokenRepo

type ProgressRepo = study.ProgressRepo
type ResponseRepo = study.ResponseRepo
type ResponseFilter = study.ResponseFilter
type ReminderDeliveryRepo = study.ReminderDeliveryRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return auth.NewUserTokenRepo(db, baseLog)
}

func NewProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRepo {
	return study.NewProgressRepo(db, baseLog)
}
func NewResponseRepo(db *gorm.DB, baseLog *logger.Logger) ResponseRepo {
	return study.NewResponseRepo(db, baseLog)
}
func NewReminderDeliveryRepo(db *gorm.DB, baseLog *logger.Logger) ReminderDeliveryRepo {
	return study.NewReminderDeliveryRepo(db, baseLog)
}
