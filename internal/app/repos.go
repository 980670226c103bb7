package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/studyflow-backend/internal/data/repos"
	"github.com/yungbote/studyflow-backend/internal/platform/logger"
)

type Repos struct {
	User             repos.UserRepo
	UserToken        repos.UserTokenRepo
	Progress         repos.ProgressRepo
	Response         repos.ResponseRepo
	ReminderDelivery repos.ReminderDeliveryRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:             repos.NewUserRepo(db, log),
		UserToken:        repos.NewUserTokenRepo(db, log),
		Progress:         repos.NewProgressRepo(db, log),
		Response:         repos.NewResponseRepo(db, log),
		ReminderDelivery: repos.NewReminderDeliveryRepo(db, log),
	}
}
