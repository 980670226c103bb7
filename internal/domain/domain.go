package domain

import (
	"github.com/yungbote/studyflow-backend/internal/domain/auth"
	"github.com/yungbote/studyflow-backend/internal/domain/study"
	"github.com/yungbote/studyflow-backend/internal/domain/user"
)

type (
	User      = user.User
	UserToken = auth.UserToken

	Progress         = study.Progress
	Response         = study.Response
	ReminderDelivery = study.ReminderDelivery
)

const (
	RoleParticipant = user.RoleParticipant
	RoleAdmin       = user.RoleAdmin
)

// Models is the migration set, in dependency order.
func Models() []any {
	return []any{
		&User{},
		&UserToken{},
		&Progress{},
		&Response{},
		&ReminderDelivery{},
	}
}
