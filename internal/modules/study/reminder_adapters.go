package study

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/studyflow-backend/internal/data/repos"
	"github.com/yungbote/studyflow-backend/internal/domain/study"
	"github.com/yungbote/studyflow-backend/internal/modules/study/reminders"
	"github.com/yungbote/studyflow-backend/internal/platform/clock"
	"github.com/yungbote/studyflow-backend/internal/platform/dbctx"
)

// CandidateSource feeds the reminder sweep from the progress and user tables.
type CandidateSource struct {
	Users    repos.UserRepo
	Progress repos.ProgressRepo
}

func (s CandidateSource) ListReminderCandidates(ctx context.Context) ([]reminders.Candidate, error) {
	dbc := dbctx.Context{Ctx: ctx}
	rows, err := s.Progress.ListReminderCandidates(dbc)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, p := range rows {
		ids = append(ids, p.UserID)
	}
	users, err := s.Users.GetByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]int, len(users))
	for i, u := range users {
		byID[u.ID] = i
	}

	out := make([]reminders.Candidate, 0, len(rows))
	for _, p := range rows {
		i, ok := byID[p.UserID]
		if !ok {
			continue
		}
		out = append(out, reminders.Candidate{
			UserID:    p.UserID,
			Email:     users[i].Email,
			FirstName: users[i].FirstName,
			Progress:  p,
		})
	}
	return out, nil
}

// DeliveryLog records sweep outcomes in reminder_deliveries.
type DeliveryLog struct {
	Repo repos.ReminderDeliveryRepo
}

func (l DeliveryLog) SentOn(ctx context.Context, userID uuid.UUID, day clock.Date) (bool, error) {
	return l.Repo.SentOn(dbctx.Context{Ctx: ctx}, userID, day)
}

func (l DeliveryLog) Record(ctx context.Context, d *study.ReminderDelivery) error {
	_, err := l.Repo.Create(dbctx.Context{Ctx: ctx}, []*study.ReminderDelivery{d})
	return err
}
