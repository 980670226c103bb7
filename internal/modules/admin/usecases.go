// Package admin holds the research-staff operations over participants:
// listing, inspection, activation, deletion, aggregate counts and export.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/studyflow-backend/internal/data/repos"
	types "github.com/yungbote/studyflow-backend/internal/domain"
	"github.com/yungbote/studyflow-backend/internal/domain/study"
	"github.com/yungbote/studyflow-backend/internal/modules/study/reminders"
	"github.com/yungbote/studyflow-backend/internal/platform/clock"
	"github.com/yungbote/studyflow-backend/internal/platform/dbctx"
	"github.com/yungbote/studyflow-backend/internal/platform/logger"
)

// SweepRunner is the reminder scheduler as seen by admins.
type SweepRunner interface {
	RunOnce(ctx context.Context) (*reminders.Report, error)
}

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger
	Cal *clock.Calendar

	Users      repos.UserRepo
	Tokens     repos.UserTokenRepo
	Progress   repos.ProgressRepo
	Responses  repos.ResponseRepo
	Deliveries repos.ReminderDeliveryRepo

	Sweep SweepRunner
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	deps.Log = deps.Log.With("service", "AdminUsecases")
	return Usecases{deps: deps}
}

type ProgressSummary struct {
	CurrentPhase        study.Phase `json:"current_phase"`
	TrainingDay         int         `json:"training_day"`
	BaselineDate        clock.Date  `json:"baseline_date"`
	Offset              *int        `json:"offset,omitempty"`
	CompletedCount      int         `json:"completed_count"`
	AccountActive       bool        `json:"account_active"`
	Completed           bool        `json:"completed"`
	Version             int64       `json:"version"`
	CompletedActivities []string    `json:"completed_activities,omitempty"`
}

type UserSummary struct {
	ID              uuid.UUID        `json:"id"`
	Email           string           `json:"email"`
	FirstName       string           `json:"first_name"`
	LastName        string           `json:"last_name"`
	Role            string           `json:"role"`
	StimulusVersion int              `json:"stimulus_version"`
	CreatedAt       time.Time        `json:"created_at"`
	Progress        *ProgressSummary `json:"progress,omitempty"`
}

type UserPage struct {
	Users  []UserSummary `json:"users"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type UserDetail struct {
	UserSummary
	Responses []*study.Response `json:"responses"`
}

type ListUsersInput struct {
	Role   string
	Query  string
	Limit  int
	Offset int
}

func (u Usecases) summarize(usr *types.User, p *study.Progress, today clock.Date, withKeys bool) UserSummary {
	s := UserSummary{
		ID:              usr.ID,
		Email:           usr.Email,
		FirstName:       usr.FirstName,
		LastName:        usr.LastName,
		Role:            usr.Role,
		StimulusVersion: usr.StimulusVersion,
		CreatedAt:       usr.CreatedAt,
	}
	if p == nil {
		return s
	}
	ps := &ProgressSummary{
		CurrentPhase:   p.CurrentPhase,
		TrainingDay:    p.TrainingDay,
		BaselineDate:   p.BaselineDate,
		CompletedCount: len(p.Completed),
		AccountActive:  p.AccountActive,
		Completed:      p.CompletedFlag,
		Version:        p.Version,
	}
	if p.HasBaseline() {
		off := u.deps.Cal.DaysBetween(p.BaselineDate, today)
		ps.Offset = &off
	}
	if withKeys {
		ps.CompletedActivities = p.Completed.Keys()
	}
	s.Progress = ps
	return s
}

func (u Usecases) ListUsers(ctx context.Context, in ListUsersInput) (*UserPage, error) {
	dbc := dbctx.Context{Ctx: ctx}
	users, total, err := u.deps.Users.List(dbc, repos.UserListFilter{
		Role:   strings.TrimSpace(in.Role),
		Query:  strings.TrimSpace(in.Query),
		Limit:  in.Limit,
		Offset: in.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(users))
	for _, usr := range users {
		ids = append(ids, usr.ID)
	}
	rows, err := u.deps.Progress.GetByUserIDs(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	byUser := make(map[uuid.UUID]*study.Progress, len(rows))
	for _, p := range rows {
		byUser[p.UserID] = p
	}

	today := u.deps.Cal.Today()
	page := &UserPage{Users: make([]UserSummary, 0, len(users)), Total: total, Limit: in.Limit, Offset: in.Offset}
	for _, usr := range users {
		page.Users = append(page.Users, u.summarize(usr, byUser[usr.ID], today, false))
	}
	return page, nil
}

func (u Usecases) loadUser(dbc dbctx.Context, userID uuid.UUID) (*types.User, error) {
	users, err := u.deps.Users.GetByIDs(dbc, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user %s: %w", userID, types.ErrNotFound)
	}
	return users[0], nil
}

func (u Usecases) GetUser(ctx context.Context, userID uuid.UUID) (*UserDetail, error) {
	dbc := dbctx.Context{Ctx: ctx}
	usr, err := u.loadUser(dbc, userID)
	if err != nil {
		return nil, err
	}
	p, err := u.deps.Progress.GetByUserID(dbc, userID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	responses, err := u.deps.Responses.List(dbc, repos.ResponseFilter{UserIDs: []uuid.UUID{userID}})
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}
	return &UserDetail{
		UserSummary: u.summarize(usr, p, u.deps.Cal.Today(), true),
		Responses:   responses,
	}, nil
}

// SetActive flips accountActive. Inactive participants are refused by the
// gate and skipped by the reminder sweep; nothing else about their state
// changes.
func (u Usecases) SetActive(ctx context.Context, userID uuid.UUID, active bool) (*UserSummary, error) {
	dbc := dbctx.Context{Ctx: ctx}
	usr, err := u.loadUser(dbc, userID)
	if err != nil {
		return nil, err
	}
	p, err := u.deps.Progress.SetAccountActive(dbc, userID, active)
	if err != nil {
		return nil, err
	}
	u.deps.Log.Info("Account activity changed", "user_id", userID, "active", active)
	s := u.summarize(usr, p, u.deps.Cal.Today(), false)
	return &s, nil
}

// DeleteUser removes the participant and everything keyed to them in one
// transaction.
func (u Usecases) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	err := u.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := u.loadUser(dbc, userID); err != nil {
			return err
		}
		ids := []uuid.UUID{userID}
		if err := u.deps.Responses.FullDeleteByUserIDs(dbc, ids); err != nil {
			return fmt.Errorf("delete responses: %w", err)
		}
		if err := u.deps.Deliveries.FullDeleteByUserIDs(dbc, ids); err != nil {
			return fmt.Errorf("delete reminder log: %w", err)
		}
		if err := u.deps.Tokens.FullDeleteByUserIDs(dbc, ids); err != nil {
			return fmt.Errorf("delete tokens: %w", err)
		}
		if err := u.deps.Progress.FullDeleteByUserIDs(dbc, ids); err != nil {
			return fmt.Errorf("delete progress: %w", err)
		}
		if err := u.deps.Users.FullDeleteByIDs(dbc, ids); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	u.deps.Log.Info("User deleted", "user_id", userID)
	return nil
}

type Stats struct {
	Participants       int64                 `json:"participants"`
	Active             int64                 `json:"active"`
	ByPhase            map[study.Phase]int64 `json:"by_phase"`
	ResponsesByPhase   map[study.Phase]int64 `json:"responses_by_phase"`
	RemindersSentToday int64                 `json:"reminders_sent_today"`
}

// Stats aggregates counts by phase. The queries are independent and run
// concurrently.
func (u Usecases) Stats(ctx context.Context) (*Stats, error) {
	out := &Stats{}
	today := u.deps.Cal.Today()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := u.deps.Users.CountByRole(dbctx.Context{Ctx: gctx}, types.RoleParticipant)
		out.Participants = n
		return err
	})
	g.Go(func() error {
		n, err := u.deps.Progress.CountActive(dbctx.Context{Ctx: gctx})
		out.Active = n
		return err
	})
	g.Go(func() error {
		m, err := u.deps.Progress.CountByPhase(dbctx.Context{Ctx: gctx})
		out.ByPhase = m
		return err
	})
	g.Go(func() error {
		m, err := u.deps.Responses.CountByPhase(dbctx.Context{Ctx: gctx})
		out.ResponsesByPhase = m
		return err
	})
	g.Go(func() error {
		rows, err := u.deps.Deliveries.ListByDate(dbctx.Context{Ctx: gctx}, today)
		for _, r := range rows {
			if r.Status == study.DeliverySent {
				out.RemindersSentToday++
			}
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	if out.ByPhase == nil {
		out.ByPhase = map[study.Phase]int64{}
	}
	seed := func(p study.Phase) {
		if _, ok := out.ByPhase[p]; !ok {
			out.ByPhase[p] = 0
		}
	}
	for _, p := range study.Phases {
		seed(p)
	}
	seed(study.PhaseDone)
	return out, nil
}

// TriggerSweep runs the reminder sweep now, under the same per-day lock as
// the scheduled run.
func (u Usecases) TriggerSweep(ctx context.Context) (*reminders.Report, error) {
	if u.deps.Sweep == nil {
		return nil, fmt.Errorf("reminder sweep not configured: %w", types.ErrInvalidArgument)
	}
	report, err := u.deps.Sweep.RunOnce(ctx)
	if err != nil {
		return nil, err
	}
	u.deps.Log.Info("Manual reminder sweep", "date", report.Date.String(), "sent", report.Sent, "failed", report.Failed, "skipped", report.Skipped)
	return report, nil
}
