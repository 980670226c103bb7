// Package reminders runs the daily nudge sweep. It holds no timers: a
// process-level scheduler calls RunOnce once per day, and tests call it
// directly. The sweep never mutates progress.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/studyflow-backend/internal/domain/study"
	"github.com/yungbote/studyflow-backend/internal/observability"
	"github.com/yungbote/studyflow-backend/internal/platform/clock"
	"github.com/yungbote/studyflow-backend/internal/platform/logger"
)

// Candidate is an active, unfinished participant with a baseline.
type Candidate struct {
	UserID    uuid.UUID
	Email     string
	FirstName string
	Progress  *study.Progress
}

// Reminder is what one participant should be nudged about today.
type Reminder struct {
	Kind        study.ReminderKind
	TrainingDay int
	Offset      int
}

type Source interface {
	ListReminderCandidates(ctx context.Context) ([]Candidate, error)
}

type DeliveryLog interface {
	SentOn(ctx context.Context, userID uuid.UUID, day clock.Date) (bool, error)
	Record(ctx context.Context, d *study.ReminderDelivery) error
}

// Notifier delivers one reminder. It is the sendNotification collaborator.
type Notifier interface {
	Notify(ctx context.Context, c Candidate, r Reminder) error
}

// Locker grants one sweep per key across replicas. A nil Locker means the
// process is the only sweeper. Release frees a key so the same day can be
// swept again.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Report summarizes one sweep.
type Report struct {
	Date        clock.Date `json:"date"`
	Skipped     bool       `json:"skipped"`
	Candidates  int        `json:"candidates"`
	Due         int        `json:"due"`
	Sent        int        `json:"sent"`
	Failed      int        `json:"failed"`
	AlreadySent int        `json:"already_sent"`
	Errors      []error    `json:"-"`
}

type Scheduler struct {
	log      *logger.Logger
	cal      *clock.Calendar
	source   Source
	deliver  DeliveryLog
	notifier Notifier
	locker   Locker
	lockTTL  time.Duration
}

type Option func(*Scheduler)

func WithLocker(l Locker, ttl time.Duration) Option {
	return func(s *Scheduler) {
		s.locker = l
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

func New(log *logger.Logger, cal *clock.Calendar, source Source, deliveries DeliveryLog, notifier Notifier, opts ...Option) *Scheduler {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Scheduler{
		log:      log.With("service", "ReminderScheduler"),
		cal:      cal,
		source:   source,
		deliver:  deliveries,
		notifier: notifier,
		lockTTL:  23 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plan decides the reminder for state on today. Days 0-3 after baseline nudge
// for training day offset+1 whatever the counter says; day 4 nudges for
// posttest1. Nothing else is reminded.
func Plan(cal *clock.Calendar, state *study.Progress, today clock.Date) (Reminder, bool) {
	if state == nil || !state.AccountActive || state.IsDone() || !state.HasBaseline() {
		return Reminder{}, false
	}
	offset := cal.DaysBetween(state.BaselineDate, today)
	switch {
	case offset >= 0 && offset < study.TrainingDays:
		return Reminder{Kind: study.ReminderTraining, TrainingDay: offset + 1, Offset: offset}, true
	case offset == study.TrainingDays:
		return Reminder{Kind: study.ReminderPosttest1, Offset: offset}, true
	}
	return Reminder{}, false
}

// RunOnce sweeps every candidate for today. A failed delivery is logged,
// recorded and skipped; only a failure to list candidates aborts the sweep.
// The day's lock is kept only by a sweep that finished with no failures, so
// an aborted or partly failed sweep can be retried the same day.
func (s *Scheduler) RunOnce(ctx context.Context) (report *Report, err error) {
	today := s.cal.Today()
	report = &Report{Date: today}

	if s.locker != nil {
		key := "studyflow:reminders:" + today.String()
		ok, lerr := s.locker.Acquire(ctx, key, s.lockTTL)
		switch {
		case lerr != nil:
			s.log.Warn("Reminder lock unavailable, sweeping without it", "error", lerr)
		case !ok:
			s.log.Info("Reminder sweep already claimed", "date", today.String())
			report.Skipped = true
			observability.Current().ObserveSweep("skipped")
			return report, nil
		default:
			defer func() {
				if err == nil && report.Failed == 0 {
					return
				}
				if rerr := s.locker.Release(context.WithoutCancel(ctx), key); rerr != nil {
					s.log.Warn("Failed to release reminder lock", "date", today.String(), "error", rerr)
				}
			}()
		}
	}

	candidates, err := s.source.ListReminderCandidates(ctx)
	if err != nil {
		observability.Current().ObserveSweep("failed")
		return nil, fmt.Errorf("list reminder candidates: %w", err)
	}
	report.Candidates = len(candidates)

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		r, due := Plan(s.cal, c.Progress, today)
		if !due {
			continue
		}
		report.Due++

		sent, err := s.deliver.SentOn(ctx, c.UserID, today)
		if err != nil {
			s.log.Warn("Delivery log lookup failed", "user_id", c.UserID, "error", err)
		} else if sent {
			report.AlreadySent++
			continue
		}

		rec := &study.ReminderDelivery{
			UserID:      c.UserID,
			SweepDate:   today,
			Kind:        r.Kind,
			TrainingDay: r.TrainingDay,
			Status:      study.DeliverySent,
		}
		if err := s.notifier.Notify(ctx, c, r); err != nil {
			nerr := &study.NotificationDeliveryError{UserID: c.UserID, Kind: r.Kind, Err: err}
			s.log.Error("Reminder delivery failed", "user_id", c.UserID, "kind", r.Kind, "error", err)
			report.Failed++
			report.Errors = append(report.Errors, nerr)
			rec.Status = study.DeliveryFailed
			rec.Error = err.Error()
		} else {
			report.Sent++
		}
		observability.Current().ObserveReminder(string(r.Kind), string(rec.Status))
		if err := s.deliver.Record(ctx, rec); err != nil {
			s.log.Warn("Failed to record reminder delivery", "user_id", c.UserID, "error", err)
		}
	}

	observability.Current().ObserveSweep("completed")
	s.log.Info("Reminder sweep finished",
		"date", today.String(),
		"candidates", report.Candidates,
		"due", report.Due,
		"sent", report.Sent,
		"failed", report.Failed,
		"already_sent", report.AlreadySent,
	)
	return report, nil
}

// Err joins the per-participant delivery failures, or nil.
func (r *Report) Err() error {
	if r == nil || len(r.Errors) == 0 {
		return nil
	}
	return errors.Join(r.Errors...)
}
