package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/yungbote/studyflow-backend/internal/modules/study/reminders"
	"github.com/yungbote/studyflow-backend/internal/platform/logger"
)

// sweepTimeout bounds one scheduled reminder run.
const sweepTimeout = 30 * time.Minute

type Sweeper interface {
	RunOnce(ctx context.Context) (*reminders.Report, error)
}

// Scheduler fires the daily reminder sweep on a cron expression evaluated in
// the study timezone.
type Scheduler struct {
	log       *logger.Logger
	scheduler *gocron.Scheduler
	sweep     Sweeper
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewScheduler(log *logger.Logger, loc *time.Location, cronExpr string, sweep Sweeper) (*Scheduler, error) {
	s := gocron.NewScheduler(loc)
	s.SingletonModeAll()
	ctx, cancel := context.WithCancel(context.Background())
	out := &Scheduler{
		log:       log.With("service", "ReminderCron"),
		scheduler: s,
		sweep:     sweep,
		ctx:       ctx,
		cancel:    cancel,
	}
	if _, err := s.Cron(cronExpr).Do(out.run); err != nil {
		cancel()
		return nil, fmt.Errorf("schedule reminders %q: %w", cronExpr, err)
	}
	return out, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(s.ctx, sweepTimeout)
	defer cancel()
	report, err := s.sweep.RunOnce(ctx)
	if err != nil {
		s.log.Error("Scheduled reminder sweep failed", "error", err)
		return
	}
	if failures := report.Err(); failures != nil {
		s.log.Warn("Scheduled reminder sweep had delivery failures", "failed", report.Failed, "error", failures)
	}
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
	if jobs := s.scheduler.Jobs(); len(jobs) > 0 {
		s.log.Info("Reminder sweep scheduled", "next_run", jobs[0].NextRun())
	}
}

// Stop halts future runs and cancels a sweep in progress.
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
}
