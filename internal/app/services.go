package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/studyflow-backend/internal/modules/admin"
	studymod "github.com/yungbote/studyflow-backend/internal/modules/study"
	"github.com/yungbote/studyflow-backend/internal/modules/study/gate"
	"github.com/yungbote/studyflow-backend/internal/modules/study/phases"
	"github.com/yungbote/studyflow-backend/internal/modules/study/reminders"
	"github.com/yungbote/studyflow-backend/internal/platform/clock"
	"github.com/yungbote/studyflow-backend/internal/platform/logger"
	"github.com/yungbote/studyflow-backend/internal/services"
)

type Services struct {
	Calendar *clock.Calendar
	Phases   *phases.Config

	Auth     services.AuthService
	User     services.UserService
	Stimulus services.StimulusService

	Study     studymod.Usecases
	Admin     admin.Usecases
	Reminders *reminders.Scheduler
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repoSet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	cal, err := clock.LoadCalendar(cfg.StudyTimezone, clock.System{})
	if err != nil {
		return Services{}, err
	}
	phaseCfg, err := phases.Load(cfg.StudyPhasesFile)
	if err != nil {
		return Services{}, fmt.Errorf("load study phases: %w", err)
	}
	g := gate.New(phaseCfg, cal)

	var notifier reminders.Notifier
	if clients.Mailer != nil {
		notifier = services.NewEmailNotifier(log, clients.Mailer, cfg.AppURL)
	} else {
		notifier = services.NewLogNotifier(log)
	}
	var opts []reminders.Option
	if clients.Redis != nil {
		opts = append(opts, reminders.WithLocker(reminders.NewRedisLocker(clients.Redis), 0))
	}
	sweep := reminders.New(log, cal,
		studymod.CandidateSource{Users: repoSet.User, Progress: repoSet.Progress},
		studymod.DeliveryLog{Repo: repoSet.ReminderDelivery},
		notifier,
		opts...,
	)

	out := Services{
		Calendar: cal,
		Phases:   phaseCfg,
		Auth: services.NewAuthService(db, log, repoSet.User, repoSet.UserToken, repoSet.Progress, services.AuthConfig{
			JWTSecretKey:     cfg.JWTSecretKey,
			AccessTTL:        cfg.AccessTokenTTL,
			RefreshTTL:       cfg.RefreshTokenTTL,
			AdminEmails:      cfg.AdminEmails,
			StimulusVersions: cfg.StimulusVersions,
		}),
		User: services.NewUserService(db, log, repoSet.User),
		Study: studymod.New(studymod.UsecasesDeps{
			DB:        db,
			Log:       log,
			Phases:    phaseCfg,
			Gate:      g,
			Progress:  repoSet.Progress,
			Responses: repoSet.Response,
		}),
		Admin: admin.New(admin.UsecasesDeps{
			DB:         db,
			Log:        log,
			Cal:        cal,
			Users:      repoSet.User,
			Tokens:     repoSet.UserToken,
			Progress:   repoSet.Progress,
			Responses:  repoSet.Response,
			Deliveries: repoSet.ReminderDelivery,
			Sweep:      sweep,
		}),
		Reminders: sweep,
	}
	if clients.Bucket != nil {
		out.Stimulus = services.NewStimulusService(log, clients.Bucket, clients.StimulusCache, repoSet.User)
	}
	return out, nil
}
