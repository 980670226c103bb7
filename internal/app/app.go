package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/studyflow-backend/internal/data/db"
	apphttp "github.com/yungbote/studyflow-backend/internal/http"
	"github.com/yungbote/studyflow-backend/internal/observability"
	"github.com/yungbote/studyflow-backend/internal/platform/envutil"
	"github.com/yungbote/studyflow-backend/internal/platform/logger"
)

type App struct {
	Log       *logger.Logger
	DB        *gorm.DB
	Cfg       Config
	Clients   Clients
	Repos     Repos
	Services  Services
	Server    *apphttp.Server
	Scheduler *Scheduler
	Metrics   *observability.Metrics

	database     *db.Service
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	LoadDotEnv(log)
	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "studyflow",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	metrics := observability.Init(log)

	database, err := db.NewService(log, cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	theDB := database.DB()
	if err := db.AutoMigrateAll(theDB); err != nil {
		_ = database.Close()
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = database.Close()
		log.Sync()
		return nil, err
	}

	repoSet := wireRepos(theDB, log)
	serviceSet, err := wireServices(theDB, log, cfg, repoSet, clients)
	if err != nil {
		clients.Close()
		_ = database.Close()
		log.Sync()
		return nil, err
	}

	var sched *Scheduler
	if cfg.RemindersEnabled {
		sched, err = NewScheduler(log, serviceSet.Calendar.Location(), cfg.ReminderCron, serviceSet.Reminders)
		if err != nil {
			clients.Close()
			_ = database.Close()
			log.Sync()
			return nil, err
		}
	}

	handlerSet := wireHandlers(log, theDB, serviceSet)
	middleware := wireMiddleware(log, serviceSet)
	server := wireServer(log, cfg, handlerSet, middleware, metrics)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        repoSet,
		Services:     serviceSet,
		Server:       server,
		Scheduler:    sched,
		Metrics:      metrics,
		database:     database,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches background work: the reminder cron and pool metrics.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Scheduler != nil {
		a.Scheduler.Start()
	}
	a.Metrics.StartDBCollector(ctx, a.Log, a.DB, 15*time.Second)
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := ":" + a.Cfg.Port
	a.Log.Info("Server listening", "addr", addr)
	return a.Server.Run(addr)
}

// Close drains HTTP, stops background work and releases clients.
func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.Server != nil {
		errs = append(errs, a.Server.Shutdown(ctx))
	}
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.database != nil {
		errs = append(errs, a.database.Close())
	}
	if a.otelShutdown != nil {
		errs = append(errs, a.otelShutdown(ctx))
	}
	if a.Log != nil {
		a.Log.Sync()
	}
	return errors.Join(errs...)
}
