package app

import (
	"gorm.io/gorm"

	apphttp "github.com/yungbote/studyflow-backend/internal/http"
	httpH "github.com/yungbote/studyflow-backend/internal/http/handlers"
	httpMW "github.com/yungbote/studyflow-backend/internal/http/middleware"
	"github.com/yungbote/studyflow-backend/internal/observability"
	"github.com/yungbote/studyflow-backend/internal/platform/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Auth     *httpH.AuthHandler
	User     *httpH.UserHandler
	Study    *httpH.StudyHandler
	Stimulus *httpH.StimulusHandler
	Admin    *httpH.AdminHandler
}

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

func wireHandlers(log *logger.Logger, db *gorm.DB, svc Services) Handlers {
	log.Info("Wiring handlers...")
	h := Handlers{
		Health: httpH.NewHealthHandler(db),
		Auth:   httpH.NewAuthHandler(svc.Auth),
		User:   httpH.NewUserHandler(svc.User),
		Study:  httpH.NewStudyHandler(svc.Study),
		Admin:  httpH.NewAdminHandler(svc.Admin, svc.Stimulus),
	}
	if svc.Stimulus != nil {
		h.Stimulus = httpH.NewStimulusHandler(svc.Stimulus)
	}
	return h
}

func wireMiddleware(log *logger.Logger, svc Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{Auth: httpMW.NewAuthMiddleware(log, svc.Auth)}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *apphttp.Server {
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:             log,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		Metrics:         metrics,
		HealthHandler:   handlers.Health,
		AuthHandler:     handlers.Auth,
		AuthMiddleware:  middleware.Auth,
		UserHandler:     handlers.User,
		StudyHandler:    handlers.Study,
		StimulusHandler: handlers.Stimulus,
		AdminHandler:    handlers.Admin,
	})
}
