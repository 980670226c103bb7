package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/studyflow-backend/internal/http/handlers"
	httpMW "github.com/yungbote/studyflow-backend/internal/http/middleware"
	"github.com/yungbote/studyflow-backend/internal/observability"
	"github.com/yungbote/studyflow-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	Metrics        *observability.Metrics

	AuthHandler    *httpH.AuthHandler
	AuthMiddleware *httpMW.AuthMiddleware
	UserHandler    *httpH.UserHandler

	StudyHandler    *httpH.StudyHandler
	StimulusHandler *httpH.StimulusHandler
	AdminHandler    *httpH.AdminHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "studyflow"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/register", cfg.AuthHandler.Register)
			api.POST("/login", cfg.AuthHandler.Login)
			api.POST("/refresh", cfg.AuthHandler.Refresh)
		}
	}

	protected := api.Group("")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		if cfg.AuthHandler != nil {
			protected.POST("/logout", cfg.AuthHandler.Logout)
		}

		// User (Me)
		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
			protected.PATCH("/me/name", cfg.UserHandler.ChangeName)
		}

		// Study
		if cfg.StudyHandler != nil {
			protected.GET("/protocol", cfg.StudyHandler.Protocol)
			protected.GET("/progress", cfg.StudyHandler.GetProgress)
			protected.GET("/eligibility", cfg.StudyHandler.Eligibility)
			protected.POST("/activities", cfg.StudyHandler.SubmitActivity)
		}

		if cfg.StimulusHandler != nil {
			protected.GET("/stimuli/:testType/:sentence", cfg.StimulusHandler.Get)
		}
	}

	admin := protected.Group("/admin")
	if cfg.AuthMiddleware != nil {
		admin.Use(cfg.AuthMiddleware.RequireAdmin())
	}
	if cfg.AdminHandler != nil {
		admin.GET("/users", cfg.AdminHandler.ListUsers)
		admin.GET("/users/:id", cfg.AdminHandler.GetUser)
		admin.PATCH("/users/:id/active", cfg.AdminHandler.SetActive)
		admin.DELETE("/users/:id", cfg.AdminHandler.DeleteUser)
		admin.GET("/stats", cfg.AdminHandler.Stats)
		admin.GET("/export", cfg.AdminHandler.Export)
		admin.POST("/reminders/run", cfg.AdminHandler.RunReminders)
		admin.GET("/stimuli/:testType/:version", cfg.AdminHandler.ListStimuli)
		admin.PUT("/stimuli/:testType/:version/:sentence", cfg.AdminHandler.UploadStimulus)
	}

	return r
}
