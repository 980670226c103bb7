package app

import (
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/studyflow-backend/internal/data/db"
	"github.com/yungbote/studyflow-backend/internal/platform/envutil"
	"github.com/yungbote/studyflow-backend/internal/platform/logger"
	"github.com/yungbote/studyflow-backend/internal/platform/sendgrid"
)

const defaultJWTSecret = "defaultsecret"

type Config struct {
	Port        string
	Environment string
	Version     string

	DB db.Config

	JWTSecretKey     string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	AdminEmails      []string
	StimulusVersions int

	StudyTimezone   string
	StudyPhasesFile string

	StimulusCacheTTL     time.Duration
	StimulusCacheEntries int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SendGrid sendgrid.Config
	AppURL   string

	RemindersEnabled bool
	ReminderCron     string

	CORSAllowedOrigins []string
}

// LoadDotEnv loads .env into the process environment when present. Existing
// variables win.
func LoadDotEnv(log *logger.Logger) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file loaded", "error", err)
		return
	}
	log.Info("Loaded .env")
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),

		DB: db.ConfigFromEnv(),

		JWTSecretKey:     envutil.String("JWT_SECRET_KEY", defaultJWTSecret),
		AccessTokenTTL:   envutil.Duration("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL:  envutil.Duration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		AdminEmails:      envutil.List("ADMIN_EMAILS"),
		StimulusVersions: envutil.Int("STIMULUS_VERSIONS", 1),

		StudyTimezone:   envutil.String("STUDY_TIMEZONE", ""),
		StudyPhasesFile: envutil.String("STUDY_PHASES_FILE", ""),

		StimulusCacheTTL:     envutil.Duration("STIMULUS_CACHE_TTL", time.Hour),
		StimulusCacheEntries: envutil.Int("STIMULUS_CACHE_ENTRIES", 256),

		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisPassword: envutil.String("REDIS_PASSWORD", ""),
		RedisDB:       envutil.Int("REDIS_DB", 0),

		SendGrid: sendgrid.ConfigFromEnv(),
		AppURL:   envutil.String("APP_URL", "http://localhost:5173"),

		RemindersEnabled: envutil.Bool("REMINDERS_ENABLED", true),
		ReminderCron:     envutil.String("REMINDER_CRON", "0 8 * * *"),

		CORSAllowedOrigins: envutil.List("CORS_ALLOWED_ORIGINS"),
	}
	if cfg.JWTSecretKey == defaultJWTSecret {
		log.Warn("JWT_SECRET_KEY not set, using the development default")
	}
	if cfg.StimulusVersions < 1 {
		log.Warn("STIMULUS_VERSIONS must be positive, using 1", "value", cfg.StimulusVersions)
		cfg.StimulusVersions = 1
	}
	return cfg
}
