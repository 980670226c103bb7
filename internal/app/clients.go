package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/studyflow-backend/internal/platform/gcp"
	"github.com/yungbote/studyflow-backend/internal/platform/logger"
	"github.com/yungbote/studyflow-backend/internal/platform/sendgrid"
	"github.com/yungbote/studyflow-backend/internal/platform/stimuluscache"
)

type Clients struct {
	// Redis is nil when REDIS_ADDR is unset.
	Redis goredis.UniversalClient
	// Bucket is nil when no stimulus bucket is configured.
	Bucket        gcp.StimulusBucket
	StimulusCache stimuluscache.Cache
	// Mailer is nil when SENDGRID_API_KEY is unset.
	Mailer sendgrid.Client
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			DialTimeout: 5 * time.Second,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("redis ping: %w", err)
		}
		out.Redis = rdb
		out.StimulusCache = stimuluscache.NewRedis(rdb, cfg.StimulusCacheTTL)
	} else {
		log.Warn("REDIS_ADDR not set; using in-process stimulus cache and no sweep lock")
		out.StimulusCache = stimuluscache.NewMemory(cfg.StimulusCacheTTL, cfg.StimulusCacheEntries)
	}

	// Gcs
	bucket, err := resolveStimulusBucket(log)
	switch {
	case err == nil:
		out.Bucket = bucket
	case storageProviderBootstrapErrorCode(err) == StorageProviderBootstrapErrorMissingBucket:
		log.Warn("STIMULUS_GCS_BUCKET_NAME not set; stimulus routes disabled")
	default:
		out.Close()
		return Clients{}, err
	}

	// SendGrid
	if cfg.SendGrid.APIKey != "" {
		mailer, err := sendgrid.New(log, cfg.SendGrid)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init sendgrid client: %w", err)
		}
		out.Mailer = mailer
	} else {
		log.Warn("SENDGRID_API_KEY not set; reminders will be logged instead of emailed")
	}

	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Bucket != nil {
		_ = c.Bucket.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
