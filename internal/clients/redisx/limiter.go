package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yungbote/dermatrack-backend/internal/pkg/logger"
	"github.com/yungbote/dermatrack-backend/internal/utils"
)

// UploadLimiter caps classifier uploads per user per calendar day using a
// redis counter. Fail-open: a redis outage must not block uploads.
type UploadLimiter struct {
	log   *logger.Logger
	rdb   *redis.Client
	limit int
}

func NewUploadLimiter(baseLog *logger.Logger) (*UploadLimiter, error) {
	log := baseLog.With("service", "UploadLimiter")

	addr := utils.GetEnv("REDIS_ADDR", "", baseLog)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	password := utils.GetEnv("REDIS_PASSWORD", "", nil)
	db := utils.GetEnvAsInt("REDIS_DB", 0, baseLog)
	limit := utils.GetEnvAsInt("IMAGE_UPLOAD_LIMIT_PER_DAY", 10, baseLog)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &UploadLimiter{log: log, rdb: rdb, limit: limit}, nil
}

// Allow increments the user's daily counter and reports whether the upload
// is still within the limit.
func (l *UploadLimiter) Allow(ctx context.Context, userID uuid.UUID) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}

	key := fmt.Sprintf("uploads:%s:%s", userID, time.Now().UTC().Format("2006-01-02"))

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		l.log.Warn("Upload limiter unavailable, allowing request", "error", err)
		return true, nil
	}
	if count == 1 {
		// First upload of the day owns the key TTL.
		if err := l.rdb.Expire(ctx, key, 24*time.Hour).Err(); err != nil {
			l.log.Warn("Failed to set limiter key TTL", "key", key, "error", err)
		}
	}
	return count <= int64(l.limit), nil
}

func (l *UploadLimiter) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}
