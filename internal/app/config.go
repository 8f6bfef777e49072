package app

import (
	"time"

	"github.com/yungbote/dermatrack-backend/internal/pkg/logger"
	"github.com/yungbote/dermatrack-backend/internal/treatment"
	"github.com/yungbote/dermatrack-backend/internal/utils"
)

type Config struct {
	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Plan            treatment.Config
}

func LoadConfig(log *logger.Logger) Config {
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTLSeconds := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	planMode := utils.GetEnv("PLAN_MODE", string(treatment.ModeIncremental), log)
	planMaxDays := utils.GetEnvAsInt("PLAN_MAX_DAYS", 0, log)
	return Config{
		JWTSecretKey:    jwtSecretKey,
		AccessTokenTTL:  time.Duration(accessTokenTTLSeconds) * time.Second,
		RefreshTokenTTL: time.Duration(refreshTokenTTLSeconds) * time.Second,
		Plan:            treatment.NewConfig(treatment.GenerationMode(planMode), planMaxDays),
	}
}
