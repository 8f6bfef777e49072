package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/dermatrack-backend/internal/pkg/logger"
	"github.com/yungbote/dermatrack-backend/internal/services"
	"github.com/yungbote/dermatrack-backend/internal/treatment"
)

type Services struct {
	Auth       services.AuthService
	User       services.UserService
	UserInfo   services.UserInfoService
	Acne       services.AcneService
	Prediction services.PredictionService
	Plan       services.PlanService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, clients Clients, reposet Repos) Services {
	log.Info("Wiring services...")

	generator := treatment.NewGenerator(clients.Chat, log)

	return Services{
		Auth: services.NewAuthService(
			db,
			log,
			reposet.User,
			reposet.UserToken,
			cfg.JWTSecretKey,
			cfg.AccessTokenTTL,
			cfg.RefreshTokenTTL,
		),
		User:     services.NewUserService(db, log, reposet.User),
		UserInfo: services.NewUserInfoService(db, log, reposet.UserInfo),
		Acne:     services.NewAcneService(db, log, clients.ML, reposet.AcneLevelSet),
		Prediction: services.NewPredictionService(
			db,
			log,
			clients.ML,
			clients.UploadLimiter,
			reposet.ImagePrediction,
			reposet.UserInfo,
		),
		Plan: services.NewPlanService(
			db,
			log,
			cfg.Plan,
			generator,
			reposet.TreatmentPlan,
			reposet.AcneLevelSet,
			reposet.UserInfo,
		),
	}
}
