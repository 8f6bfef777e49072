package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/dermatrack-backend/internal/data/repos"
	"github.com/yungbote/dermatrack-backend/internal/pkg/logger"
)

type Repos struct {
	User            repos.UserRepo
	UserToken       repos.UserTokenRepo
	UserInfo        repos.UserInfoRepo
	AcneLevelSet    repos.AcneLevelSetRepo
	ImagePrediction repos.ImagePredictionRepo
	TreatmentPlan   repos.TreatmentPlanRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:            repos.NewUserRepo(db, log),
		UserToken:       repos.NewUserTokenRepo(db, log),
		UserInfo:        repos.NewUserInfoRepo(db, log),
		AcneLevelSet:    repos.NewAcneLevelSetRepo(db, log),
		ImagePrediction: repos.NewImagePredictionRepo(db, log),
		TreatmentPlan:   repos.NewTreatmentPlanRepo(db, log),
	}
}
