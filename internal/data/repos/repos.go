package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/dermatrack-backend/internal/data/repos/plan"
	"github.com/yungbote/dermatrack-backend/internal/data/repos/prediction"
	"github.com/yungbote/dermatrack-backend/internal/data/repos/user"
	"github.com/yungbote/dermatrack-backend/internal/pkg/logger"
)

type UserRepo = user.UserRepo
type UserTokenRepo = user.UserTokenRepo
type UserInfoRepo = user.UserInfoRepo

type AcneLevelSetRepo = prediction.AcneLevelSetRepo
type ImagePredictionRepo = prediction.ImagePredictionRepo

type TreatmentPlanRepo = plan.TreatmentPlanRepo

var (
	ErrLevelSetExists = prediction.ErrLevelSetExists
	ErrPlanExists     = plan.ErrPlanExists
)

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return user.NewUserTokenRepo(db, baseLog)
}
func NewUserInfoRepo(db *gorm.DB, baseLog *logger.Logger) UserInfoRepo {
	return user.NewUserInfoRepo(db, baseLog)
}

func NewAcneLevelSetRepo(db *gorm.DB, baseLog *logger.Logger) AcneLevelSetRepo {
	return prediction.NewAcneLevelSetRepo(db, baseLog)
}
func NewImagePredictionRepo(db *gorm.DB, baseLog *logger.Logger) ImagePredictionRepo {
	return prediction.NewImagePredictionRepo(db, baseLog)
}

func NewTreatmentPlanRepo(db *gorm.DB, baseLog *logger.Logger) TreatmentPlanRepo {
	return plan.NewTreatmentPlanRepo(db, baseLog)
}
