package user

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/dermatrack-backend/internal/domain"
	"github.com/yungbote/dermatrack-backend/internal/pkg/dbctx"
	"github.com/yungbote/dermatrack-backend/internal/pkg/logger"
)

type UserInfoRepo interface {
	Upsert(dbc dbctx.Context, info *types.UserInfo) (*types.UserInfo, error)
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.UserInfo, error)
	ExistsForUser(dbc dbctx.Context, userID uuid.UUID) (bool, error)
}

type userInfoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserInfoRepo(db *gorm.DB, baseLog *logger.Logger) UserInfoRepo {
	return &userInfoRepo{db: db, log: baseLog.With("repo", "UserInfoRepo")}
}

func (r *userInfoRepo) Upsert(dbc dbctx.Context, info *types.UserInfo) (*types.UserInfo, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if info == nil || info.UserID == uuid.Nil {
		return nil, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"age_group", "sex", "skin_type",
				"acne_duration", "acne_location", "acne_description",
				"medication_allergy", "allergy_reaction_types", "acne_medication_reaction",
				"sensitive_skin", "food_allergy", "allergy_foods", "food_triggers_acne",
				"using_acne_products", "current_products", "stopped_due_to_side_effects",
				"dairy_consumption", "stress_level", "sleep_hours",
				"additional_feelings", "updated_at",
			}),
		}).
		Create(info).Error
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (r *userInfoRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.UserInfo, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var info types.UserInfo
	err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		First(&info).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (r *userInfoRepo) ExistsForUser(dbc dbctx.Context, userID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return false, nil
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.UserInfo{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
