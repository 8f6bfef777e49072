package prediction

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/dermatrack-backend/internal/domain"
	"github.com/yungbote/dermatrack-backend/internal/pkg/dbctx"
	"github.com/yungbote/dermatrack-backend/internal/pkg/logger"
	"github.com/yungbote/dermatrack-backend/internal/pkg/pgerr"
)

// ErrLevelSetExists is returned when a second level set is created for a
// user whose single-pass analysis already ran.
var ErrLevelSetExists = errors.New("acne level set already exists for user")

type AcneLevelSetRepo interface {
	// CreateWithAreas writes the set and its area predictions in one
	// transaction. Returns ErrLevelSetExists when the user already has one.
	CreateWithAreas(dbc dbctx.Context, set *types.AcneLevelSet, areas []*types.AreaPrediction) (*types.AcneLevelSet, error)
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.AcneLevelSet, error)
	ExistsForUser(dbc dbctx.Context, userID uuid.UUID) (bool, error)
}

type acneLevelSetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAcneLevelSetRepo(db *gorm.DB, baseLog *logger.Logger) AcneLevelSetRepo {
	return &acneLevelSetRepo{db: db, log: baseLog.With("repo", "AcneLevelSetRepo")}
}

func (r *acneLevelSetRepo) CreateWithAreas(dbc dbctx.Context, set *types.AcneLevelSet, areas []*types.AreaPrediction) (*types.AcneLevelSet, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if set == nil || set.UserID == uuid.Nil {
		return nil, nil
	}

	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var count int64
		if err := txx.Model(&types.AcneLevelSet{}).
			Where("user_id = ?", set.UserID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrLevelSetExists
		}
		if err := txx.Create(set).Error; err != nil {
			if pgerr.IsDuplicateKey(err) {
				return ErrLevelSetExists
			}
			return err
		}
		for _, a := range areas {
			a.SetID = set.ID
		}
		if len(areas) > 0 {
			if err := txx.Create(&areas).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

func (r *acneLevelSetRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.AcneLevelSet, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var set types.AcneLevelSet
	err := transaction.WithContext(dbc.Ctx).
		Preload("Areas").
		Where("user_id = ?", userID).
		First(&set).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &set, nil
}

func (r *acneLevelSetRepo) ExistsForUser(dbc dbctx.Context, userID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return false, nil
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.AcneLevelSet{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
