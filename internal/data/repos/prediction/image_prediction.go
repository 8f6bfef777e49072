package prediction

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/dermatrack-backend/internal/domain"
	"github.com/yungbote/dermatrack-backend/internal/pkg/dbctx"
	"github.com/yungbote/dermatrack-backend/internal/pkg/logger"
)

type ImagePredictionRepo interface {
	Create(dbc dbctx.Context, preds []*types.ImagePrediction) ([]*types.ImagePrediction, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.ImagePrediction, error)
	ListByUserSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) ([]*types.ImagePrediction, error)
	CountByUserSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (int64, error)
}

type imagePredictionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewImagePredictionRepo(db *gorm.DB, baseLog *logger.Logger) ImagePredictionRepo {
	return &imagePredictionRepo{db: db, log: baseLog.With("repo", "ImagePredictionRepo")}
}

func (r *imagePredictionRepo) Create(dbc dbctx.Context, preds []*types.ImagePrediction) ([]*types.ImagePrediction, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(preds) == 0 {
		return []*types.ImagePrediction{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&preds).Error; err != nil {
		return nil, err
	}
	return preds, nil
}

func (r *imagePredictionRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.ImagePrediction, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ImagePrediction
	if userID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *imagePredictionRepo) ListByUserSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) ([]*types.ImagePrediction, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ImagePrediction
	if userID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *imagePredictionRepo) CountByUserSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return 0, nil
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.ImagePrediction{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
