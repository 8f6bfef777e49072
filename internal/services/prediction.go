package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/dermatrack-backend/internal/clients/mlapi"
	"github.com/yungbote/dermatrack-backend/internal/clients/redisx"
	"github.com/yungbote/dermatrack-backend/internal/data/repos"
	types "github.com/yungbote/dermatrack-backend/internal/domain"
	"github.com/yungbote/dermatrack-backend/internal/pkg/apperr"
	"github.com/yungbote/dermatrack-backend/internal/pkg/ctxutil"
	"github.com/yungbote/dermatrack-backend/internal/pkg/dbctx"
	"github.com/yungbote/dermatrack-backend/internal/pkg/logger"
	"github.com/yungbote/dermatrack-backend/internal/treatment"
)

// sessionWindow bounds how far back the session aggregate looks. Uploads
// older than this belong to a previous session.
const sessionWindow = 24 * time.Hour

// PredictionService owns the per-image session model: each upload is
// classified, scored against the questionnaire profile and stored as its
// own history row.
type PredictionService interface {
	UploadImage(ctx context.Context, faceArea, filename, contentType string, image []byte) (*types.ImagePrediction, error)
	History(ctx context.Context, limit, offset int) ([]*types.ImagePrediction, error)
	SessionSummary(ctx context.Context) (*treatment.SessionSummary, error)
}

type predictionService struct {
	db            *gorm.DB
	log           *logger.Logger
	ml            mlapi.Client
	limiter       *redisx.UploadLimiter
	imagePredRepo repos.ImagePredictionRepo
	userInfoRepo  repos.UserInfoRepo
}

func NewPredictionService(
	db *gorm.DB,
	log *logger.Logger,
	ml mlapi.Client,
	limiter *redisx.UploadLimiter,
	imagePredRepo repos.ImagePredictionRepo,
	userInfoRepo repos.UserInfoRepo,
) PredictionService {
	return &predictionService{
		db:            db,
		log:           log.With("service", "PredictionService"),
		ml:            ml,
		limiter:       limiter,
		imagePredRepo: imagePredRepo,
		userInfoRepo:  userInfoRepo,
	}
}

func (s *predictionService) UploadImage(ctx context.Context, faceArea, filename, contentType string, image []byte) (*types.ImagePrediction, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperr.Newf(apperr.KindUnauthorized, "request data not set in context")
	}
	if !types.ValidArea(faceArea) {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "unknown face area %q", faceArea)
	}
	if len(image) == 0 {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "image required")
	}

	allowed, err := s.limiter.Allow(ctx, rd.UserID)
	if err != nil {
		return nil, apperr.Newf(apperr.KindInternal, "upload limiter: %v", err)
	}
	if !allowed {
		return nil, apperr.Newf(apperr.KindConflict, "daily upload limit reached")
	}

	cls, err := s.ml.Classify(ctx, filename, contentType, image)
	if err != nil {
		return nil, classifierError(faceArea, err)
	}

	// Missing questionnaire answers degrade to zero adjustment, they never
	// block an upload.
	signals := treatment.ProfileSignals{}
	if info, err := s.userInfoRepo.GetByUserID(dbctx.Context{Ctx: ctx}, rd.UserID); err == nil && info != nil {
		signals = treatment.ProfileSignals{
			AcneDuration: info.AcneDuration,
			StressLevel:  info.StressLevel,
			SkinType:     info.SkinType,
			SleepHours:   info.SleepHours,
		}
	}
	score, finalSeverity, reason := treatment.ScorePrediction(treatment.Severity(cls.Prediction), signals)

	probs, err := marshalProbabilities(cls)
	if err != nil {
		return nil, apperr.Newf(apperr.KindInternal, "encode probabilities: %v", err)
	}
	pred := &types.ImagePrediction{
		ID:               uuid.New(),
		UserID:           rd.UserID,
		FaceArea:         faceArea,
		ImageURL:         cls.ImageURL,
		Prediction:       cls.Prediction,
		Confidence:       cls.Confidence,
		Probabilities:    probs,
		PredictionID:     cls.PredictionID,
		RawModelResponse: datatypes.JSON(cls.Raw),
		FinalSeverity:    string(finalSeverity),
		SeverityScore:    score,
		AdjustmentReason: reason,
	}
	if _, err := s.imagePredRepo.Create(dbctx.Context{Ctx: ctx}, []*types.ImagePrediction{pred}); err != nil {
		return nil, apperr.Newf(apperr.KindInternal, "store prediction: %v", err)
	}
	s.log.Info("Image prediction stored",
		"user_id", rd.UserID,
		"face_area", faceArea,
		"prediction", cls.Prediction,
		"severity_score", score,
	)
	return pred, nil
}

func (s *predictionService) History(ctx context.Context, limit, offset int) ([]*types.ImagePrediction, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperr.Newf(apperr.KindUnauthorized, "request data not set in context")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.imagePredRepo.ListByUser(dbctx.Context{Ctx: ctx}, rd.UserID, limit, offset)
	if err != nil {
		return nil, apperr.Newf(apperr.KindInternal, "list predictions: %v", err)
	}
	return rows, nil
}

func (s *predictionService) SessionSummary(ctx context.Context) (*treatment.SessionSummary, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperr.Newf(apperr.KindUnauthorized, "request data not set in context")
	}
	rows, err := s.imagePredRepo.ListByUserSince(dbctx.Context{Ctx: ctx}, rd.UserID, time.Now().Add(-sessionWindow))
	if err != nil {
		return nil, apperr.Newf(apperr.KindInternal, "list session predictions: %v", err)
	}
	records := make([]treatment.SessionRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, treatment.SessionRecord{
			SeverityScore: row.SeverityScore,
			FaceArea:      row.FaceArea,
		})
	}
	summary, err := treatment.AggregateSession(records)
	if err != nil {
		if errors.Is(err, treatment.ErrNoPredictions) {
			return nil, apperr.New(apperr.KindNotFound, err)
		}
		return nil, apperr.Newf(apperr.KindInternal, "aggregate session: %v", err)
	}
	return &summary, nil
}
