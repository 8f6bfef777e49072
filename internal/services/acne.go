package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/dermatrack-backend/internal/clients/mlapi"
	"github.com/yungbote/dermatrack-backend/internal/data/repos"
	types "github.com/yungbote/dermatrack-backend/internal/domain"
	"github.com/yungbote/dermatrack-backend/internal/pkg/apperr"
	"github.com/yungbote/dermatrack-backend/internal/pkg/ctxutil"
	"github.com/yungbote/dermatrack-backend/internal/pkg/dbctx"
	"github.com/yungbote/dermatrack-backend/internal/pkg/logger"
	"github.com/yungbote/dermatrack-backend/internal/treatment"
)

// AreaImage is one uploaded image tagged with the body region it shows.
type AreaImage struct {
	Area        string
	Filename    string
	ContentType string
	Data        []byte
}

// AcneService runs the single-pass area analysis: every image goes through
// the classifier, the per-area verdicts are folded into one overall
// severity, and the whole set is stored immutably.
type AcneService interface {
	UploadAreaImages(ctx context.Context, images []AreaImage) (*types.AcneLevelSet, error)
	GetLevels(ctx context.Context) (*types.AcneLevelSet, error)
}

type acneService struct {
	db           *gorm.DB
	log          *logger.Logger
	ml           mlapi.Client
	levelSetRepo repos.AcneLevelSetRepo
}

func NewAcneService(db *gorm.DB, log *logger.Logger, ml mlapi.Client, levelSetRepo repos.AcneLevelSetRepo) AcneService {
	return &acneService{
		db:           db,
		log:          log.With("service", "AcneService"),
		ml:           ml,
		levelSetRepo: levelSetRepo,
	}
}

func (s *acneService) UploadAreaImages(ctx context.Context, images []AreaImage) (*types.AcneLevelSet, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperr.Newf(apperr.KindUnauthorized, "request data not set in context")
	}
	if len(images) == 0 {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "at least one image required")
	}
	seen := map[string]struct{}{}
	for _, img := range images {
		if !types.ValidArea(img.Area) {
			return nil, apperr.Newf(apperr.KindInvalidArgument, "unknown body area %q", img.Area)
		}
		if _, dup := seen[img.Area]; dup {
			return nil, apperr.Newf(apperr.KindInvalidArgument, "duplicate image for area %q", img.Area)
		}
		seen[img.Area] = struct{}{}
		if len(img.Data) == 0 {
			return nil, apperr.Newf(apperr.KindInvalidArgument, "empty image for area %q", img.Area)
		}
	}

	exists, err := s.levelSetRepo.ExistsForUser(dbctx.Context{Ctx: ctx}, rd.UserID)
	if err != nil {
		return nil, apperr.Newf(apperr.KindInternal, "check level set: %v", err)
	}
	if exists {
		return nil, apperr.Newf(apperr.KindConflict, "acne analysis already completed")
	}

	// Classify everything before writing anything: a partial set would be
	// unusable and the analysis is write-once.
	areas := make([]*types.AreaPrediction, 0, len(images))
	verdicts := make([]treatment.Severity, 0, len(images))
	for _, img := range images {
		cls, err := s.ml.Classify(ctx, img.Filename, img.ContentType, img.Data)
		if err != nil {
			return nil, classifierError(img.Area, err)
		}
		verdicts = append(verdicts, treatment.Severity(cls.Prediction))
		probs, err := marshalProbabilities(cls)
		if err != nil {
			return nil, apperr.Newf(apperr.KindInternal, "encode probabilities: %v", err)
		}
		areas = append(areas, &types.AreaPrediction{
			ID:               uuid.New(),
			Area:             img.Area,
			ImageName:        img.Filename,
			ImageURL:         cls.ImageURL,
			Prediction:       cls.Prediction,
			Confidence:       cls.Confidence,
			Probabilities:    probs,
			PredictionID:     cls.PredictionID,
			RawModelResponse: datatypes.JSON(cls.Raw),
		})
	}

	set := &types.AcneLevelSet{
		ID:              uuid.New(),
		UserID:          rd.UserID,
		OverallSeverity: string(treatment.DeriveOverallSeverity(verdicts)),
	}
	created, err := s.levelSetRepo.CreateWithAreas(dbctx.Context{Ctx: ctx}, set, areas)
	if err != nil {
		if errors.Is(err, repos.ErrLevelSetExists) {
			return nil, apperr.Newf(apperr.KindConflict, "acne analysis already completed")
		}
		return nil, apperr.Newf(apperr.KindInternal, "store level set: %v", err)
	}
	created.Areas = make([]types.AreaPrediction, 0, len(areas))
	for _, a := range areas {
		created.Areas = append(created.Areas, *a)
	}
	s.log.Info("Acne analysis stored", "user_id", rd.UserID, "areas", len(areas), "overall", created.OverallSeverity)
	return created, nil
}

func (s *acneService) GetLevels(ctx context.Context) (*types.AcneLevelSet, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperr.Newf(apperr.KindUnauthorized, "request data not set in context")
	}
	set, err := s.levelSetRepo.GetByUserID(dbctx.Context{Ctx: ctx}, rd.UserID)
	if err != nil {
		return nil, apperr.Newf(apperr.KindInternal, "fetch level set: %v", err)
	}
	if set == nil {
		return nil, apperr.Newf(apperr.KindNotFound, "acne analysis not completed")
	}
	return set, nil
}

func marshalProbabilities(cls *mlapi.Classification) (datatypes.JSON, error) {
	b, err := json.Marshal(cls.Probabilities)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func classifierError(area string, err error) error {
	var contractErr *mlapi.ContractError
	if errors.As(err, &contractErr) {
		return apperr.New(apperr.KindUpstreamInvalid, err)
	}
	return apperr.Newf(apperr.KindUpstreamUnavailable, "classify %s: %v", area, err)
}
