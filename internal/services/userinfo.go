package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/dermatrack-backend/internal/data/repos"
	types "github.com/yungbote/dermatrack-backend/internal/domain"
	"github.com/yungbote/dermatrack-backend/internal/pkg/apperr"
	"github.com/yungbote/dermatrack-backend/internal/pkg/ctxutil"
	"github.com/yungbote/dermatrack-backend/internal/pkg/dbctx"
	"github.com/yungbote/dermatrack-backend/internal/pkg/logger"
)

// UserInfoService owns the pre-analysis questionnaire. Answers can be
// resubmitted any number of times before a plan is generated; prompts read
// whatever the latest submission holds.
type UserInfoService interface {
	Submit(ctx context.Context, info *types.UserInfo) (*types.UserInfo, error)
	Get(ctx context.Context) (*types.UserInfo, error)
}

type userInfoService struct {
	db           *gorm.DB
	log          *logger.Logger
	userInfoRepo repos.UserInfoRepo
}

func NewUserInfoService(db *gorm.DB, log *logger.Logger, userInfoRepo repos.UserInfoRepo) UserInfoService {
	return &userInfoService{
		db:           db,
		log:          log.With("service", "UserInfoService"),
		userInfoRepo: userInfoRepo,
	}
}

func (s *userInfoService) Submit(ctx context.Context, info *types.UserInfo) (*types.UserInfo, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperr.Newf(apperr.KindUnauthorized, "request data not set in context")
	}
	if info == nil {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "questionnaire payload required")
	}
	info.UserID = rd.UserID
	if info.ID == uuid.Nil {
		info.ID = uuid.New()
	}

	var out *types.UserInfo
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.userInfoRepo.Upsert(dbc, info); err != nil {
			return apperr.Newf(apperr.KindInternal, "upsert user info: %v", err)
		}
		got, err := s.userInfoRepo.GetByUserID(dbc, rd.UserID)
		if err != nil {
			return apperr.Newf(apperr.KindInternal, "reload user info: %v", err)
		}
		out = got
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *userInfoService) Get(ctx context.Context) (*types.UserInfo, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperr.Newf(apperr.KindUnauthorized, "request data not set in context")
	}
	info, err := s.userInfoRepo.GetByUserID(dbctx.Context{Ctx: ctx}, rd.UserID)
	if err != nil {
		return nil, apperr.Newf(apperr.KindInternal, "fetch user info: %v", err)
	}
	if info == nil {
		return nil, apperr.Newf(apperr.KindNotFound, "questionnaire not submitted")
	}
	return info, nil
}
