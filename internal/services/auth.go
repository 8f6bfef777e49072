package services

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/dermatrack-backend/internal/data/repos"
	types "github.com/yungbote/dermatrack-backend/internal/domain"
	"github.com/yungbote/dermatrack-backend/internal/pkg/apperr"
	"github.com/yungbote/dermatrack-backend/internal/pkg/ctxutil"
	"github.com/yungbote/dermatrack-backend/internal/pkg/dbctx"
	"github.com/yungbote/dermatrack-backend/internal/pkg/logger"
)

type JWTClaims struct {
	jwt.RegisteredClaims
}

type AuthService interface {
	RegisterUser(ctx context.Context, user *types.User) (*types.User, error)
	LoginUser(ctx context.Context, email, password string) (string, string, error)
	RefreshUser(ctx context.Context) (string, string, error)
	LogoutUser(ctx context.Context) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	return &authService{
		db:            db,
		log:           log.With("service", "AuthService"),
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (as *authService) RegisterUser(ctx context.Context, user *types.User) (*types.User, error) {
	if user == nil {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "user payload required")
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.FirstName = strings.TrimSpace(user.FirstName)
	user.LastName = strings.TrimSpace(user.LastName)
	if user.Email == "" || !strings.Contains(user.Email, "@") {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "valid email required")
	}
	if len(user.Password) < 8 {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "password must be at least 8 characters")
	}
	if user.FirstName == "" || user.LastName == "" {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "first_name and last_name required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Newf(apperr.KindInternal, "hash password: %v", err)
	}
	user.Password = string(hashed)

	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		exists, err := as.userRepo.EmailExists(dbc, user.Email)
		if err != nil {
			return apperr.Newf(apperr.KindInternal, "check email: %v", err)
		}
		if exists {
			return apperr.Newf(apperr.KindConflict, "email already registered")
		}
		user.ID = uuid.New()
		if _, err := as.userRepo.Create(dbc, []*types.User{user}); err != nil {
			return apperr.Newf(apperr.KindInternal, "create user: %v", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return user, nil
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", "", apperr.Newf(apperr.KindInvalidArgument, "email and password required")
	}

	u, err := as.userRepo.GetByEmail(dbctx.Context{Ctx: ctx}, email)
	if err != nil {
		return "", "", apperr.Newf(apperr.KindInternal, "fetch user: %v", err)
	}
	if u == nil {
		return "", "", apperr.Newf(apperr.KindUnauthorized, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return "", "", apperr.Newf(apperr.KindUnauthorized, "invalid credentials")
	}

	var accessToken, refreshToken string
	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := as.userTokenRepo.DeleteExpired(dbc); err != nil {
			return apperr.Newf(apperr.KindInternal, "prune expired tokens: %v", err)
		}
		tok, err := as.generateAccessToken(u)
		if err != nil {
			return apperr.Newf(apperr.KindInternal, "generate access token: %v", err)
		}
		accessToken = tok
		refreshToken = uuid.New().String()
		if _, err := as.userTokenRepo.Create(dbc, &types.UserToken{
			ID:           uuid.New(),
			UserID:       u.ID,
			RefreshToken: refreshToken,
			ExpiresAt:    time.Now().Add(as.refreshTTL),
		}); err != nil {
			return apperr.Newf(apperr.KindInternal, "create user token: %v", err)
		}
		return nil
	}); err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (as *authService) RefreshUser(ctx context.Context) (string, string, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.RefreshToken == "" {
		return "", "", apperr.Newf(apperr.KindUnauthorized, "refresh token required")
	}

	var accessToken, newRefreshToken string
	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		existing, err := as.userTokenRepo.GetByRefreshToken(dbc, rd.RefreshToken)
		if err != nil {
			return apperr.Newf(apperr.KindInternal, "fetch refresh token: %v", err)
		}
		if existing == nil {
			return apperr.Newf(apperr.KindUnauthorized, "unknown refresh token")
		}
		if existing.ExpiresAt.Before(time.Now()) {
			if err := as.userTokenRepo.DeleteByRefreshToken(dbc, rd.RefreshToken); err != nil {
				as.log.Warn("Failed to delete expired refresh token", "error", err)
			}
			return apperr.Newf(apperr.KindUnauthorized, "refresh token expired")
		}
		u, err := as.userRepo.GetByID(dbc, existing.UserID)
		if err != nil {
			return apperr.Newf(apperr.KindInternal, "fetch user: %v", err)
		}
		if u == nil {
			return apperr.Newf(apperr.KindUnauthorized, "user no longer exists")
		}
		tok, err := as.generateAccessToken(u)
		if err != nil {
			return apperr.Newf(apperr.KindInternal, "generate access token: %v", err)
		}
		accessToken = tok
		newRefreshToken = uuid.New().String()
		if _, err := as.userTokenRepo.Create(dbc, &types.UserToken{
			ID:           uuid.New(),
			UserID:       u.ID,
			RefreshToken: newRefreshToken,
			ExpiresAt:    time.Now().Add(as.refreshTTL),
		}); err != nil {
			return apperr.Newf(apperr.KindInternal, "create user token: %v", err)
		}
		if err := as.userTokenRepo.DeleteByRefreshToken(dbc, rd.RefreshToken); err != nil {
			return apperr.Newf(apperr.KindInternal, "rotate refresh token: %v", err)
		}
		return nil
	}); err != nil {
		return "", "", err
	}
	return accessToken, newRefreshToken, nil
}

func (as *authService) LogoutUser(ctx context.Context) error {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return apperr.Newf(apperr.KindUnauthorized, "not logged in")
	}
	dbc := dbctx.Context{Ctx: ctx}
	if rd.RefreshToken != "" {
		return as.userTokenRepo.DeleteByRefreshToken(dbc, rd.RefreshToken)
	}
	return as.userTokenRepo.DeleteAllForUser(dbc, rd.UserID)
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, apperr.Newf(apperr.KindUnauthorized, "missing token")
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, apperr.Newf(apperr.KindUnauthorized, "parse token: %v", err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return ctx, apperr.Newf(apperr.KindUnauthorized, "invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, apperr.Newf(apperr.KindUnauthorized, "invalid subject in token")
	}
	rd := &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      userID,
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
