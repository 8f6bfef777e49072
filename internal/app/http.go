package app

import (
	"github.com/yungbote/dermatrack-backend/internal/http"
	httpH "github.com/yungbote/dermatrack-backend/internal/http/handlers"
	httpMW "github.com/yungbote/dermatrack-backend/internal/http/middleware"
	"github.com/yungbote/dermatrack-backend/internal/pkg/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health     *httpH.HealthHandler
	Auth       *httpH.AuthHandler
	User       *httpH.UserHandler
	UserInfo   *httpH.UserInfoHandler
	Acne       *httpH.AcneHandler
	Prediction *httpH.PredictionHandler
	Plan       *httpH.PlanHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(),
		Auth:       httpH.NewAuthHandler(services.Auth),
		User:       httpH.NewUserHandler(services.User),
		UserInfo:   httpH.NewUserInfoHandler(services.UserInfo),
		Acne:       httpH.NewAcneHandler(services.Acne),
		Prediction: httpH.NewPredictionHandler(services.Prediction),
		Plan:       httpH.NewPlanHandler(services.Plan),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(handlers Handlers, middleware Middleware) *http.Server {
	return http.NewServer(http.RouterConfig{
		HealthHandler:     handlers.Health,
		AuthHandler:       handlers.Auth,
		AuthMiddleware:    middleware.Auth,
		UserHandler:       handlers.User,
		UserInfoHandler:   handlers.UserInfo,
		AcneHandler:       handlers.Acne,
		PredictionHandler: handlers.Prediction,
		PlanHandler:       handlers.Plan,
	})
}
