package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/dermatrack-backend/internal/http/handlers"
	httpMW "github.com/yungbote/dermatrack-backend/internal/http/middleware"
)

type RouterConfig struct {
	AuthHandler    *httpH.AuthHandler
	AuthMiddleware *httpMW.AuthMiddleware

	UserHandler       *httpH.UserHandler
	UserInfoHandler   *httpH.UserInfoHandler
	AcneHandler       *httpH.AcneHandler
	PredictionHandler *httpH.PredictionHandler
	PlanHandler       *httpH.PlanHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/register", cfg.AuthHandler.Register)
			api.POST("/login", cfg.AuthHandler.Login)
		}
	}

	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Auth (protected)
		if cfg.AuthHandler != nil {
			protected.POST("/refresh", cfg.AuthHandler.Refresh)
			protected.POST("/logout", cfg.AuthHandler.Logout)
		}

		// User (Me)
		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
		}

		// Questionnaire
		if cfg.UserInfoHandler != nil {
			protected.PUT("/userinfo", cfg.UserInfoHandler.Submit)
			protected.GET("/userinfo", cfg.UserInfoHandler.Get)
		}

		// Acne analysis (write-once area set)
		if cfg.AcneHandler != nil {
			protected.POST("/acne/upload", cfg.AcneHandler.Upload)
			protected.GET("/acne/levels", cfg.AcneHandler.GetLevels)
		}

		// Ongoing predictions
		if cfg.PredictionHandler != nil {
			protected.POST("/predictions/upload", cfg.PredictionHandler.Upload)
			protected.GET("/predictions", cfg.PredictionHandler.History)
			protected.GET("/predictions/session", cfg.PredictionHandler.Session)
		}

		// Treatment plan
		if cfg.PlanHandler != nil {
			protected.POST("/treatment/start", cfg.PlanHandler.Start)
			protected.POST("/treatment/review", cfg.PlanHandler.Review)
			protected.GET("/treatment/status", cfg.PlanHandler.Status)
		}
	}

	return r
}
