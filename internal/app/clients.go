package app

import (
	"fmt"

	"github.com/yungbote/dermatrack-backend/internal/clients/groq"
	"github.com/yungbote/dermatrack-backend/internal/clients/mlapi"
	"github.com/yungbote/dermatrack-backend/internal/clients/redisx"
	"github.com/yungbote/dermatrack-backend/internal/pkg/logger"
)

type Clients struct {
	ML            mlapi.Client
	Chat          groq.Client
	UploadLimiter *redisx.UploadLimiter
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	ml, err := mlapi.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init ml client: %w", err)
	}
	chat, err := groq.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init chat client: %w", err)
	}

	// Missing Redis is a degraded mode, not a startup failure: the limiter
	// fails open and uploads go unthrottled.
	limiter, err := redisx.NewUploadLimiter(log)
	if err != nil {
		log.Warn("Upload limiter disabled", "error", err)
		limiter = nil
	}

	return Clients{ML: ml, Chat: chat, UploadLimiter: limiter}, nil
}
