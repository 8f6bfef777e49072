package treatment

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/dermatrack-backend/internal/pkg/logger"
)

// ChatClient is the outbound generation endpoint. Injected so tests can
// substitute a double; never an ambient global.
type ChatClient interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// generateMaxRetries is the number of internal retries after the first
// failed attempt. Exactly one by contract: callers handle anything beyond
// that themselves.
const generateMaxRetries = 1

// GenerationFailure is the terminal error after all attempts are spent.
// Transport marks unreachable/erroring endpoints; otherwise the service
// replied but its output failed structural validation.
type GenerationFailure struct {
	Transport bool
	Attempts  int
	Err       error
}

func (e *GenerationFailure) Error() string {
	mode := "invalid output from"
	if e.Transport {
		mode = "transport failure against"
	}
	return fmt.Sprintf("generation failed after %d attempt(s): %s generation service: %v", e.Attempts, mode, e.Err)
}

func (e *GenerationFailure) Unwrap() error { return e.Err }

// Generator wraps a ChatClient with the structural validator and the
// bounded retry policy.
type Generator struct {
	ai  ChatClient
	log *logger.Logger
}

func NewGenerator(ai ChatClient, baseLog *logger.Logger) *Generator {
	return &Generator{ai: ai, log: baseLog.With("service", "TreatmentGenerator")}
}

// GenerateDay produces one validated day object for expectedDay.
func (g *Generator) GenerateDay(ctx context.Context, system, user string, expectedDay int) (*GeneratedDay, error) {
	var day *GeneratedDay
	err := g.generate(ctx, system, user, func(raw string) error {
		parsed, vErr := ValidateSingleDay(raw, expectedDay)
		if vErr != nil {
			return vErr
		}
		day = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return day, nil
}

// GenerateBatch produces the full validated day sequence for batch mode.
func (g *Generator) GenerateBatch(ctx context.Context, system, user string, dayCount int) ([]GeneratedDay, error) {
	var days []GeneratedDay
	err := g.generate(ctx, system, user, func(raw string) error {
		parsed, vErr := ValidateBatchPlan(raw, dayCount)
		if vErr != nil {
			return vErr
		}
		days = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return days, nil
}

// generate runs the attempt loop: call, validate, retry once on any
// failure, then surface the last cause with the attempt count. Timeouts
// count as failed attempts, not a distinct case.
func (g *Generator) generate(ctx context.Context, system, user string, validate func(raw string) error) error {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= generateMaxRetries; attempt++ {
		attempts++

		raw, err := g.ai.Chat(ctx, system, user)
		if err == nil {
			err = validate(raw)
			if err == nil {
				return nil
			}
		}
		lastErr = err

		if attempt < generateMaxRetries {
			g.log.Warn("Generation attempt failed, retrying",
				"attempt", attempt+1,
				"error", err.Error(),
			)
		}
	}

	var vErr *ValidationError
	transport := !errors.As(lastErr, &vErr)
	return &GenerationFailure{Transport: transport, Attempts: attempts, Err: lastErr}
}
