package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/dermatrack-backend/internal/pkg/logger"
	"github.com/yungbote/dermatrack-backend/internal/utils"
)

// Client is the Groq chat-completions endpoint used for treatment-plan
// generation. One invocation is one outbound call; the retry policy lives
// in the treatment generator, not here.
type Client interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("groq http %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

type client struct {
	log         *logger.Logger
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

func NewClient(baseLog *logger.Logger) (Client, error) {
	log := baseLog.With("service", "GroqClient")

	apiKey := strings.TrimSpace(utils.GetEnv("GROQ_API_KEY", "", baseLog))
	if apiKey == "" {
		return nil, fmt.Errorf("missing GROQ_API_KEY")
	}

	baseURL := strings.TrimRight(utils.GetEnv("GROQ_BASE_URL", "https://api.groq.com/openai", baseLog), "/")
	model := utils.GetEnv("GROQ_MODEL", "llama-3.3-70b-versatile", baseLog)
	maxTokens := utils.GetEnvAsInt("GROQ_MAX_TOKENS", 3000, baseLog)
	timeoutSec := utils.GetEnvAsInt("GROQ_TIMEOUT_SECONDS", 30, baseLog)

	return &client{
		log:         log,
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		temperature: 0.3,
		maxTokens:   maxTokens,
		httpClient:  &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *client) Chat(ctx context.Context, system, user string) (string, error) {
	reqBody := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		// Low temperature: the caller validates a strict JSON contract.
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return "", readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("groq decode error: %w; raw=%s", err, string(raw))
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("groq response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
