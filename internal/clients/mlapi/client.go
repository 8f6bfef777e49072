package mlapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/dermatrack-backend/internal/pkg/httpx"
	"github.com/yungbote/dermatrack-backend/internal/pkg/logger"
	"github.com/yungbote/dermatrack-backend/internal/treatment"
	"github.com/yungbote/dermatrack-backend/internal/utils"
)

// One retry on retryable transport failures; validation failures are never
// retried, the reply is already in hand.
const (
	classifyRetries      = 1
	classifyRetryBackoff = 500 * time.Millisecond
	classifyRetryMax     = 5 * time.Second
)

// Client is the acne image classifier. Its response contract is enforced
// here in full: any deviation is a ContractError, never partially trusted.
type Client interface {
	Classify(ctx context.Context, filename, contentType string, image []byte) (*Classification, error)
}

// Probabilities is the class distribution, each value 0-100, summing to
// 100 within +/-0.5.
type Probabilities struct {
	Cleanskin float64 `json:"cleanskin"`
	Mild      float64 `json:"mild"`
	Moderate  float64 `json:"moderate"`
	Severe    float64 `json:"severe"`
	Unknown   float64 `json:"unknown"`
}

func (p Probabilities) Sum() float64 {
	return p.Cleanskin + p.Mild + p.Moderate + p.Severe + p.Unknown
}

// Classification is a fully validated classifier verdict plus the raw
// response bytes for audit storage.
type Classification struct {
	Prediction    string
	Confidence    float64
	PredictionID  int64
	ImageURL      string
	Probabilities Probabilities
	Raw           json.RawMessage
}

// ContractError marks a classifier reply that violated the response
// contract. Distinct from transport errors so callers can surface
// upstream-invalid instead of upstream-unavailable.
type ContractError struct {
	Reason string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("classifier contract violation: %s", e.Reason)
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("classifier http %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

type client struct {
	log        *logger.Logger
	url        string
	httpClient *http.Client
}

func NewClient(baseLog *logger.Logger) (Client, error) {
	log := baseLog.With("service", "MLClient")

	url := strings.TrimSpace(utils.GetEnv("ML_API_URL", "", baseLog))
	if url == "" {
		return nil, fmt.Errorf("missing ML_API_URL")
	}
	timeoutSec := utils.GetEnvAsInt("ML_API_TIMEOUT_SECONDS", 30, baseLog)

	return &client{
		log:        log,
		url:        url,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}, nil
}

type rawResponse struct {
	Prediction    *string        `json:"prediction"`
	Confidence    *float64       `json:"confidence"`
	PredictionID  *int64         `json:"prediction_id"`
	ImageURL      *string        `json:"image_url"`
	Probabilities *Probabilities `json:"probabilities"`
}

func (c *client) Classify(ctx context.Context, filename, contentType string, image []byte) (*Classification, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="image"; filename=%q`, filename)}
	if contentType != "" {
		header["Content-Type"] = []string{contentType}
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(image); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	payload := body.Bytes()
	formContentType := writer.FormDataContentType()

	var lastErr error
	for attempt := 0; attempt <= classifyRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", formContentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt < classifyRetries && httpx.IsRetryableError(err) {
				c.log.Warn("Classifier call failed, retrying", "attempt", attempt+1, "error", err.Error())
				time.Sleep(httpx.JitterSleep(classifyRetryBackoff))
				continue
			}
			return nil, err
		}
		raw, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			if attempt < classifyRetries {
				time.Sleep(httpx.JitterSleep(classifyRetryBackoff))
				continue
			}
			return nil, readErr
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
			lastErr = httpErr
			if attempt < classifyRetries && httpx.IsRetryableHTTPStatus(resp.StatusCode) {
				c.log.Warn("Classifier returned retryable status", "attempt", attempt+1, "status", resp.StatusCode)
				time.Sleep(httpx.JitterSleep(httpx.RetryAfterDuration(resp, classifyRetryBackoff, classifyRetryMax)))
				continue
			}
			return nil, httpErr
		}

		return ValidateResponse(raw)
	}
	return nil, lastErr
}

// ValidateResponse enforces the classifier contract on a raw reply body.
// Pointer fields catch absent keys so a legitimate zero value (confidence
// 0) is not mistaken for a missing one.
func ValidateResponse(raw []byte) (*Classification, error) {
	var parsed rawResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ContractError{Reason: fmt.Sprintf("response is not valid JSON: %v", err)}
	}

	if parsed.Prediction == nil || parsed.Confidence == nil || parsed.PredictionID == nil || parsed.ImageURL == nil || parsed.Probabilities == nil {
		return nil, &ContractError{Reason: "missing required field"}
	}
	if !treatment.ValidPrediction(*parsed.Prediction) {
		return nil, &ContractError{Reason: fmt.Sprintf("invalid prediction value: %q", *parsed.Prediction)}
	}
	if *parsed.Confidence < 0 || *parsed.Confidence > 100 {
		return nil, &ContractError{Reason: fmt.Sprintf("confidence out of range: %v", *parsed.Confidence)}
	}

	probs := *parsed.Probabilities
	for _, v := range []float64{probs.Cleanskin, probs.Mild, probs.Moderate, probs.Severe, probs.Unknown} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 100 {
			return nil, &ContractError{Reason: "invalid probabilities structure"}
		}
	}
	if sum := probs.Sum(); math.Abs(sum-100) > 0.5 {
		return nil, &ContractError{Reason: fmt.Sprintf("probabilities must sum to 100, got %v", sum)}
	}

	return &Classification{
		Prediction:    *parsed.Prediction,
		Confidence:    *parsed.Confidence,
		PredictionID:  *parsed.PredictionID,
		ImageURL:      *parsed.ImageURL,
		Probabilities: probs,
		Raw:           json.RawMessage(raw),
	}, nil
}
