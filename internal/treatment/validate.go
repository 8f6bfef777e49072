package treatment

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GeneratedDay is the validated shape of one generated day. It is only
// constructed after every required field has been confirmed present,
// correctly typed and non-empty.
type GeneratedDay struct {
	Day              int
	Morning          string
	Afternoon        string
	Evening          string
	Motivation       string
	AdjustmentReason string
}

// ValidationError marks generator output that parsed (or not) but failed
// the structural contract. Distinct from transport errors so callers can
// map it to upstream-invalid instead of upstream-unavailable.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("plan validation failed: %s", e.Reason)
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ExtractJSON strips markdown code fences and slices the first '{' to the
// last '}' so the generator may wrap its JSON in prose without being
// trusted for anything else.
func ExtractJSON(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", validationErrorf("empty response")
	}

	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```JSON", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	firstBrace := strings.Index(cleaned, "{")
	lastBrace := strings.LastIndex(cleaned, "}")
	if firstBrace == -1 || lastBrace == -1 || lastBrace < firstBrace {
		return "", validationErrorf("no JSON object found in response")
	}
	return cleaned[firstBrace : lastBrace+1], nil
}

var requiredDayStrings = []string{"morning", "afternoon", "evening", "motivation", "adjustment_reason"}

// parseDayObject checks one day object against the contract. requireDay
// demands an integer "day" field equal to expectedDay; without it a present
// "day" is still checked against expectedDay.
func parseDayObject(obj map[string]any, expectedDay int, requireDay bool) (GeneratedDay, error) {
	out := GeneratedDay{Day: expectedDay}

	rawDay, hasDay := obj["day"]
	if requireDay && !hasDay {
		return out, validationErrorf("day %d missing required field: day", expectedDay)
	}
	if hasDay {
		f, ok := rawDay.(float64)
		if !ok || f != float64(int(f)) {
			return out, validationErrorf("day %d field day must be an integer", expectedDay)
		}
		if int(f) != expectedDay {
			return out, validationErrorf("day numbers must be sequential: expected %d, got %d", expectedDay, int(f))
		}
	}

	for _, field := range requiredDayStrings {
		rawVal, ok := obj[field]
		if !ok {
			return out, validationErrorf("day %d missing required field: %s", expectedDay, field)
		}
		s, ok := rawVal.(string)
		if !ok {
			return out, validationErrorf("day %d field %s must be a string", expectedDay, field)
		}
		if strings.TrimSpace(s) == "" {
			return out, validationErrorf("day %d field %s cannot be empty", expectedDay, field)
		}
		switch field {
		case "morning":
			out.Morning = s
		case "afternoon":
			out.Afternoon = s
		case "evening":
			out.Evening = s
		case "motivation":
			out.Motivation = s
		case "adjustment_reason":
			out.AdjustmentReason = s
		}
	}
	return out, nil
}

// ValidateSingleDay parses raw generator output as exactly one day object
// for the given day number.
func ValidateSingleDay(raw string, expectedDay int) (*GeneratedDay, error) {
	text, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, validationErrorf("invalid JSON: %v", err)
	}

	day, err := parseDayObject(obj, expectedDay, false)
	if err != nil {
		return nil, err
	}
	return &day, nil
}

// ValidateBatchPlan parses raw generator output as a document with a
// "days" array of exactly expectedDays sequential day objects starting
// at 1. No partial recovery: any violation rejects the whole document.
func ValidateBatchPlan(raw string, expectedDays int) ([]GeneratedDay, error) {
	text, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, validationErrorf("invalid JSON: %v", err)
	}

	rawDays, ok := obj["days"]
	if !ok {
		return nil, validationErrorf("missing days array")
	}
	arr, ok := rawDays.([]any)
	if !ok {
		return nil, validationErrorf("days must be an array")
	}
	if len(arr) != expectedDays {
		return nil, validationErrorf("expected exactly %d days, got %d", expectedDays, len(arr))
	}

	out := make([]GeneratedDay, 0, expectedDays)
	for i, rawDay := range arr {
		dayObj, ok := rawDay.(map[string]any)
		if !ok {
			return nil, validationErrorf("day %d must be an object", i+1)
		}
		day, err := parseDayObject(dayObj, i+1, true)
		if err != nil {
			return nil, err
		}
		out = append(out, day)
	}
	return out, nil
}
