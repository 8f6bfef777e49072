package treatment

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/dermatrack-backend/internal/pkg/logger"
)

type fakeChat struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeChat) Chat(ctx context.Context, system, user string) (string, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var resp string
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	return resp, err
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func TestGenerateDaySucceedsFirstAttempt(t *testing.T) {
	ai := &fakeChat{responses: []string{validDayJSON(1)}}
	gen := NewGenerator(ai, testLogger(t))

	day, err := gen.GenerateDay(context.Background(), "sys", "user", 1)
	if err != nil {
		t.Fatalf("GenerateDay: %v", err)
	}
	if day.Day != 1 {
		t.Fatalf("Day = %d, want 1", day.Day)
	}
	if ai.calls != 1 {
		t.Fatalf("calls = %d, want 1", ai.calls)
	}
}

func TestGenerateDayRetriesOnceOnInvalidOutput(t *testing.T) {
	ai := &fakeChat{responses: []string{"not json at all", validDayJSON(1)}}
	gen := NewGenerator(ai, testLogger(t))

	day, err := gen.GenerateDay(context.Background(), "sys", "user", 1)
	if err != nil {
		t.Fatalf("GenerateDay: %v", err)
	}
	if day == nil || day.Day != 1 {
		t.Fatalf("day = %+v, want day 1", day)
	}
	if ai.calls != 2 {
		t.Fatalf("calls = %d, want 2", ai.calls)
	}
}

func TestGenerateDayExhaustsAfterTwoValidationFailures(t *testing.T) {
	ai := &fakeChat{responses: []string{"junk", "more junk"}}
	gen := NewGenerator(ai, testLogger(t))

	_, err := gen.GenerateDay(context.Background(), "sys", "user", 1)
	if err == nil {
		t.Fatalf("expected terminal failure")
	}
	var gf *GenerationFailure
	if !errors.As(err, &gf) {
		t.Fatalf("error = %v, want *GenerationFailure", err)
	}
	if gf.Transport {
		t.Fatalf("Transport = true, want validation failure")
	}
	if gf.Attempts != 2 {
		t.Fatalf("Attempts = %d, want 2", gf.Attempts)
	}
	if ai.calls != 2 {
		t.Fatalf("calls = %d, want 2", ai.calls)
	}
}

func TestGenerateDayTransportFailure(t *testing.T) {
	netErr := errors.New("connection refused")
	ai := &fakeChat{errs: []error{netErr, netErr}}
	gen := NewGenerator(ai, testLogger(t))

	_, err := gen.GenerateDay(context.Background(), "sys", "user", 1)
	var gf *GenerationFailure
	if !errors.As(err, &gf) {
		t.Fatalf("error = %v, want *GenerationFailure", err)
	}
	if !gf.Transport {
		t.Fatalf("Transport = false, want transport failure")
	}
	if !errors.Is(err, netErr) {
		t.Fatalf("terminal error does not wrap last cause")
	}
}

func TestGenerateDayTransportThenValidation(t *testing.T) {
	// Last cause decides the classification.
	ai := &fakeChat{
		errs:      []error{errors.New("timeout"), nil},
		responses: []string{"", "prose, not json"},
	}
	gen := NewGenerator(ai, testLogger(t))

	_, err := gen.GenerateDay(context.Background(), "sys", "user", 1)
	var gf *GenerationFailure
	if !errors.As(err, &gf) {
		t.Fatalf("error = %v, want *GenerationFailure", err)
	}
	if gf.Transport {
		t.Fatalf("Transport = true, want validation classification from last attempt")
	}
}

func TestGenerateBatch(t *testing.T) {
	ai := &fakeChat{responses: []string{validBatchJSON(15)}}
	gen := NewGenerator(ai, testLogger(t))

	days, err := gen.GenerateBatch(context.Background(), "sys", "user", 15)
	if err != nil {
		t.Fatalf("GenerateBatch: %v", err)
	}
	if len(days) != 15 {
		t.Fatalf("len(days) = %d, want 15", len(days))
	}
}

func TestGenerateBatchWrongCardinalityExhausts(t *testing.T) {
	ai := &fakeChat{responses: []string{validBatchJSON(14), validBatchJSON(14)}}
	gen := NewGenerator(ai, testLogger(t))

	_, err := gen.GenerateBatch(context.Background(), "sys", "user", 15)
	var gf *GenerationFailure
	if !errors.As(err, &gf) {
		t.Fatalf("error = %v, want *GenerationFailure", err)
	}
	if gf.Transport || gf.Attempts != 2 {
		t.Fatalf("got transport=%v attempts=%d, want validation failure after 2 attempts", gf.Transport, gf.Attempts)
	}
}
