package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/dermatrack-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  "pw",
		FirstName: "A",
		LastName:  "B",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedUserInfo(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID) *types.UserInfo {
	tb.Helper()
	info := &types.UserInfo{
		ID:           uuid.New(),
		UserID:       userID,
		AgeGroup:     "18-24",
		Sex:          "female",
		SkinType:     "Oily",
		AcneDuration: "1-3 years",
		StressLevel:  "Moderate",
		SleepHours:   "6-7",
	}
	if err := tx.WithContext(ctx).Create(info).Error; err != nil {
		tb.Fatalf("seed user info: %v", err)
	}
	return info
}

func SeedImagePrediction(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, area string, score float64) *types.ImagePrediction {
	tb.Helper()
	p := &types.ImagePrediction{
		ID:            uuid.New(),
		UserID:        userID,
		FaceArea:      area,
		ImageURL:      "https://img.test/" + area,
		Prediction:    "moderate",
		Confidence:    90,
		Probabilities: datatypes.JSON([]byte(`{"cleanskin":0,"mild":5,"moderate":90,"severe":5}`)),
		PredictionID:  1,
		FinalSeverity: "moderate",
		SeverityScore: score,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed image prediction: %v", err)
	}
	return p
}

func SeedPlan(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, mode string, dayCount int) *types.TreatmentPlan {
	tb.Helper()
	p := &types.TreatmentPlan{
		ID:              uuid.New(),
		UserID:          userID,
		OverallSeverity: "moderate",
		GenerationMode:  mode,
		CurrentDay:      1,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed plan: %v", err)
	}
	for i := 1; i <= dayCount; i++ {
		SeedPlanDay(tb, ctx, tx, p.ID, i)
	}
	return p
}

func SeedPlanDay(tb testing.TB, ctx context.Context, tx *gorm.DB, planID uuid.UUID, dayNumber int) *types.TreatmentDay {
	tb.Helper()
	d := &types.TreatmentDay{
		ID:         uuid.New(),
		PlanID:     planID,
		DayNumber:  dayNumber,
		Morning:    fmt.Sprintf("morning %d", dayNumber),
		Afternoon:  fmt.Sprintf("afternoon %d", dayNumber),
		Evening:    fmt.Sprintf("evening %d", dayNumber),
		Motivation: "keep going",
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed plan day: %v", err)
	}
	return d
}
