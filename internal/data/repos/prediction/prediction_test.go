package prediction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/dermatrack-backend/internal/data/repos/testutil"
	types "github.com/yungbote/dermatrack-backend/internal/domain"
	"github.com/yungbote/dermatrack-backend/internal/pkg/dbctx"
)

func TestAcneLevelSetRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewAcneLevelSetRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "levelset@test.local")

	set := &types.AcneLevelSet{
		ID:              uuid.New(),
		UserID:          u.ID,
		OverallSeverity: "moderate",
	}
	areas := []*types.AreaPrediction{
		{
			ID:            uuid.New(),
			Area:          types.AreaForehead,
			ImageName:     "forehead.jpg",
			ImageURL:      "https://img.test/forehead.jpg",
			Prediction:    "moderate",
			Confidence:    88,
			Probabilities: datatypes.JSON([]byte(`{"moderate":88,"mild":12}`)),
			PredictionID:  1,
		},
		{
			ID:            uuid.New(),
			Area:          types.AreaChin,
			ImageName:     "chin.jpg",
			ImageURL:      "https://img.test/chin.jpg",
			Prediction:    "mild",
			Confidence:    75,
			Probabilities: datatypes.JSON([]byte(`{"mild":75,"cleanskin":25}`)),
			PredictionID:  2,
		},
	}
	created, err := repo.CreateWithAreas(dbc, set, areas)
	if err != nil {
		t.Fatalf("CreateWithAreas: %v", err)
	}
	if created == nil {
		t.Fatalf("CreateWithAreas: nil set")
	}

	got, err := repo.GetByUserID(dbc, u.ID)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if got == nil || got.OverallSeverity != "moderate" || len(got.Areas) != 2 {
		t.Fatalf("GetByUserID: unexpected set %+v", got)
	}

	exists, err := repo.ExistsForUser(dbc, u.ID)
	if err != nil || !exists {
		t.Fatalf("ExistsForUser: exists=%v err=%v", exists, err)
	}

	// The single-pass analysis is immutable: a second set is rejected.
	_, err = repo.CreateWithAreas(dbc, &types.AcneLevelSet{
		ID:              uuid.New(),
		UserID:          u.ID,
		OverallSeverity: "severe",
	}, nil)
	if !errors.Is(err, ErrLevelSetExists) {
		t.Fatalf("CreateWithAreas duplicate: expected ErrLevelSetExists, got %v", err)
	}
}

func TestImagePredictionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewImagePredictionRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "imgpred@test.local")
	other := testutil.SeedUser(t, ctx, tx, "imgpred-other@test.local")

	testutil.SeedImagePrediction(t, ctx, tx, u.ID, types.AreaForehead, 2)
	testutil.SeedImagePrediction(t, ctx, tx, u.ID, types.AreaChin, 3.5)
	testutil.SeedImagePrediction(t, ctx, tx, other.ID, types.AreaBack, 1)

	rows, err := repo.ListByUser(dbc, u.ID, 10, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ListByUser: expected 2 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.UserID != u.ID {
			t.Fatalf("ListByUser: leaked row for %v", row.UserID)
		}
	}

	limited, err := repo.ListByUser(dbc, u.ID, 1, 0)
	if err != nil || len(limited) != 1 {
		t.Fatalf("ListByUser limit: len=%d err=%v", len(limited), err)
	}

	since := time.Now().Add(-time.Hour)
	recent, err := repo.ListByUserSince(dbc, u.ID, since)
	if err != nil || len(recent) != 2 {
		t.Fatalf("ListByUserSince: len=%d err=%v", len(recent), err)
	}

	count, err := repo.CountByUserSince(dbc, u.ID, since)
	if err != nil || count != 2 {
		t.Fatalf("CountByUserSince: count=%d err=%v", count, err)
	}
	none, err := repo.CountByUserSince(dbc, u.ID, time.Now().Add(time.Hour))
	if err != nil || none != 0 {
		t.Fatalf("CountByUserSince future: count=%d err=%v", none, err)
	}
}
