package plan

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/dermatrack-backend/internal/domain"
	"github.com/yungbote/dermatrack-backend/internal/pkg/dbctx"
	"github.com/yungbote/dermatrack-backend/internal/pkg/logger"
	"github.com/yungbote/dermatrack-backend/internal/pkg/pgerr"
)

// ErrPlanExists is returned when a second plan is created for a user. The
// unique index on user_id makes concurrent starts race safely: exactly one
// insert wins, the rest get this error.
var ErrPlanExists = errors.New("treatment plan already exists for user")

type TreatmentPlanRepo interface {
	// CreateWithDays writes the plan and its initial day entries in one
	// transaction. Returns ErrPlanExists when the user already has a plan.
	CreateWithDays(dbc dbctx.Context, plan *types.TreatmentPlan, days []*types.TreatmentDay) (*types.TreatmentPlan, error)
	// GetByUserID loads the plan with its days ordered by day number, or
	// nil when the user has no plan.
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.TreatmentPlan, error)
	GetDay(dbc dbctx.Context, planID uuid.UUID, dayNumber int) (*types.TreatmentDay, error)
	// SetDayFeedback records feedback, optional notes and the derived
	// review summary for a day only if no feedback is recorded yet.
	// Returns false when the day was already reviewed or missing.
	SetDayFeedback(dbc dbctx.Context, planID uuid.UUID, dayNumber int, feedback string, notes *string, review string) (bool, error)
	// AdvanceCursor moves current_day from fromDay to fromDay+1 only if
	// the cursor still sits at fromDay. Returns false on a lost race.
	AdvanceCursor(dbc dbctx.Context, planID uuid.UUID, fromDay int) (bool, error)
	// AppendDay inserts the next day entry. A duplicate day number means a
	// concurrent review already appended it; that is reported as written.
	AppendDay(dbc dbctx.Context, day *types.TreatmentDay) (*types.TreatmentDay, error)
	MaxDayNumber(dbc dbctx.Context, planID uuid.UUID) (int, error)
}

type treatmentPlanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTreatmentPlanRepo(db *gorm.DB, baseLog *logger.Logger) TreatmentPlanRepo {
	return &treatmentPlanRepo{db: db, log: baseLog.With("repo", "TreatmentPlanRepo")}
}

func (r *treatmentPlanRepo) CreateWithDays(dbc dbctx.Context, plan *types.TreatmentPlan, days []*types.TreatmentDay) (*types.TreatmentPlan, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if plan == nil || plan.UserID == uuid.Nil {
		return nil, nil
	}

	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Create(plan).Error; err != nil {
			if pgerr.IsDuplicateKey(err) {
				return ErrPlanExists
			}
			return err
		}
		for _, d := range days {
			d.PlanID = plan.ID
		}
		if len(days) > 0 {
			if err := txx.Create(&days).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	plan.Days = nil
	for _, d := range days {
		plan.Days = append(plan.Days, *d)
	}
	return plan, nil
}

func (r *treatmentPlanRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.TreatmentPlan, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var plan types.TreatmentPlan
	err := transaction.WithContext(dbc.Ctx).
		Preload("Days", func(db *gorm.DB) *gorm.DB {
			return db.Order("day_number ASC")
		}).
		Where("user_id = ?", userID).
		First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *treatmentPlanRepo) GetDay(dbc dbctx.Context, planID uuid.UUID, dayNumber int) (*types.TreatmentDay, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if planID == uuid.Nil || dayNumber < 1 {
		return nil, nil
	}
	var day types.TreatmentDay
	err := transaction.WithContext(dbc.Ctx).
		Where("plan_id = ? AND day_number = ?", planID, dayNumber).
		First(&day).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &day, nil
}

func (r *treatmentPlanRepo) SetDayFeedback(dbc dbctx.Context, planID uuid.UUID, dayNumber int, feedback string, notes *string, review string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if planID == uuid.Nil || dayNumber < 1 {
		return false, nil
	}
	updates := map[string]interface{}{
		"feedback":   feedback,
		"updated_at": time.Now(),
	}
	if notes != nil {
		updates["notes"] = *notes
	}
	if review != "" {
		updates["review"] = review
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.TreatmentDay{}).
		Where("plan_id = ? AND day_number = ? AND feedback IS NULL", planID, dayNumber).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *treatmentPlanRepo) AdvanceCursor(dbc dbctx.Context, planID uuid.UUID, fromDay int) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if planID == uuid.Nil || fromDay < 1 {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.TreatmentPlan{}).
		Where("id = ? AND current_day = ?", planID, fromDay).
		Updates(map[string]interface{}{
			"current_day": fromDay + 1,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *treatmentPlanRepo) AppendDay(dbc dbctx.Context, day *types.TreatmentDay) (*types.TreatmentDay, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if day == nil || day.PlanID == uuid.Nil {
		return nil, nil
	}
	// Nested transaction so a unique violation rolls back to a savepoint
	// instead of aborting the caller's transaction.
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		return txx.Create(day).Error
	})
	if err != nil {
		if pgerr.IsDuplicateKey(err) {
			existing, gErr := r.GetDay(dbc, day.PlanID, day.DayNumber)
			if gErr != nil {
				return nil, gErr
			}
			if existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}
	return day, nil
}

func (r *treatmentPlanRepo) MaxDayNumber(dbc dbctx.Context, planID uuid.UUID) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if planID == uuid.Nil {
		return 0, nil
	}
	var maxDay int
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.TreatmentDay{}).
		Where("plan_id = ?", planID).
		Select("COALESCE(MAX(day_number), 0)").
		Scan(&maxDay).Error
	if err != nil {
		return 0, err
	}
	return maxDay, nil
}
