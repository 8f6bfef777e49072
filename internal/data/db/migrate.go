package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/dermatrack-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Core identity + auth
		// =========================
		&types.User{},
		&types.UserToken{},
		&types.UserInfo{},

		// =========================
		// Acne analysis
		// =========================
		&types.AcneLevelSet{},
		&types.AreaPrediction{},
		&types.ImagePrediction{},

		// =========================
		// Treatment plans
		// =========================
		&types.TreatmentPlan{},
		&types.TreatmentDay{},
	)
}

// planIndexes back the plan invariants: one plan per user, one entry per
// plan day, and ordered day lookup.
var planIndexes = []indexStatement{
	{
		name: "idx_treatment_plan_user_active",
		sql: `CREATE UNIQUE INDEX IF NOT EXISTS idx_treatment_plan_user_active
			ON treatment_plan(user_id);`,
	},
	{
		name: "idx_treatment_day_plan_day",
		sql: `CREATE UNIQUE INDEX IF NOT EXISTS idx_treatment_day_plan_day
			ON treatment_day(plan_id, day_number);`,
	},
	{
		name: "idx_treatment_day_plan_order",
		sql: `CREATE INDEX IF NOT EXISTS idx_treatment_day_plan_order
			ON treatment_day(plan_id, day_number ASC);`,
	},
}

// predictionIndexes cover history pagination plus the one-level-set-per-user
// and one-prediction-per-area invariants.
var predictionIndexes = []indexStatement{
	{
		name: "idx_image_prediction_user_created",
		sql: `CREATE INDEX IF NOT EXISTS idx_image_prediction_user_created
			ON image_prediction(user_id, created_at DESC);`,
	},
	{
		name: "idx_acne_level_set_user",
		sql: `CREATE UNIQUE INDEX IF NOT EXISTS idx_acne_level_set_user
			ON acne_level_set(user_id);`,
	},
	{
		name: "idx_area_prediction_set_area",
		sql: `CREATE UNIQUE INDEX IF NOT EXISTS idx_area_prediction_set_area
			ON area_prediction(set_id, area);`,
	},
}

type indexStatement struct {
	name string
	sql  string
}

func EnsurePlanIndexes(db *gorm.DB) error {
	// uuid-ossp is already enabled in NewPostgresService, but safe to re-run
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return fmt.Errorf("enable uuid-ossp: %w", err)
	}
	return execIndexes(db, planIndexes)
}

func EnsurePredictionIndexes(db *gorm.DB) error {
	return execIndexes(db, predictionIndexes)
}

func execIndexes(db *gorm.DB, indexes []indexStatement) error {
	for _, idx := range indexes {
		if err := db.Exec(idx.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", idx.name, err)
		}
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsurePlanIndexes(s.db); err != nil {
		s.log.Error("Plan index migration failed", "error", err)
		return err
	}
	if err := EnsurePredictionIndexes(s.db); err != nil {
		s.log.Error("Prediction index migration failed", "error", err)
		return err
	}

	return nil
}
