package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	FeedbackPositive = "positive"
	FeedbackNegative = "negative"
)

// TreatmentPlan is the day-indexed plan document, one per user (unique
// index on user_id backs the one-active-plan guarantee under concurrent
// start calls). CurrentDay is the next day awaiting feedback.
type TreatmentPlan struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	OverallSeverity string `gorm:"not null;column:overall_severity" json:"overall_severity"`
	DominantArea    string `gorm:"column:dominant_area" json:"dominant_area"`

	QuestionnaireCompleted bool `gorm:"not null;default:true;column:questionnaire_completed" json:"questionnaire_completed"`
	AcneAnalysisCompleted  bool `gorm:"not null;default:true;column:acne_analysis_completed" json:"acne_analysis_completed"`

	GenerationMode string `gorm:"not null;column:generation_mode" json:"generation_mode"`
	// MaxDays is the cap the plan was started under. Persisted so a later
	// config change cannot move the goalposts for plans already underway.
	MaxDays    int `gorm:"not null;default:0;column:max_days" json:"max_days"`
	CurrentDay int `gorm:"not null;default:1;column:current_day" json:"current_day"`

	Days []TreatmentDay `gorm:"foreignKey:PlanID" json:"days"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (TreatmentPlan) TableName() string { return "treatment_plan" }

// TreatmentDay is one day's entry. Feedback moves from NULL to a value
// exactly once; the conditional update in the plan repo enforces that.
type TreatmentDay struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PlanID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_treatment_day_plan_day" json:"plan_id"`

	DayNumber int `gorm:"not null;column:day_number;uniqueIndex:idx_treatment_day_plan_day" json:"day_number"`

	Morning   string `gorm:"not null;type:text" json:"morning"`
	Afternoon string `gorm:"not null;type:text" json:"afternoon"`
	Evening   string `gorm:"not null;type:text" json:"evening"`

	Motivation       string `gorm:"type:text" json:"motivation"`
	AdjustmentReason string `gorm:"type:text;column:adjustment_reason" json:"adjustment_reason"`

	Feedback *string `gorm:"column:feedback" json:"feedback,omitempty"`
	Notes    *string `gorm:"type:text;column:notes" json:"notes,omitempty"`
	Review   *string `gorm:"type:text;column:review" json:"review,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (TreatmentDay) TableName() string { return "treatment_day" }

// Reviewed reports whether feedback has been recorded for the day.
func (d *TreatmentDay) Reviewed() bool {
	return d != nil && d.Feedback != nil && *d.Feedback != ""
}
