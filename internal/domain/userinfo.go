package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UserInfo is the questionnaire a user completes before uploading acne
// images. Treatment-plan generation requires it; absent optional answers
// degrade to "Unknown" when prompts are built.
type UserInfo struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	AgeGroup        string         `gorm:"column:age_group" json:"age_group"`
	Sex             string         `gorm:"column:sex" json:"sex"`
	SkinType        string         `gorm:"column:skin_type" json:"skin_type"`
	AcneDuration    string         `gorm:"column:acne_duration" json:"acne_duration"`
	AcneLocation    datatypes.JSON `gorm:"column:acne_location;type:jsonb" json:"acne_location,omitempty"`
	AcneDescription string         `gorm:"column:acne_description" json:"acne_description"`

	MedicationAllergy      string         `gorm:"column:medication_allergy" json:"medication_allergy"`
	AllergyReactionTypes   datatypes.JSON `gorm:"column:allergy_reaction_types;type:jsonb" json:"allergy_reaction_types,omitempty"`
	AcneMedicationReaction datatypes.JSON `gorm:"column:acne_medication_reaction;type:jsonb" json:"acne_medication_reaction,omitempty"`

	SensitiveSkin    string         `gorm:"column:sensitive_skin" json:"sensitive_skin"`
	FoodAllergy      string         `gorm:"column:food_allergy" json:"food_allergy"`
	AllergyFoods     datatypes.JSON `gorm:"column:allergy_foods;type:jsonb" json:"allergy_foods,omitempty"`
	FoodTriggersAcne string         `gorm:"column:food_triggers_acne" json:"food_triggers_acne"`

	UsingAcneProducts       string         `gorm:"column:using_acne_products" json:"using_acne_products"`
	CurrentProducts         datatypes.JSON `gorm:"column:current_products;type:jsonb" json:"current_products,omitempty"`
	StoppedDueToSideEffects string         `gorm:"column:stopped_due_to_side_effects" json:"stopped_due_to_side_effects"`

	DairyConsumption string `gorm:"column:dairy_consumption" json:"dairy_consumption"`
	StressLevel      string `gorm:"column:stress_level" json:"stress_level"`
	SleepHours       string `gorm:"column:sleep_hours" json:"sleep_hours"`

	AdditionalFeelings string `gorm:"column:additional_feelings" json:"additional_feelings"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserInfo) TableName() string { return "user_info" }
