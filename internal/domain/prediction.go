package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Body areas an acne image can be tagged with. One image per area in the
// single-pass model.
const (
	AreaForehead   = "forehead"
	AreaLeftCheek  = "leftCheek"
	AreaRightCheek = "rightCheek"
	AreaChin       = "chin"
	AreaNeck       = "neck"
	AreaBack       = "back"
	AreaFullFace   = "fullFace"
)

func ValidArea(area string) bool {
	switch area {
	case AreaForehead, AreaLeftCheek, AreaRightCheek, AreaChin, AreaNeck, AreaBack, AreaFullFace:
		return true
	}
	return false
}

// AcneLevelSet is the single-pass area analysis for one user: at most one
// set per user, enforced by the unique index on user_id. Immutable once
// written.
type AcneLevelSet struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	OverallSeverity string `gorm:"not null;column:overall_severity" json:"overall_severity"`

	Areas []AreaPrediction `gorm:"foreignKey:SetID" json:"areas"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (AcneLevelSet) TableName() string { return "acne_level_set" }

// AreaPrediction is one classifier verdict for one body region's image.
type AreaPrediction struct {
	ID    uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SetID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_area_prediction_set_area" json:"set_id"`

	Area       string  `gorm:"not null;uniqueIndex:idx_area_prediction_set_area" json:"area"`
	ImageName  string  `gorm:"not null;column:image_name" json:"image_name"`
	ImageURL   string  `gorm:"not null;column:image_url" json:"image_url"`
	Prediction string  `gorm:"not null" json:"prediction"`
	Confidence float64 `gorm:"not null" json:"confidence"`

	// Full class distribution, each 0-100, summing to 100 within tolerance.
	Probabilities datatypes.JSON `gorm:"column:probabilities;type:jsonb;not null" json:"probabilities"`

	PredictionID int64 `gorm:"not null;column:prediction_id" json:"prediction_id"`

	// Raw classifier response kept for audit, never re-parsed.
	RawModelResponse datatypes.JSON `gorm:"column:raw_model_response;type:jsonb" json:"raw_model_response,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (AreaPrediction) TableName() string { return "area_prediction" }

// ImagePrediction is one scored classification in the session model: many
// per user over time, each carrying the profile-adjusted severity score.
type ImagePrediction struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	FaceArea   string  `gorm:"not null;column:face_area" json:"face_area"`
	ImageURL   string  `gorm:"not null;column:image_url" json:"image_url"`
	Prediction string  `gorm:"not null;column:ml_prediction" json:"ml_prediction"`
	Confidence float64 `gorm:"not null" json:"confidence"`

	Probabilities    datatypes.JSON `gorm:"column:probabilities;type:jsonb;not null" json:"probabilities"`
	PredictionID     int64          `gorm:"not null;column:prediction_id" json:"prediction_id"`
	RawModelResponse datatypes.JSON `gorm:"column:raw_model_response;type:jsonb" json:"raw_model_response,omitempty"`

	FinalSeverity    string  `gorm:"not null;column:final_severity" json:"final_severity"`
	SeverityScore    float64 `gorm:"not null;column:severity_score" json:"severity_score"`
	AdjustmentReason string  `gorm:"column:adjustment_reason" json:"adjustment_reason"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (ImagePrediction) TableName() string { return "image_prediction" }
