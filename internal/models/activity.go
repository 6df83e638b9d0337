package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UserActivity is the persisted outcome of a user's submission for a place.
// At most one row exists per (user_id, place_id).
type UserActivity struct {
	ID                  uint              `gorm:"primaryKey" json:"id"`
	UserID              uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:unique_user_place,priority:1" json:"user_id"`
	PlaceID             uint              `gorm:"not null;uniqueIndex:unique_user_place,priority:2;index" json:"place_id"`
	MissionID           *uint             `gorm:"index" json:"mission_id"`
	Description         string            `gorm:"type:text" json:"description"`
	IsCorrect           *bool             `json:"is_correct"`
	IsCompleted         bool              `gorm:"not null;default:false" json:"is_completed"`
	PointsEarned        int               `gorm:"not null;default:0" json:"points_earned"`
	TextAnswer          *string           `gorm:"type:text" json:"text_answer"`
	SelectedChoiceIndex *int              `json:"selected_choice_index"`
	UploadedImageURL    *string           `gorm:"size:1024" json:"uploaded_image_url"`
	Verification        datatypes.JSONMap `json:"verification"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`

	// AlreadyExists is set when the row returned belongs to an earlier submission.
	AlreadyExists bool `gorm:"-" json:"-"`
}

// TableName keeps the historical table name.
func (UserActivity) TableName() string {
	return "user_activity"
}
