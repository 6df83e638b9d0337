package models

import (
	"time"

	"github.com/google/uuid"
)

// PointSourceMission marks point history rows granted for mission completion.
const PointSourceMission = "mission"

// PointHistory is an immutable ledger entry. Positive points are earned, negative points are spent.
type PointHistory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Points      int       `gorm:"not null" json:"points"`
	Description string    `gorm:"size:255;not null" json:"description"`
	SourceType  string    `gorm:"size:32;not null" json:"source_type"`
	SourceID    uint      `gorm:"not null;default:0" json:"source_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName keeps the historical table name.
func (PointHistory) TableName() string {
	return "point_history"
}

// UserSummary holds running aggregates for a user. TotalPoints mirrors the sum of PointHistory.
type UserSummary struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	TotalPoints     int       `gorm:"not null;default:0" json:"total_points"`
	TotalActivities int       `gorm:"not null;default:0" json:"total_activities"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName keeps the historical table name.
func (UserSummary) TableName() string {
	return "user_summary"
}
