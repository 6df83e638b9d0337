package models

import (
	"time"

	"gorm.io/datatypes"
)

// MissionType identifies how a mission submission is validated and judged.
type MissionType string

const (
	MissionTypeMultipleChoice MissionType = "QUIZ_MULTIPLE_CHOICE"
	MissionTypeTextInput      MissionType = "QUIZ_TEXT_INPUT"
	MissionTypeImageUpload    MissionType = "QUIZ_IMAGE_UPLOAD"
	MissionTypePhotoUpload    MissionType = "PHOTO_UPLOAD"
	MissionTypeSurvey         MissionType = "SURVEY"
	MissionTypePlaceVisit     MissionType = "PLACE_VISIT"
)

// MissionPlace is a physical location that missions are bound to.
type MissionPlace struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Location    string    `gorm:"type:text" json:"location"`
	Image       string    `gorm:"size:512" json:"image"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName pins the table name shared with the content management tooling.
func (MissionPlace) TableName() string {
	return "mission_place"
}

// MissionDetail describes a single mission. It is read-only to the submission pipeline.
type MissionDetail struct {
	ID                uint                        `gorm:"primaryKey" json:"id"`
	Title             string                      `gorm:"size:255;not null" json:"title"`
	Description       string                      `gorm:"type:text" json:"description"`
	MissionType       MissionType                 `gorm:"size:32;not null" json:"mission_type"`
	Question          string                      `gorm:"type:text" json:"question"`
	Answer            *string                     `gorm:"type:text" json:"answer,omitempty"`
	Choices           datatypes.JSONSlice[string] `json:"choices,omitempty"`
	AnswerExplanation *string                     `gorm:"type:text" json:"answer_explanation,omitempty"`
	Points            int                         `gorm:"not null;default:0" json:"points"`
	PlaceID           *uint                       `gorm:"index" json:"place_id"`
	CreatedAt         time.Time                   `json:"created_at"`
	UpdatedAt         time.Time                   `json:"updated_at"`
}

// TableName pins the table name shared with the content management tooling.
func (MissionDetail) TableName() string {
	return "mission_detail"
}

// CorrectChoiceIndex returns the position of the answer within the choices, or -1.
func (m MissionDetail) CorrectChoiceIndex() int {
	if m.Answer == nil {
		return -1
	}
	for idx, choice := range m.Choices {
		if choice == *m.Answer {
			return idx
		}
	}
	return -1
}

// AnswerText returns the configured answer or an empty string.
func (m MissionDetail) AnswerText() string {
	if m.Answer == nil {
		return ""
	}
	return *m.Answer
}
