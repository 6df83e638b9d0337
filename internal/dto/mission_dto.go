package dto

import (
	"time"

	"github.com/noah-isme/honmoon-go-api/internal/models"
)

// MissionSubmitRequest is the payload for submitting or previewing a mission answer.
// Which fields are required depends on the mission type and is checked by the verifier.
type MissionSubmitRequest struct {
	TextAnswer          *string `json:"text_answer" validate:"omitempty,max=2000"`
	SelectedChoiceIndex *int    `json:"selected_choice_index"`
	UploadedImageURL    *string `json:"uploaded_image_url" validate:"omitempty,max=1024"`
	PlaceID             uint    `json:"place_id" validate:"omitempty,gt=0"`
}

// AnswerCheckResponse is returned by the answer preview endpoint.
type AnswerCheckResponse struct {
	MissionID     uint    `json:"mission_id"`
	IsCorrect     bool    `json:"is_correct"`
	Confidence    float64 `json:"confidence"`
	Explanation   string  `json:"explanation"`
	Hint          *string `json:"hint,omitempty"`
	ExtractedText *string `json:"extracted_text,omitempty"`
	PointsOnOffer int     `json:"points_on_offer"`
	Provider      string  `json:"provider"`
}

// ActivityResponse represents a user activity to API consumers.
type ActivityResponse struct {
	ID                  uint                   `json:"id"`
	UserID              string                 `json:"user_id"`
	PlaceID             uint                   `json:"place_id"`
	MissionID           *uint                  `json:"mission_id"`
	Description         string                 `json:"description,omitempty"`
	IsCorrect           *bool                  `json:"is_correct"`
	IsCompleted         bool                   `json:"is_completed"`
	PointsEarned        int                    `json:"points_earned"`
	TextAnswer          *string                `json:"text_answer,omitempty"`
	SelectedChoiceIndex *int                   `json:"selected_choice_index,omitempty"`
	UploadedImageURL    *string                `json:"uploaded_image_url,omitempty"`
	Verification        map[string]interface{} `json:"verification,omitempty"`
	AlreadyExists       bool                   `json:"already_exists"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// ActivityListResponse wraps a page of activities.
type ActivityListResponse struct {
	Items []ActivityResponse `json:"items"`
	Total int64              `json:"total"`
}

// NewActivityResponse builds a response DTO from a model.
func NewActivityResponse(activity models.UserActivity) ActivityResponse {
	response := ActivityResponse{
		ID:                  activity.ID,
		UserID:              activity.UserID.String(),
		PlaceID:             activity.PlaceID,
		MissionID:           activity.MissionID,
		Description:         activity.Description,
		IsCorrect:           activity.IsCorrect,
		IsCompleted:         activity.IsCompleted,
		PointsEarned:        activity.PointsEarned,
		TextAnswer:          activity.TextAnswer,
		SelectedChoiceIndex: activity.SelectedChoiceIndex,
		UploadedImageURL:    activity.UploadedImageURL,
		AlreadyExists:       activity.AlreadyExists,
		CreatedAt:           activity.CreatedAt,
		UpdatedAt:           activity.UpdatedAt,
	}
	if len(activity.Verification) > 0 {
		response.Verification = map[string]interface{}(activity.Verification)
	}
	return response
}

// NewActivityListResponse maps a page of activities.
func NewActivityListResponse(activities []models.UserActivity, total int64) ActivityListResponse {
	items := make([]ActivityResponse, 0, len(activities))
	for _, activity := range activities {
		items = append(items, NewActivityResponse(activity))
	}
	return ActivityListResponse{Items: items, Total: total}
}
