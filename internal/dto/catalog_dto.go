package dto

import (
	"time"

	"github.com/noah-isme/honmoon-go-api/internal/models"
)

// PlaceResponse describes a mission place. Missions is filled by the listing
// endpoints and DistanceMeters only by the nearby search.
type PlaceResponse struct {
	ID             uint                     `json:"id"`
	Name           string                   `json:"name"`
	Description    string                   `json:"description,omitempty"`
	Location       string                   `json:"location,omitempty"`
	Image          string                   `json:"image,omitempty"`
	Latitude       *float64                 `json:"latitude"`
	Longitude      *float64                 `json:"longitude"`
	DistanceMeters *float64                 `json:"distance_m,omitempty"`
	Missions       []MissionSummaryResponse `json:"missions,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// MissionSummaryResponse is the short form of a mission used in listings.
type MissionSummaryResponse struct {
	ID          uint               `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Points      int                `json:"points"`
	MissionType models.MissionType `json:"mission_type"`
}

// MissionDetailResponse is what a player sees of a mission. The answer and
// its explanation never leave the server.
type MissionDetailResponse struct {
	ID          uint               `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Points      int                `json:"points"`
	MissionType models.MissionType `json:"mission_type"`
	PlaceID     *uint              `json:"place_id"`
	Question    string             `json:"question,omitempty"`
	Choices     []string           `json:"choices,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// NewPlaceResponse maps a place model.
func NewPlaceResponse(place models.MissionPlace) PlaceResponse {
	return PlaceResponse{
		ID:          place.ID,
		Name:        place.Name,
		Description: place.Description,
		Location:    place.Location,
		Image:       place.Image,
		Latitude:    place.Latitude,
		Longitude:   place.Longitude,
		CreatedAt:   place.CreatedAt,
		UpdatedAt:   place.UpdatedAt,
	}
}

// NewMissionSummaries maps missions to their listing form.
func NewMissionSummaries(missions []models.MissionDetail) []MissionSummaryResponse {
	items := make([]MissionSummaryResponse, 0, len(missions))
	for _, mission := range missions {
		items = append(items, MissionSummaryResponse{
			ID:          mission.ID,
			Title:       mission.Title,
			Description: mission.Description,
			Points:      mission.Points,
			MissionType: mission.MissionType,
		})
	}
	return items
}

// NewMissionDetailResponse maps a mission without its answer.
func NewMissionDetailResponse(mission models.MissionDetail) MissionDetailResponse {
	response := MissionDetailResponse{
		ID:          mission.ID,
		Title:       mission.Title,
		Description: mission.Description,
		Points:      mission.Points,
		MissionType: mission.MissionType,
		PlaceID:     mission.PlaceID,
		Question:    mission.Question,
		CreatedAt:   mission.CreatedAt,
		UpdatedAt:   mission.UpdatedAt,
	}
	if len(mission.Choices) > 0 {
		response.Choices = append([]string(nil), mission.Choices...)
	}
	return response
}
