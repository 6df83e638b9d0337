package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/honmoon-go-api/internal/dto"
	"github.com/noah-isme/honmoon-go-api/internal/models"
	"github.com/noah-isme/honmoon-go-api/internal/repository"
)

const (
	// DefaultNearbyRadiusMeters is used when a nearby search names no radius.
	DefaultNearbyRadiusMeters = 1000.0
	// MaxNearbyRadiusMeters caps nearby searches.
	MaxNearbyRadiusMeters = 50000.0
)

// ErrInvalidCoordinates indicates a nearby search outside valid latitude or longitude.
var ErrInvalidCoordinates = errors.New("lat must be within [-90, 90] and lng within [-180, 180]")

// CatalogService serves the read-only place and mission catalog.
type CatalogService interface {
	ListPlaces(ctx context.Context) ([]dto.PlaceResponse, error)
	GetPlace(ctx context.Context, id uint) (dto.PlaceResponse, error)
	SearchPlaces(ctx context.Context, title string) ([]dto.PlaceResponse, error)
	NearbyPlaces(ctx context.Context, lat, lng, radiusMeters float64) ([]dto.PlaceResponse, error)
	PlaceMissions(ctx context.Context, placeID uint) ([]dto.MissionSummaryResponse, error)
	GetMission(ctx context.Context, id uint) (dto.MissionDetailResponse, error)
}

type catalogService struct {
	places   repository.PlaceRepository
	missions repository.MissionRepository
}

// NewCatalogService constructs the catalog service.
func NewCatalogService(places repository.PlaceRepository, missions repository.MissionRepository) CatalogService {
	return &catalogService{places: places, missions: missions}
}

func (s *catalogService) ListPlaces(ctx context.Context) ([]dto.PlaceResponse, error) {
	places, err := s.places.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.withMissions(ctx, places, nil)
}

func (s *catalogService) GetPlace(ctx context.Context, id uint) (dto.PlaceResponse, error) {
	place, err := s.places.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PlaceResponse{}, ErrPlaceNotFound
		}
		return dto.PlaceResponse{}, err
	}
	return dto.NewPlaceResponse(place), nil
}

func (s *catalogService) SearchPlaces(ctx context.Context, title string) ([]dto.PlaceResponse, error) {
	if strings.TrimSpace(title) == "" {
		return nil, &ValidationError{Kind: ValidationRequiredFieldMissing, Field: "title"}
	}
	places, err := s.places.SearchByName(ctx, title)
	if err != nil {
		return nil, err
	}
	return s.withMissions(ctx, places, nil)
}

func (s *catalogService) NearbyPlaces(ctx context.Context, lat, lng, radiusMeters float64) ([]dto.PlaceResponse, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, ErrInvalidCoordinates
	}
	if radiusMeters <= 0 {
		radiusMeters = DefaultNearbyRadiusMeters
	}
	if radiusMeters > MaxNearbyRadiusMeters {
		radiusMeters = MaxNearbyRadiusMeters
	}

	nearby, err := s.places.Nearby(ctx, lat, lng, radiusMeters)
	if err != nil {
		return nil, err
	}

	places := make([]models.MissionPlace, 0, len(nearby))
	distances := make([]float64, 0, len(nearby))
	for _, entry := range nearby {
		places = append(places, entry.Place)
		distances = append(distances, entry.DistanceMeters)
	}
	return s.withMissions(ctx, places, distances)
}

func (s *catalogService) PlaceMissions(ctx context.Context, placeID uint) ([]dto.MissionSummaryResponse, error) {
	exists, err := s.places.Exists(ctx, placeID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrPlaceNotFound
	}

	missions, err := s.missions.ListByPlace(ctx, placeID)
	if err != nil {
		return nil, err
	}
	return dto.NewMissionSummaries(missions), nil
}

func (s *catalogService) GetMission(ctx context.Context, id uint) (dto.MissionDetailResponse, error) {
	mission, err := s.missions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MissionDetailResponse{}, ErrMissionNotFound
		}
		return dto.MissionDetailResponse{}, err
	}
	return dto.NewMissionDetailResponse(mission), nil
}

// withMissions maps places and attaches their mission summaries. distances,
// when given, runs parallel to places.
func (s *catalogService) withMissions(ctx context.Context, places []models.MissionPlace, distances []float64) ([]dto.PlaceResponse, error) {
	responses := make([]dto.PlaceResponse, 0, len(places))
	for i, place := range places {
		missions, err := s.missions.ListByPlace(ctx, place.ID)
		if err != nil {
			return nil, fmt.Errorf("missions for place %d: %w", place.ID, err)
		}

		response := dto.NewPlaceResponse(place)
		response.Missions = dto.NewMissionSummaries(missions)
		if distances != nil {
			distance := distances[i]
			response.DistanceMeters = &distance
		}
		responses = append(responses, response)
	}
	return responses, nil
}
