package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"github.com/noah-isme/honmoon-go-api/internal/models"
)

// MissionRepository reads mission definitions.
type MissionRepository interface {
	GetByID(ctx context.Context, id uint) (models.MissionDetail, error)
	ListByPlace(ctx context.Context, placeID uint) ([]models.MissionDetail, error)
}

type missionRepository struct {
	db *gorm.DB
}

// NewMissionRepository constructs the mission repository.
func NewMissionRepository(db *gorm.DB) MissionRepository {
	return &missionRepository{db: db}
}

func (r *missionRepository) GetByID(ctx context.Context, id uint) (models.MissionDetail, error) {
	var mission models.MissionDetail
	if err := conn(ctx, r.db).First(&mission, id).Error; err != nil {
		return models.MissionDetail{}, err
	}
	return mission, nil
}

// cachedMissionRepository keeps missions in process memory. Missions are
// edited out of band, so entries expire after ttl rather than on write.
func (r *missionRepository) ListByPlace(ctx context.Context, placeID uint) ([]models.MissionDetail, error) {
	var missions []models.MissionDetail
	if err := conn(ctx, r.db).Where("place_id = ?", placeID).Order("id ASC").Find(&missions).Error; err != nil {
		return nil, err
	}
	return missions, nil
}

type cachedMissionRepository struct {
	next  MissionRepository
	cache *gocache.Cache
}

// NewCachedMissionRepository wraps next with a read-through cache.
func NewCachedMissionRepository(next MissionRepository, ttl time.Duration) MissionRepository {
	if ttl <= 0 {
		return next
	}
	return &cachedMissionRepository{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (r *cachedMissionRepository) GetByID(ctx context.Context, id uint) (models.MissionDetail, error) {
	key := fmt.Sprintf("mission:%d", id)
	if cached, ok := r.cache.Get(key); ok {
		return cloneMission(cached.(models.MissionDetail)), nil
	}

	mission, err := r.next.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.MissionDetail{}, err
		}
		return models.MissionDetail{}, fmt.Errorf("load mission %d: %w", id, err)
	}

	r.cache.SetDefault(key, cloneMission(mission))
	return mission, nil
}

func (r *cachedMissionRepository) ListByPlace(ctx context.Context, placeID uint) ([]models.MissionDetail, error) {
	key := fmt.Sprintf("place-missions:%d", placeID)
	if cached, ok := r.cache.Get(key); ok {
		return cloneMissions(cached.([]models.MissionDetail)), nil
	}

	missions, err := r.next.ListByPlace(ctx, placeID)
	if err != nil {
		return nil, fmt.Errorf("list missions for place %d: %w", placeID, err)
	}

	r.cache.SetDefault(key, cloneMissions(missions))
	return missions, nil
}

func cloneMissions(missions []models.MissionDetail) []models.MissionDetail {
	cloned := make([]models.MissionDetail, len(missions))
	for i, mission := range missions {
		cloned[i] = cloneMission(mission)
	}
	return cloned
}

func cloneMission(mission models.MissionDetail) models.MissionDetail {
	if mission.Choices != nil {
		mission.Choices = append([]string(nil), mission.Choices...)
	}
	return mission
}
