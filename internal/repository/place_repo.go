package repository

import (
	"context"
	"math"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/honmoon-go-api/internal/models"
)

const (
	earthRadiusMeters = 6371000.0
	metersPerDegree   = 111320.0
)

// PlaceDistance pairs a place with its great-circle distance from a query point.
type PlaceDistance struct {
	Place          models.MissionPlace
	DistanceMeters float64
}

// PlaceRepository reads mission places.
type PlaceRepository interface {
	GetByID(ctx context.Context, id uint) (models.MissionPlace, error)
	Exists(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context) ([]models.MissionPlace, error)
	SearchByName(ctx context.Context, title string) ([]models.MissionPlace, error)
	Nearby(ctx context.Context, lat, lng, radiusMeters float64) ([]PlaceDistance, error)
}

type placeRepository struct {
	db *gorm.DB
}

// NewPlaceRepository constructs the place repository.
func NewPlaceRepository(db *gorm.DB) PlaceRepository {
	return &placeRepository{db: db}
}

func (r *placeRepository) GetByID(ctx context.Context, id uint) (models.MissionPlace, error) {
	var place models.MissionPlace
	if err := conn(ctx, r.db).First(&place, id).Error; err != nil {
		return models.MissionPlace{}, err
	}
	return place, nil
}

func (r *placeRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.MissionPlace{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *placeRepository) List(ctx context.Context) ([]models.MissionPlace, error) {
	var places []models.MissionPlace
	if err := conn(ctx, r.db).Order("id ASC").Find(&places).Error; err != nil {
		return nil, err
	}
	return places, nil
}

// SearchByName matches places whose name contains title, ignoring case.
func (r *placeRepository) SearchByName(ctx context.Context, title string) ([]models.MissionPlace, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(title))) + "%"

	var places []models.MissionPlace
	err := conn(ctx, r.db).
		Where("LOWER(name) LIKE ? ESCAPE '\\'", pattern).
		Order("id ASC").
		Find(&places).Error
	if err != nil {
		return nil, err
	}
	return places, nil
}

// Nearby returns places within radiusMeters of (lat, lng), nearest first.
// A bounding box narrows the rows in SQL before exact distances are computed.
func (r *placeRepository) Nearby(ctx context.Context, lat, lng, radiusMeters float64) ([]PlaceDistance, error) {
	latDelta := radiusMeters / metersPerDegree
	query := conn(ctx, r.db).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Where("latitude BETWEEN ? AND ?", lat-latDelta, lat+latDelta)

	// Longitude degrees shrink towards the poles; near them the box would span
	// every meridian anyway.
	if cos := math.Cos(lat * math.Pi / 180); cos > 0.01 {
		lngDelta := radiusMeters / (metersPerDegree * cos)
		if lngDelta < 180 {
			query = query.Where("longitude BETWEEN ? AND ?", lng-lngDelta, lng+lngDelta)
		}
	}

	var candidates []models.MissionPlace
	if err := query.Find(&candidates).Error; err != nil {
		return nil, err
	}

	nearby := make([]PlaceDistance, 0, len(candidates))
	for _, place := range candidates {
		distance := haversineMeters(lat, lng, *place.Latitude, *place.Longitude)
		if distance <= radiusMeters {
			nearby = append(nearby, PlaceDistance{Place: place, DistanceMeters: distance})
		}
	}
	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].DistanceMeters < nearby[j].DistanceMeters
	})
	return nearby, nil
}

func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
