package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/honmoon-go-api/internal/models"
)

type countingMissionRepository struct {
	calls     int
	listCalls int
	mission   models.MissionDetail
	err       error
}

func (c *countingMissionRepository) GetByID(context.Context, uint) (models.MissionDetail, error) {
	c.calls++
	return c.mission, c.err
}

func (c *countingMissionRepository) ListByPlace(context.Context, uint) ([]models.MissionDetail, error) {
	c.listCalls++
	if c.err != nil {
		return nil, c.err
	}
	return []models.MissionDetail{c.mission}, nil
}

func TestMissionAndPlaceRepositories(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	place := models.MissionPlace{Name: "Gyeongbokgung"}
	require.NoError(t, db.Create(&place).Error)
	answer := "Seoul"
	mission := models.MissionDetail{
		Title:       "Capital",
		MissionType: models.MissionTypeMultipleChoice,
		Question:    "Capital of Korea?",
		Answer:      &answer,
		Choices:     []string{"Busan", "Seoul"},
		Points:      100,
		PlaceID:     &place.ID,
	}
	require.NoError(t, db.Create(&mission).Error)

	loaded, err := NewMissionRepository(db).GetByID(ctx, mission.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"Busan", "Seoul"}, []string(loaded.Choices))
	require.Equal(t, 1, loaded.CorrectChoiceIndex())

	_, err = NewMissionRepository(db).GetByID(ctx, mission.ID+100)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	places := NewPlaceRepository(db)
	exists, err := places.Exists(ctx, place.ID)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = places.Exists(ctx, place.ID+1)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestCachedMissionRepositoryServesFromCache(t *testing.T) {
	inner := &countingMissionRepository{mission: models.MissionDetail{ID: 5, Choices: []string{"a", "b"}}}
	repo := NewCachedMissionRepository(inner, time.Minute)

	first, err := repo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	first.Choices[0] = "mutated"

	second, err := repo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, []string(second.Choices))
	require.Equal(t, 1, inner.calls)
}

func TestCachedMissionRepositoryDoesNotCacheMisses(t *testing.T) {
	inner := &countingMissionRepository{err: gorm.ErrRecordNotFound}
	repo := NewCachedMissionRepository(inner, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := repo.GetByID(context.Background(), 9)
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	}
	require.Equal(t, 2, inner.calls)
}

func TestCachedMissionRepositoryDisabledWithoutTTL(t *testing.T) {
	inner := &countingMissionRepository{}
	require.Same(t, inner, NewCachedMissionRepository(inner, 0))
}

func TestMissionRepositoryListByPlace(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	palace := models.MissionPlace{Name: "Gyeongbokgung"}
	tower := models.MissionPlace{Name: "N Seoul Tower"}
	require.NoError(t, db.Create(&palace).Error)
	require.NoError(t, db.Create(&tower).Error)
	for _, mission := range []models.MissionDetail{
		{Title: "Gate", MissionType: models.MissionTypePlaceVisit, PlaceID: &palace.ID},
		{Title: "Tower", MissionType: models.MissionTypePlaceVisit, PlaceID: &tower.ID},
		{Title: "Throne", MissionType: models.MissionTypeSurvey, PlaceID: &palace.ID},
	} {
		require.NoError(t, db.Create(&mission).Error)
	}

	missions, err := NewMissionRepository(db).ListByPlace(ctx, palace.ID)
	require.NoError(t, err)
	require.Len(t, missions, 2)
	require.Equal(t, "Gate", missions[0].Title)
	require.Equal(t, "Throne", missions[1].Title)

	missions, err = NewMissionRepository(db).ListByPlace(ctx, tower.ID+10)
	require.NoError(t, err)
	require.Empty(t, missions)
}

func TestCachedMissionRepositoryCachesPlaceMissions(t *testing.T) {
	inner := &countingMissionRepository{mission: models.MissionDetail{ID: 9, Choices: []string{"x"}}}
	repo := NewCachedMissionRepository(inner, time.Minute)

	first, err := repo.ListByPlace(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, first, 1)
	first[0].Choices[0] = "mutated"

	second, err := repo.ListByPlace(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, []string{"x"}, []string(second[0].Choices))
	require.Equal(t, 1, inner.listCalls)
}
