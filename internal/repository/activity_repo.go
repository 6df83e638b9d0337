package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/honmoon-go-api/internal/models"
)

// ActivityStats aggregates a user's activities. Quiz counters only include
// activities whose mission is one of the QUIZ_ types.
type ActivityStats struct {
	Activities     int
	Completed      int
	PointsEarned   int
	Quizzes        int
	CorrectQuizzes int
	QuizPoints     int
}

// ActivityRepository is the ledger of user activities. It guarantees at most
// one activity per (user, place).
type ActivityRepository interface {
	FindExisting(ctx context.Context, userID uuid.UUID, placeID uint) (*models.UserActivity, error)
	Record(ctx context.Context, candidate models.UserActivity) (models.UserActivity, error)
	GetByID(ctx context.Context, id uint) (models.UserActivity, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.UserActivity, int64, error)
	Stats(ctx context.Context, userID uuid.UUID) (ActivityStats, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository constructs the activity repository.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) FindExisting(ctx context.Context, userID uuid.UUID, placeID uint) (*models.UserActivity, error) {
	var activity models.UserActivity
	err := conn(ctx, r.db).
		Where("user_id = ? AND place_id = ?", userID, placeID).
		Take(&activity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// Record inserts candidate unless the (user, place) pair already has a row,
// in which case the existing row is returned with AlreadyExists set.
func (r *activityRepository) Record(ctx context.Context, candidate models.UserActivity) (models.UserActivity, error) {
	candidate.ID = 0
	candidate.AlreadyExists = false

	result := conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "place_id"}},
			DoNothing: true,
		}).
		Create(&candidate)
	if result.Error != nil {
		return models.UserActivity{}, result.Error
	}
	if result.RowsAffected > 0 {
		return candidate, nil
	}

	existing, err := r.FindExisting(ctx, candidate.UserID, candidate.PlaceID)
	if err != nil {
		return models.UserActivity{}, err
	}
	if existing == nil {
		return models.UserActivity{}, errors.New("activity conflict without existing row")
	}
	existing.AlreadyExists = true
	return *existing, nil
}

func (r *activityRepository) GetByID(ctx context.Context, id uint) (models.UserActivity, error) {
	var activity models.UserActivity
	if err := conn(ctx, r.db).First(&activity, id).Error; err != nil {
		return models.UserActivity{}, err
	}
	return activity, nil
}

func (r *activityRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.UserActivity, int64, error) {
	query := conn(ctx, r.db).Model(&models.UserActivity{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var activities []models.UserActivity
	if err := query.Order("created_at DESC").Order("id DESC").Find(&activities).Error; err != nil {
		return nil, 0, err
	}
	return activities, total, nil
}

func (r *activityRepository) Stats(ctx context.Context, userID uuid.UUID) (ActivityStats, error) {
	var stats ActivityStats
	err := conn(ctx, r.db).Table("user_activity AS a").
		Select("COUNT(*) AS activities, "+
			"COALESCE(SUM(CASE WHEN a.is_completed THEN 1 ELSE 0 END), 0) AS completed, "+
			"COALESCE(SUM(a.points_earned), 0) AS points_earned, "+
			"COALESCE(SUM(CASE WHEN m.mission_type LIKE 'QUIZ!_%' ESCAPE '!' THEN 1 ELSE 0 END), 0) AS quizzes, "+
			"COALESCE(SUM(CASE WHEN m.mission_type LIKE 'QUIZ!_%' ESCAPE '!' AND a.is_correct THEN 1 ELSE 0 END), 0) AS correct_quizzes, "+
			"COALESCE(SUM(CASE WHEN m.mission_type LIKE 'QUIZ!_%' ESCAPE '!' THEN a.points_earned ELSE 0 END), 0) AS quiz_points").
		Joins("LEFT JOIN mission_detail AS m ON m.id = a.mission_id").
		Where("a.user_id = ?", userID).
		Scan(&stats).Error
	if err != nil {
		return ActivityStats{}, err
	}
	return stats, nil
}
