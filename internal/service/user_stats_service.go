package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/noah-isme/honmoon-go-api/internal/dto"
	"github.com/noah-isme/honmoon-go-api/internal/repository"
)

// UserStatsService reports quiz and mission statistics for a user.
type UserStatsService interface {
	QuizStats(ctx context.Context, userID uuid.UUID) (dto.QuizStatsResponse, error)
	MissionStats(ctx context.Context, userID uuid.UUID) (dto.MissionStatsResponse, error)
}

type userStatsService struct {
	activities repository.ActivityRepository
}

// NewUserStatsService constructs the statistics service.
func NewUserStatsService(activities repository.ActivityRepository) UserStatsService {
	return &userStatsService{activities: activities}
}

func (s *userStatsService) QuizStats(ctx context.Context, userID uuid.UUID) (dto.QuizStatsResponse, error) {
	stats, err := s.activities.Stats(ctx, userID)
	if err != nil {
		return dto.QuizStatsResponse{}, err
	}
	return dto.QuizStatsResponse{
		TotalQuizzes:      stats.Quizzes,
		CorrectQuizzes:    stats.CorrectQuizzes,
		Accuracy:          percentage(stats.CorrectQuizzes, stats.Quizzes),
		TotalPointsEarned: stats.QuizPoints,
	}, nil
}

func (s *userStatsService) MissionStats(ctx context.Context, userID uuid.UUID) (dto.MissionStatsResponse, error) {
	stats, err := s.activities.Stats(ctx, userID)
	if err != nil {
		return dto.MissionStatsResponse{}, err
	}
	return dto.MissionStatsResponse{
		TotalMissions:     stats.Activities,
		CompletedMissions: stats.Completed,
		CompletionRate:    percentage(stats.Completed, stats.Activities),
		TotalPointsEarned: stats.PointsEarned,
	}, nil
}

// percentage truncates towards zero and reports 0 for an empty total.
func percentage(part, total int) int {
	if total <= 0 {
		return 0
	}
	return part * 100 / total
}
