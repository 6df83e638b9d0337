package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/honmoon-go-api/internal/dto"
	"github.com/noah-isme/honmoon-go-api/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// HistoryFilter selects which ledger entries History returns.
type HistoryFilter string

const (
	HistoryAll    HistoryFilter = "all"
	HistoryEarned HistoryFilter = "earned"
	HistoryUsed   HistoryFilter = "used"
)

// PointService exposes a user's point balance and history.
type PointService interface {
	Summary(ctx context.Context, userID uuid.UUID) (dto.PointSummaryResponse, error)
	History(ctx context.Context, userID uuid.UUID, filter HistoryFilter, limit, offset int) (dto.PointHistoryListResponse, error)
}

type pointService struct {
	points repository.PointRepository
	logger zerolog.Logger
}

// NewPointService constructs the point query service.
func NewPointService(points repository.PointRepository, logger zerolog.Logger) PointService {
	return &pointService{
		points: points,
		logger: logger.With().Str("component", "point_service").Logger(),
	}
}

func (s *pointService) Summary(ctx context.Context, userID uuid.UUID) (dto.PointSummaryResponse, error) {
	totals, err := s.points.Totals(ctx, userID)
	if err != nil {
		return dto.PointSummaryResponse{}, err
	}
	return dto.PointSummaryResponse{
		UserID:          userID.String(),
		CurrentPoints:   totals.Current,
		TotalEarned:     totals.Earned,
		TotalUsed:       totals.Used,
		TotalActivities: totals.TotalActivities,
	}, nil
}

func (s *pointService) History(ctx context.Context, userID uuid.UUID, filter HistoryFilter, limit, offset int) (dto.PointHistoryListResponse, error) {
	kind := repository.HistoryAll
	switch filter {
	case HistoryEarned:
		kind = repository.HistoryEarned
	case HistoryUsed:
		kind = repository.HistoryUsed
	}

	limit, offset = normalizePage(limit, offset)
	entries, total, err := s.points.ListHistory(ctx, userID, kind, limit, offset)
	if err != nil {
		return dto.PointHistoryListResponse{}, err
	}
	return dto.NewPointHistoryListResponse(entries, total), nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
