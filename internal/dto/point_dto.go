package dto

import (
	"time"

	"github.com/noah-isme/honmoon-go-api/internal/models"
)

// PointSummaryResponse reports a user's point balance.
type PointSummaryResponse struct {
	UserID          string `json:"user_id"`
	CurrentPoints   int    `json:"current_points"`
	TotalEarned     int    `json:"total_earned"`
	TotalUsed       int    `json:"total_used"`
	TotalActivities int    `json:"total_activities"`
}

// PointHistoryResponse is a single ledger entry.
type PointHistoryResponse struct {
	ID          uint      `json:"id"`
	Points      int       `json:"points"`
	Description string    `json:"description"`
	SourceType  string    `json:"source_type"`
	SourceID    uint      `json:"source_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// PointHistoryListResponse wraps a page of ledger entries.
type PointHistoryListResponse struct {
	Items []PointHistoryResponse `json:"items"`
	Total int64                  `json:"total"`
}

// NewPointHistoryListResponse maps a page of ledger entries.
func NewPointHistoryListResponse(entries []models.PointHistory, total int64) PointHistoryListResponse {
	items := make([]PointHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, PointHistoryResponse{
			ID:          entry.ID,
			Points:      entry.Points,
			Description: entry.Description,
			SourceType:  entry.SourceType,
			SourceID:    entry.SourceID,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return PointHistoryListResponse{Items: items, Total: total}
}
