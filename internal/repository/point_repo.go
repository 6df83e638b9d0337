package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/honmoon-go-api/internal/models"
)

// PointTotals aggregates a user's point history.
type PointTotals struct {
	Current         int
	Earned          int
	Used            int
	TotalActivities int
}

// PointDrift describes a summary whose running total disagrees with the history.
type PointDrift struct {
	UserID   uuid.UUID
	Recorded int
	Computed int
}

// HistoryKind narrows a history listing by the sign of its entries.
type HistoryKind string

const (
	HistoryAll    HistoryKind = ""
	HistoryEarned HistoryKind = "earned"
	HistoryUsed   HistoryKind = "used"
)

// PointRepository owns point history and the running totals derived from it.
type PointRepository interface {
	Earn(ctx context.Context, userID uuid.UUID, sourceID uint, points int, description string) (models.PointHistory, error)
	IncrementActivities(ctx context.Context, userID uuid.UUID) error
	ListHistory(ctx context.Context, userID uuid.UUID, kind HistoryKind, limit, offset int) ([]models.PointHistory, int64, error)
	Totals(ctx context.Context, userID uuid.UUID) (PointTotals, error)
	FindDrift(ctx context.Context) ([]PointDrift, error)
	RecomputeTotal(ctx context.Context, userID uuid.UUID) (int, error)
}

type pointRepository struct {
	db *gorm.DB
}

// NewPointRepository constructs the point repository.
func NewPointRepository(db *gorm.DB) PointRepository {
	return &pointRepository{db: db}
}

// Earn appends a history row and moves the running total in the same transaction.
func (r *pointRepository) Earn(ctx context.Context, userID uuid.UUID, sourceID uint, points int, description string) (models.PointHistory, error) {
	entry := models.PointHistory{
		UserID:      userID,
		Points:      points,
		Description: description,
		SourceType:  models.PointSourceMission,
		SourceID:    sourceID,
	}

	err := withinTransaction(ctx, r.db, func(ctx context.Context) error {
		if err := conn(ctx, r.db).Create(&entry).Error; err != nil {
			return err
		}
		return r.bumpSummary(ctx, userID, "total_points", points)
	})
	if err != nil {
		return models.PointHistory{}, err
	}
	return entry, nil
}

func (r *pointRepository) IncrementActivities(ctx context.Context, userID uuid.UUID) error {
	return r.bumpSummary(ctx, userID, "total_activities", 1)
}

func (r *pointRepository) bumpSummary(ctx context.Context, userID uuid.UUID, column string, delta int) error {
	summary := models.UserSummary{UserID: userID}
	switch column {
	case "total_points":
		summary.TotalPoints = delta
	case "total_activities":
		summary.TotalActivities = delta
	default:
		return errors.New("unknown summary column " + column)
	}

	return conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			column:       gorm.Expr("user_summary."+column+" + ?", delta),
			"updated_at": time.Now(),
		}),
	}).Create(&summary).Error
}

func (r *pointRepository) ListHistory(ctx context.Context, userID uuid.UUID, kind HistoryKind, limit, offset int) ([]models.PointHistory, int64, error) {
	query := conn(ctx, r.db).Model(&models.PointHistory{}).Where("user_id = ?", userID)
	switch kind {
	case HistoryEarned:
		query = query.Where("points > 0")
	case HistoryUsed:
		query = query.Where("points < 0")
	}

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

	var entries []models.PointHistory
	if err := query.Order("created_at DESC").Order("id DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *pointRepository) Totals(ctx context.Context, userID uuid.UUID) (PointTotals, error) {
	var sums struct {
		Earned int
		Used   int
	}
	err := conn(ctx, r.db).Model(&models.PointHistory{}).
		Select("COALESCE(SUM(CASE WHEN points > 0 THEN points ELSE 0 END), 0) AS earned, "+
			"COALESCE(SUM(CASE WHEN points < 0 THEN -points ELSE 0 END), 0) AS used").
		Where("user_id = ?", userID).
		Scan(&sums).Error
	if err != nil {
		return PointTotals{}, err
	}

	var summary models.UserSummary
	err = conn(ctx, r.db).Where("user_id = ?", userID).Take(&summary).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return PointTotals{}, err
	}

	return PointTotals{
		Current:         summary.TotalPoints,
		Earned:          sums.Earned,
		Used:            sums.Used,
		TotalActivities: summary.TotalActivities,
	}, nil
}

func (r *pointRepository) FindDrift(ctx context.Context) ([]PointDrift, error) {
	var drift []PointDrift
	err := conn(ctx, r.db).Table("user_summary AS s").
		Select("s.user_id AS user_id, s.total_points AS recorded, COALESCE(SUM(h.points), 0) AS computed").
		Joins("LEFT JOIN point_history AS h ON h.user_id = s.user_id").
		Group("s.user_id, s.total_points").
		Having("s.total_points <> COALESCE(SUM(h.points), 0)").
		Scan(&drift).Error
	if err != nil {
		return nil, err
	}
	return drift, nil
}

// RecomputeTotal rewrites the running total from the history inside the
// database. The summary row is locked first so an Earn that is still in flight
// either lands before the recompute reads the history or after it writes.
func (r *pointRepository) RecomputeTotal(ctx context.Context, userID uuid.UUID) (int, error) {
	var total int
	err := withinTransaction(ctx, r.db, func(ctx context.Context) error {
		var summary models.UserSummary
		err := conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			Take(&summary).Error
		if err != nil {
			return err
		}

		err = conn(ctx, r.db).Model(&models.UserSummary{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{
				"total_points": gorm.Expr("(SELECT COALESCE(SUM(points), 0) FROM point_history WHERE point_history.user_id = ?)", userID),
				"updated_at":   time.Now(),
			}).Error
		if err != nil {
			return err
		}

		return conn(ctx, r.db).Model(&models.UserSummary{}).
			Where("user_id = ?", userID).
			Select("total_points").
			Scan(&total).Error
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
