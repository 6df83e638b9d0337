package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/honmoon-go-api/internal/models"
)

// ActivityCompletedSubject is the NATS subject for newly recorded activities.
const ActivityCompletedSubject = "honmoon.activities.completed"

// ActivityPublisher announces recorded activities to other services.
type ActivityPublisher interface {
	ActivityCompleted(ctx context.Context, activity models.UserActivity)
}

type activityCompletedEvent struct {
	Source       string    `json:"source"`
	ActivityID   uint      `json:"activity_id"`
	UserID       string    `json:"user_id"`
	PlaceID      uint      `json:"place_id"`
	MissionID    *uint     `json:"mission_id,omitempty"`
	IsCorrect    *bool     `json:"is_correct,omitempty"`
	PointsEarned int       `json:"points_earned"`
	CompletedAt  time.Time `json:"completed_at"`
}

type natsActivityPublisher struct {
	conn    *nats.Conn
	subject string
	nodeID  string
	logger  zerolog.Logger
}

// NewActivityPublisher publishes to NATS. A nil connection disables publishing.
func NewActivityPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) ActivityPublisher {
	if conn == nil {
		return noopActivityPublisher{}
	}
	if subject == "" {
		subject = ActivityCompletedSubject
	}
	return &natsActivityPublisher{
		conn:    conn,
		subject: subject,
		nodeID:  uuid.NewString(),
		logger:  logger.With().Str("component", "activity_publisher").Logger(),
	}
}

// ActivityCompleted is fire and forget; a publish failure never fails the submission.
func (p *natsActivityPublisher) ActivityCompleted(_ context.Context, activity models.UserActivity) {
	payload, err := encodeActivityCompleted(p.nodeID, activity)
	if err != nil {
		p.logger.Warn().Err(err).Uint("activity_id", activity.ID).Msg("failed to encode activity event")
		return
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		p.logger.Warn().Err(err).Uint("activity_id", activity.ID).Msg("failed to publish activity event")
	}
}

func encodeActivityCompleted(source string, activity models.UserActivity) ([]byte, error) {
	return json.Marshal(activityCompletedEvent{
		Source:       source,
		ActivityID:   activity.ID,
		UserID:       activity.UserID.String(),
		PlaceID:      activity.PlaceID,
		MissionID:    activity.MissionID,
		IsCorrect:    activity.IsCorrect,
		PointsEarned: activity.PointsEarned,
		CompletedAt:  activity.CreatedAt,
	})
}

type noopActivityPublisher struct{}

func (noopActivityPublisher) ActivityCompleted(context.Context, models.UserActivity) {}
