package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/honmoon-go-api/internal/observability"
	"github.com/noah-isme/honmoon-go-api/internal/repository"
)

// RewardIssuer grants mission points when a result is eligible.
type RewardIssuer interface {
	Eligible(result VerificationResult, missionPoints int) int
	IssueIfEligible(ctx context.Context, userID uuid.UUID, missionID uint, result VerificationResult, missionPoints int) (int, error)
}

type rewardIssuer struct {
	points repository.PointRepository
	policy RewardPolicy
	logger zerolog.Logger
}

// NewRewardIssuer constructs a reward issuer backed by the point ledger.
func NewRewardIssuer(points repository.PointRepository, policy RewardPolicy, logger zerolog.Logger) RewardIssuer {
	return &rewardIssuer{
		points: points,
		policy: policy,
		logger: logger.With().Str("component", "reward_issuer").Logger(),
	}
}

// Eligible returns the points a result would earn without writing anything.
func (r *rewardIssuer) Eligible(result VerificationResult, missionPoints int) int {
	if missionPoints <= 0 || !r.policy.Accepts(result) {
		return 0
	}
	return missionPoints
}

// IssueIfEligible appends a history entry and moves the running total when the result is eligible.
// It joins the caller's transaction when one is carried by ctx.
func (r *rewardIssuer) IssueIfEligible(ctx context.Context, userID uuid.UUID, missionID uint, result VerificationResult, missionPoints int) (int, error) {
	points := r.Eligible(result, missionPoints)
	if points == 0 {
		return 0, nil
	}

	description := fmt.Sprintf("Mission %d completed", missionID)
	if _, err := r.points.Earn(ctx, userID, missionID, points, description); err != nil {
		return 0, fmt.Errorf("issue reward: %w", err)
	}

	observability.PointsIssued().Add(float64(points))
	r.logger.Info().
		Str("user_id", userID.String()).
		Uint("mission_id", missionID).
		Int("points", points).
		Msg("mission reward issued")
	return points, nil
}
