package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/honmoon-go-api/internal/dto"
	"github.com/noah-isme/honmoon-go-api/internal/models"
	"github.com/noah-isme/honmoon-go-api/internal/observability"
	"github.com/noah-isme/honmoon-go-api/internal/repository"
	"github.com/noah-isme/honmoon-go-api/pkg/ai"
)

const (
	outcomeRewarded    = "rewarded"
	outcomeNotRewarded = "not_rewarded"
	outcomeDuplicate   = "duplicate"
	outcomeInvalid     = "invalid"
	outcomeAIError     = "ai_error"
	outcomeFailed      = "failed"

	defaultContentionWait = 65 * time.Second
	defaultContentionPoll = 200 * time.Millisecond
)

// MissionSubmissionService runs the submit flow: duplicate check, validation,
// verification, reward and record.
type MissionSubmissionService interface {
	Submit(ctx context.Context, userID uuid.UUID, placeID, missionID uint, payload SubmissionPayload) (dto.ActivityResponse, error)
	Verify(ctx context.Context, mission models.MissionDetail, payload SubmissionPayload) (VerificationResult, error)
	CheckAnswer(ctx context.Context, missionID uint, payload SubmissionPayload) (dto.AnswerCheckResponse, error)
	ListUserActivities(ctx context.Context, userID uuid.UUID, limit, offset int) (dto.ActivityListResponse, error)
	GetActivity(ctx context.Context, userID uuid.UUID, id uint) (dto.ActivityResponse, error)
}

// MissionSubmissionDependencies groups the collaborators of the submission service.
// Judge, Guard and Publisher are optional. ContentionWait bounds how long a
// request waits for another in-flight submission of the same place.
type MissionSubmissionDependencies struct {
	Missions   repository.MissionRepository
	Places     repository.PlaceRepository
	Activities repository.ActivityRepository
	Points     repository.PointRepository
	Transactor repository.Transactor
	Verifier   MissionVerifier
	Rewards    RewardIssuer
	Judge      ai.Judge
	Guard      SubmissionGuard
	Publisher  ActivityPublisher
	Logger     zerolog.Logger

	ContentionWait time.Duration
	ContentionPoll time.Duration
}

type missionSubmissionService struct {
	missions   repository.MissionRepository
	places     repository.PlaceRepository
	activities repository.ActivityRepository
	points     repository.PointRepository
	tx         repository.Transactor
	verifier   MissionVerifier
	rewards    RewardIssuer
	judge      ai.Judge
	guard      SubmissionGuard
	publisher  ActivityPublisher
	wait       time.Duration
	poll       time.Duration
	sanitizer  *bluemonday.Policy
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// NewMissionSubmissionService constructs the submission service.
func NewMissionSubmissionService(deps MissionSubmissionDependencies) MissionSubmissionService {
	guard := deps.Guard
	if guard == nil {
		guard = noopSubmissionGuard{}
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = noopActivityPublisher{}
	}
	wait := deps.ContentionWait
	if wait <= 0 {
		wait = defaultContentionWait
	}
	poll := deps.ContentionPoll
	if poll <= 0 {
		poll = defaultContentionPoll
	}

	return &missionSubmissionService{
		missions:   deps.Missions,
		places:     deps.Places,
		activities: deps.Activities,
		points:     deps.Points,
		tx:         deps.Transactor,
		verifier:   deps.Verifier,
		rewards:    deps.Rewards,
		judge:      deps.Judge,
		guard:      guard,
		publisher:  publisher,
		wait:       wait,
		poll:       poll,
		sanitizer:  bluemonday.StrictPolicy(),
		tracer:     otel.Tracer("github.com/noah-isme/honmoon-go-api/internal/service/missions"),
		logger:     deps.Logger.With().Str("component", "mission_submission_service").Logger(),
	}
}

// Submit records a user's answer for the mission's place. A repeated submission
// for the same place returns the earlier activity with AlreadyExists set, even
// when the mission has since been removed and the retry names the place.
// placeID may be zero, in which case the mission's place is used.
func (s *missionSubmissionService) Submit(ctx context.Context, userID uuid.UUID, placeID, missionID uint, payload SubmissionPayload) (response dto.ActivityResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "missions.submit", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.Int64("mission.id", int64(missionID)),
	))
	defer span.End()

	start := time.Now()
	missionType := "unknown"
	outcome := outcomeFailed
	defer func() {
		observability.Submissions().WithLabelValues(missionType, outcome).Inc()
		observability.SubmissionDuration().WithLabelValues(missionType).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.String("submission.outcome", outcome))
	}()

	if placeID != 0 {
		existing, err := s.findExisting(ctx, userID, placeID)
		if err != nil {
			return dto.ActivityResponse{}, err
		}
		if existing != nil {
			outcome = outcomeDuplicate
			return dto.NewActivityResponse(*existing), nil
		}
	}

	mission, err := s.loadMission(ctx, missionID)
	if err != nil {
		return dto.ActivityResponse{}, err
	}
	missionType = string(mission.MissionType)

	resolvedPlace, err := s.resolvePlace(ctx, mission, placeID)
	if err != nil {
		return dto.ActivityResponse{}, err
	}
	span.SetAttributes(attribute.Int64("place.id", int64(resolvedPlace)))

	if placeID == 0 {
		existing, err := s.findExisting(ctx, userID, resolvedPlace)
		if err != nil {
			return dto.ActivityResponse{}, err
		}
		if existing != nil {
			outcome = outcomeDuplicate
			return dto.NewActivityResponse(*existing), nil
		}
	}

	if err := s.verifier.Validate(mission, payload); err != nil {
		outcome = outcomeInvalid
		return dto.ActivityResponse{}, err
	}

	release, acquired := s.guard.Acquire(ctx, userID, resolvedPlace)
	if !acquired {
		existing, takenOver, err := s.awaitInFlight(ctx, userID, resolvedPlace)
		if err != nil {
			return dto.ActivityResponse{}, err
		}
		if existing != nil {
			outcome = outcomeDuplicate
			return dto.NewActivityResponse(*existing), nil
		}
		release = takenOver
	}
	defer release()

	result, err := s.verifier.Verify(ctx, mission, payload)
	if err != nil {
		var aiErr *AIServiceError
		if errors.As(err, &aiErr) {
			outcome = outcomeAIError
			s.logger.Error().Err(err).Uint("mission_id", mission.ID).Msg("mission verification failed")
		}
		return dto.ActivityResponse{}, err
	}

	candidate := models.UserActivity{
		UserID:              userID,
		PlaceID:             resolvedPlace,
		MissionID:           &mission.ID,
		Description:         mission.Title,
		IsCorrect:           &result.IsCorrect,
		IsCompleted:         true,
		PointsEarned:        s.rewards.Eligible(result, mission.Points),
		TextAnswer:          s.sanitizeAnswer(payload.TextAnswer),
		SelectedChoiceIndex: payload.SelectedChoiceIndex,
		UploadedImageURL:    payload.UploadedImageURL,
		Verification:        verificationDetails(result),
	}

	var recorded models.UserActivity
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		activity, err := s.activities.Record(ctx, candidate)
		if err != nil {
			return fmt.Errorf("record activity: %w", err)
		}
		recorded = activity
		if activity.AlreadyExists {
			return nil
		}

		if _, err := s.rewards.IssueIfEligible(ctx, userID, mission.ID, result, mission.Points); err != nil {
			return err
		}
		if err := s.points.IncrementActivities(ctx, userID); err != nil {
			return fmt.Errorf("increment activities: %w", err)
		}
		return nil
	})
	if err != nil {
		return dto.ActivityResponse{}, err
	}

	switch {
	case recorded.AlreadyExists:
		outcome = outcomeDuplicate
	case recorded.PointsEarned > 0:
		outcome = outcomeRewarded
	default:
		outcome = outcomeNotRewarded
	}

	if !recorded.AlreadyExists {
		s.publisher.ActivityCompleted(ctx, recorded)
		s.logger.Info().
			Str("user_id", userID.String()).
			Uint("place_id", resolvedPlace).
			Uint("mission_id", mission.ID).
			Bool("is_correct", result.IsCorrect).
			Int("points", recorded.PointsEarned).
			Str("provider", result.Provider).
			Msg("mission submission recorded")
	}

	return dto.NewActivityResponse(recorded), nil
}

// Verify validates and judges a payload without recording anything.
func (s *missionSubmissionService) Verify(ctx context.Context, mission models.MissionDetail, payload SubmissionPayload) (VerificationResult, error) {
	if err := s.verifier.Validate(mission, payload); err != nil {
		return VerificationResult{}, err
	}
	return s.verifier.Verify(ctx, mission, payload)
}

// CheckAnswer previews the verdict for a payload. Wrong text answers get a
// judge written hint when a judge is configured.
func (s *missionSubmissionService) CheckAnswer(ctx context.Context, missionID uint, payload SubmissionPayload) (dto.AnswerCheckResponse, error) {
	ctx, span := s.tracer.Start(ctx, "missions.check_answer", trace.WithAttributes(
		attribute.Int64("mission.id", int64(missionID)),
	))
	defer span.End()

	mission, err := s.loadMission(ctx, missionID)
	if err != nil {
		return dto.AnswerCheckResponse{}, err
	}

	result, err := s.Verify(ctx, mission, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return dto.AnswerCheckResponse{}, err
	}

	if mission.MissionType == models.MissionTypeTextInput && !result.IsCorrect {
		result = s.enrichTextHint(ctx, mission, *payload.TextAnswer, result)
	}

	response := dto.AnswerCheckResponse{
		MissionID:     mission.ID,
		IsCorrect:     result.IsCorrect,
		Confidence:    result.Confidence,
		Explanation:   explanationFor(mission, result),
		ExtractedText: result.ExtractedText,
		PointsOnOffer: s.rewards.Eligible(result, mission.Points),
		Provider:      result.Provider,
	}
	if !result.IsCorrect {
		response.Hint = result.Hint
	}
	return response, nil
}

func (s *missionSubmissionService) ListUserActivities(ctx context.Context, userID uuid.UUID, limit, offset int) (dto.ActivityListResponse, error) {
	limit, offset = normalizePage(limit, offset)
	activities, total, err := s.activities.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return dto.ActivityListResponse{}, err
	}
	return dto.NewActivityListResponse(activities, total), nil
}

func (s *missionSubmissionService) GetActivity(ctx context.Context, userID uuid.UUID, id uint) (dto.ActivityResponse, error) {
	activity, err := s.activities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ActivityResponse{}, ErrActivityNotFound
		}
		return dto.ActivityResponse{}, err
	}
	if activity.UserID != userID {
		return dto.ActivityResponse{}, ErrActivityNotFound
	}
	return dto.NewActivityResponse(activity), nil
}

func (s *missionSubmissionService) findExisting(ctx context.Context, userID uuid.UUID, placeID uint) (*models.UserActivity, error) {
	existing, err := s.activities.FindExisting(ctx, userID, placeID)
	if err != nil {
		return nil, fmt.Errorf("find existing activity: %w", err)
	}
	if existing != nil {
		existing.AlreadyExists = true
	}
	return existing, nil
}

// awaitInFlight waits while another request holds the guard for the same place.
// It returns the activity that request recorded, or a release func once the
// guard is free again. When the wait runs out the caller goes on without the
// guard and the ledger's unique index decides.
func (s *missionSubmissionService) awaitInFlight(ctx context.Context, userID uuid.UUID, placeID uint) (*models.UserActivity, func(), error) {
	deadline := time.NewTimer(s.wait)
	defer deadline.Stop()
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-deadline.C:
			s.logger.Warn().
				Str("user_id", userID.String()).
				Uint("place_id", placeID).
				Dur("waited", s.wait).
				Msg("submission guard still held, continuing without it")
			return nil, func() {}, nil
		case <-ticker.C:
		}

		existing, err := s.findExisting(ctx, userID, placeID)
		if err != nil {
			return nil, nil, err
		}
		if existing != nil {
			return existing, nil, nil
		}
		if release, ok := s.guard.Acquire(ctx, userID, placeID); ok {
			return nil, release, nil
		}
	}
}

func (s *missionSubmissionService) loadMission(ctx context.Context, missionID uint) (models.MissionDetail, error) {
	mission, err := s.missions.GetByID(ctx, missionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.MissionDetail{}, ErrMissionNotFound
		}
		return models.MissionDetail{}, err
	}
	return mission, nil
}

func (s *missionSubmissionService) resolvePlace(ctx context.Context, mission models.MissionDetail, requested uint) (uint, error) {
	if mission.PlaceID == nil {
		return 0, ErrPlaceNotFound
	}
	placeID := *mission.PlaceID
	if requested != 0 && requested != placeID {
		return 0, ErrPlaceNotFound
	}

	exists, err := s.places.Exists(ctx, placeID)
	if err != nil {
		return 0, fmt.Errorf("check place: %w", err)
	}
	if !exists {
		return 0, ErrPlaceNotFound
	}
	return placeID, nil
}

func (s *missionSubmissionService) enrichTextHint(ctx context.Context, mission models.MissionDetail, answer string, result VerificationResult) VerificationResult {
	if s.judge == nil {
		return result
	}

	prompt := ai.MissionPrompt{Question: mission.Question, CorrectAnswer: mission.AnswerText()}
	check, err := s.judge.CheckTextAnswer(ctx, prompt, answer)
	if err != nil {
		s.logger.Warn().Err(err).Uint("mission_id", mission.ID).Msg("judge hint unavailable")
		return result
	}
	if check.IsCorrect || strings.TrimSpace(check.Hint) == "" {
		return result
	}

	result.Hint = stringPtr(check.Hint)
	if check.Reasoning != "" {
		result.Reasoning = check.Reasoning
	}
	return result
}

func (s *missionSubmissionService) sanitizeAnswer(answer *string) *string {
	if answer == nil {
		return nil
	}
	clean := strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(*answer)))
	return &clean
}

func explanationFor(mission models.MissionDetail, result VerificationResult) string {
	if result.IsCorrect {
		if mission.AnswerExplanation != nil && strings.TrimSpace(*mission.AnswerExplanation) != "" {
			return *mission.AnswerExplanation
		}
		return result.Reasoning
	}
	if result.ExtractedText != nil {
		return fmt.Sprintf("Extracted text: '%s' - %s", *result.ExtractedText, result.Reasoning)
	}
	return result.Reasoning
}

func verificationDetails(result VerificationResult) datatypes.JSONMap {
	details := datatypes.JSONMap{
		"reasoning":  result.Reasoning,
		"confidence": result.Confidence,
		"provider":   result.Provider,
	}
	if result.Hint != nil {
		details["hint"] = *result.Hint
	}
	if result.ExtractedText != nil {
		details["extracted_text"] = *result.ExtractedText
	}
	return details
}
