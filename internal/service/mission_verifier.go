package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/honmoon-go-api/internal/models"
	"github.com/noah-isme/honmoon-go-api/pkg/ai"
	"github.com/noah-isme/honmoon-go-api/pkg/imageurl"
)

// MissionVerifier validates payloads against their mission type and decides correctness.
type MissionVerifier interface {
	Validate(mission models.MissionDetail, payload SubmissionPayload) error
	Verify(ctx context.Context, mission models.MissionDetail, payload SubmissionPayload) (VerificationResult, error)
}

type missionVerifier struct {
	judge  ai.Judge
	images *imageurl.Validator
	policy RewardPolicy
	logger zerolog.Logger
}

// NewMissionVerifier constructs a verifier. The judge is only consulted for image quizzes.
func NewMissionVerifier(judge ai.Judge, images *imageurl.Validator, policy RewardPolicy, logger zerolog.Logger) MissionVerifier {
	if images == nil {
		images = imageurl.New()
	}
	return &missionVerifier{
		judge:  judge,
		images: images,
		policy: policy,
		logger: logger.With().Str("component", "mission_verifier").Logger(),
	}
}

func (v *missionVerifier) Validate(mission models.MissionDetail, payload SubmissionPayload) error {
	switch mission.MissionType {
	case models.MissionTypeMultipleChoice:
		if payload.SelectedChoiceIndex == nil {
			return &ValidationError{Kind: ValidationRequiredFieldMissing, Field: "selected_choice_index"}
		}
		if len(mission.Choices) == 0 {
			return &ValidationError{Kind: ValidationRequiredFieldMissing, Field: "choices"}
		}
		if idx := *payload.SelectedChoiceIndex; idx < 0 || idx >= len(mission.Choices) {
			return &ValidationError{Kind: ValidationInvalidChoiceIndex, Field: "selected_choice_index"}
		}
	case models.MissionTypeTextInput, models.MissionTypeSurvey:
		return requireText(payload.TextAnswer)
	case models.MissionTypeImageUpload, models.MissionTypePhotoUpload:
		if payload.UploadedImageURL == nil {
			return &ValidationError{Kind: ValidationRequiredFieldMissing, Field: "uploaded_image_url"}
		}
		if _, err := v.images.Validate(*payload.UploadedImageURL); err != nil {
			return &ValidationError{Kind: ValidationUnsafeImageURL, Field: "uploaded_image_url", Err: err}
		}
	case models.MissionTypePlaceVisit:
	}
	return nil
}

func (v *missionVerifier) Verify(ctx context.Context, mission models.MissionDetail, payload SubmissionPayload) (VerificationResult, error) {
	if err := v.Validate(mission, payload); err != nil {
		return VerificationResult{}, err
	}

	switch mission.MissionType {
	case models.MissionTypeMultipleChoice:
		return ruleResult(*payload.SelectedChoiceIndex == mission.CorrectChoiceIndex(), "selected choice compared with the answer"), nil
	case models.MissionTypeTextInput:
		correct := strings.EqualFold(strings.TrimSpace(*payload.TextAnswer), strings.TrimSpace(mission.AnswerText()))
		return ruleResult(correct, "text answer compared with the answer"), nil
	case models.MissionTypeImageUpload:
		return v.verifyImage(ctx, mission, *payload.UploadedImageURL)
	case models.MissionTypePhotoUpload:
		return ruleResult(true, "photo uploaded"), nil
	case models.MissionTypeSurvey:
		return ruleResult(true, "survey answered"), nil
	case models.MissionTypePlaceVisit:
		return ruleResult(true, "place visited"), nil
	default:
		v.logger.Warn().Str("mission_type", string(mission.MissionType)).Uint("mission_id", mission.ID).Msg("unknown mission type")
		return ruleResult(false, "unsupported mission type"), nil
	}
}

func (v *missionVerifier) verifyImage(ctx context.Context, mission models.MissionDetail, imageURL string) (VerificationResult, error) {
	if v.judge == nil {
		return VerificationResult{}, &AIServiceError{Err: ai.ErrAllJudgesFailed}
	}

	analysis, err := v.judge.AnalyzeImage(ctx, imageURL)
	if err != nil {
		return VerificationResult{}, &AIServiceError{Err: err}
	}

	prompt := ai.MissionPrompt{Question: mission.Question, CorrectAnswer: mission.AnswerText()}
	check, err := v.judge.CheckImageAnswer(ctx, prompt, analysis.ExtractedText)
	if err != nil {
		return VerificationResult{}, &AIServiceError{Err: err}
	}

	result := VerificationResult{
		Confidence:    check.Confidence,
		Reasoning:     check.Reasoning,
		ExtractedText: stringPtr(analysis.ExtractedText),
		Provider:      check.Provider,
		IsCorrect:     check.IsCorrect,
	}
	result.IsCorrect = v.policy.Accepts(result)
	if !result.IsCorrect {
		result.Hint = hintOrDefault(check.Hint)
	}
	return result, nil
}

func requireText(answer *string) error {
	if answer == nil {
		return &ValidationError{Kind: ValidationRequiredFieldMissing, Field: "text_answer"}
	}
	if strings.TrimSpace(*answer) == "" {
		return &ValidationError{Kind: ValidationTextAnswerEmpty, Field: "text_answer"}
	}
	return nil
}

func ruleResult(correct bool, reasoning string) VerificationResult {
	result := VerificationResult{
		IsCorrect:  correct,
		Confidence: 1.0,
		Reasoning:  reasoning,
		Provider:   ProviderRule,
	}
	if !correct {
		result.Hint = stringPtr(defaultIncorrectHint)
	}
	return result
}

func hintOrDefault(hint string) *string {
	if strings.TrimSpace(hint) == "" {
		return stringPtr(defaultIncorrectHint)
	}
	return stringPtr(hint)
}
