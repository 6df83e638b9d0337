package service

import (
	"errors"
	"fmt"
	"math"
)

// ErrMissionNotFound indicates the mission cannot be located.
var ErrMissionNotFound = errors.New("mission not found")

// ErrPlaceNotFound indicates the mission is not bound to an existing place.
var ErrPlaceNotFound = errors.New("place not found")

// ErrActivityNotFound indicates the activity cannot be located for the caller.
var ErrActivityNotFound = errors.New("activity not found")

// ProviderRule labels results decided without an AI judge.
const ProviderRule = "rule"

const defaultIncorrectHint = "Check the hint and try again"

// SubmissionPayload carries the answer fields a mission type may require.
type SubmissionPayload struct {
	TextAnswer          *string
	SelectedChoiceIndex *int
	UploadedImageURL    *string
}

// VerificationResult is the outcome of judging a single submission.
type VerificationResult struct {
	IsCorrect     bool
	Confidence    float64
	Reasoning     string
	Hint          *string
	ExtractedText *string
	Provider      string
}

// ValidationKind classifies why a payload does not fit its mission type.
type ValidationKind string

const (
	ValidationRequiredFieldMissing ValidationKind = "REQUIRED_FIELD_MISSING"
	ValidationInvalidChoiceIndex   ValidationKind = "INVALID_CHOICE_INDEX"
	ValidationTextAnswerEmpty      ValidationKind = "TEXT_ANSWER_EMPTY"
	ValidationUnsafeImageURL       ValidationKind = "UNSAFE_IMAGE_URL"
)

// ValidationError reports a payload that does not satisfy its mission type.
type ValidationError struct {
	Kind  ValidationKind
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Field, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Kind)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// AIServiceError reports that no judge could evaluate the submission.
type AIServiceError struct {
	Err error
}

func (e *AIServiceError) Error() string {
	return fmt.Sprintf("ai service unavailable: %v", e.Err)
}

func (e *AIServiceError) Unwrap() error {
	return e.Err
}

// DefaultConfidenceThreshold is the minimum judge confidence that earns a reward.
const DefaultConfidenceThreshold = 0.5

// RewardPolicy holds the business rules for granting points.
type RewardPolicy struct {
	ConfidenceThreshold float64
}

// NewRewardPolicy returns a policy, replacing thresholds outside [0, 1] with the default.
func NewRewardPolicy(threshold float64) RewardPolicy {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		threshold = DefaultConfidenceThreshold
	}
	return RewardPolicy{ConfidenceThreshold: threshold}
}

// Accepts reports whether a result is confident enough to count as correct.
func (p RewardPolicy) Accepts(result VerificationResult) bool {
	return result.IsCorrect && result.Confidence >= p.ConfidenceThreshold
}

func stringPtr(value string) *string {
	return &value
}
