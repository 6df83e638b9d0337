package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrAllJudgesFailed is matched by every FallbackError.
var ErrAllJudgesFailed = errors.New("all ai judges failed")

// FallbackError carries both failure causes of an exhausted fallback chain.
type FallbackError struct {
	Operation string
	Primary   error
	Secondary error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("%s: primary: %v; secondary: %v", e.Operation, e.Primary, e.Secondary)
}

// Unwrap exposes the sentinel and both causes to errors.Is and errors.As.
func (e *FallbackError) Unwrap() []error {
	return []error{ErrAllJudgesFailed, e.Primary, e.Secondary}
}

// FallbackJudge calls the primary judge and, on any error, repeats the call
// against the secondary. No state is carried between calls.
type FallbackJudge struct {
	primary   Judge
	secondary Judge
	logger    zerolog.Logger
}

// NewFallbackJudge wraps primary and secondary into a single Judge.
func NewFallbackJudge(primary, secondary Judge, logger zerolog.Logger) *FallbackJudge {
	return &FallbackJudge{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With().Str("component", "fallback_judge").Logger(),
	}
}

// AnalyzeImage implements Judge.
func (f *FallbackJudge) AnalyzeImage(ctx context.Context, imageURL string) (ImageAnalysis, error) {
	return tryWithFallback(f, operationAnalyzeImage, func(j Judge) (ImageAnalysis, error) {
		return j.AnalyzeImage(ctx, imageURL)
	})
}

// CheckTextAnswer implements Judge.
func (f *FallbackJudge) CheckTextAnswer(ctx context.Context, mission MissionPrompt, answer string) (AnswerCheck, error) {
	return tryWithFallback(f, operationCheckTextAnswer, func(j Judge) (AnswerCheck, error) {
		return j.CheckTextAnswer(ctx, mission, answer)
	})
}

// CheckImageAnswer implements Judge.
func (f *FallbackJudge) CheckImageAnswer(ctx context.Context, mission MissionPrompt, extractedText string) (AnswerCheck, error) {
	return tryWithFallback(f, operationCheckImageAnswer, func(j Judge) (AnswerCheck, error) {
		return j.CheckImageAnswer(ctx, mission, extractedText)
	})
}

// IsAvailable is optimistic: either backend being up is enough.
func (f *FallbackJudge) IsAvailable(ctx context.Context) bool {
	return f.primary.IsAvailable(ctx) || f.secondary.IsAvailable(ctx)
}

// Name reports the first available backend, or both names when neither answers.
func (f *FallbackJudge) Name() string {
	ctx := context.Background()
	switch {
	case f.primary.IsAvailable(ctx):
		return f.primary.Name()
	case f.secondary.IsAvailable(ctx):
		return f.secondary.Name()
	default:
		return f.primary.Name() + "+" + f.secondary.Name()
	}
}

func tryWithFallback[T any](f *FallbackJudge, operation string, call func(Judge) (T, error)) (T, error) {
	result, primaryErr := call(f.primary)
	if primaryErr == nil {
		return result, nil
	}

	judgeFallbacks.WithLabelValues(operation).Inc()
	f.logger.Warn().
		Err(primaryErr).
		Str("operation", operation).
		Str("primary", f.primary.Name()).
		Str("secondary", f.secondary.Name()).
		Msg("primary judge failed, falling back")

	result, secondaryErr := call(f.secondary)
	if secondaryErr == nil {
		return result, nil
	}

	f.logger.Error().
		Err(secondaryErr).
		Str("operation", operation).
		Msg("secondary judge failed")
	var zero T
	return zero, &FallbackError{Operation: operation, Primary: primaryErr, Secondary: secondaryErr}
}
