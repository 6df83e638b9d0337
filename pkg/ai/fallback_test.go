package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type stubJudge struct {
	name      string
	available bool
	check     AnswerCheck
	analysis  ImageAnalysis
	err       error
	calls     int
	answers   []string
}

func (s *stubJudge) AnalyzeImage(_ context.Context, imageURL string) (ImageAnalysis, error) {
	s.calls++
	s.answers = append(s.answers, imageURL)
	return s.analysis, s.err
}

func (s *stubJudge) CheckTextAnswer(_ context.Context, _ MissionPrompt, answer string) (AnswerCheck, error) {
	s.calls++
	s.answers = append(s.answers, answer)
	return s.check, s.err
}

func (s *stubJudge) CheckImageAnswer(_ context.Context, _ MissionPrompt, extractedText string) (AnswerCheck, error) {
	s.calls++
	s.answers = append(s.answers, extractedText)
	return s.check, s.err
}

func (s *stubJudge) IsAvailable(context.Context) bool { return s.available }

func (s *stubJudge) Name() string { return s.name }

var mission = MissionPrompt{Question: "Which palace?", CorrectAnswer: "Gyeongbokgung"}

func TestFallbackJudgeUsesPrimaryWhenItSucceeds(t *testing.T) {
	primary := &stubJudge{name: "primary", check: AnswerCheck{IsCorrect: true, Confidence: 0.9}}
	secondary := &stubJudge{name: "secondary"}
	judge := NewFallbackJudge(primary, secondary, zerolog.Nop())

	result, err := judge.CheckTextAnswer(context.Background(), mission, "gyeongbokgung")
	require.NoError(t, err)
	require.True(t, result.IsCorrect)
	require.Equal(t, 1, primary.calls)
	require.Zero(t, secondary.calls)
}

func TestFallbackJudgeRetriesSecondaryWithSameArguments(t *testing.T) {
	primary := &stubJudge{name: "primary", err: errors.New("timeout")}
	secondary := &stubJudge{name: "secondary", check: AnswerCheck{IsCorrect: true, Confidence: 0.8, Provider: "secondary"}}
	judge := NewFallbackJudge(primary, secondary, zerolog.Nop())

	result, err := judge.CheckImageAnswer(context.Background(), mission, "경복궁 sign")
	require.NoError(t, err)
	require.Equal(t, "secondary", result.Provider)
	require.Equal(t, []string{"경복궁 sign"}, primary.answers)
	require.Equal(t, []string{"경복궁 sign"}, secondary.answers)
}

func TestFallbackJudgeAggregatesBothFailures(t *testing.T) {
	primaryErr := errors.New("primary quota exceeded")
	secondaryErr := errors.New("secondary unreachable")
	primary := &stubJudge{name: "primary", err: primaryErr}
	secondary := &stubJudge{name: "secondary", err: secondaryErr}
	judge := NewFallbackJudge(primary, secondary, zerolog.Nop())

	_, err := judge.AnalyzeImage(context.Background(), "https://example.com/a.png")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrAllJudgesFailed)
	require.ErrorIs(t, err, primaryErr)
	require.ErrorIs(t, err, secondaryErr)

	var fallbackErr *FallbackError
	require.ErrorAs(t, err, &fallbackErr)
	require.Equal(t, operationAnalyzeImage, fallbackErr.Operation)
	require.Contains(t, err.Error(), "primary quota exceeded")
	require.Contains(t, err.Error(), "secondary unreachable")
}

func TestFallbackJudgeDoesNotRememberFailures(t *testing.T) {
	primary := &stubJudge{name: "primary", err: errors.New("flaky")}
	secondary := &stubJudge{name: "secondary", check: AnswerCheck{IsCorrect: true}}
	judge := NewFallbackJudge(primary, secondary, zerolog.Nop())

	for i := 0; i < 3; i++ {
		_, err := judge.CheckTextAnswer(context.Background(), mission, "x")
		require.NoError(t, err)
	}
	require.Equal(t, 3, primary.calls)
	require.Equal(t, 3, secondary.calls)
}

func TestFallbackJudgeAvailability(t *testing.T) {
	cases := []struct {
		name      string
		primary   bool
		secondary bool
		available bool
		label     string
	}{
		{name: "both up", primary: true, secondary: true, available: true, label: "primary"},
		{name: "primary down", primary: false, secondary: true, available: true, label: "secondary"},
		{name: "secondary down", primary: true, secondary: false, available: true, label: "primary"},
		{name: "both down", primary: false, secondary: false, available: false, label: "primary+secondary"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			judge := NewFallbackJudge(
				&stubJudge{name: "primary", available: tc.primary},
				&stubJudge{name: "secondary", available: tc.secondary},
				zerolog.Nop(),
			)
			require.Equal(t, tc.available, judge.IsAvailable(context.Background()))
			require.Equal(t, tc.label, judge.Name())
		})
	}
}
