package ai

import "context"

// MissionPrompt carries the mission fields a judge needs to grade an answer.
type MissionPrompt struct {
	Question      string
	CorrectAnswer string
}

// ImageAnalysis is the text a judge managed to extract from an uploaded image.
type ImageAnalysis struct {
	ExtractedText string  `json:"extractedText"`
	Confidence    float64 `json:"confidence"`
	Description   string  `json:"description"`
	Provider      string  `json:"provider,omitempty"`
}

// AnswerCheck is a judge's verdict on a single answer.
type AnswerCheck struct {
	IsCorrect  bool    `json:"isCorrect"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Hint       string  `json:"hint,omitempty"`
	Provider   string  `json:"provider,omitempty"`
}

// Judge evaluates mission answers using a remote model.
type Judge interface {
	AnalyzeImage(ctx context.Context, imageURL string) (ImageAnalysis, error)
	CheckTextAnswer(ctx context.Context, mission MissionPrompt, answer string) (AnswerCheck, error)
	CheckImageAnswer(ctx context.Context, mission MissionPrompt, extractedText string) (AnswerCheck, error)
	IsAvailable(ctx context.Context) bool
	Name() string
}
