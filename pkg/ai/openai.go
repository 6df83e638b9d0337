package ai

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
)

const (
	// ProviderOpenAI labels the primary judge.
	ProviderOpenAI = "openai"

	defaultOpenAIModel = "gpt-4o-mini"
)

// OpenAIJudge implements Judge against the OpenAI chat completion API.
type OpenAIJudge struct {
	*chatJudge
}

// NewOpenAIJudge builds the primary judge.
func NewOpenAIJudge(cfg Config) (*OpenAIJudge, error) {
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}

	base, err := newChatJudge(ProviderOpenAI, cfg, true, otel.Tracer("github.com/noah-isme/honmoon-go-api/pkg/ai/openai"))
	if err != nil {
		return nil, err
	}
	return &OpenAIJudge{chatJudge: base}, nil
}

// AnalyzeImage lets the model fetch the image itself after the URL passes the safety check.
func (j *OpenAIJudge) AnalyzeImage(ctx context.Context, imageURL string) (ImageAnalysis, error) {
	safe, err := j.cfg.Images.Validate(imageURL)
	if err != nil {
		return ImageAnalysis{}, fmt.Errorf("%s analyze image: %w", j.provider, err)
	}
	return j.analyzeImageRef(ctx, safe.String())
}
