package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/honmoon-go-api/pkg/imageurl"
)

// ErrEmptyResponse indicates the provider returned no choices.
var ErrEmptyResponse = errors.New("no choices returned from model")

// Config defines the connection and sampling options shared by the judge backends.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	Images      *imageurl.Validator
	Logger      zerolog.Logger
}

const (
	defaultMaxTokens    = 500
	defaultTimeout      = 30 * time.Second
	availabilityTimeout = 5 * time.Second
)

// chatJudge holds the chat-completion plumbing both backends share.
type chatJudge struct {
	provider string
	client   *openai.Client
	cfg      Config
	jsonMode bool
	tracer   trace.Tracer
	logger   zerolog.Logger
}

func newChatJudge(provider string, cfg Config, jsonMode bool, tracer trace.Tracer) (*chatJudge, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%s api key is required", provider)
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Images == nil {
		cfg.Images = imageurl.New()
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	config.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &chatJudge{
		provider: provider,
		client:   openai.NewClientWithConfig(config),
		cfg:      cfg,
		jsonMode: jsonMode,
		tracer:   tracer,
		logger:   logger.With().Str("component", "ai_judge").Str("provider", provider).Logger(),
	}, nil
}

// Name returns the provider label.
func (j *chatJudge) Name() string {
	return j.provider
}

// IsAvailable reports whether the provider answers a model lookup.
func (j *chatJudge) IsAvailable(parent context.Context) bool {
	ctx, cancel := context.WithTimeout(parent, availabilityTimeout)
	defer cancel()

	if _, err := j.client.GetModel(ctx, j.cfg.Model); err != nil {
		j.logger.Debug().Err(err).Msg("judge unavailable")
		return false
	}
	return true
}

// CheckTextAnswer grades a typed answer.
func (j *chatJudge) CheckTextAnswer(ctx context.Context, mission MissionPrompt, answer string) (AnswerCheck, error) {
	content, err := j.complete(ctx, operationCheckTextAnswer, textMessage(textAnswerPrompt(mission, answer)))
	if err != nil {
		return AnswerCheck{}, err
	}
	result, err := parseAnswerCheck(content)
	if err != nil {
		judgeFailures.WithLabelValues(j.provider, operationCheckTextAnswer).Inc()
		return AnswerCheck{}, fmt.Errorf("%s check text answer: %w", j.provider, err)
	}
	result.Provider = j.provider
	return result, nil
}

// CheckImageAnswer grades the text previously extracted from an image.
func (j *chatJudge) CheckImageAnswer(ctx context.Context, mission MissionPrompt, extractedText string) (AnswerCheck, error) {
	content, err := j.complete(ctx, operationCheckImageAnswer, textMessage(imageAnswerPrompt(mission, extractedText)))
	if err != nil {
		return AnswerCheck{}, err
	}
	result, err := parseAnswerCheck(content)
	if err != nil {
		judgeFailures.WithLabelValues(j.provider, operationCheckImageAnswer).Inc()
		return AnswerCheck{}, fmt.Errorf("%s check image answer: %w", j.provider, err)
	}
	result.Provider = j.provider
	return result, nil
}

func (j *chatJudge) analyzeImageRef(ctx context.Context, imageRef string) (ImageAnalysis, error) {
	message := openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: imageAnalysisPrompt()},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL:    imageRef,
				Detail: openai.ImageURLDetailHigh,
			}},
		},
	}

	content, err := j.complete(ctx, operationAnalyzeImage, message)
	if err != nil {
		return ImageAnalysis{}, err
	}
	result, err := parseImageAnalysis(content)
	if err != nil {
		judgeFailures.WithLabelValues(j.provider, operationAnalyzeImage).Inc()
		return ImageAnalysis{}, fmt.Errorf("%s analyze image: %w", j.provider, err)
	}
	result.Provider = j.provider
	return result, nil
}

func (j *chatJudge) complete(parent context.Context, operation string, message openai.ChatCompletionMessage) (string, error) {
	ctx, span := j.tracer.Start(parent, j.provider+"."+operation, trace.WithAttributes(
		attribute.String("model", j.cfg.Model),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:       j.cfg.Model,
		MaxTokens:   j.cfg.MaxTokens,
		Temperature: j.cfg.Temperature,
		Messages:    []openai.ChatCompletionMessage{message},
	}
	if j.jsonMode {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	resp, err := j.client.CreateChatCompletion(ctx, request)
	judgeDuration.WithLabelValues(j.provider, operation).Observe(time.Since(start).Seconds())
	if err == nil && len(resp.Choices) == 0 {
		err = ErrEmptyResponse
	}
	if err != nil {
		judgeFailures.WithLabelValues(j.provider, operation).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		j.logger.Warn().Err(err).Str("operation", operation).Msg("judge request failed")
		return "", fmt.Errorf("%s %s: %w", j.provider, strings.ReplaceAll(operation, "_", " "), err)
	}

	span.SetAttributes(attribute.Int("tokens.total", resp.Usage.TotalTokens))
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func textMessage(prompt string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt}
}
