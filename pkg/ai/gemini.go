package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/otel"

	"github.com/noah-isme/honmoon-go-api/pkg/imageurl"
)

const (
	// ProviderGemini labels the secondary judge.
	ProviderGemini = "gemini"

	// DefaultGeminiBaseURL is Gemini's OpenAI-compatible endpoint.
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

	defaultGeminiModel = "gemini-2.0-flash"
	maxImageBytes      = 10 << 20
	maxImageRedirects  = 5
	imageDialTimeout   = 10 * time.Second
)

var (
	// ErrImageDownload indicates the image could not be fetched for inline upload.
	ErrImageDownload = errors.New("image download failed")
	// ErrImageTooLarge indicates the image exceeds the inline upload limit.
	ErrImageTooLarge = errors.New("image exceeds size limit")
	// ErrUnsupportedImage indicates the downloaded bytes are not an allowed image type.
	ErrUnsupportedImage = errors.New("unsupported image content")
)

// GeminiJudge implements Judge against Gemini. Images are sent inline since
// the endpoint does not fetch remote URLs.
type GeminiJudge struct {
	*chatJudge
	http *http.Client
}

// NewGeminiJudge builds the secondary judge.
func NewGeminiJudge(cfg Config) (*GeminiJudge, error) {
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}

	base, err := newChatJudge(ProviderGemini, cfg, false, otel.Tracer("github.com/noah-isme/honmoon-go-api/pkg/ai/gemini"))
	if err != nil {
		return nil, err
	}
	return &GeminiJudge{chatJudge: base, http: newImageClient(base.cfg.Images, base.cfg.Timeout)}, nil
}

// newImageClient fetches user supplied images. Every dialed address and
// every redirect target goes through the same validator as the original URL.
func newImageClient(images *imageurl.Validator, timeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: imageDialTimeout, Control: images.DialControl}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxImageRedirects {
				return fmt.Errorf("%w: too many redirects", ErrImageDownload)
			}
			if _, err := images.Validate(req.URL.String()); err != nil {
				return err
			}
			return nil
		},
	}
}

// AnalyzeImage downloads the image and sends it as a data URL.
func (j *GeminiJudge) AnalyzeImage(ctx context.Context, imageURL string) (ImageAnalysis, error) {
	dataURL, err := j.inlineImage(ctx, imageURL)
	if err != nil {
		judgeFailures.WithLabelValues(j.provider, operationAnalyzeImage).Inc()
		return ImageAnalysis{}, fmt.Errorf("%s analyze image: %w", j.provider, err)
	}
	return j.analyzeImageRef(ctx, dataURL)
}

func (j *GeminiJudge) inlineImage(ctx context.Context, imageURL string) (string, error) {
	safe, err := j.cfg.Images.Validate(imageURL)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, safe.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrImageDownload, err)
	}
	resp, err := j.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrImageDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrImageDownload, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrImageDownload, err)
	}
	if len(data) > maxImageBytes {
		return "", ErrImageTooLarge
	}

	detected := mimetype.Detect(data)
	if !j.cfg.Images.AllowsMIME(detected.String()) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, detected.String())
	}

	return "data:" + detected.String() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
