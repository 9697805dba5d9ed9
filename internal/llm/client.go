// Package llm is a chat-completion client for OpenAI-compatible endpoints.
// The report pipeline uses it against Gemini's OpenAI-compatible API for
// address extraction, property data and market research, and against
// Perplexity for area research.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"github.com/teemow/propertyinbox/internal/breaker"
	"github.com/teemow/propertyinbox/internal/instrumentation"
	"github.com/teemow/propertyinbox/internal/logging"
)

const (
	// DefaultBaseURL is Gemini's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	// DefaultModel is the Gemini model used when none is configured.
	DefaultModel = "gemini-2.0-flash"

	// PerplexityBaseURL is the Perplexity API endpoint.
	PerplexityBaseURL = "https://api.perplexity.ai"
	// PerplexityModel is the default Perplexity model.
	PerplexityModel = "sonar"

	defaultMaxTokens   = 2048
	defaultTemperature = 0.2
	defaultTimeout     = 60 * time.Second
)

// ErrEmptyResponse is returned when the model answers without any content.
var ErrEmptyResponse = errors.New("llm: empty response")

// Completer is the minimal text-completion capability used by consumers.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config configures one provider.
type Config struct {
	// Name labels the provider in metrics and logs, e.g. "gemini"
	Name string

	APIKey  string
	BaseURL string
	Model   string

	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Client calls a chat-completion endpoint through a circuit breaker.
type Client struct {
	client      *openai.Client
	name        string
	model       string
	maxTokens   int
	temperature float32
	cb          *gobreaker.CircuitBreaker
	metrics     *instrumentation.Metrics
	logger      *slog.Logger
}

// NewClient creates a Client. An empty BaseURL and Model select the Gemini
// defaults.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: API key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Name == "" {
		cfg.Name = "gemini"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	logger = logging.WithService(logger, "llm-"+cfg.Name)

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		client:      openai.NewClientWithConfig(oc),
		name:        cfg.Name,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
		cb:          breaker.New("llm-"+cfg.Name, isTransient, logger),
		logger:      logger,
	}, nil
}

// WithMetrics sets the metrics recorder.
func (c *Client) WithMetrics(m *instrumentation.Metrics) *Client {
	c.metrics = m
	return c
}

// Name returns the provider label.
func (c *Client) Name() string {
	return c.name
}

// Complete sends a single user prompt.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.chat(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}, nil)
}

// CompleteJSON asks for a JSON object reply. The content is returned
// undecoded.
func (c *Client) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	return c.chat(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}, &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject})
}

// DescribeImage sends prompt together with an inline image.
func (c *Client) DescribeImage(ctx context.Context, prompt, mimeType string, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("llm: image is empty")
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
	return c.chat(ctx, []openai.ChatCompletionMessage{{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURL,
				Detail: openai.ImageURLDetailAuto,
			}},
		},
	}}, nil)
}

func (c *Client) chat(ctx context.Context, messages []openai.ChatCompletionMessage, format *openai.ChatCompletionResponseFormat) (string, error) {
	start := time.Now()
	content, err := breaker.Execute(c.cb, func() (string, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:          c.model,
			Messages:       messages,
			MaxTokens:      c.maxTokens,
			Temperature:    c.temperature,
			ResponseFormat: format,
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", ErrEmptyResponse
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err == nil && strings.TrimSpace(content) == "" {
		err = ErrEmptyResponse
	}

	c.metrics.RecordLLMRequest(ctx, c.name, instrumentation.StatusFor(err), time.Since(start))
	if err != nil {
		c.logger.Debug("llm request failed", slog.String("provider", c.name), slog.String("error", err.Error()))
		return "", fmt.Errorf("%s completion failed: %w", c.name, err)
	}
	return content, nil
}

// isTransient reports whether err indicates a provider-side failure that
// should count against the breaker.
func isTransient(err error) bool {
	if errors.Is(err, ErrEmptyResponse) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return true
}

// StripCodeFence removes a surrounding Markdown code fence, which models
// often wrap JSON replies in.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
