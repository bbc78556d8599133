// Package agents asks a language model to narrate technical, broker-flow
// and fundamental readings and fuses them into a final decision.
package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	apperrors "stocksignal/internal/errors"
	"stocksignal/internal/logging"
	"stocksignal/internal/resilience"
)

// DefaultGeminiBaseURL is Gemini's OpenAI compatible endpoint.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// DefaultModel is used when none is configured.
const DefaultModel = "gemini-1.5-flash"

// LLMClient defines the interface for LLM interactions.
type LLMClient interface {
	// CompleteWithSystem sends a prompt with a system message.
	CompleteWithSystem(ctx context.Context, system, prompt string) (string, error)
}

// GeminiConfig configures a GeminiClient.
type GeminiConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	// JSONMode asks the endpoint for a JSON object response.
	JSONMode bool
}

// GeminiClient implements LLMClient over the OpenAI wire protocol.
type GeminiClient struct {
	client  *openai.Client
	cfg     GeminiConfig
	breaker *resilience.Breaker
	logger  zerolog.Logger
}

// NewGeminiClient creates a client. It returns nil without an API key so
// callers can treat a nil LLMClient as "not configured".
func NewGeminiClient(cfg GeminiConfig, breaker *resilience.Breaker, logger zerolog.Logger) *GeminiClient {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &GeminiClient{
		client:  openai.NewClientWithConfig(oc),
		cfg:     cfg,
		breaker: breaker,
		logger:  logger.With().Str("component", "llm").Str("model", cfg.Model).Logger(),
	}
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string {
	return c.cfg.Model
}

// CompleteWithSystem sends a prompt with system message to the model.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	if c == nil {
		return "", apperrors.ErrMissingAPIKey
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	if c.cfg.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	return resilience.DoWithResult(ctx, c.breaker, func(ctx context.Context) (string, error) {
		start := time.Now()
		resp, err := c.client.CreateChatCompletion(ctx, req)
		logging.LogAPICall(c.logger, "POST", "chat/completions", time.Since(start), err)
		if err != nil {
			return "", fmt.Errorf("gemini completion failed: %w", err)
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return "", apperrors.ErrLLMEmpty
		}
		return resp.Choices[0].Message.Content, nil
	})
}
