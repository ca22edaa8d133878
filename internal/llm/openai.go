package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/voicedesk/voicedesk/internal/reliability"
)

// ErrMalformedResponse marks a completion response missing the expected
// message content.
var ErrMalformedResponse = errors.New("completion response missing content")

// UpstreamError carries a non-success response from the completion endpoint.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("completion upstream status %d: %s", e.Status, e.Body)
}

// Generator produces an answer for a composed prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAIConfig holds the completion-call parameters.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	MaxRetries  int
	Timeout     time.Duration
}

// OpenAIGenerator wraps the chat-completion API with a fixed model,
// temperature, and token budget. Transient upstream failures are retried a
// bounded number of times; 4xx responses are not.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	maxRetries  int
	timeout     time.Duration
}

func NewOpenAIGenerator(cfg OpenAIConfig) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
		timeout:     timeout,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var answer string

	err := reliability.Retry(ctx, g.maxRetries, 200*time.Millisecond, 2*time.Second, func() error {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		resp, err := g.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:       g.model,
			MaxTokens:   g.maxTokens,
			Temperature: g.temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			return mapUpstreamError(err)
		}

		if len(resp.Choices) == 0 {
			return ErrMalformedResponse
		}
		text := strings.TrimSpace(resp.Choices[0].Message.Content)
		if text == "" {
			return ErrMalformedResponse
		}
		answer = text
		return nil
	}, isRetryable)
	if err != nil {
		return "", err
	}
	return answer, nil
}

func mapUpstreamError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Status: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &UpstreamError{Status: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &UpstreamError{Status: 0, Body: "completion request timed out"}
	}
	return fmt.Errorf("completion request: %w", err)
}

func isRetryable(err error) bool {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		// Status 0 means the transport failed or timed out before a response.
		return upstream.Status == 0 || reliability.IsRetryableHTTPStatus(upstream.Status)
	}
	if errors.Is(err, ErrMalformedResponse) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
