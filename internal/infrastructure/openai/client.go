package openaiinfra

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ai-content-platform/internal/config"
	"github.com/ai-content-platform/internal/domain"
	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client generates text with the chat completions API.
type Client struct {
	api         openaigo.Client
	configured  bool
	model       string
	temperature float64
	maxTokens   int64
}

func NewClient(cfg *config.Config) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.OpenAIAPIKey)),
		option.WithHTTPClient(&http.Client{Timeout: cfg.UpstreamTimeout}),
		option.WithRequestTimeout(cfg.UpstreamTimeout),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimRight(strings.TrimSpace(cfg.OpenAIBaseURL), "/"); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	return &Client{
		api:         openaigo.NewClient(opts...),
		configured:  cfg.OpenAIAPIKey != "",
		model:       cfg.OpenAIModel,
		temperature: cfg.OpenAITemperature,
		maxTokens:   int64(cfg.OpenAIMaxTokens),
	}
}

// Configured reports whether an API key was supplied.
func (c *Client) Configured() bool { return c.configured }

// Complete sends prompt as a single user message and returns the first choice.
func (c *Client) Complete(ctx context.Context, prompt string) (*domain.TextResult, error) {
	if !c.configured {
		return nil, fmt.Errorf("openai: %w", domain.ErrNotConfigured)
	}
	start := time.Now()
	completion, err := c.api.Chat.Completions.New(ctx, openaigo.ChatCompletionNewParams{
		Model:       openaigo.ChatModel(c.model),
		Messages:    []openaigo.ChatCompletionMessageParamUnion{openaigo.UserMessage(prompt)},
		Temperature: openaigo.Float(c.temperature),
		MaxTokens:   openaigo.Int(c.maxTokens),
	})
	if err != nil {
		return nil, mapError(err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty completion: %w", domain.ErrUpstreamUnavailable)
	}

	model := completion.Model
	if model == "" {
		model = c.model
	}
	// Priced by the requested model; the echoed name may be a dated variant
	// missing from the cost table.
	usage := domain.TextUsage{
		TotalTokens: completion.Usage.TotalTokens,
		Cost:        domain.TokenCost(c.model, completion.Usage.TotalTokens),
	}
	return &domain.TextResult{
		Text:         completion.Choices[0].Message.Content,
		Model:        model,
		Usage:        usage,
		GenerationMS: time.Since(start).Milliseconds(),
	}, nil
}

func mapError(err error) error {
	var apiErr *openaigo.Error
	if !errors.As(err, &apiErr) {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("openai: %v: %w", err, domain.ErrUpstreamUnavailable)
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("openai: %w", domain.ErrUpstreamUnauthorized)
	case http.StatusTooManyRequests:
		return fmt.Errorf("openai: %w", domain.ErrUpstreamRateLimited)
	case http.StatusBadRequest:
		return fmt.Errorf("openai: %s: %w", apiErr.Message, domain.ErrBadRequest)
	default:
		return fmt.Errorf("openai: status %d: %w", apiErr.StatusCode, domain.ErrUpstreamUnavailable)
	}
}
