// Package llm adapts an OpenAI-compatible chat-completion endpoint to
// port.Completer.
package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"
	"github.com/boddenberg/onsite-analytics-go/internal/infra/resilience"
	"github.com/boddenberg/onsite-analytics-go/internal/port"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("llm")

// FallbackReply is returned when the provider answers with no usable text.
const FallbackReply = "Hmm, não consegui processar isso. Pode reformular?"

// DefaultTimeout bounds a single completion call.
const DefaultTimeout = 60 * time.Second

// Options configures the OpenAI client.
type Options struct {
	APIKey     string
	BaseURL    string // empty = api.openai.com
	Timeout    time.Duration
	HTTPClient *http.Client
}

// OpenAIClient calls the chat completions API. No retries, no streaming.
type OpenAIClient struct {
	client   *openai.Client
	timeout  time.Duration
	bulkhead *resilience.Bulkhead
	logger   *zap.Logger
}

var _ port.Completer = (*OpenAIClient)(nil)

// NewOpenAIClient returns nil when no API key is configured so callers can
// detect the missing credential.
func NewOpenAIClient(opts Options, bulkhead *resilience.Bulkhead, logger *zap.Logger) *OpenAIClient {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &OpenAIClient{
		client:   openai.NewClientWithConfig(cfg),
		timeout:  timeout,
		bulkhead: bulkhead,
		logger:   logger,
	}
}

// Complete sends the ordered messages and returns the first choice's text.
// An empty completion yields FallbackReply; failures are *domain.ErrLLMFailure.
func (c *OpenAIClient) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.Completion, error) {
	ctx, span := tracer.Start(ctx, "OpenAI.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.messages", len(req.Messages)),
	)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.bulkhead != nil {
		if err := c.bulkhead.Acquire(ctx); err != nil {
			return nil, c.fail(span, classify(err))
		}
		defer c.bulkhead.Release()
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, c.fail(span, classify(err))
	}

	out := &domain.Completion{
		Text: FallbackReply,
		TokensUsed: domain.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if len(resp.Choices) > 0 && strings.TrimSpace(resp.Choices[0].Message.Content) != "" {
		out.Text = resp.Choices[0].Message.Content
	} else {
		c.logger.Warn("llm: empty completion, using fallback", zap.String("model", req.Model))
	}

	c.logger.Debug("llm: completion OK",
		zap.String("model", req.Model),
		zap.Int("total_tokens", out.TokensUsed.TotalTokens),
		zap.Duration("latency", time.Since(start)),
	)
	span.SetAttributes(attribute.Int("llm.tokens.total", out.TokensUsed.TotalTokens))
	return out, nil
}

func (c *OpenAIClient) fail(span trace.Span, err *domain.ErrLLMFailure) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.logger.Error("llm: completion failed", zap.String("kind", string(err.Kind)), zap.Error(err))
	return err
}

// classify maps a client error to a failure kind.
func classify(err error) *domain.ErrLLMFailure {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &domain.ErrLLMFailure{Kind: kindForStatus(apiErr.HTTPStatusCode), Message: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &domain.ErrLLMFailure{Kind: kindForStatus(reqErr.HTTPStatusCode), Message: reqErr.Error(), Err: err}
	}

	var netErr net.Error
	var urlErr *url.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &domain.ErrLLMFailure{Kind: domain.LLMNetwork, Message: err.Error(), Err: err}
	case errors.As(err, &netErr), errors.As(err, &urlErr):
		return &domain.ErrLLMFailure{Kind: domain.LLMNetwork, Message: err.Error(), Err: err}
	}
	return &domain.ErrLLMFailure{Kind: domain.LLMOther, Message: err.Error(), Err: err}
}

func kindForStatus(status int) domain.LLMFailureKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.LLMAuth
	case status == http.StatusTooManyRequests:
		return domain.LLMRateLimited
	case status >= 400:
		return domain.LLMProviderError
	}
	return domain.LLMOther
}
