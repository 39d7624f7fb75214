package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"
	"github.com/boddenberg/onsite-analytics-go/internal/infra/observability"
	"github.com/boddenberg/onsite-analytics-go/internal/port"
)

var tracer = otel.Tracer("assistant")

var validate = validator.New()

// Completion parameters of every chat turn.
const (
	DefaultModel = "gpt-4o"
	Temperature  = float32(0.8)
	MaxTokens    = 1500
	HistoryLimit = 10
)

// MissingCredentialReply is returned (HTTP 200) when no LLM key is configured.
const MissingCredentialReply = "Opa, preciso da API key da OpenAI configurada pra funcionar."

// Assistant orchestrates one chat turn: metrics, intent, visualization,
// prompt and completion, in that order.
type Assistant struct {
	agg       Aggregates
	builder   *Builder
	completer port.Completer
	model     string
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// New creates the orchestrator. completer may be nil, in which case every
// request short-circuits with MissingCredentialReply.
func New(agg Aggregates, completer port.Completer, model string, metrics *observability.Metrics, logger *zap.Logger) *Assistant {
	if model == "" {
		model = DefaultModel
	}
	return &Assistant{
		agg:       agg,
		builder:   NewBuilder(agg),
		completer: completer,
		model:     model,
		metrics:   metrics,
		logger:    logger,
	}
}

// Handle processes a chat request. Validation errors are *domain.ErrValidation;
// any other error comes from the store or the LLM and carries its cause.
func (a *Assistant) Handle(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	ctx, span := tracer.Start(ctx, "Assistant.Handle")
	defer span.End()

	start := time.Now()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	a.logger.Info("chat message received",
		zap.Int("message_len", len(req.Message)),
		zap.Int("history_len", len(req.History)),
	)

	if a.completer == nil {
		a.metrics.IncrRequest("no_credential")
		a.metrics.RecordRequestDuration("chat", time.Since(start))
		return &domain.ChatResponse{Message: MissingCredentialReply}, nil
	}

	resp, err := a.handle(ctx, req)
	a.metrics.RecordRequestDuration("chat", time.Since(start))
	if err != nil {
		span.RecordError(err)
		a.metrics.IncrRequest("error")
		a.logger.Error("chat failed", zap.Error(err), zap.Duration("latency", time.Since(start)))
		return nil, err
	}
	a.metrics.IncrRequest("success")
	return resp, nil
}

func (a *Assistant) handle(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	metrics, err := a.agg.BaseMetrics(ctx)
	if err != nil {
		return nil, err
	}

	intent := Classify(req.Message)

	var viz *domain.Visualization
	if intent.Wants {
		a.logger.Info("visualization intent",
			zap.String("render_kind", string(intent.RenderKind)),
			zap.String("topic", string(intent.Topic)),
		)
		viz, err = a.builder.Build(ctx, intent, metrics)
		if err != nil {
			return nil, err
		}
		a.metrics.IncrVisualization(viz.Tag)
	}

	completion, err := a.completer.Complete(ctx, &domain.CompletionRequest{
		Model:       a.model,
		Messages:    BuildMessages(ComposePrompt(metrics, viz), req.History, req.Message),
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
	})
	if err != nil {
		var llmErr *domain.ErrLLMFailure
		if errors.As(err, &llmErr) {
			a.metrics.IncrLLMError(llmErr.Kind)
		}
		return nil, err
	}

	a.metrics.RecordTokens(completion.TokensUsed.PromptTokens, completion.TokensUsed.CompletionTokens)
	a.logger.Info("chat completion",
		zap.String("model", a.model),
		zap.Int("total_tokens", completion.TokensUsed.TotalTokens),
		zap.Bool("visualization", viz != nil),
	)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Bool("chat.visualization", viz != nil),
		attribute.Int("llm.tokens.total", completion.TokensUsed.TotalTokens),
	)

	return &domain.ChatResponse{Message: completion.Text, Visualization: viz}, nil
}

// BuildMessages returns [system] ++ last HistoryLimit turns ++ [user].
func BuildMessages(systemPrompt string, history []domain.Turn, message string) []domain.LLMMessage {
	if len(history) > HistoryLimit {
		history = history[len(history)-HistoryLimit:]
	}
	out := make([]domain.LLMMessage, 0, len(history)+2)
	out = append(out, domain.LLMMessage{Role: domain.RoleSystem, Content: systemPrompt})
	for _, t := range history {
		out = append(out, domain.LLMMessage{Role: t.Role, Content: t.Content})
	}
	return append(out, domain.LLMMessage{Role: domain.RoleUser, Content: message})
}

func validateRequest(req *domain.ChatRequest) error {
	if req == nil {
		return &domain.ErrValidation{Field: "message", Message: "request body is required"}
	}
	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &domain.ErrValidation{Field: fe.Namespace(), Message: "failed on '" + fe.Tag() + "'"}
		}
		return &domain.ErrValidation{Field: "request", Message: err.Error()}
	}
	if strings.TrimSpace(req.Message) == "" {
		return &domain.ErrValidation{Field: "message", Message: "message must not be blank"}
	}
	return nil
}
