package domain

// ============================================================
// Chat: contrato do POST /api/ai/chat
// ============================================================

// Papéis aceitos no histórico da conversa.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message of the prior dialogue. The history is owned by the caller.
type Turn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/ai/chat.
type ChatRequest struct {
	Message string `json:"message" validate:"required"`
	History []Turn `json:"history" validate:"dive"`
}

// ChatResponse is returned by POST /api/ai/chat, on success and on failure.
type ChatResponse struct {
	Message       string         `json:"message"`
	Visualization *Visualization `json:"visualization"`
}

// ============================================================
// LLM: contrato entre o orquestrador e o adapter
// ============================================================

// LLMMessage is a role-tagged message sent to the completion endpoint.
type LLMMessage struct {
	Role    string
	Content string
}

// CompletionRequest carries the ordered messages plus sampling options.
type CompletionRequest struct {
	Model       string
	Messages    []LLMMessage
	Temperature float32
	MaxTokens   int
}

// Completion is the assistant text returned by the adapter.
type Completion struct {
	Text       string
	TokensUsed TokenUsage
}

// TokenUsage tracks LLM token consumption for cost monitoring.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ============================================================
// Intent: resultado do classificador
// ============================================================

// RenderKind is the kind of artifact the user asked for. Empty means none.
type RenderKind string

const (
	RenderNone   RenderKind = ""
	RenderChart  RenderKind = "chart"
	RenderTable  RenderKind = "table"
	RenderNumber RenderKind = "number"
)

// Topic is the subject of a visualization request. Empty means no topic matched.
type Topic string

const (
	TopicNone       Topic = ""
	TopicUsers      Topic = "users"
	TopicSessions   Topic = "sessions"
	TopicLogins     Topic = "logins"
	TopicEntryTypes Topic = "entryTypes"
	TopicCohort     Topic = "cohort"
	TopicEvents     Topic = "events"
)

// Intent is what the classifier extracted from one utterance.
type Intent struct {
	Wants      bool       `json:"wants"`
	RenderKind RenderKind `json:"renderKind"`
	Topic      Topic      `json:"topic"`
}
