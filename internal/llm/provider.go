package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// Provider is the inference backend used by generation and evaluation.
type Provider interface {
	// Generate sends one request to the backend. Chat-mode requests carry
	// a message list; completion-mode requests carry a single prompt.
	// When the request has a Schema the provider asks for native
	// structured output and validates the reply against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Mode selects the request shape sent to the backend.
type Mode string

const (
	// ModeChat sends System plus Messages as a chat conversation.
	ModeChat Mode = "chat"

	// ModeCompletion sends a single prompt string. Backends without a
	// completion endpoint receive it as one user message.
	ModeCompletion Mode = "completion"
)

// Request describes what to send to the backend.
type Request struct {
	Mode Mode

	// System is the system prompt for chat mode.
	System string

	// Messages is the conversation for chat mode.
	Messages []Message

	// Prompt is the full text for completion mode. When empty,
	// PromptText flattens System and Messages instead.
	Prompt string

	// Schema is the JSON Schema the reply must conform to. Nil means the
	// reply is returned as raw text.
	Schema *Schema

	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
	Temperature float64

	// Stop lists sequences at which the backend stops generating.
	Stop []string
}

// PromptText returns the single prompt string used in completion mode.
func (r Request) PromptText() string {
	if r.Prompt != "" {
		return r.Prompt
	}
	var b strings.Builder
	if r.System != "" {
		b.WriteString(r.System)
		b.WriteString("\n\n")
	}
	for i, m := range r.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.Content)
	}
	return b.String()
}

// chatParts returns the system prompt and messages for chat-only
// backends. A completion-mode request collapses into one user message.
func (r Request) chatParts() (string, []Message) {
	if r.Mode == ModeCompletion {
		return "", []Message{{Role: RoleUser, Content: r.PromptText()}}
	}
	if len(r.Messages) == 0 && r.Prompt != "" {
		return r.System, []Message{{Role: RoleUser, Content: r.Prompt}}
	}
	return r.System, r.Messages
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the backend.
type Schema struct {
	// Name identifies this schema. Kebab-case, e.g. "question-set".
	Name string

	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Response holds the backend's output.
type Response struct {
	// Content is the reply body. It is raw text unless a Schema was
	// requested, in which case it is the validated JSON document.
	Content json.RawMessage

	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason is normalized to "end", "max_tokens", "stop_sequence"
	// or "error".
	StopReason string

	// Cached is set when the reply was replayed from the response cache.
	Cached bool
}

// Text returns the reply as a string. A reply that is itself a JSON
// string literal is unquoted.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	trimmed := strings.TrimSpace(string(r.Content))
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
			return s
		}
	}
	return string(r.Content)
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
