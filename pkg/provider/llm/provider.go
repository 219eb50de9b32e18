// Package llm defines the Provider interface for the response generator
// backend.
//
// A provider wraps a remote or local language model API (e.g., OpenAI,
// Anthropic, or a local Ollama instance) and exposes a uniform interface for
// the guard engine to turn an escalation policy and a visitor utterance into
// a spoken reply, without coupling to any specific SDK.
//
// Implementors must be safe for concurrent use. Generation may be slow
// (model inference); callers invoke Complete synchronously from the chat
// path and must never hold engine state locks across the call.
package llm

import "context"

// Usage holds token accounting information returned by the backend.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input messages
	// and system prompt.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens.
	TotalTokens int
}

// Message represents a single message in a model conversation.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// CompletionRequest carries everything the model needs to produce a reply.
// Callers should treat a zero-value request as invalid; at minimum Messages
// must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation history. The last message is
	// typically from the "user" role and drives the response.
	Messages []Message

	// SystemPrompt is a high-priority instruction injected before the
	// conversation history. The guard engine builds it from the active
	// escalation policy descriptor.
	SystemPrompt string

	// Temperature controls output randomness in the range [0.0, 2.0].
	Temperature float64

	// MaxTokens caps the number of completion tokens the model may generate.
	// Zero means use the provider default.
	MaxTokens int
}

// CompletionResponse is returned by Complete.
type CompletionResponse struct {
	// Content is the full text of the model's reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// ModelCapabilities describes static metadata about the backing model.
type ModelCapabilities struct {
	// ContextWindow is the maximum token count for input + output.
	ContextWindow int

	// MaxOutputTokens is the maximum tokens the model can generate in one
	// completion.
	MaxOutputTokens int
}

// Provider is the abstraction over any response generator backend.
//
// Implementations must be safe for concurrent use from multiple goroutines
// and must propagate context cancellation promptly.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// Returns an error if the request fails or ctx is cancelled before the
	// completion arrives. An empty Content with a nil error is valid from
	// the provider's perspective; callers decide how to degrade.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Capabilities returns static metadata describing the underlying model.
	// The result is assumed constant for the lifetime of the Provider.
	Capabilities() ModelCapabilities
}
