// Package llms provides the LLM capability the core consumes: a provider
// interface plus an OpenAI-compatible HTTP implementation. The
// orchestrator never knows provider specifics; it supplies a deadline on
// every call and degrades to canned fallbacks on failure.
package llms

import "context"

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a chat completion request.
type Request struct {
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int

	// JSONMode asks the provider for a JSON object response, used by
	// structured extraction (address extraction, sentiment).
	JSONMode bool
}

// Response is a chat completion result.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Provider generates completions.
type Provider interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
	Model() string
}
