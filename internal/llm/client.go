// Package llm provides text-generation backends for the review engine.
package llm

import "context"

// Response is a completed generation.
type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Backend is the interface all text-generation providers implement.
type Backend interface {
	// Generate sends one system+user prompt pair and returns the response.
	Generate(ctx context.Context, systemPrompt, userPrompt string) (*Response, error)

	// HealthCheck reports whether the provider is reachable.
	HealthCheck(ctx context.Context) bool
}
