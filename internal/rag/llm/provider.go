package llm

import "context"

// Provider completes a fully assembled prompt. Prompt assembly belongs to the chain.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}
