// Package interfaces defines service contracts for finsight
package interfaces

import "context"

// TextGenClient provides access to a hosted text-generation model.
// Implementations rate-limit and time-bound their own calls; a failure
// here is always recoverable by the caller's fallback path.
type TextGenClient interface {
	// Generate produces a completion for the prompt
	Generate(ctx context.Context, prompt string) (string, error)

	// Model returns the configured model identifier
	Model() string
}
