package llmclient

import (
	"context"

	genai "google.golang.org/genai"

	"cppolygon/internal/types"
)

// Operation names the round trip a request belongs to. It is used for
// logging and metrics labels and to pick fake responses in tests.
type Operation string

const (
	OpParse         Operation = "parse"
	OpGenerateTests Operation = "generate_tests"
	OpHuntBug       Operation = "hunt_bug"
)

// Request is one call to the external model.
type Request struct {
	Operation Operation
	// Model is set by the Gateway.
	Model string
	// Prompt is the instruction part; Texts are appended as further parts.
	Prompt string
	Texts  []string
	Image  *types.ImagePayload
	// Schema enables schema-constrained JSON decoding. Only the reasoning
	// model path carries it.
	Schema         *genai.Schema
	ThinkingBudget int32
}

// HasImage reports whether an image part is attached.
func (r Request) HasImage() bool {
	return !r.Image.Empty()
}

// Client performs exactly one external call and returns the raw text.
type Client interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
	Close() error
}
