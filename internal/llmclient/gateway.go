package llmclient

import (
	"context"
	"errors"
	"strings"
)

const (
	DefaultReasoningModel = "gemini-3-pro-preview"
	DefaultVisionModel    = "gemini-2.5-flash-image"
)

// Models names the two endpoints the gateway chooses between.
type Models struct {
	Reasoning string
	Vision    string
}

func (m Models) withDefaults() Models {
	if strings.TrimSpace(m.Reasoning) == "" {
		m.Reasoning = DefaultReasoningModel
	}
	if strings.TrimSpace(m.Vision) == "" {
		m.Vision = DefaultVisionModel
	}
	return m
}

// Gateway selects the model for a request and normalises failures into
// *Error. It performs exactly one call per invocation and never retries.
type Gateway struct {
	client Client
	models Models
}

func NewGateway(client Client, models Models) *Gateway {
	return &Gateway{client: client, models: models.withDefaults()}
}

// Models returns the configured model ids.
func (g *Gateway) Models() Models { return g.models }

// Select returns the vision model when an image is attached and the
// reasoning model otherwise.
func (g *Gateway) Select(hasImage bool) string {
	if hasImage {
		return g.models.Vision
	}
	return g.models.Reasoning
}

// Call sends req and returns the unprocessed response text.
// Schema-constrained decoding and thinking budgets are dropped on the
// vision path, which relies on instruction following alone.
func (g *Gateway) Call(ctx context.Context, req Request) (string, error) {
	if g == nil || g.client == nil {
		return "", NewError(KindTransport, "", errors.New("llm client is not configured"))
	}
	req.Model = g.Select(req.HasImage())
	if req.HasImage() {
		req.Schema = nil
		req.ThinkingBudget = 0
	}
	ctx = WithOperation(ctx, req.Operation)

	txt, err := g.client.Generate(ctx, req)
	if err != nil {
		var le *Error
		if errors.As(err, &le) {
			return "", err
		}
		return "", NewError(KindTransport, "", err)
	}
	if strings.TrimSpace(txt) == "" {
		return "", ErrEmptyResponse
	}
	return txt, nil
}

func (g *Gateway) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}
