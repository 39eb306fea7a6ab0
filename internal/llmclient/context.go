package llmclient

import "context"

type ctxKeyOperation struct{}

// WithOperation tags ctx with the operation name for middleware labels.
func WithOperation(ctx context.Context, op Operation) context.Context {
	return context.WithValue(ctx, ctxKeyOperation{}, op)
}

// OperationFrom returns the operation stored in the context.
func OperationFrom(ctx context.Context) Operation {
	if v := ctx.Value(ctxKeyOperation{}); v != nil {
		if op, ok := v.(Operation); ok && op != "" {
			return op
		}
	}
	return "unknown"
}
