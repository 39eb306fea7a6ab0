package llmclient

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Middleware decorates a Client to inject cross-cutting concerns
// (rate limiting, logging, metrics).
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		out = mws[i](out)
	}
	return out
}

// -------- Rate Limiting --------

// RateLimit shares one token bucket across every request through the
// returned middleware. rps <= 0 disables it.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Client) Client {
		return &rateLimited{next: next, rl: newBucket(rps, burst)}
	}
}

type rateLimited struct {
	next Client
	rl   *bucket
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error { return c.next.Close() }
func (c *rateLimited) Generate(ctx context.Context, req Request) (string, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return "", NewError(KindTransport, "", err)
	}
	return c.next.Generate(ctx, req)
}

// -------- Logging --------

// WithLogging logs request size, latency and errors. Image bytes are never
// logged; a nil logger disables the middleware.
func WithLogging(logger *zap.Logger) Middleware {
	if logger == nil {
		return nil
	}
	return func(next Client) Client {
		return &logging{next: next, log: logger.Named("llm")}
	}
}

type logging struct {
	next Client
	log  *zap.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }
func (l *logging) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	fields := []zap.Field{
		zap.String("operation", string(OperationFrom(ctx))),
		zap.String("model", req.Model),
		zap.Int("prompt_bytes", requestBytes(req)),
		zap.Bool("image", req.HasImage()),
		zap.Bool("schema", req.Schema != nil),
	}
	l.log.Debug("LLM request", append(fields, zap.Any("parts", describeParts(req)))...)
	txt, err := l.next.Generate(ctx, req)
	fields = append(fields, zap.Duration("latency", time.Since(start)))
	if err != nil {
		l.log.Warn("LLM error", append(fields, zap.Error(err))...)
		return txt, err
	}
	l.log.Info("LLM response", append(fields, zap.Int("response_bytes", len(txt)))...)
	return txt, nil
}

func requestBytes(req Request) int {
	n := len(req.Prompt)
	for _, t := range req.Texts {
		n += len(t)
	}
	return n
}
