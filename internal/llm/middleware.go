package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"golang.org/x/time/rate"
)

// Middleware decorates an LLMClient to inject cross-cutting concerns
// (rate limiting, retries, logging, hooks, etc.).
type Middleware func(LLMClient) LLMClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner LLMClient, mws ...Middleware) LLMClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		out = mws[i](out)
	}
	return out
}

// RateLimit spaces calls with a token bucket of rps tokens per second and
// the given burst. rps <= 0 disables limiting.
func RateLimit(rps float64, burst int) Middleware {
	return func(next LLMClient) LLMClient {
		if rps <= 0 {
			return next
		}
		if burst <= 0 {
			burst = 1
		}
		return &rateLimited{next: next, lim: rate.NewLimiter(rate.Limit(rps), burst)}
	}
}

type rateLimited struct {
	next LLMClient
	lim  *rate.Limiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error { return c.next.Close() }

func (c *rateLimited) wait(ctx context.Context) error {
	if err := c.lim.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// The limiter refuses early when the deadline falls before the next token.
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return nil
}

func (c *rateLimited) GenerateText(ctx context.Context, req TextRequest) (TextResult, error) {
	if err := c.wait(ctx); err != nil {
		return TextResult{}, err
	}
	return c.next.GenerateText(ctx, req)
}

func (c *rateLimited) GenerateJSON(ctx context.Context, req JSONRequest) (json.RawMessage, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.next.GenerateJSON(ctx, req)
}

// WithLogging logs request size and errors. Provide a custom logger or nil
// to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next LLMClient) LLMClient {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next LLMClient
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) GenerateText(ctx context.Context, req TextRequest) (TextResult, error) {
	l.log.Printf("LLM text request (%s via %s, grounded=%t): %d bytes", AgentFrom(ctx), l.next.Name(), req.Grounded, len(req.Prompt))
	res, err := l.next.GenerateText(ctx, req)
	if err != nil {
		l.log.Printf("LLM error (%s): %v", AgentFrom(ctx), err)
	}
	return res, err
}

func (l *logging) GenerateJSON(ctx context.Context, req JSONRequest) (json.RawMessage, error) {
	l.log.Printf("LLM request (%s via %s): %d bytes", AgentFrom(ctx), l.next.Name(), len(req.Prompt))
	raw, err := l.next.GenerateJSON(ctx, req)
	if err != nil {
		l.log.Printf("LLM error (%s): %v", AgentFrom(ctx), err)
	}
	return raw, err
}
