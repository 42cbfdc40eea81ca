package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Retry retries a request up to maxAttempts with exponential backoff
// starting at baseDelay. If context is canceled, it stops immediately.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next LLMClient) LLMClient {
		return &retrying{next: next, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	next LLMClient
	max  int
	base time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }

func (r *retrying) GenerateText(ctx context.Context, req TextRequest) (TextResult, error) {
	var out TextResult
	err := r.do(ctx, func() error {
		var err error
		out, err = r.next.GenerateText(ctx, req)
		return err
	})
	return out, err
}

func (r *retrying) GenerateJSON(ctx context.Context, req JSONRequest) (json.RawMessage, error) {
	var out json.RawMessage
	err := r.do(ctx, func() error {
		var err error
		out, err = r.next.GenerateJSON(ctx, req)
		return err
	})
	return out, err
}

func (r *retrying) do(ctx context.Context, call func() error) error {
	var last error
	for i := 0; i < r.max; i++ {
		err := call()
		if err == nil {
			return nil
		}
		var pErr *PermanentError
		if errors.As(err, &pErr) {
			return err
		}
		last = err
		if i == r.max-1 {
			break
		}
		t := time.NewTimer(r.base * time.Duration(1<<i))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return last
}
