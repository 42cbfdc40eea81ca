package llm

import (
	"context"
	"encoding/json"
)

// PromptHook observes every model call passing through WithHooks.
type PromptHook interface {
	Before(ctx context.Context, agent, op, prompt string)
	After(ctx context.Context, agent, op string, raw json.RawMessage, err error)
}

type ctxKeyAgent struct{}
type ctxKeyRun struct{}

// WithAgent labels calls made with ctx with the calling agent's name.
func WithAgent(ctx context.Context, agent string) context.Context {
	return context.WithValue(ctx, ctxKeyAgent{}, agent)
}

// AgentFrom returns the agent label stored in the context.
func AgentFrom(ctx context.Context) string {
	if v := ctx.Value(ctxKeyAgent{}); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "unknown"
}

// WithRunID attaches the report run id for trace hooks.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ctxKeyRun{}, runID)
}

// RunIDFrom returns the run id stored in the context, or "".
func RunIDFrom(ctx context.Context) string {
	if v := ctx.Value(ctxKeyRun{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithHooks calls each hook around every request.
func WithHooks(hooks ...PromptHook) Middleware {
	return func(next LLMClient) LLMClient {
		return &hooked{next: next, hooks: hooks}
	}
}

type hooked struct {
	next  LLMClient
	hooks []PromptHook
}

func (h *hooked) Name() string { return h.next.Name() }
func (h *hooked) Close() error { return h.next.Close() }

func (h *hooked) GenerateText(ctx context.Context, req TextRequest) (TextResult, error) {
	agent := AgentFrom(ctx)
	op := "text"
	if req.Grounded {
		op = "grounded"
	}
	for _, hk := range h.hooks {
		hk.Before(ctx, agent, op, req.Prompt)
	}
	res, err := h.next.GenerateText(ctx, req)
	var raw json.RawMessage
	if err == nil {
		raw, _ = json.Marshal(res.Text)
	}
	for _, hk := range h.hooks {
		hk.After(ctx, agent, op, raw, err)
	}
	return res, err
}

func (h *hooked) GenerateJSON(ctx context.Context, req JSONRequest) (json.RawMessage, error) {
	agent := AgentFrom(ctx)
	for _, hk := range h.hooks {
		hk.Before(ctx, agent, "structured", req.Prompt)
	}
	raw, err := h.next.GenerateJSON(ctx, req)
	for _, hk := range h.hooks {
		hk.After(ctx, agent, "structured", raw, err)
	}
	return raw, err
}
