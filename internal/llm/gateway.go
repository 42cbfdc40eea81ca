package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/reny1cao/crypto-insights/internal/util/jsonutil"
)

// Caller is the model surface agents depend on. *Gateway implements it.
type Caller interface {
	Text(ctx context.Context, tier Tier, req TextRequest) (TextResult, error)
	Grounded(ctx context.Context, tier Tier, prompt string) (TextResult, error)
	Structured(ctx context.Context, tier Tier, prompt string, schema *genai.Schema, out any) error
}

// Gateway routes calls to the client configured for a tier and turns every
// failure into a *GatewayError.
type Gateway struct {
	fast   LLMClient
	strong LLMClient
}

func NewGateway(fast, strong LLMClient) *Gateway {
	if strong == nil {
		strong = fast
	}
	if fast == nil {
		fast = strong
	}
	return &Gateway{fast: fast, strong: strong}
}

func (g *Gateway) client(tier Tier) (LLMClient, error) {
	if g == nil {
		return nil, errors.New("llm: gateway is nil")
	}
	var c LLMClient
	switch tier {
	case TierFast:
		c = g.fast
	case TierStrong:
		c = g.strong
	default:
		return nil, fmt.Errorf("llm: unknown tier %q", tier)
	}
	if c == nil {
		return nil, fmt.Errorf("llm: no client configured for tier %q", tier)
	}
	return c, nil
}

// Grounded runs a web-grounded text query.
func (g *Gateway) Grounded(ctx context.Context, tier Tier, prompt string) (TextResult, error) {
	return g.Text(ctx, tier, TextRequest{Prompt: prompt, Grounded: true})
}

// Text runs a free-text query.
func (g *Gateway) Text(ctx context.Context, tier Tier, req TextRequest) (TextResult, error) {
	op := "text"
	if req.Grounded {
		op = "grounded"
	}
	c, err := g.client(tier)
	if err != nil {
		return TextResult{}, &GatewayError{Op: op, Tier: tier, Agent: AgentFrom(ctx), Err: err}
	}
	res, err := c.GenerateText(ctx, req)
	if err != nil {
		return TextResult{}, &GatewayError{Op: op, Tier: tier, Agent: AgentFrom(ctx), Err: err}
	}
	return res, nil
}

// Structured runs a schema-constrained query and decodes the validated
// result into out.
func (g *Gateway) Structured(ctx context.Context, tier Tier, prompt string, schema *genai.Schema, out any) error {
	fail := func(err error) error {
		return &GatewayError{Op: "structured", Tier: tier, Agent: AgentFrom(ctx), Err: err}
	}
	c, err := g.client(tier)
	if err != nil {
		return fail(err)
	}
	raw, err := c.GenerateJSON(ctx, JSONRequest{Prompt: prompt, Schema: schema})
	if err != nil {
		return fail(err)
	}
	payload := jsonutil.ExtractJSON(string(raw))
	if len(payload) == 0 {
		return fail(ErrEmptyResponse)
	}
	if err := Validate(schema, payload); err != nil {
		return fail(err)
	}
	if err := jsonutil.UnmarshalFlex(payload, out); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrInvalidJSON, err))
	}
	return nil
}

// Close closes both clients once.
func (g *Gateway) Close() error {
	if g == nil {
		return nil
	}
	var errs []error
	if g.fast != nil {
		errs = append(errs, g.fast.Close())
	}
	if g.strong != nil && g.strong != g.fast {
		errs = append(errs, g.strong.Close())
	}
	return errors.Join(errs...)
}
