package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

// FakeCall records one request served by FakeClient.
type FakeCall struct {
	Agent  string
	Op     string
	Prompt string
}

type (
	TextHandler func(ctx context.Context, req TextRequest) (TextResult, error)
	JSONHandler func(ctx context.Context, req JSONRequest) (json.RawMessage, error)
)

// FakeClient serves canned responses keyed by agent label. Agents without a
// handler get placeholder text or a sample value built from the schema.
type FakeClient struct {
	name string

	mu    sync.Mutex
	text  map[string]TextHandler
	json  map[string]JSONHandler
	calls []FakeCall
}

func NewFakeClient(name string) *FakeClient {
	return &FakeClient{
		name: name,
		text: map[string]TextHandler{},
		json: map[string]JSONHandler{},
	}
}

// OnText registers the text handler for agent ("*" matches any agent).
func (f *FakeClient) OnText(agent string, h TextHandler) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text[agent] = h
	return f
}

// OnJSON registers the structured handler for agent ("*" matches any agent).
func (f *FakeClient) OnJSON(agent string, h JSONHandler) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.json[agent] = h
	return f
}

// Calls returns a copy of the recorded requests.
func (f *FakeClient) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}

// CallsFor returns the recorded requests of one agent and op.
func (f *FakeClient) CallsFor(agent, op string) []FakeCall {
	var out []FakeCall
	for _, c := range f.Calls() {
		if c.Agent == agent && c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeClient) Name() string { return "Fake:" + f.name }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateText(ctx context.Context, req TextRequest) (TextResult, error) {
	agent := AgentFrom(ctx)
	op := "text"
	if req.Grounded {
		op = "grounded"
	}
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Agent: agent, Op: op, Prompt: req.Prompt})
	h, ok := f.text[agent]
	if !ok {
		h, ok = f.text["*"]
	}
	f.mu.Unlock()
	if ok {
		return h(ctx, req)
	}
	return TextResult{Text: fmt.Sprintf("%s findings from %s.", op, agent)}, nil
}

func (f *FakeClient) GenerateJSON(ctx context.Context, req JSONRequest) (json.RawMessage, error) {
	agent := AgentFrom(ctx)
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Agent: agent, Op: "structured", Prompt: req.Prompt})
	h, ok := f.json[agent]
	if !ok {
		h, ok = f.json["*"]
	}
	f.mu.Unlock()
	if ok {
		return h(ctx, req)
	}
	return json.Marshal(SampleFromSchema(req.Schema))
}

// SampleFromSchema builds a value that satisfies schema.
func SampleFromSchema(s *genai.Schema) any {
	if s == nil {
		return nil
	}
	switch s.Type {
	case genai.TypeObject:
		out := map[string]any{}
		for name, sub := range s.Properties {
			out[name] = SampleFromSchema(sub)
		}
		return out
	case genai.TypeArray:
		n := int64(2)
		if s.MinItems != nil && *s.MinItems > n {
			n = *s.MinItems
		}
		if s.MaxItems != nil && *s.MaxItems < n {
			n = *s.MaxItems
		}
		out := make([]any, 0, n)
		for i := int64(0); i < n; i++ {
			out = append(out, SampleFromSchema(s.Items))
		}
		return out
	case genai.TypeString:
		if len(s.Enum) > 0 {
			return s.Enum[0]
		}
		return "sample"
	case genai.TypeBoolean:
		return true
	case genai.TypeInteger, genai.TypeNumber:
		v := 8.0
		if s.Minimum != nil && v < *s.Minimum {
			v = *s.Minimum
		}
		if s.Maximum != nil && v > *s.Maximum {
			v = *s.Maximum
		}
		if s.Type == genai.TypeInteger {
			return int64(v)
		}
		return v
	}
	return nil
}
