package llm

import (
	"context"
	"encoding/json"

	"google.golang.org/genai"

	"github.com/reny1cao/crypto-insights/internal/types"
)

// Tier selects a model by cost/quality.
type Tier string

const (
	TierFast   Tier = "fast"
	TierStrong Tier = "strong"
)

// Turn is one message of a chat history.
type Turn struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"text"`
}

// TextRequest asks for free text, optionally grounded with web search.
type TextRequest struct {
	Prompt   string
	System   string
	History  []Turn
	Grounded bool
}

// TextResult is free text plus the web sources that grounded it.
type TextResult struct {
	Text    string
	Sources []types.Source
}

// JSONRequest asks for a JSON value conforming to Schema.
type JSONRequest struct {
	Prompt string
	Schema *genai.Schema
}

// LLMClient is the transport-level model client.
type LLMClient interface {
	Name() string
	GenerateText(ctx context.Context, req TextRequest) (TextResult, error)
	GenerateJSON(ctx context.Context, req JSONRequest) (json.RawMessage, error)
	Close() error
}
