package analyst

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/reny1cao/crypto-insights/internal/llm"
	"github.com/reny1cao/crypto-insights/internal/types"
)

const (
	chatSystem = "You are a helpful crypto market assistant. Answer questions about today's market report concisely. " +
		"If the report does not cover a question, say so instead of guessing."
	deepSystem = "You are an expert crypto analyst. Provide a detailed, nuanced, and comprehensive response to the user's query. " +
		"Use markdown for formatting if helpful."
)

var ErrEmptyQuery = errors.New("analyst: empty query")

// Analyst answers follow-up questions outside the report pipeline.
type Analyst struct {
	LLM llm.Caller
}

// Chat continues a conversation on the fast tier. report, when set, is the
// day's executive summary and is added to the system instruction.
func (a *Analyst) Chat(ctx context.Context, history []llm.Turn, message, report string) (string, error) {
	if a == nil || a.LLM == nil {
		return "", errors.New("analyst: llm is nil")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyQuery
	}
	for i, t := range history {
		if t.Role != "user" && t.Role != "model" {
			return "", fmt.Errorf("analyst: history[%d] has role %q", i, t.Role)
		}
	}
	system := chatSystem
	if strings.TrimSpace(report) != "" {
		system += "\n\nToday's executive summary:\n" + report
	}
	res, err := a.LLM.Text(llm.WithAgent(ctx, types.AgentAnalyst), llm.TierFast, llm.TextRequest{
		Prompt:  message,
		System:  system,
		History: history,
	})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// DeepAnalysis answers a single query on the strong tier.
func (a *Analyst) DeepAnalysis(ctx context.Context, query string) (string, error) {
	if a == nil || a.LLM == nil {
		return "", errors.New("analyst: llm is nil")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	res, err := a.LLM.Text(llm.WithAgent(ctx, types.AgentAnalyst), llm.TierStrong, llm.TextRequest{
		Prompt: query,
		System: deepSystem,
	})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}
