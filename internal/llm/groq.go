package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const groqEndpoint = "https://api.groq.com/openai/v1/chat/completions"

// GroqClient calls the OpenAI-compatible Groq chat completions API. It has
// no search tool, so grounded requests come back without sources.
type GroqClient struct {
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
}

func NewGroqClient(apiKey, model string) (*GroqClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("groq: API key is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("groq: model is required")
	}
	return &GroqClient{
		http:    &http.Client{Timeout: 90 * time.Second},
		apiKey:  apiKey,
		model:   model,
		baseURL: groqEndpoint,
	}, nil
}

// WithBaseURL points the client at another OpenAI-compatible endpoint.
func (g *GroqClient) WithBaseURL(u string) *GroqClient {
	g.baseURL = u
	return g
}

func (g *GroqClient) Name() string { return "Groq:" + g.model }
func (g *GroqClient) Close() error { return nil }

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqChatReq struct {
	Model          string            `json:"model"`
	Messages       []groqMessage     `json:"messages"`
	Temperature    float32           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type groqChatResp struct {
	Choices []struct {
		Message groqMessage `json:"message"`
	} `json:"choices"`
}

func (g *GroqClient) GenerateText(ctx context.Context, req TextRequest) (TextResult, error) {
	msgs := make([]groqMessage, 0, len(req.History)+2)
	if s := strings.TrimSpace(req.System); s != "" {
		msgs = append(msgs, groqMessage{Role: "system", Content: s})
	}
	for _, t := range req.History {
		role := "user"
		if t.Role == "model" {
			role = "assistant"
		}
		msgs = append(msgs, groqMessage{Role: role, Content: t.Text})
	}
	msgs = append(msgs, groqMessage{Role: "user", Content: req.Prompt})

	text, err := g.complete(ctx, groqChatReq{Model: g.model, Messages: msgs, Temperature: 0.4})
	if err != nil {
		return TextResult{}, err
	}
	return TextResult{Text: text}, nil
}

// GenerateJSON uses JSON mode and states the schema in the system message.
func (g *GroqClient) GenerateJSON(ctx context.Context, req JSONRequest) (json.RawMessage, error) {
	system := "Respond with a single JSON value only."
	if req.Schema != nil {
		schema, err := json.Marshal(req.Schema)
		if err != nil {
			return nil, NewPermanentError(fmt.Errorf("groq: encode schema: %w", err))
		}
		system += " It must conform to this JSON schema:\n" + string(schema)
	}
	text, err := g.complete(ctx, groqChatReq{
		Model: g.model,
		Messages: []groqMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: req.Prompt},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, err
	}
	raw := json.RawMessage(text)
	if !json.Valid(raw) {
		return nil, ErrInvalidJSON
	}
	return raw, nil
}

func (g *GroqClient) complete(ctx context.Context, body groqChatReq) (string, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := fmt.Errorf("groq: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
		switch resp.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return "", NewPermanentError(err)
		}
		return "", err
	}
	var out groqChatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("groq: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
