package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/genai"

	"github.com/reny1cao/crypto-insights/internal/tester"
)

func groqServer(t *testing.T, status int, content string, seen *groqChatReq) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGroqText(t *testing.T) {
	var seen groqChatReq
	srv := groqServer(t, http.StatusOK, "BTC held support.", &seen)
	g, err := NewGroqClient("k", "llama")
	tester.NoErr(t, err)
	g.WithBaseURL(srv.URL)

	res, err := g.GenerateText(context.Background(), TextRequest{
		Prompt:   "q",
		System:   "sys",
		History:  []Turn{{Role: "user", Text: "hi"}, {Role: "model", Text: "hello"}},
		Grounded: true,
	})
	tester.NoErr(t, err)
	tester.Eq(t, res.Text, "BTC held support.")
	tester.Len(t, res.Sources, 0)
	tester.Eq(t, len(seen.Messages), 4)
	tester.Eq(t, seen.Messages[2].Role, "assistant")
}

func TestGroqJSON(t *testing.T) {
	var seen groqChatReq
	srv := groqServer(t, http.StatusOK, `{"ok":true}`, &seen)
	g, _ := NewGroqClient("k", "llama")
	g.WithBaseURL(srv.URL)

	raw, err := g.GenerateJSON(context.Background(), JSONRequest{
		Prompt: "p",
		Schema: &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{"ok": {Type: genai.TypeBoolean}}},
	})
	tester.NoErr(t, err)
	tester.Eq(t, string(raw), `{"ok":true}`)
	tester.Eq(t, seen.ResponseFormat["type"], "json_object")
	tester.Contains(t, seen.Messages[0].Content, `"ok"`)

	bad := groqServer(t, http.StatusOK, "not json", nil)
	g.WithBaseURL(bad.URL)
	_, err = g.GenerateJSON(context.Background(), JSONRequest{Prompt: "p"})
	tester.ErrIs(t, err, ErrInvalidJSON)
}

func TestGroqClientErrorsArePermanent(t *testing.T) {
	srv := groqServer(t, http.StatusOK, "x", nil)
	g, _ := NewGroqClient("wrong", "llama")
	g.WithBaseURL(srv.URL)
	_, err := g.GenerateText(context.Background(), TextRequest{Prompt: "q"})
	var perm *PermanentError
	tester.True(t, errors.As(err, &perm), "401 should be permanent")

	_, err = NewGroqClient("", "m")
	tester.True(t, err != nil, "missing key")
}
