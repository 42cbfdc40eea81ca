package research

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/reny1cao/crypto-insights/internal/llm"
	"github.com/reny1cao/crypto-insights/internal/specialist"
	"github.com/reny1cao/crypto-insights/internal/tester"
	"github.com/reny1cao/crypto-insights/internal/types"
)

func sentimentProfile(t *testing.T) specialist.Profile {
	t.Helper()
	p, ok := specialist.DefaultRegistry().ByKind(specialist.Sentiment)
	tester.True(t, ok, "sentiment profile")
	return p
}

func TestSearchFirstPassKeepsRawSummary(t *testing.T) {
	fake := llm.NewFakeClient("fast").OnText("Sentiment Analyst", func(_ context.Context, req llm.TextRequest) (llm.TextResult, error) {
		tester.True(t, req.Grounded, "search must be grounded")
		return llm.TextResult{Text: "Fear index at 30.", Sources: []types.Source{
			{URI: "https://a", Title: "A"}, {URI: "https://a", Title: "dup"}, {URI: ""},
		}}, nil
	})
	r := &Researcher{LLM: llm.NewGateway(fake, nil)}

	f, err := r.Search(context.Background(), Assignment{Date: "2025-06-01", Profile: sentimentProfile(t), Objective: "Gauge fear."})
	tester.NoErr(t, err)
	tester.Eq(t, f.Summary, "Fear index at 30.")
	tester.Eq(t, f.Sources, []types.Source{{URI: "https://a", Title: "A"}})
	tester.Contains(t, fake.CallsFor("Sentiment Analyst", "grounded")[0].Prompt, "Gauge fear.")
}

func TestSearchRevisionPrefixesAndMergesSources(t *testing.T) {
	fake := llm.NewFakeClient("fast").OnText("*", func(context.Context, llm.TextRequest) (llm.TextResult, error) {
		return llm.TextResult{Text: "New data.", Sources: []types.Source{{URI: "https://b"}, {URI: "https://a", Title: "again"}}}, nil
	})
	r := &Researcher{LLM: llm.NewGateway(fake, nil)}
	prev := &types.SpecialistIteration{
		Iteration: 1,
		Analysis:  json.RawMessage(`{"overall_sentiment":"bearish"}`),
		Sources:   []types.Source{{URI: "https://a", Title: "A"}},
	}
	peers := []Peer{{Name: "Technical Analyst", Analysis: json.RawMessage(`{"price_trends":"range"}`)}}

	f, err := r.Search(context.Background(), Assignment{Profile: sentimentProfile(t), Objective: "o", Feedback: "Cite more.", Previous: prev, Peers: peers})
	tester.NoErr(t, err)
	tester.Eq(t, f.Text, "New data.")
	tester.Eq(t, f.Summary, "Revision research summary:\nNew data.")
	tester.Eq(t, f.Sources, []types.Source{{URI: "https://a", Title: "A"}, {URI: "https://b"}})
	prompt := fake.Calls()[0].Prompt
	tester.Contains(t, prompt, "Cite more.")
	tester.Contains(t, prompt, "[PREVIOUS_ANALYSIS]\n{\"overall_sentiment\":\"bearish\"}")
	tester.Contains(t, prompt, "--- Technical Analyst ---\n{\"price_trends\":\"range\"}")
}

func TestAnalyzeReturnsSchemaValidJSON(t *testing.T) {
	fake := llm.NewFakeClient("fast")
	r := &Researcher{LLM: llm.NewGateway(fake, nil)}
	prof := sentimentProfile(t)

	raw, err := r.Analyze(context.Background(), Assignment{Profile: prof, Objective: "o"}, Findings{Text: "t"})
	tester.NoErr(t, err)
	tester.NoErr(t, llm.Validate(prof.Kind.Schema(), raw))

	var report types.CryptoReportData
	tester.NoErr(t, specialist.Assign(&report, prof.Kind, raw))
	tester.True(t, report.Sentiment != nil, "sentiment assigned")
}

func TestAnalyzeRevisionShowsPeersAndPrevious(t *testing.T) {
	fake := llm.NewFakeClient("fast")
	r := &Researcher{LLM: llm.NewGateway(fake, nil)}
	a := Assignment{
		Profile:   sentimentProfile(t),
		Objective: "o",
		Feedback:  "Add funding rates.",
		Previous:  &types.SpecialistIteration{Iteration: 1, Analysis: json.RawMessage(`{"overall_sentiment":"fearful"}`)},
		Peers:     []Peer{{Name: "Risk Analyst", Analysis: json.RawMessage(`{"red_flags":[]}`)}},
	}

	_, err := r.Analyze(context.Background(), a, Findings{Text: "funding negative"})
	tester.NoErr(t, err)
	prompt := fake.CallsFor("Sentiment Analyst", "structured")[0].Prompt
	tester.Contains(t, prompt, `{"overall_sentiment":"fearful"}`)
	tester.Contains(t, prompt, "--- Risk Analyst ---\n{\"red_flags\":[]}")
	tester.Contains(t, prompt, "Add funding rates.")
	tester.Contains(t, prompt, "funding negative")
}

func TestAnalyzeRejectsInvalidOutput(t *testing.T) {
	fake := llm.NewFakeClient("fast").OnJSON("*", func(context.Context, llm.JSONRequest) (json.RawMessage, error) {
		return json.RawMessage(`{"key_insights":"not a list"}`), nil
	})
	r := &Researcher{LLM: llm.NewGateway(fake, nil)}

	_, err := r.Analyze(context.Background(), Assignment{Profile: sentimentProfile(t)}, Findings{})
	gwErr := tester.ErrAs[*llm.GatewayError](t, err)
	tester.Eq(t, gwErr.Agent, "Sentiment Analyst")
}
