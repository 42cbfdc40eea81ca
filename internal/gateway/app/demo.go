package app

import (
	"context"
	"encoding/json"

	"google.golang.org/genai"

	"github.com/reny1cao/crypto-insights/internal/llm"
	"github.com/reny1cao/crypto-insights/internal/specialist"
	"github.com/reny1cao/crypto-insights/internal/types"
	"github.com/reny1cao/crypto-insights/internal/workers/plan"
)

// newDemoClient returns a model client that completes a run without network
// access: the Lead Researcher plans every registered specialist and approves
// every submission, other agents get schema samples.
func newDemoClient(reg *specialist.Registry) *llm.FakeClient {
	fake := llm.NewFakeClient("demo")
	fake.OnJSON(types.AgentLead, func(_ context.Context, req llm.JSONRequest) (json.RawMessage, error) {
		switch {
		case req.Schema != nil && req.Schema.Type == genai.TypeArray:
			out := make([]types.ReviewDecision, 0, reg.Len())
			for _, p := range reg.Profiles() {
				out = append(out, types.ReviewDecision{SpecialistName: p.Name, Approved: true, Feedback: "Looks good."})
			}
			return json.Marshal(out)
		case req.Schema != nil && req.Schema.Properties["objectives"] != nil:
			var out struct {
				Objectives []plan.Objective `json:"objectives"`
			}
			for _, p := range reg.Profiles() {
				out.Objectives = append(out.Objectives, plan.Objective{
					Specialist: p.Name,
					Objective:  "Summarize today's " + string(p.Kind) + " picture for the top ten assets.",
				})
			}
			return json.Marshal(out)
		}
		return json.Marshal(llm.SampleFromSchema(req.Schema))
	})
	fake.OnText("*", func(ctx context.Context, req llm.TextRequest) (llm.TextResult, error) {
		res := llm.TextResult{Text: "Demo output for " + llm.AgentFrom(ctx) + "."}
		if req.Grounded {
			res.Sources = []types.Source{{Title: "Demo Market Feed", URI: "https://example.com/markets"}}
		}
		return res, nil
	})
	return fake
}
