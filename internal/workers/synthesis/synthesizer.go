package synthesis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"google.golang.org/genai"

	"github.com/reny1cao/crypto-insights/internal/llm"
	"github.com/reny1cao/crypto-insights/internal/llmtool"
	"github.com/reny1cao/crypto-insights/internal/types"
	"github.com/reny1cao/crypto-insights/internal/util/jsonutil"
)

// Summary is the Lead Researcher's synthesis of the approved analyses.
type Summary struct {
	ExecutiveSummary string           `json:"executive_summary"`
	ConfidenceLevel  types.Confidence `json:"confidence_level"`
}

func SummarySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"executive_summary": {Type: genai.TypeString, Description: "A concise, high-level summary of the entire market analysis, written for a busy executive."},
			"confidence_level": {
				Type:        genai.TypeString,
				Enum:        []string{string(types.ConfidenceHigh), string(types.ConfidenceMedium), string(types.ConfidenceLow)},
				Description: "The overall confidence in the analysis, considering data quality and consensus.",
			},
		},
		Required:         []string{"executive_summary", "confidence_level"},
		PropertyOrdering: []string{"executive_summary", "confidence_level"},
	}
}

var synthesisPromptSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Role:    "You are the Lead Researcher. All specialist reports have been approved.",
	Purpose: "Synthesize the approved analyses into a final executive summary and determine the overall confidence level of the report.",
	Rules: []string{
		"The summary must reflect the combined view of all specialists, including disagreements.",
		"Lower the confidence level when data is thin or specialists disagree.",
	},
	OutputFields: llmtool.FieldsFromSchema(SummarySchema()),
}, llmtool.PresetStrictJSON(), llmtool.PresetNoInvent())

// Synthesizer writes the executive summary on the strong tier.
type Synthesizer struct {
	LLM llm.Caller
}

// Synthesize summarises analyses, keyed by specialist kind. priorIssues, when
// set, carries the verifier's complaints about the previous draft.
func (s *Synthesizer) Synthesize(ctx context.Context, date string, analyses map[string]json.RawMessage, priorIssues string) (Summary, error) {
	if s == nil || s.LLM == nil {
		return Summary{}, errors.New("synthesis: llm is nil")
	}
	body, err := jsonutil.MarshalNoEscapeIndent(analyses, "", "  ")
	if err != nil {
		return Summary{}, err
	}
	spec := synthesisPromptSpec
	spec.Background = "Daily crypto market report for " + date + "."
	spec = spec.WithContext(llmtool.Block{Title: "Approved analyses", Body: string(body)})
	if strings.TrimSpace(priorIssues) != "" {
		spec = spec.WithContext(llmtool.Block{
			Title: "Verifier issues",
			Body:  "The previous draft failed verification. Address these issues in the new summary:\n" + priorIssues,
		})
	}
	prompt, err := llmtool.Render(spec)
	if err != nil {
		return Summary{}, err
	}
	var out Summary
	if err := s.LLM.Structured(llm.WithAgent(ctx, types.AgentLead), llm.TierStrong, prompt, SummarySchema(), &out); err != nil {
		return Summary{}, err
	}
	return out, nil
}
