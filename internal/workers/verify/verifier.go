package verify

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/reny1cao/crypto-insights/internal/llm"
	"github.com/reny1cao/crypto-insights/internal/llmtool"
	"github.com/reny1cao/crypto-insights/internal/types"
	"github.com/reny1cao/crypto-insights/internal/util/jsonutil"
)

func score(desc string) *genai.Schema {
	lo, hi := 1.0, 10.0
	return &genai.Schema{Type: genai.TypeInteger, Description: desc, Minimum: &lo, Maximum: &hi}
}

func ResultSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"verified":           {Type: genai.TypeBoolean, Description: "True only if the report is complete, consistent, and well supported."},
			"issues":             {Type: genai.TypeString, Description: "Specific issues found. Empty when verified."},
			"completeness_score": score("How completely the report covers the market (1-10)."),
			"data_quality_score": score("How well the claims are backed by data and sources (1-10)."),
		},
		Required:         []string{"verified", "issues", "completeness_score", "data_quality_score"},
		PropertyOrdering: []string{"verified", "issues", "completeness_score", "data_quality_score"},
	}
}

var verifyPromptSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Role:    "You are a meticulous Verifier Agent auditing a daily crypto market report before publication.",
	Purpose: "Check the report for factual consistency, completeness, and data quality.",
	Rules: []string{
		"Check that the executive summary is consistent with the specialist sections.",
		"Flag contradictions between sections and claims that are not backed by the listed sources.",
		"Set verified to false if any issue would mislead a reader.",
	},
	OutputFields: llmtool.FieldsFromSchema(ResultSchema()),
}, llmtool.PresetStrictJSON())

// Verifier audits the assembled report on the fast tier.
type Verifier struct {
	LLM llm.Caller
}

func (v *Verifier) Verify(ctx context.Context, report *types.CryptoReportData) (types.VerificationResult, error) {
	if v == nil || v.LLM == nil {
		return types.VerificationResult{}, errors.New("verify: llm is nil")
	}
	if report == nil {
		return types.VerificationResult{}, errors.New("verify: report is nil")
	}
	body, err := jsonutil.MarshalNoEscapeIndent(report, "", "  ")
	if err != nil {
		return types.VerificationResult{}, err
	}
	spec := verifyPromptSpec.WithContext(llmtool.Block{Title: "Report", Body: string(body)})
	prompt, err := llmtool.Render(spec)
	if err != nil {
		return types.VerificationResult{}, err
	}
	var out types.VerificationResult
	if err := v.LLM.Structured(llm.WithAgent(ctx, types.AgentVerifier), llm.TierFast, prompt, ResultSchema(), &out); err != nil {
		return types.VerificationResult{}, err
	}
	return out, nil
}
