package review

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

// Submission pairs a specialist's display name with its latest analysis.
type Submission struct {
	Specialist string          `json:"specialist"`
	Analysis   json.RawMessage `json:"analysis"`
}

// DecisionsSchema is the structured-output contract of a review round.
func DecisionsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"specialistName": {Type: genai.TypeString, Description: "The name of the specialist whose work is being reviewed."},
				"approved":       {Type: genai.TypeBoolean, Description: "True if the analysis is approved, false if it needs revision."},
				"feedback":       {Type: genai.TypeString, Description: "If not approved, specific, constructive feedback for revision. If approved, a brief confirmation."},
			},
			Required:         []string{"specialistName", "approved", "feedback"},
			PropertyOrdering: []string{"specialistName", "approved", "feedback"},
		},
	}
}

var reviewPromptSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Role:    "You are the Lead Researcher and editor-in-chief of a crypto analysis firm.",
	Purpose: "Review the NEW SUBMISSIONS from your team. Make a decision for each one, using the APPROVED REPORTS as context.",
	Rules: []string{
		"Evaluate each new submission for quality, depth, data-backing, and adherence to its objective.",
		"Check for inconsistencies between new submissions and already approved reports.",
		"If a new submission contains information that contradicts or significantly changes the context of an approved report, reject that approved report by including a decision for it with approved=false and feedback explaining what to reconsider.",
		"Return exactly one decision per new submission and, where needed, one per overridden approved report.",
		"Use specialist names exactly as they appear in the input.",
	},
	OutputFields: []llmtool.PromptField{
		{Name: "specialistName", Type: "string", Required: true, Description: "The specialist being reviewed."},
		{Name: "approved", Type: "bool", Required: true, Description: "True to approve, false to request revision."},
		{Name: "feedback", Type: "string", Required: true, Description: "Constructive feedback, or a short confirmation when approved."},
	},
	OutputFormat: "A JSON array of decision objects.",
}, llmtool.PresetStrictJSON())

// Engine is the Lead Researcher acting as reviewer.
type Engine struct {
	LLM llm.Caller
}

// Review asks the strong tier for decisions on the new submissions with the
// approved analyses as context. Returned decisions are trimmed but not
// filtered; matching them to tasks is up to the caller.
func (e *Engine) Review(ctx context.Context, date string, submissions, approved []Submission) ([]types.ReviewDecision, error) {
	if e == nil || e.LLM == nil {
		return nil, errors.New("review: llm is nil")
	}
	spec := reviewPromptSpec
	spec.Background = "Daily crypto market report for " + date + "."
	spec = spec.WithContext(
		llmtool.Block{Title: "New submissions", Body: encode(submissions), Fallback: "[]"},
		llmtool.Block{Title: "Approved reports", Body: encode(approved), Fallback: "No analyses have been approved yet."},
	)
	prompt, err := llmtool.Render(spec)
	if err != nil {
		return nil, err
	}
	var out []types.ReviewDecision
	if err := e.LLM.Structured(llm.WithAgent(ctx, types.AgentLead), llm.TierStrong, prompt, DecisionsSchema(), &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].SpecialistName = strings.TrimSpace(out[i].SpecialistName)
	}
	return out, nil
}

func encode(subs []Submission) string {
	if len(subs) == 0 {
		return ""
	}
	b, err := jsonutil.MarshalNoEscapeIndent(subs, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}
