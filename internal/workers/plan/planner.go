package plan

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/reny1cao/crypto-insights/internal/llm"
	"github.com/reny1cao/crypto-insights/internal/llmtool"
	"github.com/reny1cao/crypto-insights/internal/specialist"
	"github.com/reny1cao/crypto-insights/internal/types"
)

// Objective is one specialist's research assignment from the final plan.
type Objective struct {
	Specialist string `json:"specialist"`
	Objective  string `json:"objective"`
}

type planOut struct {
	Objectives []Objective `json:"objectives"`
}

// PlanSchema is the structured-output contract of plan finalization.
func PlanSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"objectives": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"specialist": {Type: genai.TypeString, Description: "The name of the specialist, e.g., 'Technical Analyst'."},
						"objective":  {Type: genai.TypeString, Description: "The high-level research objective for this specialist."},
					},
					Required:         []string{"specialist", "objective"},
					PropertyOrdering: []string{"specialist", "objective"},
				},
			},
		},
		Required: []string{"objectives"},
	}
}

var agendaPromptSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Role:    "You are an expert Lead Researcher for a crypto analysis firm.",
	Purpose: "Get a high-level overview of the current crypto market landscape. Use your web search tool to identify the most important trends, recent news, and significant events.",
	Rules: []string{
		"Synthesize your findings into a comprehensive text summary.",
		"The summary will serve as the agenda for a team planning meeting.",
	},
}, llmtool.PresetPlainText(), llmtool.PresetNoInvent())

var positionPromptSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Purpose: "Your team is holding a planning meeting. Based on the agenda and your expertise, name the top 2-3 most critical areas, questions, or data points your research should focus on today.",
	Rules: []string{
		"Your input will be used to form the final research plan. Be concise and specific.",
		"Answer as a short bulleted list.",
	},
}, llmtool.PresetPlainText())

var finalizePromptSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Role:    "You are an expert Lead Researcher for a crypto analysis firm.",
	Purpose: "You have just concluded a planning meeting. Synthesize the market summary and your specialists' input into a final, actionable research plan with one specific, high-level objective per specialist.",
	Rules: []string{
		"Give exactly one objective to every specialist listed under TEAM, using the name exactly as written.",
		"Each objective should reflect the collective intelligence of the team.",
	},
	OutputFields: llmtool.FieldsFromSchema(PlanSchema()),
}, llmtool.PresetStrictJSON())

// Planner is the Lead Researcher during planning and the meeting.
type Planner struct {
	LLM llm.Caller
}

// Agenda runs a grounded market scan for date. prior, when non-empty, is
// the previous report's executive summary.
func (p *Planner) Agenda(ctx context.Context, date, prior string) (string, error) {
	if p == nil || p.LLM == nil {
		return "", fmt.Errorf("planner: llm is nil")
	}
	spec := agendaPromptSpec
	spec.Background = "Today is " + date + "."
	if strings.TrimSpace(prior) != "" {
		spec = spec.WithContext(llmtool.Block{
			Title: "Yesterday's summary",
			Body:  "Build upon yesterday's executive summary, noting significant changes and continuing trends.\n" + prior,
		})
	}
	prompt, err := llmtool.Render(spec)
	if err != nil {
		return "", err
	}
	res, err := p.LLM.Grounded(llm.WithAgent(ctx, types.AgentLead), llm.TierStrong, prompt)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Position asks one specialist for its focus areas given the agenda.
func (p *Planner) Position(ctx context.Context, prof specialist.Profile, agenda string) (string, error) {
	if p == nil || p.LLM == nil {
		return "", fmt.Errorf("planner: llm is nil")
	}
	spec := positionPromptSpec
	spec.Role = fmt.Sprintf("You are the %s, an expert AI specializing in crypto analysis. %s", prof.Name, prof.Description)
	spec = spec.WithContext(llmtool.Block{Title: "Meeting agenda", Body: agenda})
	prompt, err := llmtool.Render(spec)
	if err != nil {
		return "", err
	}
	res, err := p.LLM.Text(llm.WithAgent(ctx, prof.Name), llm.TierFast, llm.TextRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Finalize turns the agenda and the meeting input into per-specialist
// objectives. team lists the display names that need an objective.
func (p *Planner) Finalize(ctx context.Context, date, agenda, inputs string, team []string) ([]Objective, error) {
	if p == nil || p.LLM == nil {
		return nil, fmt.Errorf("planner: llm is nil")
	}
	spec := finalizePromptSpec
	spec.Background = "It is " + date + "."
	spec = spec.WithContext(
		llmtool.Block{Title: "Initial market summary", Body: agenda},
		llmtool.Block{Title: "Specialist team input", Body: inputs},
		llmtool.Block{Title: "Team", Body: "- " + strings.Join(team, "\n- ")},
	)
	prompt, err := llmtool.Render(spec)
	if err != nil {
		return nil, err
	}
	var out planOut
	if err := p.LLM.Structured(llm.WithAgent(ctx, types.AgentLead), llm.TierStrong, prompt, PlanSchema(), &out); err != nil {
		return nil, err
	}
	for i := range out.Objectives {
		out.Objectives[i].Specialist = strings.TrimSpace(out.Objectives[i].Specialist)
	}
	return out.Objectives, nil
}
