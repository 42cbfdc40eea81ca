package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/reny1cao/crypto-insights/internal/llm"
	"github.com/reny1cao/crypto-insights/internal/llmtool"
	"github.com/reny1cao/crypto-insights/internal/specialist"
	"github.com/reny1cao/crypto-insights/internal/types"
)

const (
	revisionPrefix = "Revision research summary:\n"
	noSources      = "No web sources were returned."
)

// Peer is another specialist's most recent analysis, shown during revision.
type Peer struct {
	Name     string
	Analysis json.RawMessage
}

// Assignment is the input for one research pass. Previous is nil on the
// first pass and set to the prior analysed iteration during revision.
type Assignment struct {
	Date      string
	Profile   specialist.Profile
	Objective string
	Feedback  string
	Previous  *types.SpecialistIteration
	Peers     []Peer
}

// Revision reports whether a is a revision pass.
func (a Assignment) Revision() bool { return a.Previous != nil }

// Findings is the outcome of the grounded search step. Summary and Sources
// are what gets stored on the iteration; Text is the raw search output fed
// to the analysis step.
type Findings struct {
	Text    string
	Summary string
	Sources []types.Source
}

var searchPromptSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Purpose: "Use your web search tool to find the most relevant and up-to-date information for your research objective.",
	Rules: []string{
		"Provide a concise summary of your findings.",
		"Prefer primary sources and data published in the last 48 hours.",
	},
}, llmtool.PresetPlainText(), llmtool.PresetNoInvent())

var revisionSearchPromptSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Purpose: "Your previous analysis received feedback. Perform new, targeted web searches to find information that directly addresses the feedback.",
	Rules: []string{
		"Focus only on gathering new information related to the feedback.",
		"Use your peers' analyses to spot gaps or contradictions worth checking.",
		"Provide a concise summary of your new findings.",
	},
}, llmtool.PresetPlainText(), llmtool.PresetNoInvent())

var analysisPromptSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Purpose: "Analyze the research findings and generate a structured report for your area.",
	Rules: []string{
		"The 'sources' field must list the URLs and titles of the provided sources; cite them in detailed_report as [n].",
		"key_insights should be short, specific, and quantified where possible.",
	},
}, llmtool.PresetStrictJSON(), llmtool.PresetCitations(), llmtool.PresetNoInvent())

var revisionPromptSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Purpose: "Revise your previous analysis. Address every point of feedback using the new research, and take your peers' latest findings into account where they bear on your area.",
	Rules: []string{
		"Return the complete revised report, not a diff.",
		"Keep findings from the previous analysis that the feedback did not challenge.",
		"The 'sources' field must list the URLs and titles of all provided sources.",
	},
}, llmtool.PresetStrictJSON(), llmtool.PresetCitations(), llmtool.PresetNoInvent())

// Researcher runs the two-step grounded search plus structured analysis for
// one specialist.
type Researcher struct {
	LLM llm.Caller
}

func role(p specialist.Profile) string {
	return fmt.Sprintf("You are the %s, an expert AI specializing in crypto analysis. %s", p.Name, p.Description)
}

// Search runs the grounded search step. On revision the stored summary is
// prefixed and the sources are merged with the previous iteration's.
func (r *Researcher) Search(ctx context.Context, a Assignment) (Findings, error) {
	if r == nil || r.LLM == nil {
		return Findings{}, errors.New("researcher: llm is nil")
	}
	var spec llmtool.StructuredPromptSpec
	if a.Revision() {
		spec = revisionSearchPromptSpec
		spec = spec.WithContext(
			llmtool.Block{Title: "Original objective", Body: a.Objective},
			llmtool.Block{Title: "Previous analysis", Body: string(a.Previous.Analysis)},
			llmtool.Block{Title: "Feedback", Body: a.Feedback},
			llmtool.Block{Title: "Peer analyses", Body: formatPeers(a.Peers), Fallback: "No peer analyses are available."},
		)
	} else {
		spec = searchPromptSpec
		spec = spec.WithContext(llmtool.Block{Title: "Research objective", Body: a.Objective})
	}
	spec.Role = role(a.Profile)
	spec.Background = "Today is " + a.Date + "."
	prompt, err := llmtool.Render(spec)
	if err != nil {
		return Findings{}, err
	}
	res, err := r.LLM.Grounded(llm.WithAgent(ctx, a.Profile.Name), llm.TierFast, prompt)
	if err != nil {
		return Findings{}, err
	}
	f := Findings{Text: res.Text, Summary: res.Text, Sources: types.MergeSources(res.Sources)}
	if a.Revision() {
		f.Summary = revisionPrefix + res.Text
		f.Sources = types.MergeSources(a.Previous.Sources, res.Sources)
	}
	return f, nil
}

// Analyze turns findings into the kind's structured analysis. The result
// has already been validated against the kind's schema.
func (r *Researcher) Analyze(ctx context.Context, a Assignment, f Findings) (json.RawMessage, error) {
	if r == nil || r.LLM == nil {
		return nil, errors.New("researcher: llm is nil")
	}
	schema := a.Profile.Kind.Schema()
	if schema == nil {
		return nil, fmt.Errorf("%w: %q", specialist.ErrUnknownKind, a.Profile.Kind)
	}
	var spec llmtool.StructuredPromptSpec
	if a.Revision() {
		spec = revisionPromptSpec
		spec = spec.WithContext(
			llmtool.Block{Title: "Original objective", Body: a.Objective},
			llmtool.Block{Title: "Previous analysis", Body: string(a.Previous.Analysis)},
			llmtool.Block{Title: "Feedback", Body: a.Feedback},
			llmtool.Block{Title: "Peer analyses", Body: formatPeers(a.Peers), Fallback: "No peer analyses are available."},
			llmtool.Block{Title: "New research", Body: f.Text},
			llmtool.Block{Title: "All sources", Body: llmtool.FormatSources(f.Sources), Fallback: noSources},
		)
	} else {
		spec = analysisPromptSpec
		spec = spec.WithContext(
			llmtool.Block{Title: "Research objective", Body: a.Objective},
			llmtool.Block{Title: "Research findings", Body: f.Text},
			llmtool.Block{Title: "Sources", Body: llmtool.FormatSources(f.Sources), Fallback: noSources},
		)
	}
	spec.Role = role(a.Profile)
	spec.OutputFields = llmtool.FieldsFromSchema(schema)
	prompt, err := llmtool.Render(spec)
	if err != nil {
		return nil, err
	}
	var out json.RawMessage
	if err := r.LLM.Structured(llm.WithAgent(ctx, a.Profile.Name), llm.TierFast, prompt, schema, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func formatPeers(peers []Peer) string {
	labels := make([]string, 0, len(peers))
	bodies := make([]string, 0, len(peers))
	for _, p := range peers {
		labels = append(labels, p.Name)
		bodies = append(bodies, strings.TrimSpace(string(p.Analysis)))
	}
	return llmtool.Labeled(labels, bodies)
}
