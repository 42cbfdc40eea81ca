package llmtool

// PromptPreset holds reusable constraints and rules for structured prompts.
type PromptPreset struct {
	Constraints []string
	Rules       []string
}

// ApplyPresets prepends preset constraints/rules to a structured prompt spec.
func ApplyPresets(spec StructuredPromptSpec, presets ...PromptPreset) StructuredPromptSpec {
	if len(presets) == 0 {
		return spec
	}
	var merged PromptPreset
	for _, p := range presets {
		merged.Constraints = append(merged.Constraints, p.Constraints...)
		merged.Rules = append(merged.Rules, p.Rules...)
	}
	spec.Constraints = append(merged.Constraints, spec.Constraints...)
	spec.Rules = append(merged.Rules, spec.Rules...)
	return spec
}

// PresetStrictJSON enforces strict JSON-only output.
func PresetStrictJSON() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Return a single JSON value that strictly adheres to the provided schema.",
			"No greetings, explanations or text outside the JSON.",
		},
	}
}

// PresetPlainText is for free-text steps whose output another step structures.
func PresetPlainText() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Do NOT output JSON. Output only plain text.",
		},
	}
}

// PresetCitations requires bracketed source citations in the narrative.
func PresetCitations() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"In 'detailed_report', cite sources with the bracketed number of the source, e.g. [1], [2], wherever you use information from it.",
			"The 'sources' array must list every source you cited.",
		},
	}
}

// PresetNoInvent prevents fabricated figures and sources.
func PresetNoInvent() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Do not invent figures, events or sources; use only the material provided or found with your search tool.",
		},
	}
}
