package llmtool

import (
	"fmt"
	"strings"

	"github.com/reny1cao/crypto-insights/internal/types"
)

// FormatSources numbers sources for citation as "[i] title: uri".
func FormatSources(sources []types.Source) string {
	var b strings.Builder
	for i, s := range sources {
		fmt.Fprintf(&b, "[%d] %s: %s\n", i+1, s.Title, s.URI)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Labeled renders "--- label ---\nbody" blocks joined by blank lines.
func Labeled(labels, bodies []string) string {
	parts := make([]string, 0, len(labels))
	for i := range labels {
		if i >= len(bodies) {
			break
		}
		parts = append(parts, fmt.Sprintf("--- %s ---\n%s", labels[i], bodies[i]))
	}
	return strings.Join(parts, "\n\n")
}
