package orchestrator

import (
	"encoding/json"

	"github.com/reny1cao/crypto-insights/internal/specialist"
	"github.com/reny1cao/crypto-insights/internal/types"
	"github.com/reny1cao/crypto-insights/internal/workers/synthesis"
)

// AssembleReport builds the final report from the synthesized summary and
// the approved analyses. Kinds without an analysis are left out.
func AssembleReport(sum synthesis.Summary, analyses map[specialist.Kind]json.RawMessage) (*types.CryptoReportData, error) {
	report := &types.CryptoReportData{
		ExecutiveSummary: sum.ExecutiveSummary,
		ConfidenceLevel:  sum.ConfidenceLevel,
	}
	for _, k := range specialist.Kinds {
		raw, ok := analyses[k]
		if !ok || len(raw) == 0 {
			continue
		}
		if err := specialist.Assign(report, k, raw); err != nil {
			return nil, err
		}
	}
	return report, nil
}
