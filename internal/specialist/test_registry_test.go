package specialist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reny1cao/crypto-insights/internal/llm"
	"github.com/reny1cao/crypto-insights/internal/tester"
	"github.com/reny1cao/crypto-insights/internal/types"
)

func TestDefaultRegistryOrder(t *testing.T) {
	r := DefaultRegistry()
	tester.Eq(t, r.Len(), 7)
	profiles := r.Profiles()
	for i, k := range Kinds {
		tester.Eq(t, profiles[i].Kind, k)
	}
	p, ok := r.ByName("Investment Strategist")
	tester.True(t, ok)
	tester.Eq(t, p.Kind, Opportunity)

	profiles[0].Name = "mutated"
	tester.Eq(t, r.Profiles()[0].Name, "Sentiment Analyst")
}

func TestNewRegistryDefaultsAndDuplicates(t *testing.T) {
	r, err := NewRegistry(Profile{Kind: "Technical"}, Profile{Kind: Risk, Name: " Risk Desk "})
	tester.NoErr(t, err)
	tech, ok := r.ByKind(Technical)
	tester.True(t, ok)
	tester.Eq(t, tech.Name, "Technical Analyst")
	_, ok = r.ByName("Risk Desk")
	tester.True(t, ok)
	_, ok = r.ByKind(Sentiment)
	tester.False(t, ok)

	_, err = NewRegistry(Profile{Kind: Risk}, Profile{Kind: Risk, Name: "Other"})
	tester.True(t, err != nil, "duplicate kind")
	_, err = NewRegistry(Profile{Kind: Risk, Name: "Desk"}, Profile{Kind: Technical, Name: "Desk"})
	tester.True(t, err != nil, "duplicate name")
	_, err = NewRegistry(Profile{Kind: "macro"})
	tester.ErrIs(t, err, ErrUnknownKind)
	_, err = NewRegistry()
	tester.True(t, err != nil, "empty registry")
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "specialists.yaml")
	body := "specialists:\n  - kind: technical\n  - kind: risk\n    name: Risk Desk\n"
	tester.NoErr(t, os.WriteFile(path, []byte(body), 0o644))

	r, err := LoadRegistry(path)
	tester.NoErr(t, err)
	tester.Eq(t, r.Len(), 2)
	tester.Eq(t, r.Profiles()[1].Name, "Risk Desk")

	_, err = LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
	tester.True(t, err != nil, "missing file")
}

func TestEveryKindHasSchemaAndField(t *testing.T) {
	seen := map[string]bool{}
	for _, k := range Kinds {
		s := k.Schema()
		tester.True(t, s != nil, string(k))
		tester.Contains(t, strings.Join(s.Required, ","), "detailed_report")
		f := k.ReportField()
		tester.True(t, f != "" && !seen[f], string(k))
		seen[f] = true
	}
	tester.True(t, Kind("macro").Schema() == nil, "unknown kind has no schema")
}

func TestKeyInsightsCountIsBounded(t *testing.T) {
	body := func(insights string) []byte {
		return []byte(`{"overall_sentiment":"neutral","fear_greed_index":"50 (Neutral)","social_trends":"s",` +
			`"retail_vs_institutional":"r","key_insights":` + insights + `,"detailed_report":"d","sources":[]}`)
	}
	tester.NoErr(t, llm.Validate(Sentiment.Schema(), body(`["a","b"]`)))
	tester.NoErr(t, llm.Validate(Sentiment.Schema(), body(`["a","b","c","d"]`)))
	for _, bad := range []string{`[]`, `["a"]`, `["a","b","c","d","e","f"]`} {
		err := llm.Validate(Sentiment.Schema(), body(bad))
		schemaErr := tester.ErrAs[*llm.SchemaError](t, err, bad)
		tester.Eq(t, schemaErr.Path, "$.key_insights")
	}
}

func TestAssignDecodesIntoReport(t *testing.T) {
	var r types.CryptoReportData
	raw := json.RawMessage(`{"red_flags":["leverage"],"market_risks":"m","key_insights":["a"],"detailed_report":"d","sources":[]}`)
	tester.NoErr(t, Assign(&r, Risk, raw))
	tester.True(t, r.Risks != nil)
	tester.Eq(t, r.Risks.RedFlags, []string{"leverage"})

	tester.ErrIs(t, Assign(&r, Kind("macro"), raw), ErrUnknownKind)
	tester.True(t, Assign(&r, Technical, json.RawMessage(`{"key_levels":"x"}`)) != nil, "malformed analysis")
}

