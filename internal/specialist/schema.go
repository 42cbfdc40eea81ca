package specialist

import (
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/reny1cao/crypto-insights/internal/types"
)

func str(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func strList(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}, Description: desc}
}

// SourcesSchema describes a list of cited {uri, title} documents.
func SourcesSchema(desc string) *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"uri":   {Type: genai.TypeString},
				"title": {Type: genai.TypeString},
			},
			Required: []string{"uri", "title"},
		},
		Description: desc,
	}
}

// analysisSchema adds the shared insight/report/source fields to props.
func analysisSchema(order []string, props map[string]*genai.Schema) *genai.Schema {
	insights := strList("A list of 2-4 key, actionable insights from this analysis.")
	insights.MinItems, insights.MaxItems = genai.Ptr[int64](2), genai.Ptr[int64](4)
	props["key_insights"] = insights
	props["detailed_report"] = str("A detailed, well-structured report of the analysis in Markdown format. " +
		"Explain the findings, their context, and implications. Cite sources in the text using bracket notation, e.g. [1], [2].")
	props["sources"] = SourcesSchema("An array of all sources cited in the detailed_report.")
	order = append(order, "key_insights", "detailed_report", "sources")
	return &genai.Schema{
		Type:             genai.TypeObject,
		Properties:       props,
		Required:         order,
		PropertyOrdering: order,
	}
}

type variant struct {
	reportField string
	schema      func() *genai.Schema
	assign      func(r *types.CryptoReportData, raw json.RawMessage) error
}

func decodeInto[T any](raw json.RawMessage, set func(*T)) error {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	set(&v)
	return nil
}

var variants = map[Kind]variant{
	Sentiment: {
		reportField: "sentiment",
		schema: func() *genai.Schema {
			return analysisSchema(
				[]string{"overall_sentiment", "fear_greed_index", "social_trends", "retail_vs_institutional"},
				map[string]*genai.Schema{
					"overall_sentiment":       {Type: genai.TypeString, Enum: []string{"bullish", "bearish", "neutral"}},
					"fear_greed_index":        str("e.g., '72 (Greed)' or '25 (Extreme Fear)'"),
					"social_trends":           str("Summary of trends on platforms like X, Reddit, etc."),
					"retail_vs_institutional": str("Comparison of sentiment and activity between retail and institutional investors."),
				})
		},
		assign: func(r *types.CryptoReportData, raw json.RawMessage) error {
			return decodeInto(raw, func(v *types.SentimentAnalysis) { r.Sentiment = v })
		},
	},
	Technical: {
		reportField: "technical",
		schema: func() *genai.Schema {
			levels := []string{"BTC_support", "BTC_resistance", "ETH_support", "ETH_resistance"}
			return analysisSchema(
				[]string{"price_trends", "support_resistance", "volume_analysis", "key_levels", "short_term_outlook"},
				map[string]*genai.Schema{
					"price_trends":       str("Analysis of major price trends (e.g., uptrend, downtrend, consolidation)."),
					"support_resistance": str("Key support and resistance zones for the overall market."),
					"volume_analysis":    str("Analysis of trading volume and its implications."),
					"key_levels": {
						Type:        genai.TypeObject,
						Description: "Specific price levels for major assets like BTC and ETH.",
						Properties: map[string]*genai.Schema{
							"BTC_support":    str("Key support level for Bitcoin (BTC)."),
							"BTC_resistance": str("Key resistance level for Bitcoin (BTC)."),
							"ETH_support":    str("Key support level for Ethereum (ETH)."),
							"ETH_resistance": str("Key resistance level for Ethereum (ETH)."),
						},
						Required: levels,
					},
					"short_term_outlook": str("The likely price action in the coming days/week."),
				})
		},
		assign: func(r *types.CryptoReportData, raw json.RawMessage) error {
			return decodeInto(raw, func(v *types.TechnicalAnalysis) { r.Technical = v })
		},
	},
	Fundamental: {
		reportField: "fundamentals",
		schema: func() *genai.Schema {
			return analysisSchema(
				[]string{"on_chain_metrics", "network_activity", "tvl_trends", "staking_metrics"},
				map[string]*genai.Schema{
					"on_chain_metrics": str("Summary of key on-chain metrics (e.g., active addresses, transaction volume)."),
					"network_activity": str("Analysis of the health and activity of major blockchain networks."),
					"tvl_trends":       str("Trends in Total Value Locked (TVL) in DeFi."),
					"staking_metrics":  str("Analysis of staking trends and yields."),
				})
		},
		assign: func(r *types.CryptoReportData, raw json.RawMessage) error {
			return decodeInto(raw, func(v *types.FundamentalAnalysis) { r.Fundamentals = v })
		},
	},
	Regulatory: {
		reportField: "regulatory",
		schema: func() *genai.Schema {
			return analysisSchema(
				[]string{"recent_regulations", "institutional_activity", "etf_flows", "compliance_trends"},
				map[string]*genai.Schema{
					"recent_regulations":     str("Summary of significant new regulations or government statements."),
					"institutional_activity": str("News related to institutional adoption (e.g., by banks, hedge funds)."),
					"etf_flows":              str("Analysis of inflows and outflows for spot crypto ETFs."),
					"compliance_trends":      str("Emerging trends in crypto compliance and enforcement."),
				})
		},
		assign: func(r *types.CryptoReportData, raw json.RawMessage) error {
			return decodeInto(raw, func(v *types.RegulatoryAnalysis) { r.Regulatory = v })
		},
	},
	Innovation: {
		reportField: "innovation",
		schema: func() *genai.Schema {
			return analysisSchema(
				[]string{"defi_trends", "layer2_adoption", "emerging_protocols", "innovation_highlights"},
				map[string]*genai.Schema{
					"defi_trends":           str("Latest trends in the Decentralized Finance (DeFi) sector."),
					"layer2_adoption":       str("Analysis of the growth and adoption of Layer 2 scaling solutions."),
					"emerging_protocols":    str("Highlights of new and promising protocols or projects."),
					"innovation_highlights": str("Summary of key technological breakthroughs or new concepts."),
				})
		},
		assign: func(r *types.CryptoReportData, raw json.RawMessage) error {
			return decodeInto(raw, func(v *types.InnovationAnalysis) { r.Innovation = v })
		},
	},
	Risk: {
		reportField: "risks",
		schema: func() *genai.Schema {
			return analysisSchema(
				[]string{"market_risks", "technical_risks", "regulatory_risks", "liquidity_concerns", "red_flags"},
				map[string]*genai.Schema{
					"market_risks":       str("Potential macroeconomic or market-specific risks."),
					"technical_risks":    str("Identified technical vulnerabilities or threats (e.g., smart contract exploits)."),
					"regulatory_risks":   str("Potential upcoming regulatory hurdles or crackdowns."),
					"liquidity_concerns": str("Analysis of market liquidity and potential risks."),
					"red_flags":          strList("Specific warnings or concerning signs."),
				})
		},
		assign: func(r *types.CryptoReportData, raw json.RawMessage) error {
			return decodeInto(raw, func(v *types.RiskAnalysis) { r.Risks = v })
		},
	},
	Opportunity: {
		reportField: "opportunities",
		schema: func() *genai.Schema {
			return analysisSchema(
				[]string{"top_opportunities", "risk_reward_assessment", "portfolio_recommendations", "timing_considerations"},
				map[string]*genai.Schema{
					"top_opportunities":         strList("List of the most promising investment opportunities identified."),
					"risk_reward_assessment":    str("An analysis of the risk vs. reward for the identified opportunities."),
					"portfolio_recommendations": str("Suggestions on how these opportunities might fit into a diversified portfolio."),
					"timing_considerations":     str("Analysis of the best time to act on these opportunities."),
				})
		},
		assign: func(r *types.CryptoReportData, raw json.RawMessage) error {
			return decodeInto(raw, func(v *types.OpportunityAnalysis) { r.Opportunities = v })
		},
	},
}

// Schema returns the structured-output contract for k's analysis.
func (k Kind) Schema() *genai.Schema {
	v, ok := variants[k]
	if !ok {
		return nil
	}
	return v.schema()
}

// ReportField is the CryptoReportData key holding k's analysis.
func (k Kind) ReportField() string {
	return variants[k].reportField
}

// Assign decodes raw as k's analysis and stores it on the report.
func Assign(r *types.CryptoReportData, k Kind, raw json.RawMessage) error {
	v, ok := variants[k]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	if err := v.assign(r, raw); err != nil {
		return fmt.Errorf("decode %s analysis: %w", k, err)
	}
	return nil
}
