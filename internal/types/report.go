package types

import "encoding/json"

// Source is a cited web document.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// MergeSources concatenates lists and drops repeated URIs, keeping the first
// occurrence. Entries without a URI are dropped.
func MergeSources(lists ...[]Source) []Source {
	seen := make(map[string]struct{})
	out := make([]Source, 0)
	for _, list := range lists {
		for _, s := range list {
			if s.URI == "" {
				continue
			}
			if _, ok := seen[s.URI]; ok {
				continue
			}
			seen[s.URI] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// Confidence is the overall confidence rating of a report.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Valid reports whether c is one of the known ratings.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// AnalysisCommon holds the fields every specialist analysis carries.
type AnalysisCommon struct {
	KeyInsights    []string `json:"key_insights"`
	DetailedReport string   `json:"detailed_report"`
	Sources        []Source `json:"sources"`
}

type SentimentAnalysis struct {
	OverallSentiment      string `json:"overall_sentiment"`
	FearGreedIndex        string `json:"fear_greed_index"`
	SocialTrends          string `json:"social_trends"`
	RetailVsInstitutional string `json:"retail_vs_institutional"`
	AnalysisCommon
}

type KeyLevels struct {
	BTCSupport    string `json:"BTC_support"`
	BTCResistance string `json:"BTC_resistance"`
	ETHSupport    string `json:"ETH_support"`
	ETHResistance string `json:"ETH_resistance"`
}

type TechnicalAnalysis struct {
	PriceTrends       string    `json:"price_trends"`
	SupportResistance string    `json:"support_resistance"`
	VolumeAnalysis    string    `json:"volume_analysis"`
	KeyLevels         KeyLevels `json:"key_levels"`
	ShortTermOutlook  string    `json:"short_term_outlook"`
	AnalysisCommon
}

type FundamentalAnalysis struct {
	OnChainMetrics  string `json:"on_chain_metrics"`
	NetworkActivity string `json:"network_activity"`
	TVLTrends       string `json:"tvl_trends"`
	StakingMetrics  string `json:"staking_metrics"`
	AnalysisCommon
}

type RegulatoryAnalysis struct {
	RecentRegulations     string `json:"recent_regulations"`
	InstitutionalActivity string `json:"institutional_activity"`
	ETFFlows              string `json:"etf_flows"`
	ComplianceTrends      string `json:"compliance_trends"`
	AnalysisCommon
}

type InnovationAnalysis struct {
	DeFiTrends           string `json:"defi_trends"`
	Layer2Adoption       string `json:"layer2_adoption"`
	EmergingProtocols    string `json:"emerging_protocols"`
	InnovationHighlights string `json:"innovation_highlights"`
	AnalysisCommon
}

type RiskAnalysis struct {
	MarketRisks       string   `json:"market_risks"`
	TechnicalRisks    string   `json:"technical_risks"`
	RegulatoryRisks   string   `json:"regulatory_risks"`
	LiquidityConcerns string   `json:"liquidity_concerns"`
	RedFlags          []string `json:"red_flags"`
	AnalysisCommon
}

type OpportunityAnalysis struct {
	TopOpportunities         []string `json:"top_opportunities"`
	RiskRewardAssessment     string   `json:"risk_reward_assessment"`
	PortfolioRecommendations string   `json:"portfolio_recommendations"`
	TimingConsiderations     string   `json:"timing_considerations"`
	AnalysisCommon
}

// CryptoReportData is the published daily report. Category sections are
// absent when the registry does not include the matching specialist.
type CryptoReportData struct {
	ExecutiveSummary string               `json:"executive_summary"`
	ConfidenceLevel  Confidence           `json:"confidence_level"`
	Sentiment        *SentimentAnalysis   `json:"sentiment,omitempty"`
	Technical        *TechnicalAnalysis   `json:"technical,omitempty"`
	Fundamentals     *FundamentalAnalysis `json:"fundamentals,omitempty"`
	Regulatory       *RegulatoryAnalysis  `json:"regulatory,omitempty"`
	Innovation       *InnovationAnalysis  `json:"innovation,omitempty"`
	Risks            *RiskAnalysis        `json:"risks,omitempty"`
	Opportunities    *OpportunityAnalysis `json:"opportunities,omitempty"`
}

// Clone returns a deep copy.
func (r *CryptoReportData) Clone() *CryptoReportData {
	if r == nil {
		return nil
	}
	raw, err := json.Marshal(r)
	if err != nil {
		cp := *r
		return &cp
	}
	var out CryptoReportData
	if err := json.Unmarshal(raw, &out); err != nil {
		cp := *r
		return &cp
	}
	return &out
}
