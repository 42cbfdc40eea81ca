package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/reny1cao/crypto-insights/internal/types"
)

// logPrinter prints agent log entries it has not printed yet.
type logPrinter struct {
	w    io.Writer
	seen int
}

func newLogPrinter(w io.Writer) *logPrinter {
	return &logPrinter{w: w}
}

func (p *logPrinter) Print(st *types.ProcessState) {
	if p == nil || st == nil {
		return
	}
	if len(st.Log) < p.seen {
		p.seen = 0
	}
	for _, e := range st.Log[p.seen:] {
		fmt.Fprintf(p.w, "%s  [%s] %s: %s\n", e.Timestamp.Format("15:04:05"), st.Stage, e.Agent, e.Message)
		if e.Detail != nil && strings.TrimSpace(e.Detail.Content) != "" {
			fmt.Fprintf(p.w, "    %s\n", e.Detail.Title)
			for _, line := range strings.Split(strings.TrimSpace(e.Detail.Content), "\n") {
				fmt.Fprintf(p.w, "      %s\n", line)
			}
		}
	}
	p.seen = len(st.Log)
}

func printReport(w io.Writer, r *types.CryptoReportData) {
	if r == nil {
		fmt.Fprintln(w, "no report")
		return
	}
	fmt.Fprintf(w, "\nExecutive summary (confidence: %s)\n\n%s\n", r.ConfidenceLevel, r.ExecutiveSummary)
	section := func(title string, insights []string) {
		fmt.Fprintf(w, "\n%s\n", title)
		for _, s := range insights {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	if r.Sentiment != nil {
		section("Sentiment", r.Sentiment.KeyInsights)
	}
	if r.Technical != nil {
		section("Technical", r.Technical.KeyInsights)
	}
	if r.Fundamentals != nil {
		section("Fundamentals", r.Fundamentals.KeyInsights)
	}
	if r.Regulatory != nil {
		section("Regulatory", r.Regulatory.KeyInsights)
	}
	if r.Innovation != nil {
		section("Innovation", r.Innovation.KeyInsights)
	}
	if r.Risks != nil {
		section("Risks", r.Risks.KeyInsights)
		for _, f := range r.Risks.RedFlags {
			fmt.Fprintf(w, "  ! %s\n", f)
		}
	}
	if r.Opportunities != nil {
		section("Opportunities", r.Opportunities.KeyInsights)
	}
}
