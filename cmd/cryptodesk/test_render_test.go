package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/reny1cao/crypto-insights/internal/types"
)

func TestLogPrinterPrintsOnlyNewEntries(t *testing.T) {
	var buf bytes.Buffer
	p := newLogPrinter(&buf)
	ts := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	st := &types.ProcessState{Stage: types.StagePlanning, Log: []types.LogEntry{
		{Timestamp: ts, Agent: "Lead Researcher", Message: "Drafting agenda."},
	}}
	p.Print(st)
	st.Stage = types.StageMeeting
	st.Log = append(st.Log, types.LogEntry{Timestamp: ts, Agent: "System", Message: "Meeting started.",
		Detail: &types.LogDetail{Title: "Specialist Inputs", Content: "a\nb"}})
	p.Print(st)

	out := buf.String()
	if strings.Count(out, "Drafting agenda.") != 1 {
		t.Fatalf("entry printed twice:\n%s", out)
	}
	if !strings.Contains(out, "09:30:00  [meeting] System: Meeting started.") {
		t.Fatalf("missing meeting line:\n%s", out)
	}
	if !strings.Contains(out, "      b\n") {
		t.Fatalf("missing detail content:\n%s", out)
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, nil)
	if !strings.Contains(buf.String(), "no report") {
		t.Fatalf("got %q", buf.String())
	}
	buf.Reset()
	printReport(&buf, &types.CryptoReportData{
		ExecutiveSummary: "Risk-off day.",
		ConfidenceLevel:  types.ConfidenceLow,
		Risks:            &types.RiskAnalysis{RedFlags: []string{"exchange outflows"}},
	})
	out := buf.String()
	for _, want := range []string{"confidence: low", "Risk-off day.", "Risks", "! exchange outflows"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Technical") {
		t.Fatalf("absent section printed:\n%s", out)
	}
}
