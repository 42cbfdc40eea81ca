package types

import (
	"encoding/json"
	"testing"

	"github.com/reny1cao/crypto-insights/internal/tester"
)

func TestMergeSourcesKeepsFirstURI(t *testing.T) {
	got := MergeSources(
		[]Source{{URI: "https://a", Title: "A"}, {URI: "", Title: "blank"}},
		[]Source{{URI: "https://b", Title: "B"}, {URI: "https://a", Title: "A again"}},
	)
	tester.Eq(t, got, []Source{{URI: "https://a", Title: "A"}, {URI: "https://b", Title: "B"}})
	tester.Len(t, MergeSources(), 0)
}

func TestStageTerminal(t *testing.T) {
	tester.True(t, StageComplete.Terminal())
	tester.True(t, StageError.Terminal())
	tester.False(t, StageEditing.Terminal())
	tester.False(t, StageIdle.Terminal())
}

func TestTaskIterations(t *testing.T) {
	var nilTask *SpecialistTask
	tester.True(t, nilTask.Current() == nil)

	task := SpecialistTask{ID: "risk", Iterations: []SpecialistIteration{
		{Iteration: 1, Analysis: json.RawMessage(`{"v":1}`)},
		{Iteration: 2},
	}}
	tester.Eq(t, task.Current().Iteration, 2)
	latest, ok := task.LatestAnalysis()
	tester.True(t, ok)
	tester.Eq(t, latest.Iteration, 1)
}

func TestProcessStateCloneIsDeep(t *testing.T) {
	st := &ProcessState{
		Stage: StageReviewing,
		Log:   []LogEntry{{Agent: AgentSystem, Message: "m", Detail: &LogDetail{Title: "t", Content: "c"}}},
		SpecialistTasks: []SpecialistTask{{
			ID: "risk", Name: "Risk Analyst", Status: TaskSubmitted,
			Iterations: []SpecialistIteration{{Iteration: 1, Sources: []Source{{URI: "u"}}, Analysis: json.RawMessage(`{}`)}},
		}},
		ReviewDecisions: []ReviewDecision{{SpecialistName: "Risk Analyst"}},
		FinalReport:     &CryptoReportData{ExecutiveSummary: "s", Risks: &RiskAnalysis{RedFlags: []string{"x"}}},
		Verification:    &VerificationResult{Verified: true},
	}
	cp := st.Clone()
	tester.Eq(t, cp, st)

	cp.Log[0].Detail.Content = "changed"
	cp.SpecialistTasks[0].Iterations[0].Sources[0].URI = "changed"
	cp.SpecialistTasks[0].Iterations[0].Analysis[0] = '['
	cp.ReviewDecisions[0].Approved = true
	cp.FinalReport.Risks.RedFlags[0] = "changed"
	cp.Verification.Verified = false

	tester.Eq(t, st.Log[0].Detail.Content, "c")
	tester.Eq(t, st.SpecialistTasks[0].Iterations[0].Sources[0].URI, "u")
	tester.Eq(t, string(st.SpecialistTasks[0].Iterations[0].Analysis), "{}")
	tester.False(t, st.ReviewDecisions[0].Approved)
	tester.Eq(t, st.FinalReport.Risks.RedFlags[0], "x")
	tester.True(t, st.Verification.Verified)

	task, ok := st.Task("risk")
	tester.True(t, ok)
	task.Status = TaskApproved
	tester.Len(t, st.TasksWithStatus(TaskApproved), 1)
	tester.True(t, (*ProcessState)(nil).Clone() == nil)
}

func TestConfidenceValid(t *testing.T) {
	tester.True(t, ConfidenceMedium.Valid())
	tester.False(t, Confidence("High").Valid())
}
