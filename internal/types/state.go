package types

import (
	"encoding/json"
	"time"
)

// Stage is a step of the report pipeline.
type Stage string

const (
	StageIdle         Stage = "idle"
	StagePlanning     Stage = "planning"
	StageMeeting      Stage = "meeting"
	StageResearching  Stage = "researching"
	StageReviewing    Stage = "reviewing"
	StageRevising     Stage = "revising"
	StageSynthesizing Stage = "synthesizing"
	StageVerifying    Stage = "verifying"
	StageEditing      Stage = "editing"
	StageComplete     Stage = "complete"
	StageError        Stage = "error"
)

// Terminal reports whether no further transitions can happen.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageError
}

// TaskStatus is the lifecycle state of one specialist within a run.
type TaskStatus string

const (
	TaskPending     TaskStatus = "pending"
	TaskDiscussing  TaskStatus = "discussing"
	TaskResearching TaskStatus = "researching"
	TaskAnalyzing   TaskStatus = "analyzing"
	TaskSubmitted   TaskStatus = "submitted"
	TaskRevising    TaskStatus = "revising"
	TaskApproved    TaskStatus = "approved"
	TaskError       TaskStatus = "error"
)

// LogDetail is an optional titled payload shown alongside a log line.
type LogDetail struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// LogEntry is one line of the agent activity log.
type LogEntry struct {
	Timestamp time.Time  `json:"timestamp"`
	Agent     string     `json:"agent"`
	Message   string     `json:"message"`
	Detail    *LogDetail `json:"data,omitempty"`
}

// SpecialistIteration is one research/analysis attempt within a revision round.
type SpecialistIteration struct {
	Iteration     int             `json:"iteration"`
	Objective     string          `json:"objective"`
	SearchSummary string          `json:"searchSummary,omitempty"`
	Sources       []Source        `json:"sources,omitempty"`
	Analysis      json.RawMessage `json:"analysis,omitempty"`
	Feedback      string          `json:"feedback,omitempty"`
}

// SpecialistTask tracks one registered specialist through the run.
type SpecialistTask struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Status     TaskStatus            `json:"status"`
	Iterations []SpecialistIteration `json:"iterations"`
}

// Current returns the most recent iteration, or nil before planning seeds one.
func (t *SpecialistTask) Current() *SpecialistIteration {
	if t == nil || len(t.Iterations) == 0 {
		return nil
	}
	return &t.Iterations[len(t.Iterations)-1]
}

// LatestAnalysis returns the newest iteration that carries an analysis.
func (t *SpecialistTask) LatestAnalysis() (SpecialistIteration, bool) {
	if t == nil {
		return SpecialistIteration{}, false
	}
	for i := len(t.Iterations) - 1; i >= 0; i-- {
		if len(t.Iterations[i].Analysis) > 0 {
			return t.Iterations[i], true
		}
	}
	return SpecialistIteration{}, false
}

// Clone returns a deep copy.
func (t SpecialistTask) Clone() SpecialistTask {
	out := t
	if t.Iterations != nil {
		out.Iterations = make([]SpecialistIteration, len(t.Iterations))
		for i, it := range t.Iterations {
			out.Iterations[i] = it.clone()
		}
	}
	return out
}

func (it SpecialistIteration) clone() SpecialistIteration {
	out := it
	if it.Sources != nil {
		out.Sources = append([]Source(nil), it.Sources...)
	}
	if it.Analysis != nil {
		out.Analysis = append(json.RawMessage(nil), it.Analysis...)
	}
	return out
}

// ReviewDecision is the reviewer's verdict on one specialist's submission.
type ReviewDecision struct {
	SpecialistName string `json:"specialistName"`
	Approved       bool   `json:"approved"`
	Feedback       string `json:"feedback"`
}

// VerificationResult is the auditor's assessment of a finished report.
type VerificationResult struct {
	Verified          bool   `json:"verified"`
	Issues            string `json:"issues"`
	CompletenessScore int    `json:"completeness_score"`
	DataQualityScore  int    `json:"data_quality_score"`
}

// ProcessState is the full, serializable state of one report run.
type ProcessState struct {
	Date             string              `json:"date,omitempty"`
	RunID            string              `json:"runId,omitempty"`
	Stage            Stage               `json:"stage"`
	Log              []LogEntry          `json:"log"`
	SpecialistTasks  []SpecialistTask    `json:"specialistTasks"`
	ReviewDecisions  []ReviewDecision    `json:"reviewDecisions"`
	FinalReport      *CryptoReportData   `json:"finalReport"`
	Verification     *VerificationResult `json:"verification"`
	Error            string              `json:"error,omitempty"`
	CurrentIteration int                 `json:"currentIteration"`
}

// Task returns the task with the given id.
func (s *ProcessState) Task(id string) (*SpecialistTask, bool) {
	for i := range s.SpecialistTasks {
		if s.SpecialistTasks[i].ID == id {
			return &s.SpecialistTasks[i], true
		}
	}
	return nil, false
}

// TasksWithStatus returns copies of the tasks currently in status.
func (s *ProcessState) TasksWithStatus(status TaskStatus) []SpecialistTask {
	var out []SpecialistTask
	for _, t := range s.SpecialistTasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// Clone returns a deep copy that shares no mutable memory with s.
func (s *ProcessState) Clone() *ProcessState {
	if s == nil {
		return nil
	}
	out := *s
	out.Log = make([]LogEntry, len(s.Log))
	for i, e := range s.Log {
		if e.Detail != nil {
			d := *e.Detail
			e.Detail = &d
		}
		out.Log[i] = e
	}
	out.SpecialistTasks = make([]SpecialistTask, len(s.SpecialistTasks))
	for i, t := range s.SpecialistTasks {
		out.SpecialistTasks[i] = t.Clone()
	}
	if s.ReviewDecisions != nil {
		out.ReviewDecisions = append(make([]ReviewDecision, 0, len(s.ReviewDecisions)), s.ReviewDecisions...)
	}
	if s.FinalReport != nil {
		out.FinalReport = s.FinalReport.Clone()
	}
	if s.Verification != nil {
		v := *s.Verification
		out.Verification = &v
	}
	return &out
}
