package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/reny1cao/crypto-insights/internal/specialist"
	"github.com/reny1cao/crypto-insights/internal/types"
	"github.com/reny1cao/crypto-insights/internal/util/jsonutil"
	"github.com/reny1cao/crypto-insights/internal/workers/research"
	"github.com/reny1cao/crypto-insights/internal/workers/review"
)

func (r *run) planning(ctx context.Context) error {
	r.log(types.AgentLead, "Starting research planning. Performing initial market scan...", nil)
	if strings.TrimSpace(r.prior) != "" {
		r.log(types.AgentLead, "Using the previous report's executive summary as context.", nil)
	}
	agenda, err := r.o.Planner.Agenda(ctx, r.date, r.prior)
	if err != nil {
		return err
	}
	r.agenda = agenda
	r.appendLog(types.AgentLead, "Market scan complete. Convening the team for a planning meeting.",
		&types.LogDetail{Title: "Market Summary (Meeting Agenda)", Content: agenda})
	for i := range r.state.SpecialistTasks {
		r.state.SpecialistTasks[i].Status = types.TaskDiscussing
	}
	r.advance(types.StageMeeting)
	return nil
}

func (r *run) meeting(ctx context.Context) error {
	r.log(types.AgentLead, "Team meeting in progress. Gathering input from all specialists.", nil)
	profiles := r.o.Registry.Profiles()

	statements, errs := fanOut(ctx, r.o.Concurrency, len(profiles),
		func(ctx context.Context, i int, emit func(event)) (string, error) {
			p := profiles[i]
			text, err := r.o.Planner.Position(ctx, p, r.agenda)
			if err != nil {
				return "", err
			}
			emit(event{agent: p.Name, message: "Provided input for the research plan."})
			return text, nil
		}, r.apply)
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	parts := make([]string, 0, len(profiles))
	team := make([]string, 0, len(profiles))
	for i, p := range profiles {
		parts = append(parts, fmt.Sprintf("--- Input from %s ---\n%s", p.Name, statements[i]))
		team = append(team, p.Name)
	}
	inputs := strings.Join(parts, "\n\n")
	r.log(types.AgentLead, "All specialist inputs received. Finalizing the research plan.",
		&types.LogDetail{Title: "Specialist Inputs", Content: inputs})

	objectives, err := r.o.Planner.Finalize(ctx, r.date, r.agenda, inputs, team)
	if err != nil {
		return err
	}
	byName := map[string]string{}
	for _, o := range objectives {
		if _, ok := byName[o.Specialist]; !ok && strings.TrimSpace(o.Objective) != "" {
			byName[o.Specialist] = o.Objective
		}
	}
	var missing []string
	for _, t := range r.state.SpecialistTasks {
		if _, ok := byName[t.Name]; !ok {
			missing = append(missing, t.Name)
		}
	}
	if len(missing) > 0 {
		return &PlanningError{Missing: missing}
	}

	var summary strings.Builder
	for i := range r.state.SpecialistTasks {
		t := &r.state.SpecialistTasks[i]
		t.Iterations = append(t.Iterations, types.SpecialistIteration{
			Iteration: r.state.CurrentIteration,
			Objective: byName[t.Name],
		})
		t.Status = types.TaskResearching
		fmt.Fprintf(&summary, "%s: %s\n", t.Name, byName[t.Name])
	}
	r.appendLog(types.AgentLead, "Research plan finalized. Dispatching specialists.",
		&types.LogDetail{Title: "Research Plan", Content: strings.TrimRight(summary.String(), "\n")})
	r.advance(types.StageResearching)
	return nil
}

type outcome struct {
	findings research.Findings
	analysis json.RawMessage
}

// assignment builds the research input for a task from the current state.
func (r *run) assignment(t types.SpecialistTask) research.Assignment {
	cur := t.Current()
	a := research.Assignment{
		Date:      r.date,
		Profile:   r.profiles[t.ID],
		Objective: cur.Objective,
	}
	if len(t.Iterations) < 2 {
		return a
	}
	prev := t.Iterations[len(t.Iterations)-2]
	a.Feedback = cur.Feedback
	a.Previous = &prev
	// Peers are the analyses produced in the round just reviewed.
	round := r.state.CurrentIteration - 1
	for _, other := range r.state.SpecialistTasks {
		if other.ID == t.ID {
			continue
		}
		for _, it := range other.Iterations {
			if it.Iteration == round && len(it.Analysis) > 0 {
				a.Peers = append(a.Peers, research.Peer{Name: other.Name, Analysis: it.Analysis})
				break
			}
		}
	}
	return a
}

func (r *run) researching(ctx context.Context) error {
	tasks := r.state.TasksWithStatus(types.TaskResearching)
	assignments := make([]research.Assignment, len(tasks))
	for i, t := range tasks {
		if t.Current() == nil {
			return fmt.Errorf("orchestrator: task %s has no iteration", t.Name)
		}
		assignments[i] = r.assignment(t)
	}
	r.log(types.AgentLead, fmt.Sprintf("Research round %d started with %d specialist(s).", r.state.CurrentIteration, len(tasks)), nil)

	outcomes, errs := fanOut(ctx, r.o.Concurrency, len(tasks),
		func(ctx context.Context, i int, emit func(event)) (outcome, error) {
			a := assignments[i]
			id := tasks[i].ID
			if a.Revision() {
				emit(event{taskID: id, agent: a.Profile.Name, message: "Searching for new information to address feedback."})
			} else {
				emit(event{taskID: id, agent: a.Profile.Name, message: "Researching: " + a.Objective})
			}
			f, err := r.o.Researcher.Search(ctx, a)
			if err != nil {
				return outcome{}, err
			}
			emit(event{
				taskID:  id,
				status:  types.TaskAnalyzing,
				agent:   a.Profile.Name,
				message: fmt.Sprintf("Research complete with %d source(s). Analyzing findings.", len(f.Sources)),
				detail:  &types.LogDetail{Title: "Research Summary", Content: f.Summary},
			})
			analysis, err := r.o.Researcher.Analyze(ctx, a, f)
			if err != nil {
				return outcome{}, err
			}
			return outcome{findings: f, analysis: analysis}, nil
		}, r.apply)

	var failures []TaskFailure
	for i, t := range tasks {
		task, _ := r.state.Task(t.ID)
		if errs[i] != nil {
			task.Status = types.TaskError
			r.appendLog(t.Name, "Error: "+errs[i].Error(), nil)
			failures = append(failures, TaskFailure{Specialist: t.Name, Err: errs[i]})
			continue
		}
		cur := task.Current()
		cur.SearchSummary = outcomes[i].findings.Summary
		cur.Sources = outcomes[i].findings.Sources
		cur.Analysis = outcomes[i].analysis
		task.Status = types.TaskSubmitted
		r.appendLog(t.Name, "Analysis submitted for review.",
			&types.LogDetail{Title: "Analysis", Content: jsonutil.Pretty(outcomes[i].analysis)})
	}
	r.publish()
	if len(failures) > 0 {
		return &SpecialistFailure{Failures: failures}
	}
	r.advance(types.StageReviewing)
	return nil
}

// apply handles a fan-out event on the run goroutine.
func (r *run) apply(e event) {
	if e.taskID != "" && e.status != "" {
		if t, ok := r.state.Task(e.taskID); ok {
			t.Status = e.status
		}
	}
	r.log(e.agent, e.message, e.detail)
}

func submissions(tasks []types.SpecialistTask) []review.Submission {
	out := make([]review.Submission, 0, len(tasks))
	for _, t := range tasks {
		it, ok := t.LatestAnalysis()
		if !ok {
			continue
		}
		out = append(out, review.Submission{Specialist: t.Name, Analysis: it.Analysis})
	}
	return out
}

func (r *run) reviewing(ctx context.Context) error {
	submitted := r.state.TasksWithStatus(types.TaskSubmitted)
	approved := r.state.TasksWithStatus(types.TaskApproved)
	if len(submitted) == 0 {
		if len(approved) != len(r.state.SpecialistTasks) {
			return errNoSubmissions
		}
		r.log(types.AgentLead, "All specialist reports have been approved.", nil)
		r.advance(types.StageSynthesizing)
		return nil
	}

	r.log(types.AgentLead, fmt.Sprintf("Reviewing %d new submission(s) against %d approved report(s).", len(submitted), len(approved)), nil)
	decisions, err := r.o.Reviewer.Review(ctx, r.date, submissions(submitted), submissions(approved))
	if err != nil {
		return err
	}
	res := ApplyDecisions(r.state.SpecialistTasks, decisions)
	r.state.SpecialistTasks = res.Tasks
	r.state.ReviewDecisions = append(r.state.ReviewDecisions, res.Applied...)
	for _, msg := range res.Messages {
		r.appendLog(types.AgentLead, msg, nil)
	}
	r.publish()

	if res.Revising() {
		r.advance(types.StageRevising)
		return nil
	}
	r.log(types.AgentLead, "All specialist reports have been approved.", nil)
	r.advance(types.StageSynthesizing)
	return nil
}

func (r *run) revising() error {
	r.state.CurrentIteration++
	var names []string
	for i := range r.state.SpecialistTasks {
		t := &r.state.SpecialistTasks[i]
		if t.Status != types.TaskRevising {
			continue
		}
		cur := t.Current()
		if cur == nil {
			return fmt.Errorf("orchestrator: task %s has no iteration to revise", t.Name)
		}
		t.Iterations = append(t.Iterations, types.SpecialistIteration{
			Iteration: r.state.CurrentIteration,
			Objective: cur.Objective,
			Feedback:  cur.Feedback,
		})
		t.Status = types.TaskResearching
		names = append(names, t.Name)
	}
	r.appendLog(types.AgentLead, fmt.Sprintf("Starting revision round %d for: %s.", r.state.CurrentIteration, strings.Join(names, ", ")), nil)
	r.advance(types.StageResearching)
	return nil
}

func (r *run) approvedAnalyses() map[specialist.Kind]json.RawMessage {
	out := map[specialist.Kind]json.RawMessage{}
	for _, t := range r.state.TasksWithStatus(types.TaskApproved) {
		if it, ok := t.LatestAnalysis(); ok {
			out[r.profiles[t.ID].Kind] = it.Analysis
		}
	}
	return out
}

// synthesizing drafts the report; with issues set it is the editing pass.
func (r *run) synthesizing(ctx context.Context, issues string) error {
	if issues == "" && r.state.Stage == types.StageSynthesizing {
		r.log(types.AgentLead, "Synthesizing the final report from approved analyses.", nil)
	} else {
		r.log(types.AgentLead, "Revising the executive summary to address verifier issues.",
			&types.LogDetail{Title: "Verifier Issues", Content: issues})
	}
	analyses := r.approvedAnalyses()
	byID := make(map[string]json.RawMessage, len(analyses))
	for k, v := range analyses {
		byID[string(k)] = v
	}
	sum, err := r.o.Synthesizer.Synthesize(ctx, r.date, byID, issues)
	if err != nil {
		return err
	}
	report, err := AssembleReport(sum, analyses)
	if err != nil {
		return err
	}
	r.state.FinalReport = report
	r.appendLog(types.AgentLead, fmt.Sprintf("Final report drafted with %s confidence.", report.ConfidenceLevel),
		&types.LogDetail{Title: "Executive Summary", Content: report.ExecutiveSummary})
	r.advance(types.StageVerifying)
	return nil
}

func (r *run) verifying(ctx context.Context) error {
	r.log(types.AgentVerifier, "Auditing the final report for completeness and consistency.", nil)
	res, err := r.o.Verifier.Verify(ctx, r.state.FinalReport)
	if err != nil {
		return err
	}
	r.state.Verification = &res
	if res.Verified {
		r.appendLog(types.AgentVerifier, fmt.Sprintf("Report verified. Completeness %d/10, data quality %d/10.", res.CompletenessScore, res.DataQualityScore), nil)
		r.advance(types.StageComplete)
		return nil
	}
	r.appendLog(types.AgentVerifier, "Verification failed. Sending the report back for editing.",
		&types.LogDetail{Title: "Issues", Content: res.Issues})
	if r.edits >= r.o.maxEdits() {
		r.publish()
		return &VerificationLoopError{Cycles: r.edits, Issues: res.Issues}
	}
	r.edits++
	r.advance(types.StageEditing)
	return nil
}
