package orchestrator

import (
	"fmt"
	"strings"

	"github.com/reny1cao/crypto-insights/internal/types"
)

// MissingDecisionFeedback is attached to a submission the reviewer skipped.
const MissingDecisionFeedback = "The reviewer did not provide a decision for your submission. Please review your work for clarity and resubmit."

// EmptyFeedback replaces a blank rejection so the next pass runs as a revision.
const EmptyFeedback = "The reviewer rejected your submission without specific feedback. Strengthen the evidence behind your key insights and resubmit."

// ApplyResult is the outcome of applying one review round.
type ApplyResult struct {
	Tasks []types.SpecialistTask
	// Applied holds the decisions that changed a task, in task order. An
	// approval of an already approved task is not recorded.
	Applied []types.ReviewDecision
	// Overrides names previously approved tasks sent back to revision.
	Overrides []string
	// Faults names submitted tasks that received no decision.
	Faults []string
	// Unknown names decisions that matched no task.
	Unknown []string
	// Messages are the log lines describing the round, in order.
	Messages []string
}

// Revising reports whether any task was sent back for revision.
func (r ApplyResult) Revising() bool {
	for _, t := range r.Tasks {
		if t.Status == types.TaskRevising {
			return true
		}
	}
	return false
}

// ApplyDecisions applies review decisions to tasks and returns new task
// values; the input is never modified. Decisions are matched to tasks by
// display name and the first decision for a name wins. Only submitted and
// approved tasks are affected.
func ApplyDecisions(tasks []types.SpecialistTask, decisions []types.ReviewDecision) ApplyResult {
	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		known[t.Name] = true
	}

	byName := make(map[string]types.ReviewDecision, len(decisions))
	var res ApplyResult
	seenUnknown := map[string]bool{}
	for _, d := range decisions {
		d.SpecialistName = strings.TrimSpace(d.SpecialistName)
		if !known[d.SpecialistName] {
			if !seenUnknown[d.SpecialistName] {
				seenUnknown[d.SpecialistName] = true
				res.Unknown = append(res.Unknown, d.SpecialistName)
				res.Messages = append(res.Messages, fmt.Sprintf("Ignoring decision for unknown specialist %q.", d.SpecialistName))
			}
			continue
		}
		if _, ok := byName[d.SpecialistName]; !ok {
			byName[d.SpecialistName] = d
		}
	}

	res.Tasks = make([]types.SpecialistTask, len(tasks))
	for i, t := range tasks {
		t = t.Clone()
		d, ok := byName[t.Name]
		switch {
		case ok && (t.Status == types.TaskSubmitted || t.Status == types.TaskApproved):
			if d.Approved {
				if t.Status == types.TaskSubmitted {
					res.Applied = append(res.Applied, d)
				}
				t.Status = types.TaskApproved
				break
			}
			if strings.TrimSpace(d.Feedback) == "" {
				d.Feedback = EmptyFeedback
			}
			res.Applied = append(res.Applied, d)
			if t.Status == types.TaskApproved {
				res.Overrides = append(res.Overrides, t.Name)
				res.Messages = append(res.Messages, fmt.Sprintf("OVERRIDING previous approval for %s due to new information. Requesting revision.", t.Name))
			}
			if cur := t.Current(); cur != nil {
				cur.Feedback = d.Feedback
			}
			t.Status = types.TaskRevising
			res.Messages = append(res.Messages, fmt.Sprintf("Feedback for %s: %s", t.Name, d.Feedback))
		case !ok && t.Status == types.TaskSubmitted:
			if cur := t.Current(); cur != nil {
				cur.Feedback = MissingDecisionFeedback
			}
			t.Status = types.TaskRevising
			res.Faults = append(res.Faults, t.Name)
			res.Messages = append(res.Messages, fmt.Sprintf("No decision returned for %s. Requesting resubmission.", t.Name))
		}
		res.Tasks[i] = t
	}
	return res
}
