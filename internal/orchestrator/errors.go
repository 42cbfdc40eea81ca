package orchestrator

import (
	"errors"
	"fmt"
	"strings"
)

// PlanningError reports specialists the final plan left without an objective.
type PlanningError struct {
	Missing []string
}

func (e *PlanningError) Error() string {
	if len(e.Missing) == 1 {
		return "Planner did not provide an objective for " + e.Missing[0]
	}
	return "Planner did not provide an objective for " + strings.Join(e.Missing, ", ")
}

// TaskFailure is one specialist's failed research pass.
type TaskFailure struct {
	Specialist string
	Err        error
}

// SpecialistFailure aborts the run when any specialist fails during
// researching. Failures are in registry order.
type SpecialistFailure struct {
	Failures []TaskFailure
}

func (e *SpecialistFailure) Error() string {
	return "One or more specialists failed during the research phase. Halting process."
}

// Unwrap exposes the per-task errors to errors.Is and errors.As.
func (e *SpecialistFailure) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f.Err)
	}
	return out
}

// VerificationLoopError is returned once the verifier has rejected the
// report more times than the edit cap allows.
type VerificationLoopError struct {
	Cycles int
	Issues string
}

func (e *VerificationLoopError) Error() string {
	return fmt.Sprintf("report failed verification after %d edit cycles: %s", e.Cycles, e.Issues)
}

var errNoSubmissions = errors.New("review: no new submissions but not every task is approved")
