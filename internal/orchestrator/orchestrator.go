package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/reny1cao/crypto-insights/internal/llm"
	"github.com/reny1cao/crypto-insights/internal/specialist"
	"github.com/reny1cao/crypto-insights/internal/types"
	"github.com/reny1cao/crypto-insights/internal/workers/plan"
	"github.com/reny1cao/crypto-insights/internal/workers/research"
	"github.com/reny1cao/crypto-insights/internal/workers/review"
	"github.com/reny1cao/crypto-insights/internal/workers/synthesis"
	"github.com/reny1cao/crypto-insights/internal/workers/verify"
)

// DefaultMaxEditCycles caps editing passes when MaxEditCycles is unset.
const DefaultMaxEditCycles = 3

var tracer = otel.Tracer("github.com/reny1cao/crypto-insights/internal/orchestrator")

// Observer receives a deep copy of the state after every mutation.
type Observer func(*types.ProcessState)

// Orchestrator drives one report run through the stage machine.
type Orchestrator struct {
	Registry    *specialist.Registry
	Planner     *plan.Planner
	Researcher  *research.Researcher
	Reviewer    *review.Engine
	Synthesizer *synthesis.Synthesizer
	Verifier    *verify.Verifier

	// MaxEditCycles caps editing passes; <= 0 uses DefaultMaxEditCycles.
	MaxEditCycles int
	// Concurrency limits in-flight specialist calls; 0 means unlimited.
	Concurrency int

	Now    func() time.Time
	Logger *log.Logger
}

// New wires every agent to the same model gateway.
func New(gw llm.Caller, reg *specialist.Registry) *Orchestrator {
	if reg == nil {
		reg = specialist.DefaultRegistry()
	}
	return &Orchestrator{
		Registry:    reg,
		Planner:     &plan.Planner{LLM: gw},
		Researcher:  &research.Researcher{LLM: gw},
		Reviewer:    &review.Engine{LLM: gw},
		Synthesizer: &synthesis.Synthesizer{LLM: gw},
		Verifier:    &verify.Verifier{LLM: gw},
	}
}

// Run executes the pipeline for date. prior is the previous report's
// executive summary, or empty. The run id, if any, is taken from ctx (see
// llm.WithRunID). On failure the last published state has stage error and
// the same message as the returned error.
func (o *Orchestrator) Run(ctx context.Context, date, prior string, onUpdate Observer) (*types.CryptoReportData, error) {
	if o == nil || o.Registry == nil || o.Registry.Len() == 0 {
		return nil, errors.New("orchestrator: no specialists registered")
	}
	ctx, span := tracer.Start(ctx, "report.run", trace.WithAttributes(
		attribute.String("report.date", date),
		attribute.String("report.run_id", llm.RunIDFrom(ctx)),
	))
	defer span.End()

	r := o.newRun(date, prior, llm.RunIDFrom(ctx), onUpdate)
	r.publish()
	report, err := r.loop(ctx)
	span.SetAttributes(attribute.String("report.stage", string(r.state.Stage)))
	if err != nil {
		r.fail(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return report, nil
}

// run is the working context of one Run call. It is owned by a single
// goroutine.
type run struct {
	o        *Orchestrator
	date     string
	prior    string
	agenda   string
	profiles map[string]specialist.Profile
	state    *types.ProcessState
	onUpdate Observer
	edits    int
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) maxEdits() int {
	if o.MaxEditCycles <= 0 {
		return DefaultMaxEditCycles
	}
	return o.MaxEditCycles
}

func (o *Orchestrator) newRun(date, prior, runID string, onUpdate Observer) *run {
	r := &run{
		o:        o,
		date:     date,
		prior:    prior,
		profiles: map[string]specialist.Profile{},
		onUpdate: onUpdate,
		state: &types.ProcessState{
			Date:             date,
			RunID:            runID,
			Stage:            types.StagePlanning,
			Log:              []types.LogEntry{},
			ReviewDecisions:  []types.ReviewDecision{},
			CurrentIteration: 1,
		},
	}
	for _, p := range o.Registry.Profiles() {
		id := string(p.Kind)
		r.profiles[id] = p
		r.state.SpecialistTasks = append(r.state.SpecialistTasks, types.SpecialistTask{
			ID:         id,
			Name:       p.Name,
			Status:     types.TaskPending,
			Iterations: []types.SpecialistIteration{},
		})
	}
	return r
}

func (r *run) loop(ctx context.Context) (*types.CryptoReportData, error) {
	for !r.state.Stage.Terminal() {
		stage := r.state.Stage
		sctx, span := tracer.Start(ctx, "stage."+string(stage), trace.WithAttributes(
			attribute.Int("report.iteration", r.state.CurrentIteration),
		))
		err := r.step(sctx, stage)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if err != nil {
			return nil, err
		}
		if r.state.Stage == stage {
			return nil, fmt.Errorf("orchestrator: stage %s did not advance", stage)
		}
	}
	return r.state.FinalReport.Clone(), nil
}

func (r *run) step(ctx context.Context, stage types.Stage) error {
	switch stage {
	case types.StagePlanning:
		return r.planning(ctx)
	case types.StageMeeting:
		return r.meeting(ctx)
	case types.StageResearching:
		return r.researching(ctx)
	case types.StageReviewing:
		return r.reviewing(ctx)
	case types.StageRevising:
		return r.revising()
	case types.StageSynthesizing:
		return r.synthesizing(ctx, "")
	case types.StageVerifying:
		return r.verifying(ctx)
	case types.StageEditing:
		issues := ""
		if r.state.Verification != nil {
			issues = r.state.Verification.Issues
		}
		return r.synthesizing(ctx, issues)
	}
	return fmt.Errorf("orchestrator: unexpected stage %q", stage)
}

func (r *run) publish() {
	if r.onUpdate != nil {
		r.onUpdate(r.state.Clone())
	}
}

func (r *run) appendLog(agent, message string, detail *types.LogDetail) {
	r.state.Log = append(r.state.Log, types.LogEntry{
		Timestamp: r.o.now(),
		Agent:     agent,
		Message:   message,
		Detail:    detail,
	})
}

// log appends one entry and publishes.
func (r *run) log(agent, message string, detail *types.LogDetail) {
	r.appendLog(agent, message, detail)
	r.publish()
}

func (r *run) advance(next types.Stage) {
	if r.o.Logger != nil {
		r.o.Logger.Printf("report %s: %s -> %s", r.date, r.state.Stage, next)
	}
	r.state.Stage = next
	r.publish()
}

func (r *run) fail(err error) {
	msg := err.Error()
	if r.o.Logger != nil {
		r.o.Logger.Printf("report %s: failed in %s: %v", r.date, r.state.Stage, err)
	}
	r.appendLog(types.AgentSystem, "Critical failure in agent workflow: "+msg, nil)
	r.state.Stage = types.StageError
	r.state.Error = msg
	r.publish()
}
