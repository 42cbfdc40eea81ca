package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/reny1cao/crypto-insights/internal/llm"
	"github.com/reny1cao/crypto-insights/internal/specialist"
	"github.com/reny1cao/crypto-insights/internal/types"
	"github.com/reny1cao/crypto-insights/internal/workers/plan"
)

// harness scripts the Lead Researcher and Verifier and records every
// published state.
type harness struct {
	t      *testing.T
	reg    *specialist.Registry
	fast   *llm.FakeClient
	strong *llm.FakeClient
	orch   *Orchestrator

	mu sync.Mutex
	// objectives overrides the plan; nil plans every registered specialist.
	objectives []plan.Objective
	// review returns the decisions for a round (0-based); nil approves all.
	review       func(round int) []types.ReviewDecision
	reviewRound  int
	verdicts     []types.VerificationResult
	verifyCalls  int
	synthPrompts []string

	states []*types.ProcessState
}

func newHarness(t *testing.T, kinds ...specialist.Kind) *harness {
	t.Helper()
	profiles := make([]specialist.Profile, 0, len(kinds))
	for _, k := range kinds {
		profiles = append(profiles, specialist.Profile{Kind: k})
	}
	reg, err := specialist.NewRegistry(profiles...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	h := &harness{
		t:      t,
		reg:    reg,
		fast:   llm.NewFakeClient("fast"),
		strong: llm.NewFakeClient("strong"),
	}
	h.strong.OnJSON(types.AgentLead, h.lead)
	h.fast.OnJSON(types.AgentVerifier, h.verify)
	h.orch = New(llm.NewGateway(h.fast, h.strong), reg)
	clock := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	h.orch.Now = func() time.Time { return clock }
	return h
}

func (h *harness) name(k specialist.Kind) string {
	p, ok := h.reg.ByKind(k)
	if !ok {
		h.t.Fatalf("kind %s not registered", k)
	}
	return p.Name
}

func (h *harness) lead(_ context.Context, req llm.JSONRequest) (json.RawMessage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case req.Schema.Type == genai.TypeArray:
		round := h.reviewRound
		h.reviewRound++
		var out []types.ReviewDecision
		if h.review != nil {
			out = h.review(round)
		} else {
			for _, p := range h.reg.Profiles() {
				out = append(out, types.ReviewDecision{SpecialistName: p.Name, Approved: true, Feedback: "Approved."})
			}
		}
		if out == nil {
			out = []types.ReviewDecision{}
		}
		return json.Marshal(out)
	case req.Schema.Properties["objectives"] != nil:
		objs := h.objectives
		if objs == nil {
			for _, p := range h.reg.Profiles() {
				objs = append(objs, plan.Objective{Specialist: p.Name, Objective: "Cover " + string(p.Kind) + " for today."})
			}
		}
		return json.Marshal(map[string]any{"objectives": objs})
	case req.Schema.Properties["executive_summary"] != nil:
		h.synthPrompts = append(h.synthPrompts, req.Prompt)
		return json.Marshal(map[string]string{
			"executive_summary": fmt.Sprintf("Draft %d.", len(h.synthPrompts)),
			"confidence_level":  "medium",
		})
	}
	return nil, fmt.Errorf("unexpected lead request")
}

func (h *harness) verify(_ context.Context, _ llm.JSONRequest) (json.RawMessage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v := types.VerificationResult{Verified: true, CompletenessScore: 9, DataQualityScore: 8}
	if h.verifyCalls < len(h.verdicts) {
		v = h.verdicts[h.verifyCalls]
	} else if len(h.verdicts) > 0 {
		v = h.verdicts[len(h.verdicts)-1]
	}
	h.verifyCalls++
	return json.Marshal(v)
}

func (h *harness) run() (*types.CryptoReportData, error) {
	return h.orch.Run(context.Background(), "2025-06-01", "", func(s *types.ProcessState) {
		h.states = append(h.states, s)
	})
}

func (h *harness) last() *types.ProcessState {
	if len(h.states) == 0 {
		h.t.Fatalf("no state published")
	}
	return h.states[len(h.states)-1]
}

// stages returns the published stage sequence with repeats collapsed.
func (h *harness) stages() []types.Stage {
	var out []types.Stage
	for _, s := range h.states {
		if len(out) == 0 || out[len(out)-1] != s.Stage {
			out = append(out, s.Stage)
		}
	}
	return out
}

func (h *harness) task(k specialist.Kind) types.SpecialistTask {
	t, ok := h.last().Task(string(k))
	if !ok {
		h.t.Fatalf("task %s missing", k)
	}
	return *t
}

func (h *harness) logged(agent, message string) bool {
	for _, e := range h.last().Log {
		if e.Agent == agent && e.Message == message {
			return true
		}
	}
	return false
}
