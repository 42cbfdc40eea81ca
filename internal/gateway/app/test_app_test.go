package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reny1cao/crypto-insights/internal/gateway/config"
	"github.com/reny1cao/crypto-insights/internal/types"
)

func demoConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.LLM.Fake = true
	cfg.LLM.RPS = 0
	cfg.Snapshot.Backend = "memory"
	cfg.Trace.Dir = t.TempDir()
	return cfg
}

func TestDemoStackCompletesARun(t *testing.T) {
	c, err := Build(context.Background(), demoConfig(t))
	require.NoError(t, err)
	defer c.Close()

	var stages []types.Stage
	out, err := c.Service.Generate(context.Background(), "", func(st *types.ProcessState) {
		if n := len(stages); n == 0 || stages[n-1] != st.Stage {
			stages = append(stages, st.Stage)
		}
	})
	require.NoError(t, err)
	require.Equal(t, types.StageComplete, out.State.Stage)
	require.NotNil(t, out.Report())
	require.Equal(t, []types.Stage{
		types.StagePlanning, types.StageMeeting, types.StageResearching, types.StageReviewing,
		types.StageSynthesizing, types.StageVerifying, types.StageComplete,
	}, stages)
	for _, task := range out.State.SpecialistTasks {
		require.Equal(t, types.TaskApproved, task.Status, task.Name)
	}

	again, err := c.Service.Generate(context.Background(), out.Date, nil)
	require.NoError(t, err)
	require.True(t, again.Cached)
	require.Equal(t, uint64(1), c.Store.Metrics().Hits)

	events, err := c.Traces.Read(out.RunID)
	require.NoError(t, err)
	var llmCalls int
	for _, ev := range events {
		if ev.Stage == "llm.before" {
			llmCalls++
		}
	}
	require.Positive(t, llmCalls)
}

func TestBuildUsesSpecialistsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "specialists.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
specialists:
  - kind: risk
  - kind: sentiment
    name: Mood Reader
`), 0o644))
	cfg := demoConfig(t)
	cfg.Pipeline.SpecialistsFile = path

	c, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()

	out, err := c.Service.Generate(context.Background(), "", nil)
	require.NoError(t, err)
	require.Len(t, out.State.SpecialistTasks, 2)
	require.Equal(t, "Mood Reader", out.State.SpecialistTasks[1].Name)
	require.NotNil(t, out.Report().Risks)
	require.Nil(t, out.Report().Technical)
}

func TestBuildRejectsUnknownBackend(t *testing.T) {
	cfg := demoConfig(t)
	cfg.Snapshot.Backend = "tape"
	_, err := Build(context.Background(), cfg)
	require.Error(t, err)
}
