package rpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"

	snaprepo "github.com/reny1cao/crypto-insights/internal/gateway/repository/snapshot"
	"github.com/reny1cao/crypto-insights/internal/gateway/report"
	"github.com/reny1cao/crypto-insights/internal/llm"
	"github.com/reny1cao/crypto-insights/internal/orchestrator"
	"github.com/reny1cao/crypto-insights/internal/types"
	"github.com/reny1cao/crypto-insights/internal/workers/analyst"
)

type scriptedRunner struct {
	fail string
}

func (r scriptedRunner) Run(ctx context.Context, date, _ string, onUpdate orchestrator.Observer) (*types.CryptoReportData, error) {
	st := &types.ProcessState{Date: date, RunID: llm.RunIDFrom(ctx), Stage: types.StagePlanning}
	onUpdate(st.Clone())
	if r.fail != "" {
		st.Stage, st.Error = types.StageError, r.fail
		onUpdate(st.Clone())
		return nil, &orchestrator.PlanningError{Missing: []string{"Risk Analyst"}}
	}
	st.Stage = types.StageComplete
	st.FinalReport = &types.CryptoReportData{ExecutiveSummary: "Quiet day.", ConfidenceLevel: types.ConfidenceHigh}
	onUpdate(st.Clone())
	return st.FinalReport.Clone(), nil
}

func newTestServer(t *testing.T, runner report.Runner) (*Client, *snaprepo.MemoryStore) {
	t.Helper()
	fake := llm.NewFakeClient("test")
	fake.OnText(types.AgentAnalyst, func(_ context.Context, req llm.TextRequest) (llm.TextResult, error) {
		return llm.TextResult{Text: "echo: " + req.Prompt}, nil
	})
	store := snaprepo.NewMemoryStore()
	svc, err := report.New(report.Options{
		Store:   store,
		Runner:  runner,
		Analyst: &analyst.Analyst{LLM: llm.NewGateway(fake, fake)},
		Now:     func() time.Time { return time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewReportHandler(svc).Mount(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), srv.URL), store
}

func TestGenerateReportRoundTrip(t *testing.T) {
	client, _ := newTestServer(t, scriptedRunner{})
	ctx := context.Background()

	res, err := client.GenerateReport(ctx, "2025-06-02", true)
	require.NoError(t, err)
	require.Equal(t, types.StageComplete, res.Stage)
	require.False(t, res.Cached)
	require.Equal(t, "Quiet day.", res.Report.ExecutiveSummary)
	require.NotEmpty(t, res.RunID)

	again, err := client.GenerateReport(ctx, "2025-06-02", true)
	require.NoError(t, err)
	require.True(t, again.Cached)
	require.Equal(t, res.RunID, again.RunID)

	dates, err := client.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"2025-06-02"}, dates)

	st, err := client.Snapshot(ctx, "2025-06-02")
	require.NoError(t, err)
	require.Equal(t, types.StageComplete, st.Stage)
}

func TestGenerateReportCarriesRunFailure(t *testing.T) {
	msg := "Planner did not provide an objective for Risk Analyst"
	client, _ := newTestServer(t, scriptedRunner{fail: msg})

	res, err := client.GenerateReport(context.Background(), "2025-06-02", true)
	require.NoError(t, err)
	require.Equal(t, types.StageError, res.Stage)
	require.Equal(t, msg, res.Error)
	require.Nil(t, res.Report)
}

func TestErrorCodes(t *testing.T) {
	client, _ := newTestServer(t, scriptedRunner{})
	ctx := context.Background()

	_, err := client.Snapshot(ctx, "2025-06-02")
	require.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = client.GenerateReport(ctx, "2025-05-01", true)
	require.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	require.Contains(t, err.Error(), "No report was generated for 2025-05-01")

	_, err = client.Snapshot(ctx, "yesterday")
	require.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = client.DeepAnalysis(ctx, "")
	require.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestWatchReportStreamsToTerminal(t *testing.T) {
	client, store := newTestServer(t, scriptedRunner{})
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &types.ProcessState{Date: "2025-06-01", Stage: types.StageComplete}))

	var frames []*WatchReportResponse
	err := client.Watch(ctx, "2025-06-01", func(f *WatchReportResponse) error {
		frames = append(frames, f)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, frames, 1)
	require.Equal(t, types.StageComplete, frames[0].State.Stage)
	require.NotNil(t, frames[0].SentAt)
}

func TestChatRoundTrip(t *testing.T) {
	client, _ := newTestServer(t, scriptedRunner{})
	reply, err := client.Chat(context.Background(), &ChatRequest{
		History: []llm.Turn{{Role: "user", Text: "hi"}, {Role: "model", Text: "hello"}},
		Message: "Is BTC up?",
	})
	require.NoError(t, err)
	require.Equal(t, "echo: Is BTC up?", reply)
}
