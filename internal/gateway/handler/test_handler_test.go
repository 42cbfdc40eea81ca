package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	snaprepo "github.com/reny1cao/crypto-insights/internal/gateway/repository/snapshot"
	"github.com/reny1cao/crypto-insights/internal/gateway/report"
	"github.com/reny1cao/crypto-insights/internal/llm"
	"github.com/reny1cao/crypto-insights/internal/orchestrator"
	"github.com/reny1cao/crypto-insights/internal/types"
)

type quickRunner struct{}

func (quickRunner) Run(ctx context.Context, date, _ string, onUpdate orchestrator.Observer) (*types.CryptoReportData, error) {
	st := &types.ProcessState{Date: date, RunID: llm.RunIDFrom(ctx), Stage: types.StagePlanning}
	onUpdate(st.Clone())
	st.Stage = types.StageComplete
	st.FinalReport = &types.CryptoReportData{ExecutiveSummary: "done"}
	onUpdate(st.Clone())
	return st.FinalReport, nil
}

func newService(t *testing.T) (*report.Service, *snaprepo.MemoryStore) {
	t.Helper()
	traces, err := report.NewTraceLogger(t.TempDir())
	require.NoError(t, err)
	store := snaprepo.NewMemoryStore()
	svc, err := report.New(report.Options{
		Store:  store,
		Runner: quickRunner{},
		Traces: traces,
		Now:    func() time.Time { return time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return svc, store
}

func TestTraceHandlers(t *testing.T) {
	svc, _ := newService(t)
	h := NewTraceHandler(svc.Traces())

	body := `{"run_id":"run-1","stage":"ui.click","level":"info","fields":{"button":"generate"}}`
	rec := httptest.NewRecorder()
	h.HandleFrontendTrace(rec, httptest.NewRequest(http.MethodPost, "/debug/frontend-trace", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleFrontendTrace(rec, httptest.NewRequest(http.MethodPost, "/debug/frontend-trace", strings.NewReader(`{"run_id":"x"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleRunLogs(rec, httptest.NewRequest(http.MethodGet, "/debug/run-logs?run_id=run-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Events []report.TraceEvent `json:"events"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.Len(t, out.Events, 1)
	require.Equal(t, "frontend", out.Events[0].Source)
	require.Equal(t, "info", out.Events[0].Fields["level"])

	svc.Traces().Append("run-1", "service", "llm.before", nil)
	svc.Traces().Append("run-1", "service", "llm.after", nil)
	rec = httptest.NewRecorder()
	h.HandleRunLogs(rec, httptest.NewRequest(http.MethodGet, "/debug/run-logs?run_id=run-1&stage=llm.&tail=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	out.Events = nil
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.Len(t, out.Events, 1)
	require.Equal(t, "llm.after", out.Events[0].Stage)

	rec = httptest.NewRecorder()
	h.HandleRunLogs(rec, httptest.NewRequest(http.MethodGet, "/debug/run-logs?run_id=run-1&tail=x", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler("test", nil).HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, bytes.Contains(rec.Body.Bytes(), []byte(`"status":"ok"`)))
}

func TestReportWebsocketGenerateAndStream(t *testing.T) {
	svc, _ := newService(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/reports", NewReportWSHandler(svc).HandleReportWS)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/reports?date=2025-06-02"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var frames []reportWSOutbound
	read := func() reportWSOutbound {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var f reportWSOutbound
		require.NoError(t, conn.ReadJSON(&f))
		frames = append(frames, f)
		return f
	}
	require.Equal(t, "subscribed", read().Type)
	notFound := read()
	require.Equal(t, "error", notFound.Type)
	require.Equal(t, "not_found", notFound.Code)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "generate"}))
	for {
		f := read()
		if f.Type == "done" {
			break
		}
	}
	var last *types.ProcessState
	started := false
	for _, f := range frames {
		if f.Type == "started" {
			started = true
		}
		if f.Type == "snapshot" {
			last = f.State
		}
	}
	require.True(t, started)
	require.NotNil(t, last)
	require.Equal(t, types.StageComplete, last.Stage)
}

func TestReportWebsocketRejectsBadDate(t *testing.T) {
	svc, _ := newService(t)
	rec := httptest.NewRecorder()
	NewReportWSHandler(svc).HandleReportWS(rec, httptest.NewRequest(http.MethodGet, "/ws/reports?date=tomorrow", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
