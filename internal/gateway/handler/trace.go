package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/reny1cao/crypto-insights/internal/gateway/report"
)

type TraceHandler struct {
	traces *report.TraceLogger
}

func NewTraceHandler(traces *report.TraceLogger) *TraceHandler {
	return &TraceHandler{traces: traces}
}

func (h *TraceHandler) HandleFrontendTrace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var in struct {
		Timestamp string         `json:"timestamp"`
		RunID     string         `json:"run_id"`
		Stage     string         `json:"stage"`
		Level     string         `json:"level"`
		Fields    map[string]any `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	runID := strings.TrimSpace(in.RunID)
	stage := strings.TrimSpace(in.Stage)
	if runID == "" || stage == "" {
		http.Error(w, "run_id and stage are required", http.StatusBadRequest)
		return
	}
	fields := map[string]any{}
	for k, v := range in.Fields {
		fields[k] = v
	}
	if lvl := strings.TrimSpace(in.Level); lvl != "" {
		fields["level"] = lvl
	}
	if ts := strings.TrimSpace(in.Timestamp); ts != "" {
		fields["frontend_timestamp"] = ts
	}
	h.traces.Append(runID, "frontend", stage, fields)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// HandleRunLogs returns the trace of one run. Optional query parameters:
// stage filters by stage prefix (e.g. "llm."), tail keeps the last n events.
func (h *TraceHandler) HandleRunLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	runID := strings.TrimSpace(q.Get("run_id"))
	if runID == "" {
		http.Error(w, "run_id is required", http.StatusBadRequest)
		return
	}
	tail := 0
	if raw := strings.TrimSpace(q.Get("tail")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "tail must be a non-negative integer", http.StatusBadRequest)
			return
		}
		tail = n
	}
	events, err := h.traces.Read(runID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	events = filterTrace(events, strings.TrimSpace(q.Get("stage")), tail)
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id": runID,
		"count":  len(events),
		"events": events,
	})
}

func filterTrace(events []report.TraceEvent, stagePrefix string, tail int) []report.TraceEvent {
	out := events
	if stagePrefix != "" {
		out = make([]report.TraceEvent, 0, len(events))
		for _, ev := range events {
			if strings.HasPrefix(ev.Stage, stagePrefix) {
				out = append(out, ev)
			}
		}
	}
	if tail > 0 && len(out) > tail {
		out = out[len(out)-tail:]
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
