package report

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/reny1cao/crypto-insights/internal/llm"
	"github.com/reny1cao/crypto-insights/internal/safeio"
	"github.com/reny1cao/crypto-insights/internal/types"
)

var traceRunIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// TraceEvent is one line of a run trace.
type TraceEvent struct {
	Timestamp string         `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Source    string         `json:"source"`
	Stage     string         `json:"stage"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// TraceLogger appends run-scoped events to <run_id>.jsonl files. It also
// serves as an llm.PromptHook so every model call lands in the trace.
type TraceLogger struct {
	dir *safeio.Dir
	mu  sync.Mutex
	now func() time.Time
}

func DefaultTraceDir() string {
	return filepath.Join("tmp", "run_logs")
}

func NewTraceLogger(dir string) (*TraceLogger, error) {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultTraceDir()
	}
	d, err := safeio.OpenDir(dir, true)
	if err != nil {
		return nil, fmt.Errorf("open trace dir: %w", err)
	}
	return &TraceLogger{dir: d, now: time.Now}, nil
}

func sanitizeRunID(runID string) string {
	id := traceRunIDSanitizer.ReplaceAllString(strings.TrimSpace(runID), "_")
	if id == "" || id == "." || id == ".." {
		return "unknown"
	}
	return id
}

// Append writes one trace line for the run. Write errors are ignored.
func (l *TraceLogger) Append(runID, source, stage string, fields map[string]any) {
	if l == nil || strings.TrimSpace(runID) == "" {
		return
	}
	event := TraceEvent{
		Timestamp: l.now().UTC().Format(time.RFC3339Nano),
		RunID:     strings.TrimSpace(runID),
		Source:    strings.TrimSpace(source),
		Stage:     strings.TrimSpace(stage),
	}
	if len(fields) > 0 {
		event.Fields = fields
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return
	}
	raw = append(raw, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.dir.AppendFile(sanitizeRunID(runID)+".jsonl", raw, 0o644)
}

// Read returns every event recorded for the run, oldest first.
func (l *TraceLogger) Read(runID string) ([]TraceEvent, error) {
	if l == nil {
		return nil, nil
	}
	l.mu.Lock()
	raw, err := l.dir.ReadFile(sanitizeRunID(runID) + ".jsonl")
	l.mu.Unlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []TraceEvent{}, nil
		}
		return nil, fmt.Errorf("read trace file: %w", err)
	}

	out := make([]TraceEvent, 0, 64)
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev TraceEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan trace file: %w", err)
	}
	return out, nil
}

// State records a published snapshot.
func (l *TraceLogger) State(runID string, st *types.ProcessState) {
	if st == nil {
		return
	}
	fields := map[string]any{
		"iteration": st.CurrentIteration,
		"log_size":  len(st.Log),
	}
	if n := len(st.Log); n > 0 {
		last := st.Log[n-1]
		fields["agent"] = last.Agent
		fields["message"] = last.Message
	}
	if st.Error != "" {
		fields["error"] = st.Error
	}
	l.Append(runID, "orchestrator", string(st.Stage), fields)
}

func (l *TraceLogger) Before(ctx context.Context, agent, op, prompt string) {
	l.Append(llm.RunIDFrom(ctx), "llm", "llm.before", map[string]any{
		"agent":        agent,
		"op":           op,
		"prompt_bytes": len(prompt),
	})
}

func (l *TraceLogger) After(ctx context.Context, agent, op string, raw json.RawMessage, err error) {
	fields := map[string]any{
		"agent":          agent,
		"op":             op,
		"response_bytes": len(raw),
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	l.Append(llm.RunIDFrom(ctx), "llm", "llm.after", fields)
}
