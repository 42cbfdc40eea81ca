package llm

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// UsageLedger accumulates per-day request counts in a JSON file.
type UsageLedger struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

type usageLedgerFile struct {
	UpdatedAt string              `json:"updated_at"`
	Days      map[string]usageDay `json:"days"`
}

type usageDay struct {
	Requests int64                `json:"requests"`
	Tokens   int64                `json:"tokens"`
	Errors   int64                `json:"errors"`
	Agents   map[string]usageStat `json:"agents"`
}

type usageStat struct {
	Requests int64 `json:"requests"`
	Tokens   int64 `json:"tokens"`
	Errors   int64 `json:"errors"`
}

func NewUsageLedger(path string) *UsageLedger {
	return &UsageLedger{path: path, now: time.Now}
}

// WithUsageLedger records every call made through the wrapped client.
func WithUsageLedger(ledger *UsageLedger) Middleware {
	return func(next LLMClient) LLMClient {
		return &usageLedgerClient{next: next, ledger: ledger}
	}
}

type usageLedgerClient struct {
	next   LLMClient
	ledger *UsageLedger
}

func (u *usageLedgerClient) Name() string { return u.next.Name() }
func (u *usageLedgerClient) Close() error { return u.next.Close() }

func (u *usageLedgerClient) GenerateText(ctx context.Context, req TextRequest) (TextResult, error) {
	res, err := u.next.GenerateText(ctx, req)
	u.ledger.record(AgentFrom(ctx), estimateTokens(req.Prompt, res.Text), err != nil)
	return res, err
}

func (u *usageLedgerClient) GenerateJSON(ctx context.Context, req JSONRequest) (json.RawMessage, error) {
	raw, err := u.next.GenerateJSON(ctx, req)
	u.ledger.record(AgentFrom(ctx), estimateTokens(req.Prompt, string(raw)), err != nil)
	return raw, err
}

// estimateTokens uses the usual four-bytes-per-token approximation.
func estimateTokens(parts ...string) int64 {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	t := int64(n / 4)
	if t < 1 {
		t = 1
	}
	return t
}

func (l *UsageLedger) record(agent string, tokens int64, hasErr bool) {
	if l == nil || l.path == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	dayKey := now.Format("2006-01-02")
	f := usageLedgerFile{Days: map[string]usageDay{}}
	if b, err := os.ReadFile(l.path); err == nil {
		_ = json.Unmarshal(b, &f)
		if f.Days == nil {
			f.Days = map[string]usageDay{}
		}
	}

	d := f.Days[dayKey]
	if d.Agents == nil {
		d.Agents = map[string]usageStat{}
	}
	d.Requests++
	d.Tokens += tokens
	a := d.Agents[agent]
	a.Requests++
	a.Tokens += tokens
	if hasErr {
		d.Errors++
		a.Errors++
	}
	d.Agents[agent] = a
	f.Days[dayKey] = d
	f.UpdatedAt = now.Format(time.RFC3339)

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return
	}
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, l.path)
}
