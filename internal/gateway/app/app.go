package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	snapcache "github.com/reny1cao/crypto-insights/internal/cache/snapshot"
	"github.com/reny1cao/crypto-insights/internal/gateway/config"
	"github.com/reny1cao/crypto-insights/internal/gateway/handler"
	"github.com/reny1cao/crypto-insights/internal/gateway/handler/rpc"
	"github.com/reny1cao/crypto-insights/internal/gateway/notify"
	"github.com/reny1cao/crypto-insights/internal/gateway/report"
	"github.com/reny1cao/crypto-insights/internal/gateway/server"
	"github.com/reny1cao/crypto-insights/internal/llm"
	"github.com/reny1cao/crypto-insights/internal/orchestrator"
	"github.com/reny1cao/crypto-insights/internal/specialist"
	"github.com/reny1cao/crypto-insights/internal/workers/analyst"
)

var Version = "dev"

// Components is the report stack shared by the gateway and the CLI.
type Components struct {
	Config  *config.Config
	Service *report.Service
	Store   *snapcache.CachedStore
	Traces  *report.TraceLogger

	closers []io.Closer
}

func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build wires the model gateway, orchestrator, stores and report service.
func Build(ctx context.Context, cfg *config.Config) (*Components, error) {
	c := &Components{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			_ = c.Close()
		}
	}()

	reg := specialist.DefaultRegistry()
	if path := strings.TrimSpace(cfg.Pipeline.SpecialistsFile); path != "" {
		loaded, err := specialist.LoadRegistry(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load specialists: %w", err)
		}
		reg = loaded
	}

	traces, err := report.NewTraceLogger(cfg.Trace.Dir)
	if err != nil {
		return nil, err
	}
	c.Traces = traces

	gw, err := newModelGateway(ctx, cfg, reg, traces)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, gw)

	store, closer, err := initSnapshotStore(cfg)
	if err != nil {
		return nil, err
	}
	c.Store = store
	if closer != nil {
		c.closers = append(c.closers, closer)
	}

	var publisher report.Publisher
	if strings.TrimSpace(cfg.NATS.URL) != "" {
		nc, err := notify.Connect(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return nil, err
		}
		publisher = nc
		c.closers = append(c.closers, nc)
		log.Printf("snapshot notifications: nats subject=%s.<date>", notify.SubjectPrefix(cfg.NATS.Subject))
	}

	orch := orchestrator.New(gw, reg)
	orch.MaxEditCycles = cfg.Pipeline.MaxEditCycles
	orch.Concurrency = cfg.Pipeline.Concurrency

	svc, err := report.New(report.Options{
		Store:     store,
		Runner:    orch,
		Analyst:   &analyst.Analyst{LLM: gw},
		Traces:    traces,
		Publisher: publisher,
	})
	if err != nil {
		return nil, err
	}
	c.Service = svc
	ok = true
	return c, nil
}

func newModelGateway(ctx context.Context, cfg *config.Config, reg *specialist.Registry, traces *report.TraceLogger) (*llm.Gateway, error) {
	var fast, strong llm.LLMClient
	if cfg.LLM.Fake {
		demo := newDemoClient(reg)
		fast, strong = demo, demo
		log.Printf("llm: using demo client (LLM_FAKE)")
	} else {
		var err error
		if fast, strong, err = newProviderClients(ctx, cfg.LLM); err != nil {
			return nil, err
		}
	}

	var ledger *llm.UsageLedger
	if path := strings.TrimSpace(cfg.LLM.UsageLedger); path != "" {
		ledger = llm.NewUsageLedger(path)
	}
	chain := func(inner llm.LLMClient) llm.LLMClient {
		mws := []llm.Middleware{
			llm.WithHooks(traces),
			llm.WithLogging(nil),
			llm.Retry(cfg.LLM.MaxAttempts, 500*time.Millisecond),
			llm.RateLimit(cfg.LLM.RPS, cfg.LLM.Burst),
		}
		if ledger != nil {
			mws = append(mws, llm.WithUsageLedger(ledger))
		}
		return llm.Wrap(inner, mws...)
	}
	return llm.NewGateway(chain(fast), chain(strong)), nil
}

func newProviderClients(ctx context.Context, cfg config.LLMConfig) (fast, strong llm.LLMClient, err error) {
	switch cfg.Provider {
	case "groq":
		f, err := llm.NewGroqClient(cfg.GroqAPIKey, cfg.FastModel)
		if err != nil {
			return nil, nil, err
		}
		s, err := llm.NewGroqClient(cfg.GroqAPIKey, cfg.StrongModel)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("llm: groq has no search tool; grounded calls return no sources")
		return f, s, nil
	default:
		f, err := llm.NewGeminiClient(ctx, cfg.APIKey, cfg.FastModel)
		if err != nil {
			return nil, nil, err
		}
		s, err := llm.NewGeminiClient(ctx, cfg.APIKey, cfg.StrongModel)
		if err != nil {
			return nil, nil, err
		}
		return f, s, nil
	}
}

type App struct {
	components *Components
	server     *server.Server
}

func New(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c, err := Build(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	reportHandler := rpc.NewReportHandler(c.Service)
	wsHandler := handler.NewReportWSHandler(c.Service)
	traceHandler := handler.NewTraceHandler(c.Traces)
	healthHandler := handler.NewHealthHandler(Version, c.Store)

	// Routing & Server
	mux := server.NewMux(reportHandler, wsHandler, traceHandler, healthHandler, cfg.AllowedOrigins)
	srv := server.New(cfg.Port, mux)

	return &App{
		components: c,
		server:     srv,
	}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	return errors.Join(err, a.components.Close())
}
