package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/reny1cao/crypto-insights/internal/gateway/app"
	"github.com/reny1cao/crypto-insights/internal/gateway/config"
	"github.com/reny1cao/crypto-insights/internal/gateway/handler/rpc"
	"github.com/reny1cao/crypto-insights/internal/types"
)

var stdout io.Writer = os.Stdout

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func (c *CLI) remote() *rpc.Client {
	if strings.TrimSpace(c.Server) == "" {
		return nil
	}
	return rpc.NewClient(http.DefaultClient, c.Server)
}

func (c *CLI) local(ctx context.Context) (*app.Components, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	return app.Build(ctx, cfg)
}

func (g *GenerateCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	logs := newLogPrinter(stdout)
	if g.Quiet {
		logs = nil
	}

	var (
		report *types.CryptoReportData
		state  *types.ProcessState
	)
	if client := cli.remote(); client != nil {
		started, err := client.GenerateReport(ctx, g.Date, false)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "run %s for %s\n", started.RunID, started.Date)
		err = client.Watch(ctx, started.Date, func(f *rpc.WatchReportResponse) error {
			logs.Print(f.State)
			state = f.State
			return nil
		})
		if err != nil {
			return err
		}
		if state == nil {
			return errors.New("gateway sent no snapshot")
		}
		if state.Stage == types.StageError {
			return errors.New(state.Error)
		}
		report = state.FinalReport
	} else {
		comps, err := cli.local(ctx)
		if err != nil {
			return err
		}
		defer comps.Close()
		out, err := comps.Service.Generate(ctx, g.Date, logs.Print)
		if err != nil {
			return err
		}
		if out.Cached {
			fmt.Fprintf(stdout, "replayed stored report for %s\n", out.Date)
		}
		report = out.Report()
	}
	if g.JSON {
		return writeJSON(stdout, report)
	}
	printReport(stdout, report)
	return nil
}

func (s *ShowCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	var (
		st  *types.ProcessState
		err error
	)
	if client := cli.remote(); client != nil {
		st, err = client.Snapshot(ctx, s.Date)
	} else {
		comps, lerr := cli.local(ctx)
		if lerr != nil {
			return lerr
		}
		defer comps.Close()
		st, err = comps.Service.Snapshot(ctx, s.Date)
	}
	if err != nil {
		return err
	}
	if s.JSON {
		return writeJSON(stdout, st)
	}
	if s.Log {
		p := newLogPrinter(stdout)
		p.Print(st)
	}
	fmt.Fprintf(stdout, "%s  stage=%s  iteration=%d\n", st.Date, st.Stage, st.CurrentIteration)
	if st.Error != "" {
		fmt.Fprintf(stdout, "error: %s\n", st.Error)
	}
	printReport(stdout, st.FinalReport)
	return nil
}

func (l *ListCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	var (
		dates []string
		err   error
	)
	if client := cli.remote(); client != nil {
		dates, err = client.List(ctx)
	} else {
		comps, lerr := cli.local(ctx)
		if lerr != nil {
			return lerr
		}
		defer comps.Close()
		dates, err = comps.Service.List(ctx)
	}
	if err != nil {
		return err
	}
	for _, d := range dates {
		fmt.Fprintln(stdout, d)
	}
	return nil
}

func (w *WatchCmd) Run(cli *CLI) error {
	client := cli.remote()
	if client == nil {
		return errors.New("watch needs --server")
	}
	ctx, cancel := signalContext()
	defer cancel()

	logs := newLogPrinter(stdout)
	var last *types.ProcessState
	err := client.Watch(ctx, w.Date, func(f *rpc.WatchReportResponse) error {
		logs.Print(f.State)
		last = f.State
		return nil
	})
	if err != nil {
		return err
	}
	if last != nil && last.Stage.Terminal() {
		fmt.Fprintf(stdout, "finished: %s\n", last.Stage)
	}
	return nil
}

func (a *AskCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	var (
		reply string
		err   error
	)
	if client := cli.remote(); client != nil {
		reply, err = client.Chat(ctx, &rpc.ChatRequest{Date: a.Date, Message: a.Message})
	} else {
		comps, lerr := cli.local(ctx)
		if lerr != nil {
			return lerr
		}
		defer comps.Close()
		reply, err = comps.Service.Chat(ctx, a.Date, nil, a.Message)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, reply)
	return nil
}

func (d *DeepCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	var (
		answer string
		err    error
	)
	if client := cli.remote(); client != nil {
		answer, err = client.DeepAnalysis(ctx, d.Query)
	} else {
		comps, lerr := cli.local(ctx)
		if lerr != nil {
			return lerr
		}
		defer comps.Close()
		answer, err = comps.Service.DeepAnalysis(ctx, d.Query)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, answer)
	return nil
}

func (v *VersionCmd) Run(*CLI) error {
	fmt.Fprintf(stdout, "cryptodesk %s (commit %s, built %s)\n", version, commit, buildTime)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
