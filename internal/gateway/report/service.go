package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	snaprepo "github.com/reny1cao/crypto-insights/internal/gateway/repository/snapshot"
	"github.com/reny1cao/crypto-insights/internal/llm"
	"github.com/reny1cao/crypto-insights/internal/orchestrator"
	"github.com/reny1cao/crypto-insights/internal/types"
	"github.com/reny1cao/crypto-insights/internal/workers/analyst"
)

var (
	ErrNoReport = errors.New("no report was generated")
	// ErrStoredFailure wraps the error message of a stored failed run.
	ErrStoredFailure = errors.New("stored run failed")
)

// NoReportError is returned for a past date that has no finished snapshot.
type NoReportError struct {
	Date string
}

func (e *NoReportError) Error() string { return "No report was generated for " + e.Date }

func (e *NoReportError) Is(target error) bool { return target == ErrNoReport }

// Runner executes one report run. *orchestrator.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, date, prior string, onUpdate orchestrator.Observer) (*types.CryptoReportData, error)
}

// Publisher forwards snapshots outside the process.
type Publisher interface {
	Publish(ctx context.Context, st *types.ProcessState) error
}

// Outcome describes how a Generate call was served.
type Outcome struct {
	RunID  string
	Date   string
	Cached bool
	State  *types.ProcessState
}

// Report returns the finished report, or nil.
func (o Outcome) Report() *types.CryptoReportData {
	if o.State == nil {
		return nil
	}
	return o.State.FinalReport
}

type Options struct {
	Store     snaprepo.Store
	Runner    Runner
	Analyst   *analyst.Analyst
	Traces    *TraceLogger
	Publisher Publisher
	Now       func() time.Time
	Logger    *log.Logger
}

// Service owns report runs: it de-duplicates them per date, persists every
// published state and fans updates out to watchers.
type Service struct {
	store     snaprepo.Store
	runner    Runner
	analyst   *analyst.Analyst
	traces    *TraceLogger
	publisher Publisher
	events    *EventBroker
	now       func() time.Time
	log       *log.Logger

	group  singleflight.Group
	mu     sync.Mutex
	active map[string]string
}

func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("report: store is required")
	}
	if opts.Runner == nil {
		return nil, errors.New("report: runner is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Service{
		store:     opts.Store,
		runner:    opts.Runner,
		analyst:   opts.Analyst,
		traces:    opts.Traces,
		publisher: opts.Publisher,
		events:    NewEventBroker(),
		now:       opts.Now,
		log:       opts.Logger,
		active:    make(map[string]string),
	}, nil
}

func (s *Service) Traces() *TraceLogger { return s.traces }

// Today is the service clock's date key.
func (s *Service) Today() string {
	return s.now().Format(snaprepo.DateLayout)
}

func (s *Service) normalize(date string) (string, error) {
	if strings.TrimSpace(date) == "" {
		return s.Today(), nil
	}
	return snaprepo.NormalizeDate(date)
}

// Generate produces the report for date, or replays the stored result when a
// finished snapshot exists. onUpdate sees every state published while the
// call waits. Concurrent calls for one date share a single run.
func (s *Service) Generate(ctx context.Context, date string, onUpdate orchestrator.Observer) (Outcome, error) {
	date, err := s.normalize(date)
	if err != nil {
		return Outcome{}, err
	}
	updates, cancel := s.events.Subscribe(date)
	defer cancel()

	_, done := s.join(date)
	for {
		select {
		case st := <-updates:
			if onUpdate != nil {
				onUpdate(st)
			}
		case res := <-done:
			for drained := false; !drained; {
				select {
				case st := <-updates:
					if onUpdate != nil {
						onUpdate(st)
					}
				default:
					drained = true
				}
			}
			out, _ := res.Val.(Outcome)
			return out, res.Err
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		}
	}
}

// Start launches (or joins) the run for date in the background and returns
// its run id.
func (s *Service) Start(date string) (string, string, error) {
	date, err := s.normalize(date)
	if err != nil {
		return "", "", err
	}
	runID, _ := s.join(date)
	return runID, date, nil
}

func (s *Service) join(date string) (string, <-chan singleflight.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	runID, ok := s.active[date]
	if !ok {
		runID = uuid.NewString()
		s.active[date] = runID
	}
	done := s.group.DoChan(date, func() (any, error) {
		defer s.finish(date)
		return s.execute(date, runID)
	})
	return runID, done
}

func (s *Service) finish(date string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, date)
	s.group.Forget(date)
}

// Running reports the run id of the in-flight run for date.
func (s *Service) Running(date string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.active[date]
	return id, ok
}

func (s *Service) execute(date, runID string) (Outcome, error) {
	ctx := llm.WithRunID(context.Background(), runID)
	out := Outcome{RunID: runID, Date: date}

	stored, err := s.store.Load(ctx, date)
	switch {
	case err == nil && stored.Stage.Terminal():
		s.events.Publish(stored)
		out.Cached = true
		out.State = stored
		if stored.RunID != "" {
			out.RunID = stored.RunID
		}
		if stored.Stage == types.StageError {
			return out, fmt.Errorf("%w: %s", ErrStoredFailure, stored.Error)
		}
		return out, nil
	case err != nil && !errors.Is(err, snaprepo.ErrNotFound):
		s.log.Printf("report: load snapshot %s: %v", date, err)
	}

	if date < s.Today() {
		return out, &NoReportError{Date: date}
	}

	prior := s.priorSummary(ctx, date)
	s.traces.Append(runID, "service", "run.start", map[string]any{"date": date, "has_prior": prior != ""})

	var last *types.ProcessState
	_, runErr := s.runner.Run(ctx, date, prior, func(st *types.ProcessState) {
		last = st
		s.record(ctx, runID, st)
	})
	out.State = last
	fields := map[string]any{"date": date}
	if runErr != nil {
		fields["error"] = runErr.Error()
	}
	s.traces.Append(runID, "service", "run.end", fields)
	return out, runErr
}

func (s *Service) record(ctx context.Context, runID string, st *types.ProcessState) {
	if err := s.store.Save(ctx, st); err != nil {
		s.log.Printf("report: save snapshot %s (%s): %v", st.Date, st.Stage, err)
	}
	s.events.Publish(st)
	s.traces.State(runID, st)
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, st); err != nil {
			s.log.Printf("report: publish snapshot %s: %v", st.Date, err)
		}
	}
}

// priorSummary returns the previous day's executive summary, if any.
func (s *Service) priorSummary(ctx context.Context, date string) string {
	day, err := time.Parse(snaprepo.DateLayout, date)
	if err != nil {
		return ""
	}
	prev, err := s.store.Load(ctx, day.AddDate(0, 0, -1).Format(snaprepo.DateLayout))
	if err != nil || prev.FinalReport == nil {
		return ""
	}
	return strings.TrimSpace(prev.FinalReport.ExecutiveSummary)
}

// Snapshot returns the stored state for date.
func (s *Service) Snapshot(ctx context.Context, date string) (*types.ProcessState, error) {
	date, err := s.normalize(date)
	if err != nil {
		return nil, err
	}
	return s.store.Load(ctx, date)
}

func (s *Service) List(ctx context.Context) ([]string, error) {
	return s.store.List(ctx)
}

// Watch streams the current snapshot for date followed by live updates. The
// channel closes after a terminal state or when ctx is done.
func (s *Service) Watch(ctx context.Context, date string) (<-chan *types.ProcessState, error) {
	date, err := s.normalize(date)
	if err != nil {
		return nil, err
	}
	updates, cancel := s.events.Subscribe(date)
	current, err := s.store.Load(ctx, date)
	if err != nil && !errors.Is(err, snaprepo.ErrNotFound) {
		cancel()
		return nil, err
	}
	if current == nil {
		if _, running := s.Running(date); !running {
			cancel()
			return nil, snaprepo.ErrNotFound
		}
	}

	out := make(chan *types.ProcessState, 1)
	go func() {
		defer close(out)
		defer cancel()
		send := func(st *types.ProcessState) bool {
			select {
			case out <- st:
				return !st.Stage.Terminal()
			case <-ctx.Done():
				return false
			}
		}
		if current != nil && !send(current) {
			return
		}
		for {
			select {
			case st, ok := <-updates:
				if !ok || !send(st) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Chat answers a follow-up question. When date has a finished report its
// executive summary grounds the answer.
func (s *Service) Chat(ctx context.Context, date string, history []llm.Turn, message string) (string, error) {
	if s.analyst == nil {
		return "", errors.New("report: analyst is not configured")
	}
	summary := ""
	if date, err := s.normalize(date); err == nil {
		if st, err := s.store.Load(ctx, date); err == nil && st.FinalReport != nil {
			summary = st.FinalReport.ExecutiveSummary
		}
	}
	return s.analyst.Chat(ctx, history, message, summary)
}

func (s *Service) DeepAnalysis(ctx context.Context, query string) (string, error) {
	if s.analyst == nil {
		return "", errors.New("report: analyst is not configured")
	}
	return s.analyst.DeepAnalysis(ctx, query)
}
