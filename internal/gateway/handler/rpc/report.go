package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"

	snaprepo "github.com/reny1cao/crypto-insights/internal/gateway/repository/snapshot"
	"github.com/reny1cao/crypto-insights/internal/gateway/report"
	"github.com/reny1cao/crypto-insights/internal/types"
	"github.com/reny1cao/crypto-insights/internal/workers/analyst"
)

type ReportHandler struct {
	svc *report.Service
}

func NewReportHandler(svc *report.Service) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// Mount registers every ReportService procedure on mux.
func (h *ReportHandler) Mount(mux *http.ServeMux, opts ...connect.HandlerOption) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	mux.Handle(GenerateReportProcedure, connect.NewUnaryHandler(GenerateReportProcedure, h.GenerateReport, opts...))
	mux.Handle(GetSnapshotProcedure, connect.NewUnaryHandler(GetSnapshotProcedure, h.GetSnapshot, opts...))
	mux.Handle(ListReportsProcedure, connect.NewUnaryHandler(ListReportsProcedure, h.ListReports, opts...))
	mux.Handle(WatchReportProcedure, connect.NewServerStreamHandler(WatchReportProcedure, h.WatchReport, opts...))
	mux.Handle(ChatProcedure, connect.NewUnaryHandler(ChatProcedure, h.Chat, opts...))
	mux.Handle(DeepAnalysisProcedure, connect.NewUnaryHandler(DeepAnalysisProcedure, h.DeepAnalysis, opts...))
}

func (h *ReportHandler) GenerateReport(ctx context.Context, req *connect.Request[GenerateReportRequest]) (*connect.Response[GenerateReportResponse], error) {
	if !req.Msg.Wait {
		runID, date, err := h.svc.Start(req.Msg.Date)
		if err != nil {
			return nil, toReportError(err)
		}
		out := &GenerateReportResponse{RunID: runID, Date: date, Stage: types.StagePlanning}
		if st, err := h.svc.Snapshot(ctx, date); err == nil {
			out.Stage = st.Stage
		}
		return connect.NewResponse(out), nil
	}

	res, err := h.svc.Generate(ctx, req.Msg.Date, nil)
	out := &GenerateReportResponse{RunID: res.RunID, Date: res.Date, Cached: res.Cached}
	if res.State != nil {
		out.Stage = res.State.Stage
	}
	switch {
	case err == nil:
		out.Report = res.Report()
	case res.State != nil && res.State.Stage == types.StageError:
		// A failed run is reported in the body.
		out.Error = res.State.Error
	default:
		return nil, toReportError(err)
	}
	return connect.NewResponse(out), nil
}

func (h *ReportHandler) GetSnapshot(ctx context.Context, req *connect.Request[SnapshotRequest]) (*connect.Response[types.ProcessState], error) {
	st, err := h.svc.Snapshot(ctx, req.Msg.Date)
	if err != nil {
		return nil, toReportError(err)
	}
	return connect.NewResponse(st), nil
}

func (h *ReportHandler) ListReports(ctx context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[ListReportsResponse], error) {
	dates, err := h.svc.List(ctx)
	if err != nil {
		return nil, toReportError(err)
	}
	if dates == nil {
		dates = []string{}
	}
	return connect.NewResponse(&ListReportsResponse{Dates: dates}), nil
}

func (h *ReportHandler) WatchReport(ctx context.Context, req *connect.Request[SnapshotRequest], stream *connect.ServerStream[WatchReportResponse]) error {
	updates, err := h.svc.Watch(ctx, req.Msg.Date)
	if err != nil {
		return toReportError(err)
	}
	for st := range updates {
		if err := stream.Send(&WatchReportResponse{State: st, SentAt: timestamppb.Now()}); err != nil {
			return connect.NewError(connect.CodeInternal, fmt.Errorf("failed to send snapshot: %w", err))
		}
	}
	return nil
}

func (h *ReportHandler) Chat(ctx context.Context, req *connect.Request[ChatRequest]) (*connect.Response[ChatResponse], error) {
	reply, err := h.svc.Chat(ctx, req.Msg.Date, req.Msg.History, req.Msg.Message)
	if err != nil {
		return nil, toReportError(err)
	}
	return connect.NewResponse(&ChatResponse{Reply: reply}), nil
}

func (h *ReportHandler) DeepAnalysis(ctx context.Context, req *connect.Request[DeepAnalysisRequest]) (*connect.Response[DeepAnalysisResponse], error) {
	answer, err := h.svc.DeepAnalysis(ctx, req.Msg.Query)
	if err != nil {
		return nil, toReportError(err)
	}
	return connect.NewResponse(&DeepAnalysisResponse{Answer: answer}), nil
}

func toReportError(err error) error {
	switch {
	case errors.Is(err, snaprepo.ErrNotFound), errors.Is(err, report.ErrNoReport):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, analyst.ErrEmptyQuery):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid date"), strings.Contains(msg, "has role"):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, fmt.Errorf("report service failed: %w", err))
	}
}
