package rpc

import (
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/reny1cao/crypto-insights/internal/llm"
	"github.com/reny1cao/crypto-insights/internal/types"
)

const ReportServiceName = "crypto.v1.ReportService"

const (
	GenerateReportProcedure = "/" + ReportServiceName + "/GenerateReport"
	GetSnapshotProcedure    = "/" + ReportServiceName + "/GetSnapshot"
	ListReportsProcedure    = "/" + ReportServiceName + "/ListReports"
	WatchReportProcedure    = "/" + ReportServiceName + "/WatchReport"
	ChatProcedure           = "/" + ReportServiceName + "/Chat"
	DeepAnalysisProcedure   = "/" + ReportServiceName + "/DeepAnalysis"
)

type GenerateReportRequest struct {
	Date string `json:"date,omitempty"`
	// Wait blocks until the run reaches a terminal stage.
	Wait bool `json:"wait,omitempty"`
}

type GenerateReportResponse struct {
	RunID  string                  `json:"run_id"`
	Date   string                  `json:"date"`
	Stage  types.Stage             `json:"stage"`
	Cached bool                    `json:"cached"`
	Report *types.CryptoReportData `json:"report,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

type SnapshotRequest struct {
	Date string `json:"date,omitempty"`
}

type ListReportsResponse struct {
	Dates []string `json:"dates"`
}

type WatchReportResponse struct {
	State  *types.ProcessState    `json:"state"`
	SentAt *timestamppb.Timestamp `json:"sent_at"`
}

type ChatRequest struct {
	Date    string     `json:"date,omitempty"`
	History []llm.Turn `json:"history,omitempty"`
	Message string     `json:"message"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type DeepAnalysisRequest struct {
	Query string `json:"query"`
}

type DeepAnalysisResponse struct {
	Answer string `json:"answer"`
}
