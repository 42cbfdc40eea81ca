package server

import (
	"net/http"

	"github.com/reny1cao/crypto-insights/internal/gateway/handler"
	"github.com/reny1cao/crypto-insights/internal/gateway/handler/rpc"
	"github.com/reny1cao/crypto-insights/internal/gateway/middleware"
)

func NewMux(
	reportHandler *rpc.ReportHandler,
	wsHandler *handler.ReportWSHandler,
	traceHandler *handler.TraceHandler,
	healthHandler *handler.HealthHandler,
	allowedOrigins []string,
) http.Handler {
	mux := http.NewServeMux()

	// RPC Handlers
	reportHandler.Mount(mux)

	// Live snapshots
	mux.HandleFunc("/ws/reports", wsHandler.HandleReportWS)

	// Debug Handlers
	mux.HandleFunc("/debug/frontend-trace", traceHandler.HandleFrontendTrace)
	mux.HandleFunc("/debug/run-logs", traceHandler.HandleRunLogs)
	mux.HandleFunc("/healthz", healthHandler.HandleHealth)

	// Middleware
	return middleware.CORS(allowedOrigins...)(mux)
}
