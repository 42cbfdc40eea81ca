package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	snaprepo "github.com/reny1cao/crypto-insights/internal/gateway/repository/snapshot"
	"github.com/reny1cao/crypto-insights/internal/gateway/report"
	"github.com/reny1cao/crypto-insights/internal/types"
)

const (
	reportWSWriteWait = 10 * time.Second
	reportWSPongWait  = 60 * time.Second
	reportWSPingEvery = (reportWSPongWait * 9) / 10
)

var reportWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type reportWSInbound struct {
	Type string `json:"type"`
}

type reportWSOutbound struct {
	Type    string              `json:"type"`
	Date    string              `json:"date,omitempty"`
	RunID   string              `json:"runId,omitempty"`
	State   *types.ProcessState `json:"state,omitempty"`
	Code    string              `json:"code,omitempty"`
	Message string              `json:"message,omitempty"`
}

// ReportWSHandler pushes live snapshots of one report date over a websocket.
// Clients send {"type":"generate"} to start the run when none exists.
type ReportWSHandler struct {
	svc *report.Service
}

func NewReportWSHandler(svc *report.Service) *ReportWSHandler {
	return &ReportWSHandler{svc: svc}
}

func (h *ReportWSHandler) HandleReportWS(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = h.svc.Today()
	}
	date, err := snaprepo.NormalizeDate(date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := reportWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(reportWSPongWait)); err != nil {
		log.Printf("report ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(reportWSPongWait))
	})

	writeCh := make(chan reportWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(reportWSPingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(reportWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
				if out.Type == "done" {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "report finished"),
						time.Now().Add(reportWSWriteWait))
					cancel()
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(reportWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// watch is only called from this goroutine.
	watching := false
	watch := func() {
		if watching {
			return
		}
		updates, err := h.svc.Watch(ctx, date)
		if err != nil {
			code := "internal"
			if errors.Is(err, snaprepo.ErrNotFound) {
				code = "not_found"
			}
			pushReportWS(writeCh, reportWSOutbound{Type: "error", Date: date, Code: code, Message: err.Error()})
			return
		}
		watching = true
		go forwardSnapshots(ctx, writeCh, updates)
	}

	pushReportWS(writeCh, reportWSOutbound{Type: "subscribed", Date: date})
	watch()

	go func() {
		<-writerDone
		cancel()
	}()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var in reportWSInbound
		if err := json.Unmarshal(raw, &in); err != nil {
			pushReportWS(writeCh, reportWSOutbound{Type: "error", Code: "invalid_argument", Message: "invalid json message"})
			continue
		}
		switch strings.TrimSpace(in.Type) {
		case "generate":
			runID, _, err := h.svc.Start(date)
			if err != nil {
				pushReportWS(writeCh, reportWSOutbound{Type: "error", Date: date, Code: "internal", Message: err.Error()})
				continue
			}
			pushReportWS(writeCh, reportWSOutbound{Type: "started", Date: date, RunID: runID})
			watch()
		case "ping":
			pushReportWS(writeCh, reportWSOutbound{Type: "pong", Date: date})
		default:
			pushReportWS(writeCh, reportWSOutbound{Type: "error", Code: "invalid_argument", Message: "unsupported type: " + in.Type})
		}
	}
}

func forwardSnapshots(ctx context.Context, writeCh chan reportWSOutbound, updates <-chan *types.ProcessState) {
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			pushReportWS(writeCh, reportWSOutbound{Type: "snapshot", Date: st.Date, RunID: st.RunID, State: st})
			if st.Stage.Terminal() {
				pushReportWS(writeCh, reportWSOutbound{Type: "done", Date: st.Date, RunID: st.RunID})
				return
			}
		}
	}
}

// pushReportWS never blocks: when the queue is full the oldest frame is
// dropped.
func pushReportWS(writeCh chan reportWSOutbound, out reportWSOutbound) {
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
