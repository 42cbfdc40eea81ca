package rpc

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/reny1cao/crypto-insights/internal/types"
)

// Client calls a remote ReportService.
type Client struct {
	generate *connect.Client[GenerateReportRequest, GenerateReportResponse]
	snapshot *connect.Client[SnapshotRequest, types.ProcessState]
	list     *connect.Client[emptypb.Empty, ListReportsResponse]
	watch    *connect.Client[SnapshotRequest, WatchReportResponse]
	chat     *connect.Client[ChatRequest, ChatResponse]
	deep     *connect.Client[DeepAnalysisRequest, DeepAnalysisResponse]
}

func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &Client{
		generate: connect.NewClient[GenerateReportRequest, GenerateReportResponse](httpClient, baseURL+GenerateReportProcedure, opts...),
		snapshot: connect.NewClient[SnapshotRequest, types.ProcessState](httpClient, baseURL+GetSnapshotProcedure, opts...),
		list:     connect.NewClient[emptypb.Empty, ListReportsResponse](httpClient, baseURL+ListReportsProcedure, opts...),
		watch:    connect.NewClient[SnapshotRequest, WatchReportResponse](httpClient, baseURL+WatchReportProcedure, opts...),
		chat:     connect.NewClient[ChatRequest, ChatResponse](httpClient, baseURL+ChatProcedure, opts...),
		deep:     connect.NewClient[DeepAnalysisRequest, DeepAnalysisResponse](httpClient, baseURL+DeepAnalysisProcedure, opts...),
	}
}

func (c *Client) GenerateReport(ctx context.Context, date string, wait bool) (*GenerateReportResponse, error) {
	res, err := c.generate.CallUnary(ctx, connect.NewRequest(&GenerateReportRequest{Date: date, Wait: wait}))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *Client) Snapshot(ctx context.Context, date string) (*types.ProcessState, error) {
	res, err := c.snapshot.CallUnary(ctx, connect.NewRequest(&SnapshotRequest{Date: date}))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *Client) List(ctx context.Context) ([]string, error) {
	res, err := c.list.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, err
	}
	return res.Msg.Dates, nil
}

// Watch calls fn for every streamed snapshot until the stream ends.
func (c *Client) Watch(ctx context.Context, date string, fn func(*WatchReportResponse) error) error {
	stream, err := c.watch.CallServerStream(ctx, connect.NewRequest(&SnapshotRequest{Date: date}))
	if err != nil {
		return err
	}
	defer stream.Close()
	for stream.Receive() {
		if err := fn(stream.Msg()); err != nil {
			return err
		}
	}
	return stream.Err()
}

func (c *Client) Chat(ctx context.Context, req *ChatRequest) (string, error) {
	res, err := c.chat.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return "", err
	}
	return res.Msg.Reply, nil
}

func (c *Client) DeepAnalysis(ctx context.Context, query string) (string, error) {
	res, err := c.deep.CallUnary(ctx, connect.NewRequest(&DeepAnalysisRequest{Query: query}))
	if err != nil {
		return "", err
	}
	return res.Msg.Answer, nil
}
