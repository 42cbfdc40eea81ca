package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/reny1cao/crypto-insights/internal/types"
)

const DefaultSubject = "crypto.reports"

// NATSPublisher publishes every snapshot as JSON on <subject>.<date>.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

func Connect(url, subject string) (*NATSPublisher, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("nats url is required")
	}
	conn, err := nats.Connect(url,
		nats.Name("crypto-insights-gateway"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{conn: conn, subject: SubjectPrefix(subject)}, nil
}

// SubjectPrefix trims subject and falls back to DefaultSubject.
func SubjectPrefix(subject string) string {
	subject = strings.Trim(strings.TrimSpace(subject), ".")
	if subject == "" {
		return DefaultSubject
	}
	return subject
}

// Subject is the subject a snapshot for date is published on.
func (p *NATSPublisher) Subject(date string) string {
	return p.subject + "." + date
}

func (p *NATSPublisher) Publish(ctx context.Context, st *types.ProcessState) error {
	if p == nil || p.conn == nil {
		return errors.New("nats publisher is not connected")
	}
	if st == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return p.conn.Publish(p.Subject(st.Date), raw)
}

func (p *NATSPublisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
