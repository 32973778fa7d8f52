// Package events announces finished build passes to other systems.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/config"
)

const DefaultSubject = "erlbuild.passes"

// PassEvent is published once per finished pass.
type PassEvent struct {
	PassID    string    `json:"pass_id"`
	Project   string    `json:"project"`
	Root      string    `json:"root"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	Compiled  int       `json:"compiled"`
	Errors    int       `json:"errors"`
	Warnings  int       `json:"warnings"`
	ElapsedMS int64     `json:"elapsed_ms"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, event PassEvent) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, PassEvent) error { return nil }
func (Nop) Close() error                             { return nil }

type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATSPublisher sends events as JSON on <subject>.<project>.
type NATSPublisher struct {
	conn    conn
	subject string
	log     *zap.Logger
}

func NewNATSPublisher(cfg *config.EventsConfig, log *zap.Logger) (*NATSPublisher, error) {
	if cfg.NATSURL == "" {
		return nil, fmt.Errorf("events.nats_url is required")
	}
	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("erlbuild"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("disconnected from NATS", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info("NATS publisher initialized",
		zap.String("url", cfg.NATSURL),
		zap.String("subject", subjectOf(cfg)))
	return newNATSPublisher(nc, subjectOf(cfg), log), nil
}

func newNATSPublisher(c conn, subject string, log *zap.Logger) *NATSPublisher {
	return &NATSPublisher{conn: c, subject: subject, log: log}
}

func (p *NATSPublisher) Publish(ctx context.Context, event PassEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := p.subject + "." + Token(event.Project)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	fctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.conn.FlushWithContext(fctx); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}

	p.log.Debug("published pass event",
		zap.String("subject", subject),
		zap.String("pass_id", event.PassID))
	return nil
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// Token turns a project name into a single subject token.
func Token(name string) string {
	if name == "" {
		return "_"
	}
	out := []byte(name)
	for i, c := range out {
		switch c {
		case '.', '*', '>', ' ', '\t':
			out[i] = '_'
		}
	}
	return string(out)
}

func subjectOf(cfg *config.EventsConfig) string {
	if cfg.Subject == "" {
		return DefaultSubject
	}
	return cfg.Subject
}
