// Package events publishes issue lifecycle events to the message bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Event types, appended to the subject prefix
const (
	IssueCreated       = "issues.created"
	IssueStatusChanged = "issues.status_changed"
	IssueAssigned      = "issues.assigned"
	IssueDeleted       = "issues.deleted"
)

// IssueEvent is the payload of every issue event
type IssueEvent struct {
	Type            string    `json:"type"`
	IssueID         uint      `json:"issueId"`
	ReferenceNumber string    `json:"referenceNumber"`
	Status          string    `json:"status,omitempty"`
	PreviousStatus  string    `json:"previousStatus,omitempty"`
	Priority        string    `json:"priority,omitempty"`
	AssignedToID    *uint     `json:"assignedToId,omitempty"`
	ActorID         uint      `json:"actorId"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// Publisher delivers issue events. Implementations must not block requests
// on delivery failures.
type Publisher interface {
	Publish(ctx context.Context, event IssueEvent) error
	Close()
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, IssueEvent) error { return nil }
func (NoopPublisher) Close()                                    {}

// natsConn is the subset of *nats.Conn used here
type natsConn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// NATSPublisher publishes JSON events on <prefix>.<type>
type NATSPublisher struct {
	conn   natsConn
	prefix string
	log    *zap.SugaredLogger
}

// NewNATSPublisher connects to url
func NewNATSPublisher(url, prefix string, log *zap.SugaredLogger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("dimos-fixit"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnw("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Infow("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newNATSPublisher(conn, prefix, log), nil
}

func newNATSPublisher(conn natsConn, prefix string, log *zap.SugaredLogger) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix, log: log}
}

// Subject returns the full subject for an event type
func (p *NATSPublisher) Subject(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

// Publish marshals and sends the event
func (p *NATSPublisher) Publish(_ context.Context, event IssueEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(p.Subject(event.Type), data); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Close drains pending messages
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.log.Warnw("nats drain failed", "error", err)
	}
}

// New returns a NATS publisher when url is set, a no-op one otherwise
func New(url, prefix string, log *zap.SugaredLogger) (Publisher, error) {
	if url == "" {
		log.Infow("event publishing disabled", "reason", "NATS_URL not set")
		return NoopPublisher{}, nil
	}
	p, err := NewNATSPublisher(url, prefix, log)
	if err != nil {
		return nil, err
	}
	log.Infow("event publishing enabled", "url", url, "prefix", prefix)
	return p, nil
}
