// Package natsbus mirrors chat event streams onto NATS subjects so that
// other processes (UIs, persistence workers) can follow a session live.
package natsbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/appforge/core"
	"github.com/nats-io/nats.go"
)

// TopicSessionEvents is the subject carrying the events of one session.
func TopicSessionEvents(sessionID string) string {
	return fmt.Sprintf("appforge.session.%s.events", sessionID)
}

// TopicAllEvents matches the events of every session.
const TopicAllEvents = "appforge.session.*.events"

// Connect opens a NATS connection named after the application.
func Connect(url string, opts ...nats.Option) (*nats.Conn, error) {
	opts = append([]nats.Option{nats.Name("appforge")}, opts...)
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return conn, nil
}

// Publisher is a stream.Sink publishing events as JSON to the session subject.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher creates a Publisher for sessionID. It does not own conn.
func NewPublisher(conn *nats.Conn, sessionID string) *Publisher {
	return &Publisher{conn: conn, subject: TopicSessionEvents(sessionID)}
}

// Subject returns the subject events are published to.
func (p *Publisher) Subject() string { return p.subject }

// Send implements stream.Sink. The connection is flushed after the done
// event so a finished chat is fully delivered to the server.
func (p *Publisher) Send(ctx context.Context, ev core.StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	if ev.IsTerminal() {
		return p.conn.FlushWithContext(ctx)
	}
	return nil
}

// Subscribe decodes events published for sessionID and passes them to
// handler in arrival order. Undecodable messages are skipped.
func Subscribe(conn *nats.Conn, sessionID string, handler func(core.StreamEvent)) (*nats.Subscription, error) {
	return conn.Subscribe(TopicSessionEvents(sessionID), func(msg *nats.Msg) {
		var ev core.StreamEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return
		}
		handler(ev)
	})
}
