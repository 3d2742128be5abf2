package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher sends JSON events to NATS subjects.
type Publisher struct {
	nc *nats.Conn
}

// Connect dials NATS with reconnects enabled.
func Connect(url, clientName string) (*Publisher, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name(clientName),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{nc: nc}, nil
}

func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc}
}

// Publish marshals payload and publishes it. Delivery is fire-and-forget.
func (p *Publisher) Publish(ctx context.Context, subject string, payload any) error {
	if p == nil || p.nc == nil || p.nc.IsClosed() {
		return nats.ErrConnectionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", subject, err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close drains pending messages then closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil || p.nc.IsClosed() {
		return
	}
	_ = p.nc.Drain()
}
