// Package nats provides a thin JetStream publish client for notification
// events.
package nats

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/voltora-energy/be-install-workflow/internal/platform/errors"
)

// Client publishes messages to a JetStream stream.
type Client struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// Connect dials the NATS server and ensures the notification stream exists.
func Connect(url, streamName, subjectPrefix string) (*Client, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to connect to NATS")
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get JetStream context")
	}

	// Idempotent: AddStream on an existing stream with the same config is a no-op.
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{subjectPrefix + ".>"},
		Storage:  nats.FileStorage,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		conn.Close()
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to ensure notification stream")
	}

	return &Client{conn: conn, js: js}, nil
}

// Publish sends one message to the given subject.
func (c *Client) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := c.js.Publish(subject, data, nats.Context(ctx))
	return err
}

// Close drains and closes the connection.
func (c *Client) Close() {
	if c.conn != nil {
		_ = c.conn.Drain()
	}
}
