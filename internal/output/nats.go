package output

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSConnection owns the connection behind a NATSSink.
type NATSConnection struct {
	conn *nats.Conn
	*NATSSink
}

// DialNATS connects to url and returns a sink publishing to subject.
func DialNATS(url, subject string) (*NATSConnection, error) {
	if subject == "" {
		return nil, fmt.Errorf("nats subject is required")
	}
	conn, err := nats.Connect(url, nats.Name("prerender"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Info("NATS output sink connected", "url", url, "subject", subject)
	return &NATSConnection{conn: conn, NATSSink: NewNATSSink(conn, subject)}, nil
}

// Close flushes pending messages and closes the connection.
func (c *NATSConnection) Close(ctx context.Context) error {
	defer c.conn.Close()
	if err := c.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush NATS: %w", err)
	}
	return nil
}
