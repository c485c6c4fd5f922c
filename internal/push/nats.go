package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
)

// NATS subjects. Gate updates are published per gate; admin audit entries go
// to a shared subject. Subscribe and unsubscribe envelopes are mirrored to the
// control subject so the backend can track which gates are watched.
const (
	SubjectGatePrefix = "parking.gates."
	SubjectAdmin      = "parking.admin"
	SubjectControl    = "parking.control"
)

// GateSubject returns the subject carrying updates for one gate.
func GateSubject(gateID string) string {
	return SubjectGatePrefix + gateID
}

// ErrConnClosed is returned by ReadMessage once a NATS-backed connection is closed.
var ErrConnClosed = errors.New("push connection closed")

// NATSDialer opens push connections over a NATS bus instead of a websocket.
// Messages on the bus are the same {type, payload} envelopes. nats.go's own
// reconnection is disabled so the Channel reconnect policy is the only retry.
type NATSDialer struct {
	URL string
	// Options are appended to the defaults (e.g. nats.Token, nats.Name).
	Options []nats.Option
}

// Dial connects to NATS and subscribes to the admin subject.
func (d *NATSDialer) Dial(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := &natsConn{
		msgs:   make(chan []byte, 64),
		closed: make(chan struct{}),
	}
	defaults := []nats.Option{
		nats.NoReconnect(),
		nats.Name("parkgate"),
		nats.ClosedHandler(func(_ *nats.Conn) { c.markClosed() }),
	}
	nc, err := nats.Connect(d.URL, append(defaults, d.Options...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", d.URL, err)
	}
	c.nc = nc

	admin, err := nc.Subscribe(SubjectAdmin, c.deliver)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", SubjectAdmin, err)
	}
	c.admin = admin
	// Flush ensures the subscription is registered on the server before
	// returning, so that messages published on other connections are routed.
	if err := nc.Flush(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("flushing subscription: %w", err)
	}
	return c, nil
}

type natsConn struct {
	nc    *nats.Conn
	admin *nats.Subscription

	mu   sync.Mutex
	gate *nats.Subscription

	msgs       chan []byte
	closed     chan struct{}
	closedOnce sync.Once
}

func (c *natsConn) deliver(msg *nats.Msg) {
	select {
	case c.msgs <- msg.Data:
	case <-c.closed:
	}
}

func (c *natsConn) markClosed() {
	c.closedOnce.Do(func() { close(c.closed) })
}

func (c *natsConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.msgs:
		return data, nil
	case <-c.closed:
		return nil, ErrConnClosed
	}
}

// WriteMessage interprets subscribe and unsubscribe envelopes as changes to
// the gate subscription and mirrors every envelope to the control subject.
func (c *natsConn) WriteMessage(data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decoding outbound envelope: %w", err)
	}
	var gp GatePayload
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &gp); err != nil {
			return fmt.Errorf("decoding %s payload: %w", env.Type, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch env.Type {
	case TypeSubscribe:
		if c.gate != nil {
			_ = c.gate.Unsubscribe()
			c.gate = nil
		}
		sub, err := c.nc.Subscribe(GateSubject(gp.GateID), c.deliver)
		if err != nil {
			return fmt.Errorf("subscribing to gate %s: %w", gp.GateID, err)
		}
		c.gate = sub
	case TypeUnsubscribe:
		if c.gate != nil {
			_ = c.gate.Unsubscribe()
			c.gate = nil
		}
	}

	if err := c.nc.Publish(SubjectControl, data); err != nil {
		return err
	}
	return c.nc.Flush()
}

func (c *natsConn) Close() error {
	c.markClosed()
	c.nc.Close()
	return nil
}
