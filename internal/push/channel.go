// Package push keeps the terminal's persistent server connection.
//
// A Channel owns one connection at a time, tracks which gate it is subscribed
// to and reconnects with a linear, bounded backoff when the connection drops.
// Inbound zone updates are upserted into the zone registry and admin updates
// are appended to the audit log. Transport failures never surface as errors
// to callers; they are visible only as status changes.
package push

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alfredjeanlab/parkgate/internal/model"
)

// Reconnect defaults.
const (
	DefaultBaseDelay   = time.Second
	DefaultMaxAttempts = 5
)

// Status is the connection state of a Channel.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnected
)

func (s Status) String() string {
	if s == StatusConnected {
		return "connected"
	}
	return "disconnected"
}

// ZoneSink receives zone updates.
type ZoneSink interface {
	Upsert(z model.Zone)
}

// AuditSink receives admin audit entries.
type AuditSink interface {
	Add(e model.AuditEntry)
}

// ScheduleFunc runs f once after d. The returned stop function cancels the
// call if it has not started yet.
type ScheduleFunc func(d time.Duration, f func()) (stop func() bool)

func afterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Options configures a Channel. Zero values select the defaults.
type Options struct {
	BaseDelay   time.Duration
	MaxAttempts int
	Logger      *zap.Logger
	Schedule    ScheduleFunc
}

// Channel is the push connection. It is safe for concurrent use.
type Channel struct {
	dialer Dialer
	zones  ZoneSink
	audit  AuditSink
	log    *zap.Logger

	baseDelay   time.Duration
	maxAttempts int
	schedule    ScheduleFunc

	mu        sync.Mutex
	conn      Conn
	status    Status
	dialing   bool
	gateID    string
	attempts  int
	gen       uint64
	stopTimer func() bool

	nextWatch int
	watchers  map[int]chan Status
}

// New creates a disconnected channel. audit may be nil.
func New(dialer Dialer, zones ZoneSink, audit AuditSink, opts Options) *Channel {
	c := &Channel{
		dialer:      dialer,
		zones:       zones,
		audit:       audit,
		log:         opts.Logger,
		baseDelay:   opts.BaseDelay,
		maxAttempts: opts.MaxAttempts,
		schedule:    opts.Schedule,
		watchers:    make(map[int]chan Status),
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.baseDelay <= 0 {
		c.baseDelay = DefaultBaseDelay
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.schedule == nil {
		c.schedule = afterFunc
	}
	return c
}

// Connect starts opening a connection in the background. It does nothing when
// a connection is open or a dial is already in progress. An explicit Connect
// also cancels a pending reconnect timer and dials immediately.
func (c *Channel) Connect() {
	c.mu.Lock()
	if c.conn != nil || c.dialing {
		c.mu.Unlock()
		return
	}
	c.cancelTimerLocked()
	c.dialing = true
	gen := c.gen
	c.mu.Unlock()

	go c.dial(gen)
}

// Subscribe records gateID as the active gate and, when connected, sends a
// subscribe message. A previous gate is replaced without an unsubscribe.
func (c *Channel) Subscribe(gateID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gateID = gateID
	if c.conn != nil {
		c.sendLocked(TypeSubscribe, gateID)
	}
}

// Unsubscribe sends an unsubscribe message for the tracked gate when connected
// and clears the tracked gate either way.
func (c *Channel) Unsubscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && c.gateID != "" {
		c.sendLocked(TypeUnsubscribe, c.gateID)
	}
	c.gateID = ""
}

// Disconnect closes the connection and clears all channel state. Nothing it
// closes will trigger a reconnect.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.gen++
	c.cancelTimerLocked()
	conn := c.conn
	c.conn = nil
	c.dialing = false
	c.gateID = ""
	c.attempts = 0
	c.setStatusLocked(StatusDisconnected)
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

// Status returns the current connection status.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// GateID returns the tracked gate subscription, or "".
func (c *Channel) GateID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gateID
}

// Attempts returns the reconnect attempt counter.
func (c *Channel) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// WatchStatus returns a channel that always holds the most recent status
// change not yet read. Call the returned cancel function to stop watching.
func (c *Channel) WatchStatus() (<-chan Status, func()) {
	ch := make(chan Status, 1)

	c.mu.Lock()
	id := c.nextWatch
	c.nextWatch++
	c.watchers[id] = ch
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.watchers, id)
			close(ch)
			c.mu.Unlock()
		})
	}
	return ch, cancel
}

func (c *Channel) dial(gen uint64) {
	conn, err := c.dialer.Dial(context.Background())

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		// Disconnected while dialing.
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	c.dialing = false

	if err != nil {
		c.log.Warn("push channel dial failed", zap.Error(err), zap.Int("attempts", c.attempts))
		c.setStatusLocked(StatusDisconnected)
		c.scheduleReconnectLocked(gen)
		return
	}

	c.conn = conn
	c.attempts = 0
	c.setStatusLocked(StatusConnected)
	c.log.Info("push channel connected")
	if c.gateID != "" {
		c.sendLocked(TypeSubscribe, c.gateID)
	}

	go c.readLoop(conn, gen)
}

func (c *Channel) readLoop(conn Conn, gen uint64) {
	for {
		data, err := conn.ReadMessage()

		c.mu.Lock()
		if gen != c.gen || c.conn != conn {
			c.mu.Unlock()
			return
		}
		if err != nil {
			c.handleLossLocked(err)
			c.mu.Unlock()
			return
		}
		c.dispatchLocked(data)
		c.mu.Unlock()
	}
}

func (c *Channel) handleLossLocked(err error) {
	_ = c.conn.Close()
	c.conn = nil
	c.setStatusLocked(StatusDisconnected)
	c.log.Info("push channel connection lost", zap.Error(err))
	c.scheduleReconnectLocked(c.gen)
}

// scheduleReconnectLocked arms the reconnect timer unless the attempt ceiling
// has been reached. The delay before attempt n is baseDelay*n.
func (c *Channel) scheduleReconnectLocked(gen uint64) {
	if c.attempts >= c.maxAttempts {
		c.log.Warn("max reconnection attempts reached", zap.Int("attempts", c.attempts))
		return
	}
	c.attempts++
	delay := c.baseDelay * time.Duration(c.attempts)
	c.log.Info("push channel reconnecting",
		zap.Int("attempt", c.attempts),
		zap.Int("max_attempts", c.maxAttempts),
		zap.Duration("delay", delay))
	c.stopTimer = c.schedule(delay, func() { c.reconnect(gen) })
}

func (c *Channel) reconnect(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.conn != nil || c.dialing {
		c.mu.Unlock()
		return
	}
	c.stopTimer = nil
	c.dialing = true
	c.mu.Unlock()

	c.dial(gen)
}

func (c *Channel) cancelTimerLocked() {
	if c.stopTimer != nil {
		c.stopTimer()
		c.stopTimer = nil
	}
}

func (c *Channel) dispatchLocked(data []byte) {
	msg, err := DecodeInbound(data)
	if err != nil {
		c.log.Warn("dropping malformed push message", zap.Error(err))
		return
	}

	switch m := msg.(type) {
	case ZoneUpdate:
		c.zones.Upsert(m.Zone)
	case AdminUpdate:
		if c.audit != nil {
			c.audit.Add(m.Entry)
		}
	case Unrecognized:
		c.log.Debug("ignoring push message", zap.String("type", m.Type))
	}
}

func (c *Channel) sendLocked(typ, gateID string) {
	data, err := EncodeGate(typ, gateID)
	if err != nil {
		c.log.Error("encoding push message", zap.String("type", typ), zap.Error(err))
		return
	}
	if err := c.conn.WriteMessage(data); err != nil {
		// The read loop notices the broken connection and reconnects.
		c.log.Warn("push channel write failed", zap.String("type", typ), zap.Error(err))
	}
}

func (c *Channel) setStatusLocked(s Status) {
	if c.status == s {
		return
	}
	c.status = s
	for _, ch := range c.watchers {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}
