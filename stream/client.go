// Package stream implements the upstream streaming client: it connects to
// the telemetry provider, sends the geographic subscription within a bounded
// deadline, and turns inbound frames into aisbridge.VesselRecord values on a
// channel the service controller consumes.
package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/tidewatch/aisbridge"
	"github.com/tidewatch/aisbridge/internal/utils"
)

// State is the connection lifecycle state of a Client.
type State uint8

const (
	StateIdle State = iota
	StateConnecting
	StateSubscribing
	StateReceiving
	StateClosing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateSubscribing:
		return "Subscribing"
	case StateReceiving:
		return "Receiving"
	case StateClosing:
		return "Closing"
	case StateFailed:
		return "Failed"
	default:
		return "Idle"
	}
}

// subscriptionDeadline is the hard ceiling on sending the subscription frame
// after the transport opens.
const subscriptionDeadline = 3 * time.Second

// reconnectBackoff is the fixed delay between a Failed state and the next
// Connecting attempt.
const reconnectBackoff = 1 * time.Second

// cancelGrace bounds how long an in-flight read may take to notice that the
// context passed to Start was cancelled.
const cancelGrace = 1 * time.Second

// frameConn is the minimal surface this package needs from a websocket
// connection, kept as an interface so tests can substitute a fake transport
// without opening a real socket.
type frameConn interface {
	WriteJSON(v interface{}) error
	ReadMessage() (messageType int, p []byte, err error)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// dialer abstracts the act of opening a frameConn, so tests never perform a
// real network dial.
type dialer interface {
	Dial(ctx context.Context, url string) (frameConn, error)
}

// websocketDialer is the production dialer backed by gorilla/websocket.
type websocketDialer struct{}

func (websocketDialer) Dial(ctx context.Context, url string) (frameConn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// subscriptionFrame is the one outbound message the client ever sends.
type subscriptionFrame struct {
	APIKey        string         `json:"APIKey"`
	BoundingBoxes [][2][2]float64 `json:"BoundingBoxes"`
}

// Config configures a Client.
type Config struct {
	URL         string
	APIKey      string
	BoundingBox aisbridge.BoundingBox
	Logger      *log.Logger
	Stats       *aisbridge.Stats
}

// Client implements the upstream connection state machine described for
// component C4: Idle -> Connecting -> Subscribing -> Receiving, with a
// transient Failed state driving a fixed-delay reconnect.
type Client struct {
	cfg    Config
	dialer dialer
	logger *log.Logger
	stats  *aisbridge.Stats

	records chan aisbridge.VesselRecord

	mu    sync.Mutex
	state State

	sleepFunc func(time.Duration)
	timeNow   func() time.Time
}

// New builds a Client ready to Start against the configured upstream.
func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	stats := cfg.Stats
	if stats == nil {
		stats = aisbridge.NewStats()
	}
	return &Client{
		cfg:       cfg,
		dialer:    websocketDialer{},
		logger:    logger,
		stats:     stats,
		records:   make(chan aisbridge.VesselRecord, 256),
		sleepFunc: time.Sleep,
		timeNow:   time.Now,
	}
}

// Records returns the channel of decoded vessel records. It is closed when
// Start returns.
func (c *Client) Records() <-chan aisbridge.VesselRecord {
	return c.records
}

// State reports the client's current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Start runs the connect/subscribe/receive/reconnect loop until ctx is
// cancelled. It always closes the Records channel before returning.
func (c *Client) Start(ctx context.Context) {
	defer close(c.records)
	defer c.setState(StateIdle)

	for {
		if ctx.Err() != nil {
			return
		}

		c.setState(StateConnecting)
		conn, err := c.dialer.Dial(ctx, c.cfg.URL)
		if err != nil {
			c.logger.Error("upstream dial failed", "err", fmt.Errorf("%w: %v", aisbridge.ErrUpstreamTransport, err))
			c.stats.IncErrors()
			c.setState(StateFailed)
			if !c.waitBackoff(ctx) {
				return
			}
			continue
		}

		if err := c.subscribe(conn); err != nil {
			c.logger.Error("subscription failed", "err", err)
			c.stats.IncErrors()
			_ = conn.Close()
			c.setState(StateFailed)
			if !c.waitBackoff(ctx) {
				return
			}
			continue
		}

		c.setState(StateReceiving)
		err = c.receiveLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			c.setState(StateClosing)
			return
		}
		if err != nil {
			c.logger.Error("upstream receive loop ended", "err", fmt.Errorf("%w: %v", aisbridge.ErrUpstreamTransport, err))
			c.stats.IncErrors()
		}
		c.setState(StateFailed)
		if !c.waitBackoff(ctx) {
			return
		}
	}
}

func (c *Client) waitBackoff(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(reconnectBackoff):
		return true
	}
}

func (c *Client) subscribe(conn frameConn) error {
	c.setState(StateSubscribing)
	if err := conn.SetWriteDeadline(c.timeNow().Add(subscriptionDeadline)); err != nil {
		return fmt.Errorf("%w: setting write deadline: %v", aisbridge.ErrUpstreamTransport, err)
	}
	frame := subscriptionFrame{
		APIKey:        c.cfg.APIKey,
		BoundingBoxes: [][2][2]float64{c.cfg.BoundingBox.SubscriptionJSON()},
	}
	if err := conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("%w: sending subscription: %v", aisbridge.ErrUpstreamTransport, err)
	}
	return nil
}

// receiveLoop reads frames until the connection errors or ctx is cancelled;
// after cancellation an in-flight read is cut off once cancelGrace elapses.
// Decode errors are counted and skipped; only transport errors end the loop.
func (c *Client) receiveLoop(ctx context.Context, conn frameConn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetReadDeadline(c.timeNow().Add(cancelGrace))
		case <-done:
		}
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		c.stats.IncReceived()
		record, err := aisbridge.DecodeFrame(data)
		if err != nil {
			if !errors.Is(err, aisbridge.ErrIgnoredFrame) {
				c.logger.Debug("frame decode failed", "err", err, "raw", utils.FormatSpaces(data))
				c.stats.IncErrors()
			}
			continue
		}

		select {
		case c.records <- record:
		default:
			// Bounded channel full: drop newest rather than block the
			// upstream read loop.
			c.logger.Warn("record channel full, dropping record", "mmsi", record.MMSI)
		}
	}
}
