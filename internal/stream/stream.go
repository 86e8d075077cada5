// Package stream consumes the alert push channel over a websocket and routes
// each event to the reconciliation engine.
//
// The connection is kept alive with pings and re-established with an
// exponential backoff capped at MaxBackoff. Every successful (re)connect
// invokes OnConnect so the caller can reconcile events missed while offline.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/amirphl/alertdesk/internal/remote"
	"github.com/amirphl/alertdesk/internal/utils"
	"github.com/gorilla/websocket"
)

// Push event names.
const (
	EventCreated = "alert-created"
	EventFired   = "alert-fired"
	EventRemoved = "alert-removed"
)

const (
	DefaultPingInterval = 20 * time.Second
	DefaultReadTimeout  = 60 * time.Second
	InitialBackoff      = time.Second
	MaxBackoff          = 60 * time.Second
)

var ErrUnknownEvent = errors.New("unknown push event")

// ConnectionState represents the state of the websocket connection
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Reconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Handler is the receiving side of push events.
type Handler interface {
	HandlePushCreate(ctx context.Context, marketID string, alertID int, ts time.Time, payload []byte) error
	HandlePushFire(ctx context.Context, marketID string, alertID int, ts time.Time, payload []byte) error
	HandlePushRemove(ctx context.Context, marketID string, alertID int, ts time.Time) bool
}

// Message is one push event.
type Message struct {
	Event     string          `json:"event"`
	MarketID  string          `json:"market-id"`
	AlertID   int             `json:"alert-id"`
	Timestamp float64         `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type Options struct {
	Header       http.Header
	OnConnect    func(ctx context.Context)
	PingInterval time.Duration
	ReadTimeout  time.Duration
	Backoff      time.Duration
	Dialer       *websocket.Dialer
}

type Client struct {
	url     string
	handler Handler
	opts    Options

	mu        sync.RWMutex
	conn      *websocket.Conn
	cancel    context.CancelFunc
	done      chan struct{}
	closed    bool
	state     ConnectionState
	healthErr error
	lastPing  time.Time
	lastPong  time.Time
}

func NewClient(url string, handler Handler, opts Options) *Client {
	if opts.PingInterval <= 0 {
		opts.PingInterval = DefaultPingInterval
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.Backoff <= 0 {
		opts.Backoff = InitialBackoff
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &Client{url: url, handler: handler, opts: opts, state: Disconnected}
}

// Start runs the connection loop in the background until ctx is done or
// Close is called.
func (c *Client) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go func() {
		defer close(done)
		c.run(ctx)
	}()
}

// Close stops the loop and waits for it to exit.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	if c.conn != nil {
		c.conn.Close()
	}
	done := c.done
	c.mu.Unlock()

	if done != nil {
		<-done
	}
	c.setState(Disconnected)
	c.logState("Closed connection")
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == Connected
}

func (c *Client) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Health returns the last connection error, or an error when a connected
// peer stopped answering pings.
func (c *Client) Health() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.healthErr != nil {
		return c.healthErr
	}
	if c.state == Connected && c.lastPing.Sub(c.lastPong) > c.opts.ReadTimeout {
		return fmt.Errorf("no pong since %s", c.lastPong.Format(time.RFC3339))
	}
	return nil
}

func (c *Client) run(ctx context.Context) {
	retryDelay := c.opts.Backoff
	for {
		if ctx.Err() != nil {
			c.logState("Context cancelled, stopping push stream")
			return
		}

		connected, err := c.connectAndStream(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			retryDelay = c.opts.Backoff
		}
		c.setHealthErr(err)
		c.setState(Reconnecting)
		c.logState("Disconnected, retrying in %v: %v", retryDelay, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
		retryDelay *= 2
		if retryDelay > MaxBackoff {
			retryDelay = MaxBackoff
		}
	}
}

// connectAndStream reports whether the dial succeeded, and the error that
// ended the session.
func (c *Client) connectAndStream(ctx context.Context) (bool, error) {
	c.setState(Connecting)

	conn, _, err := c.opts.Dialer.DialContext(ctx, c.url, c.opts.Header)
	if err != nil {
		return false, err
	}
	c.setConn(conn)
	c.setState(Connected)
	c.setHealthErr(nil)
	c.setLastPing(time.Now())
	c.setLastPong(time.Now())
	c.logState("Connection established to %s", c.url)
	defer func() {
		conn.Close()
		c.setConn(nil)
		c.setState(Disconnected)
	}()

	conn.SetPongHandler(func(string) error {
		c.setLastPong(time.Now())
		return conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
	})

	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go c.pingLoop(pingCtx, conn)

	if c.opts.OnConnect != nil {
		go c.opts.OnConnect(ctx)
	}

	for {
		if err := conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout)); err != nil {
			return true, err
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		if err := Dispatch(ctx, c.handler, data); err != nil {
			utils.GetLogger().Warnf("Stream | %v", err)
		}
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.opts.PingInterval)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logState("Ping failed: %v", err)
				return
			}
			c.setLastPing(time.Now())
		}
	}
}

// Dispatch decodes one push message and routes it to h.
func Dispatch(ctx context.Context, h Handler, data []byte) error {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("invalid push message: %w", err)
	}
	ts := remote.FromUnix(msg.Timestamp)
	if ts.IsZero() {
		ts = time.Now()
	}

	switch msg.Event {
	case EventCreated:
		return h.HandlePushCreate(ctx, msg.MarketID, msg.AlertID, ts, msg.Data)
	case EventFired:
		return h.HandlePushFire(ctx, msg.MarketID, msg.AlertID, ts, msg.Data)
	case EventRemoved:
		h.HandlePushRemove(ctx, msg.MarketID, msg.AlertID, ts)
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Event)
	}
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
}

func (c *Client) setState(state ConnectionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

func (c *Client) setHealthErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.healthErr = err
}

func (c *Client) setLastPing(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPing = t
}

func (c *Client) setLastPong(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPong = t
}

func (c *Client) logState(format string, args ...any) {
	utils.GetLogger().Infof("Stream | "+format, args...)
}
