// Package storetest provides in-memory store.Conn and store.Dialer fakes.
package storetest

import (
	"context"
	"errors"
	"sync"

	"github.com/angeloszaimis/redis-watcher/internal/store"
)

// Conn is a scriptable store.Conn.
type Conn struct {
	mutex     sync.Mutex
	connected bool
	closed    bool
	lost      []store.Listener
	restored  []store.Listener

	// EvalFunc answers Eval. When nil, Eval returns "42".
	EvalFunc func(ctx context.Context, script string) (string, error)
	// CloseErr is returned by Close.
	CloseErr error
}

// NewConn returns a connected fake.
func NewConn() *Conn {
	return &Conn{connected: true}
}

func (c *Conn) Eval(ctx context.Context, script string) (string, error) {
	if c.EvalFunc != nil {
		return c.EvalFunc(ctx, script)
	}
	return "42", nil
}

func (c *Conn) IsConnected() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.connected && !c.closed
}

func (c *Conn) OnConnectionLost(fn store.Listener) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.lost = append(c.lost, fn)
}

func (c *Conn) OnConnectionRestored(fn store.Listener) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.restored = append(c.restored, fn)
}

func (c *Conn) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.closed = true
	return c.CloseErr
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.closed
}

// Listeners returns the number of lost and restored listeners.
func (c *Conn) Listeners() (lost, restored int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.lost), len(c.restored)
}

// Lose marks the fake disconnected and fires the lost listeners.
func (c *Conn) Lose(ev store.Event) {
	c.fire(false, ev)
}

// Restore marks the fake connected and fires the restored listeners.
func (c *Conn) Restore(ev store.Event) {
	c.fire(true, ev)
}

func (c *Conn) fire(connected bool, ev store.Event) {
	c.mutex.Lock()
	c.connected = connected
	listeners := c.lost
	if connected {
		listeners = c.restored
	}
	listeners = append([]store.Listener(nil), listeners...)
	c.mutex.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

var ErrUnreachable = errors.New("store unreachable")

// Dialer fails the first FailFirst dials with ErrUnreachable, then hands out
// connections built by NewConn (or plain fakes). A negative FailFirst fails
// every dial.
type Dialer struct {
	mutex    sync.Mutex
	attempts int
	conns    []*Conn

	FailFirst int
	// Err replaces ErrUnreachable for failed dials.
	Err error
	// NewConn builds successful connections.
	NewConn func() *Conn
}

func (d *Dialer) Dial(ctx context.Context, connectionString string) (store.Conn, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.attempts++
	if d.FailFirst < 0 || d.attempts <= d.FailFirst {
		if d.Err != nil {
			return nil, d.Err
		}
		return nil, ErrUnreachable
	}

	conn := NewConn()
	if d.NewConn != nil {
		conn = d.NewConn()
	}
	d.conns = append(d.conns, conn)
	return conn, nil
}

// Attempts returns the number of Dial calls.
func (d *Dialer) Attempts() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.attempts
}

// Conns returns the connections handed out so far.
func (d *Dialer) Conns() []*Conn {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return append([]*Conn(nil), d.conns...)
}
