package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// go-redis defaults applied when the options leave a timeout unset.
const (
	defaultDialTimeout = 5 * time.Second
	defaultReadTimeout = 3 * time.Second
)

// DialerOption configures a RedisDialer.
type DialerOption func(*RedisDialer)

// WithLogger sets the logger that reports panicking listeners.
func WithLogger(l *slog.Logger) DialerOption {
	return func(d *RedisDialer) { d.logger = l }
}

// RedisDialer opens go-redis backed connections.
type RedisDialer struct {
	// Heartbeat is the period of the background PING that detects
	// connectivity changes. It only runs once a listener is registered.
	Heartbeat time.Duration

	logger *slog.Logger
}

// NewRedisDialer creates a dialer with the given heartbeat period.
func NewRedisDialer(heartbeat time.Duration, opts ...DialerOption) *RedisDialer {
	d := &RedisDialer{Heartbeat: heartbeat, logger: slog.Default()}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Dial parses the connection string, connects and verifies the connection
// with a PING. The returned connection is not usable if err is non-nil.
func (d *RedisDialer) Dial(ctx context.Context, connectionString string) (Conn, error) {
	opts, err := ParseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	conn := newRedisConn(client, opts.Addr, d.Heartbeat, heartbeatTimeout(opts), d.logger)
	client.AddHook(conn.tracker)

	if err := client.Ping(ctx).Err(); err != nil {
		conn.cancel()
		_ = client.Close()
		return nil, fmt.Errorf("connect %s: %w", opts.Addr, err)
	}

	return conn, nil
}

type redisConn struct {
	client    *redis.Client
	tracker   *tracker
	heartbeat time.Duration
	timeout   time.Duration

	monitorOnce sync.Once
	closeOnce   sync.Once
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func newRedisConn(client *redis.Client, endpoint string, heartbeat, timeout time.Duration, logger *slog.Logger) *redisConn {
	ctx, cancel := context.WithCancel(context.Background())
	return &redisConn{
		client:    client,
		tracker:   newTracker(endpoint, logger),
		heartbeat: heartbeat,
		timeout:   timeout,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// heartbeatTimeout bounds one heartbeat PING. It allows a full dial plus a
// full read so a slow but live server is not reported as lost.
func heartbeatTimeout(opts *redis.Options) time.Duration {
	dial, read := opts.DialTimeout, opts.ReadTimeout
	if dial <= 0 {
		dial = defaultDialTimeout
	}
	if read <= 0 {
		read = defaultReadTimeout
	}
	return dial + read
}

func (c *redisConn) Eval(ctx context.Context, script string) (string, error) {
	result, err := c.client.Eval(ctx, script, nil).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprint(result), nil
}

func (c *redisConn) IsConnected() bool {
	return c.tracker.isConnected()
}

func (c *redisConn) OnConnectionLost(fn Listener) {
	c.tracker.addLost(fn)
	c.startMonitor()
}

func (c *redisConn) OnConnectionRestored(fn Listener) {
	c.tracker.addRestored(fn)
	c.startMonitor()
}

func (c *redisConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		c.wg.Wait()
		err = c.client.Close()
	})
	return err
}

func (c *redisConn) startMonitor() {
	if c.heartbeat <= 0 {
		return
	}
	c.monitorOnce.Do(func() {
		c.wg.Add(1)
		go c.monitor()
	})
}

func (c *redisConn) monitor() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
			// The hook records the outcome.
			_ = c.client.Ping(ctx).Err()
			cancel()
		}
	}
}

// tracker is a redis.Hook that turns command outcomes into connectivity
// transitions.
type tracker struct {
	endpoint string
	logger   *slog.Logger

	mutex     sync.Mutex
	connected bool
	lost      []Listener
	restored  []Listener
}

var _ redis.Hook = (*tracker)(nil)

func newTracker(endpoint string, logger *slog.Logger) *tracker {
	return &tracker{endpoint: endpoint, logger: logger, connected: true}
}

func (t *tracker) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			t.observe(err)
		}
		return conn, err
	}
}

func (t *tracker) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		t.observe(err)
		return err
	}
}

func (t *tracker) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		t.observe(err)
		return err
	}
}

func (t *tracker) addLost(fn Listener) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.lost = append(t.lost, fn)
}

func (t *tracker) addRestored(fn Listener) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.restored = append(t.restored, fn)
}

func (t *tracker) isConnected() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.connected
}

func (t *tracker) observe(err error) {
	healthy, known := linkState(err)
	if !known {
		return
	}

	t.mutex.Lock()
	if t.connected == healthy {
		t.mutex.Unlock()
		return
	}
	t.connected = healthy
	listeners := t.lost
	if healthy {
		listeners = t.restored
	}
	listeners = append([]Listener(nil), listeners...)
	t.mutex.Unlock()

	ev := Event{
		ConnectionType: ConnectionInteractive,
		FailureType:    ClassifyFailure(err),
		Endpoint:       t.endpoint,
		Err:            err,
	}
	if healthy {
		ev.FailureType, ev.Err = FailureNone, nil
	}
	for _, fn := range listeners {
		t.notify(fn, ev)
	}
}

// notify keeps a panicking listener from taking down the goroutine that
// issued the command.
func (t *tracker) notify(fn Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Connection event listener panicked",
				slog.String("endpoint", t.endpoint),
				slog.Any("panic", r))
		}
	}()
	fn(ev)
}

// linkState reports what err says about the link. Server replies, error
// replies included, prove the server is reachable; cancellation says nothing.
func linkState(err error) (healthy, known bool) {
	switch {
	case err == nil, errors.Is(err, redis.Nil):
		return true, true
	case errors.Is(err, context.Canceled):
		return false, false
	}

	var reply redis.Error
	if errors.As(err, &reply) {
		switch ClassifyFailure(err) {
		case FailureAuthentication, FailureLoading:
			return false, true
		default:
			return true, true
		}
	}

	return false, true
}
