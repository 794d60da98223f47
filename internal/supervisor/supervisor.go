package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/angeloszaimis/redis-watcher/internal/store"
)

// DefaultRetryInterval is the fixed delay between connect attempts.
const DefaultRetryInterval = 15 * time.Second

// Supervisor opens and watches the process-wide connection.
type Supervisor struct {
	dialer        store.Dialer
	logger        *slog.Logger
	retryInterval time.Duration
}

// New creates a supervisor. A non-positive interval selects
// DefaultRetryInterval.
func New(dialer store.Dialer, logger *slog.Logger, retryInterval time.Duration) *Supervisor {
	if retryInterval <= 0 {
		retryInterval = DefaultRetryInterval
	}
	return &Supervisor{
		dialer:        dialer,
		logger:        logger,
		retryInterval: retryInterval,
	}
}

// ConnectWithRetry blocks until a connection is open, retrying without limit.
// It only fails when ctx is done. The returned connection has its
// connectivity listeners attached and belongs to the caller.
func (s *Supervisor) ConnectWithRetry(ctx context.Context, connectionString string) (store.Conn, error) {
	policy := backoff.WithContext(backoff.NewConstantBackOff(s.retryInterval), ctx)

	conn, err := backoff.RetryNotifyWithData(
		func() (store.Conn, error) {
			s.logger.Info("Opening connection.")
			return s.dialer.Dial(ctx, connectionString)
		},
		policy,
		func(err error, _ time.Duration) {
			s.logger.Info(fmt.Sprintf("Failed opening connection: %v", err))
		},
	)
	if err != nil {
		// Only cancellation stops a constant policy.
		return nil, ctx.Err()
	}
	s.logger.Info("Connection opened successfully.")

	s.logger.Info("Subscribing to events.")
	s.subscribe(conn)
	s.logger.Info("Subscribed to events.")

	return conn, nil
}

func (s *Supervisor) subscribe(conn store.Conn) {
	conn.OnConnectionLost(s.guard(func(ev store.Event) {
		s.logger.Info(fmt.Sprintf("Connection failed. Connection type: %s, Failure type %s, Exception: %s",
			ev.ConnectionType, ev.FailureType, errText(ev.Err)))
	}))

	conn.OnConnectionRestored(s.guard(func(ev store.Event) {
		s.logger.Info(fmt.Sprintf("Connection restored. IsConnected: %t, Connection type: %s, Failure type %s, Exception: %s",
			conn.IsConnected(), ev.ConnectionType, ev.FailureType, errText(ev.Err)))
	}))
}

// guard keeps listener panics away from the client's goroutines.
func (s *Supervisor) guard(fn store.Listener) store.Listener {
	return func(ev store.Event) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Info(fmt.Sprintf("Connection event listener failed: %v", r))
			}
		}()
		fn(ev)
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
