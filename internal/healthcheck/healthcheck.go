package healthcheck

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/angeloszaimis/redis-watcher/internal/correlation"
	"github.com/angeloszaimis/redis-watcher/internal/store"
	"github.com/angeloszaimis/redis-watcher/pkg/logger"
)

const (
	DefaultInitialDelay = 1 * time.Second
	DefaultInterval     = 15 * time.Second
	DefaultTimeout      = 10 * time.Second
	DefaultScript       = "return 42"
)

// Options tunes the schedule of a Pinger. Zero fields take the defaults.
type Options struct {
	InitialDelay time.Duration
	Interval     time.Duration
	Timeout      time.Duration
	Script       string
}

// Pinger runs health-check ticks against the store.
type Pinger struct {
	dialer           store.Dialer
	connectionString string
	ids              *correlation.Sequence
	logger           *slog.Logger
	opts             Options
}

// New creates a pinger that dials connectionString on every tick and draws
// correlation ids from ids.
func New(
	dialer store.Dialer,
	connectionString string,
	ids *correlation.Sequence,
	logger *slog.Logger,
	opts Options,
) *Pinger {
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = DefaultInitialDelay
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Script == "" {
		opts.Script = DefaultScript
	}

	return &Pinger{
		dialer:           dialer,
		connectionString: connectionString,
		ids:              ids,
		logger:           logger,
		opts:             opts,
	}
}

// Run ticks once after the initial delay and then on every interval until
// ctx is cancelled. Ticks fire at InitialDelay + n*Interval and run one at
// a time; a tick that overruns the interval delays the next one and missed
// ticks are dropped.
func (p *Pinger) Run(ctx context.Context) {
	delay := time.NewTimer(p.opts.InitialDelay)
	defer delay.Stop()

	select {
	case <-ctx.Done():
		return
	case <-delay.C:
	}

	// Started before the first tick so the schedule stays anchored at the
	// initial delay however long that tick takes.
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()
	p.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick performs one health check and returns its correlation id. Failures
// are logged and never returned.
func (p *Pinger) Tick(ctx context.Context) (id int64) {
	id = p.ids.Next()
	log := logger.WithCorrelation(p.logger, id)

	defer func() {
		if r := recover(); r != nil {
			log.Info(fmt.Sprintf("Exception thrown: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	if err := p.check(ctx, log); err != nil {
		log.Info(fmt.Sprintf("Exception thrown: %v", err))
	}

	return id
}

func (p *Pinger) check(ctx context.Context, log *slog.Logger) (err error) {
	log.Info("Connecting to Redis.")
	conn, err := p.dialer.Dial(ctx, p.connectionString)
	if err != nil {
		return err
	}
	closed := false
	defer func() {
		if !closed {
			_ = conn.Close()
		}
	}()
	log.Info("Connected to Redis.")

	log.Info("Executing script.")
	result, err := conn.Eval(ctx, p.opts.Script)
	if err != nil {
		return err
	}
	log.Info(fmt.Sprintf("Script evaluated successfully. Result: `%s`.", result))

	closed = true
	if err := conn.Close(); err != nil {
		return fmt.Errorf("close connection: %w", err)
	}
	log.Info("Connection to Redis closed.")

	return nil
}
