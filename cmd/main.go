package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/angeloszaimis/redis-watcher/config"
	"github.com/angeloszaimis/redis-watcher/internal/correlation"
	"github.com/angeloszaimis/redis-watcher/internal/healthcheck"
	"github.com/angeloszaimis/redis-watcher/internal/store"
	"github.com/angeloszaimis/redis-watcher/internal/supervisor"
	"github.com/angeloszaimis/redis-watcher/pkg/logger"
)

const usage = "Please provide connection string in the `" + config.EnvConnectionString +
	"` environment variable or as the first parameter"

// app holds the process-wide state shared by the components.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	ids    *correlation.Sequence
	dialer store.Dialer
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, nil)
	cancel()
	os.Exit(code)
}

// run wires the watcher and blocks until ctx is done or a line arrives on
// stdin. A nil dialer selects the Redis dialer. It returns the process exit
// status, which is 0 on every path.
func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, dialer store.Dialer) int {
	cfg, err := config.Load(args)
	if err != nil {
		if !errors.Is(err, config.ErrMissingConnectionString) {
			fmt.Fprintf(stdout, "Invalid configuration: %v\n", err)
		}
		fmt.Fprintln(stdout, usage)
		fmt.Fprintln(stdout, "Exiting")
		return 0
	}

	log := logger.New(stdout)
	if dialer == nil {
		dialer = store.NewRedisDialer(cfg.Heartbeat, store.WithLogger(log))
	}

	a := &app{
		cfg:    cfg,
		log:    log,
		ids:    &correlation.Sequence{},
		dialer: dialer,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go waitForLine(stdin, cancel)

	return a.serve(ctx)
}

func (a *app) serve(ctx context.Context) int {
	sup := supervisor.New(a.dialer, a.log, a.cfg.RetryInterval)
	conn, err := sup.ConnectWithRetry(ctx, a.cfg.ConnectionString)
	if err != nil {
		a.log.Info("Stopped before a connection was opened.")
		return 0
	}
	defer func() {
		if err := conn.Close(); err != nil {
			a.log.Info(fmt.Sprintf("Failed closing connection: %v", err))
		}
	}()

	pinger := healthcheck.New(a.dialer, a.cfg.ConnectionString, a.ids, a.log, healthcheck.Options{
		InitialDelay: a.cfg.Ping.InitialDelay,
		Interval:     a.cfg.Ping.Interval,
		Timeout:      a.cfg.Ping.Timeout,
		Script:       a.cfg.Ping.Script,
	})

	pingCtx, stopPinger := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pinger.Run(pingCtx)
	}()

	<-ctx.Done()
	a.log.Info("Shutting down.")
	stopPinger()
	wg.Wait()

	return 0
}

// waitForLine calls stop once a line is read. End of input is not a stop
// request, so a detached process keeps running until signalled.
func waitForLine(r io.Reader, stop context.CancelFunc) {
	if r == nil {
		return
	}
	if bufio.NewScanner(r).Scan() {
		stop()
	}
}
