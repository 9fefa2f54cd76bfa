// Package server runs the HTTP API with signal driven shutdown and reload.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-archgraph/pkg/logging"
)

// ReloadFunc reloads runtime state on SIGHUP, such as re-reading a
// snapshot file.
type ReloadFunc func(ctx context.Context) error

// Options configures a GracefulServer. Zero durations use the defaults.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// DrainDelay is how long SIGUSR1 keeps serving, with readiness failing,
	// before shutting down. It lets load balancers stop routing first.
	DrainDelay time.Duration

	Logger logging.Logger
}

const (
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 30 * time.Second
	defaultDrainDelay      = 5 * time.Second
)

// GracefulServer wraps an HTTP server with graceful shutdown capabilities
type GracefulServer struct {
	server          *http.Server
	shutdownTimeout time.Duration
	drainDelay      time.Duration
	logger          logging.Logger

	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	reloadMu sync.RWMutex
	reloadFn ReloadFunc
}

// New creates a server for handler.
func New(handler http.Handler, opts Options) *GracefulServer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GracefulServer{
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadTimeout:       orDefault(opts.ReadTimeout, defaultReadTimeout),
			ReadHeaderTimeout: orDefault(opts.ReadTimeout, defaultReadTimeout),
			WriteTimeout:      orDefault(opts.WriteTimeout, defaultWriteTimeout),
			IdleTimeout:       orDefault(opts.IdleTimeout, defaultIdleTimeout),
			MaxHeaderBytes:    1 << 20,
		},
		shutdownTimeout: orDefault(opts.ShutdownTimeout, defaultShutdownTimeout),
		drainDelay:      orDefault(opts.DrainDelay, defaultDrainDelay),
		logger:          logger.With(logging.Component("server")),
		shutdownCh:      make(chan struct{}),
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Run listens on the configured address and serves until ctx is cancelled,
// SIGINT or SIGTERM arrives, or SIGUSR1 finishes draining. SIGHUP calls the
// reload function and keeps serving.
func (gs *GracefulServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return err
	}
	return gs.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (gs *GracefulServer) Serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGUSR1)
	defer signal.Stop(sigCh)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		gs.logger.Info("starting HTTP server", logging.String("addr", ln.Addr().String()))
		if err := gs.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gs.Shutdown()
			case <-gs.shutdownCh:
				return nil
			case sig := <-sigCh:
				gs.handleSignal(gctx, sig)
			}
		}
	})

	return g.Wait()
}

func (gs *GracefulServer) handleSignal(ctx context.Context, sig os.Signal) {
	switch sig {
	case syscall.SIGHUP:
		gs.logger.Info("received SIGHUP, reloading")
		if err := gs.Reload(ctx); err != nil {
			gs.logger.Error("reload failed", logging.Error(err))
		}

	case syscall.SIGUSR1:
		gs.logger.Info("received SIGUSR1, draining before shutdown",
			logging.Duration("drain_delay", gs.drainDelay))
		gs.beginShutdown()
		go func() {
			time.Sleep(gs.drainDelay)
			if err := gs.stop(); err != nil {
				gs.logger.Error("drain shutdown failed", logging.Error(err))
			}
		}()
	}
}

// beginShutdown marks the server as shutting down so readiness fails. It
// does not stop serving.
func (gs *GracefulServer) beginShutdown() {
	gs.shutdownOnce.Do(func() { close(gs.shutdownCh) })
}

// Shutdown stops accepting connections and waits up to the shutdown
// timeout for in-flight requests.
func (gs *GracefulServer) Shutdown() error {
	gs.beginShutdown()
	return gs.stop()
}

func (gs *GracefulServer) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), gs.shutdownTimeout)
	defer cancel()

	gs.logger.Info("initiating graceful shutdown", logging.Duration("timeout", gs.shutdownTimeout))
	if err := gs.server.Shutdown(ctx); err != nil {
		gs.logger.Error("error during shutdown", logging.Error(err))
		return err
	}
	gs.logger.Info("server shutdown complete")
	return nil
}

// IsShuttingDown returns true if shutdown has been initiated
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel returns a channel that closes when shutdown is initiated
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}

// SetReloadFunc sets the function called on SIGHUP.
func (gs *GracefulServer) SetReloadFunc(fn ReloadFunc) {
	gs.reloadMu.Lock()
	defer gs.reloadMu.Unlock()
	gs.reloadFn = fn
}

// Reload calls the reload function, if any.
func (gs *GracefulServer) Reload(ctx context.Context) error {
	gs.reloadMu.RLock()
	fn := gs.reloadFn
	gs.reloadMu.RUnlock()

	if fn == nil {
		gs.logger.Warn("reload requested, but no reload function configured")
		return nil
	}

	start := time.Now()
	if err := fn(ctx); err != nil {
		return err
	}
	gs.logger.Info("reload complete", logging.Latency(time.Since(start)))
	return nil
}
