// Package supervisor owns process lifecycle: startup ordering, OS signal
// handling, and graceful drain for the long-running components (spec
// §4.7). The watcher's own poll loop recovers panics and restarts itself up
// to a budget (see internal/watcher); once it gives up, or the API server's
// listener dies, that surfaces here as a fatal error that triggers the same
// drain path as a SIGINT/SIGTERM.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Explosion-Scratch/clippy-sub000/internal/api"
	"github.com/Explosion-Scratch/clippy-sub000/internal/logging"
	"github.com/Explosion-Scratch/clippy-sub000/internal/watcher"
)

// ShutdownTimeout bounds how long graceful drain waits before Shutdown
// returns regardless of in-flight requests (spec §4.7).
const ShutdownTimeout = 5 * time.Second

// Supervisor starts the watcher and API server, then blocks until an OS
// signal or a fatal component error, and drains both on the way out.
type Supervisor struct {
	log     logging.Logger
	watcher *watcher.Watcher
	server  *api.Server
	port    int

	fatal chan error
}

// New builds a Supervisor. Run does not return until the process is
// signaled to stop or a component gives up.
func New(log logging.Logger, w *watcher.Watcher, srv *api.Server, port int) *Supervisor {
	return &Supervisor{
		log:     log,
		watcher: w,
		server:  srv,
		port:    port,
		fatal:   make(chan error, 2),
	}
}

// Run brings every component up in order (watcher, then API server), blocks
// until SIGINT/SIGTERM or a fatal component error, then drains.
func (sv *Supervisor) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sv.watcher.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	go sv.forwardWatcherFatal()
	go sv.runServer()

	select {
	case <-ctx.Done():
		sv.log.Log("info", "shutdown signal received, draining")
	case err := <-sv.fatal:
		sv.log.Log("error", fmt.Sprintf("fatal component error, shutting down: %v", err))
	}

	return sv.shutdown()
}

func (sv *Supervisor) forwardWatcherFatal() {
	if err, ok := <-sv.watcher.Fatal; ok {
		select {
		case sv.fatal <- fmt.Errorf("watcher: %w", err):
		default:
		}
	}
}

func (sv *Supervisor) runServer() {
	if err := sv.server.Start(sv.port); err != nil {
		select {
		case sv.fatal <- fmt.Errorf("api server: %w", err):
		default:
		}
	}
}

func (sv *Supervisor) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	var firstErr error
	if err := sv.server.Shutdown(ctx); err != nil {
		firstErr = fmt.Errorf("api shutdown: %w", err)
	}
	sv.watcher.Stop()
	sv.log.Log("info", "drained, exiting")
	return firstErr
}
