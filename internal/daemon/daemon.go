// Package daemon wires the toggle signal to the pipeline and runs the
// main loop for the process lifetime.
package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"sttd/internal/domain"
	"sttd/internal/pidfile"
	"sttd/internal/usecase"
)

// Daemon owns the process-level plumbing around one Pipeline: the PID
// file, the SIGUSR1 toggle and graceful shutdown.
type Daemon struct {
	pipeline *usecase.Pipeline
	logger   *zap.SugaredLogger
	pidPath  string
}

func New(pipeline *usecase.Pipeline, logger *zap.SugaredLogger, pidPath string) *Daemon {
	return &Daemon{pipeline: pipeline, logger: logger, pidPath: pidPath}
}

// Run blocks until the context is cancelled. Toggles are resolved against
// the state machine in the signal-delivery goroutine, so a toggle arriving
// mid-pipeline is dropped immediately rather than queued behind the busy
// loop; only meaningful outcomes reach the loop. The outcome channel holds
// two entries because a fast double-toggle while idle legitimately
// produces a start and a stop before the loop catches up.
func (d *Daemon) Run(ctx context.Context) error {
	if err := pidfile.Write(d.pidPath); err != nil {
		return err
	}
	defer func() {
		if err := pidfile.Remove(d.pidPath); err != nil {
			d.logger.Warnw("failed to remove pid file", "error", err)
		}
	}()

	toggles := make(chan os.Signal, 1)
	signal.Notify(toggles, syscall.SIGUSR1)
	defer signal.Stop(toggles)

	outcomes := make(chan domain.TransitionOutcome, 2)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-toggles:
				outcome := d.pipeline.Machine().RequestToggle()
				if outcome == domain.ToggleIgnored {
					d.logger.Infow("toggle ignored mid-pipeline", "stage", d.pipeline.Machine().Current().String())
					continue
				}
				select {
				case outcomes <- outcome:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	d.logger.Infow("daemon ready, send SIGUSR1 to toggle recording", "pid", os.Getpid(), "pidFile", d.pidPath)

	for {
		select {
		case <-ctx.Done():
			d.logger.Infow("shutting down")
			d.pipeline.Abort(context.Background())
			return nil
		case outcome := <-outcomes:
			d.logger.Infow("processing toggle", "outcome", outcome.String())
			d.pipeline.HandleToggle(ctx, outcome)
		}
	}
}
