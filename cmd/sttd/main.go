// Command sttd runs the dictation daemon: SIGUSR1 toggles recording,
// transcribed text is typed into the focused Wayland window.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"sttd/internal/bootstrap"
	"sttd/internal/config"
	"sttd/internal/pidfile"
)

func main() {
	toggle := flag.Bool("toggle", false, "signal the running daemon to toggle recording, then exit")
	refine := flag.Bool("refine", false, "refine every transcription through the chat model")
	format := flag.Bool("format", false, "ask the chat model to apply light formatting when refining")
	instructionKeyword := flag.String("instruction-keyword", "", "spoken keyword separating content from a refinement instruction")
	askKeyword := flag.String("ask-keyword", "", "spoken keyword that turns the utterance into a question")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *toggle {
		if err := sendToggle(cfg.PIDFile()); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}

	// Flags take precedence over the environment.
	if *refine {
		cfg.Pipeline.Refine = true
	}
	if *format {
		cfg.Pipeline.Format = true
	}
	if *instructionKeyword != "" {
		cfg.Pipeline.InstructionKeyword = *instructionKeyword
	}
	if *askKeyword != "" {
		cfg.Pipeline.AskKeyword = *askKeyword
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	services, err := bootstrap.Build(cfg, sugar)
	if err != nil {
		sugar.Fatalw("failed to assemble daemon", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := services.Daemon.Run(ctx); err != nil {
		sugar.Fatalw("daemon exited", "error", err)
	}
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// sendToggle delivers SIGUSR1 to the daemon recorded in the PID file.
func sendToggle(pidPath string) error {
	pid, err := pidfile.Read(pidPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("daemon is not running (no pid file at %s)", pidPath)
		}
		return fmt.Errorf("failed to read pid file: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find daemon process %d: %w", pid, err)
	}
	if err := process.Signal(syscall.SIGUSR1); err != nil {
		return fmt.Errorf("failed to signal daemon process %d: %w", pid, err)
	}
	return nil
}
