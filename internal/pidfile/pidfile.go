// Package pidfile tracks the single running daemon instance through a PID
// file in the runtime directory.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

var ErrAlreadyRunning = errors.New("daemon already running")

// Write creates the PID file atomically. A stale file left by a dead
// process is removed and replaced; a file owned by a live process is an
// ErrAlreadyRunning failure.
func Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create runtime directory: %w", err)
	}

	file, err := create(path)
	if errors.Is(err, os.ErrExist) {
		pid, readErr := Read(path)
		if readErr == nil && processAlive(pid) {
			return fmt.Errorf("%w with PID %d (pid file: %s)", ErrAlreadyRunning, pid, path)
		}
		// Stale or unreadable: replace it.
		if removeErr := os.Remove(path); removeErr != nil {
			return fmt.Errorf("failed to remove stale pid file: %w", removeErr)
		}
		file, err = create(path)
	}
	if err != nil {
		return fmt.Errorf("failed to create pid file: %w", err)
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	return nil
}

// Read returns the PID recorded in the file.
func Read(path string) (int, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil {
		return 0, fmt.Errorf("invalid pid file contents: %w", err)
	}
	return pid, nil
}

// Remove deletes the PID file; a missing file is not an error.
func Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func create(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
}

// processAlive probes a PID with signal 0. EPERM means the process exists
// but belongs to another user, which still counts as alive.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
