package daemon

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sttd/internal/domain"
	"sttd/internal/ports"
	"sttd/internal/state"
	"sttd/internal/usecase"
)

type fakeSession struct{}

func (fakeSession) StopAndRetrieve(_ context.Context) ([]byte, error) {
	return []byte("wav"), nil
}

type fakeCapture struct{}

func (fakeCapture) Start(_ context.Context) (ports.CaptureSession, error) {
	return fakeSession{}, nil
}

type fakeTranscriber struct{}

func (fakeTranscriber) Transcribe(_ context.Context, _ []byte) (string, error) {
	return "hello from the daemon", nil
}

func (fakeTranscriber) AnswerQuestion(_ context.Context, _ string) (string, error) {
	return "", nil
}

func (fakeTranscriber) Refine(_ context.Context, text, _ string, _ bool) (string, error) {
	return text, nil
}

type recordingOutput struct {
	mu    sync.Mutex
	typed []string
}

func (o *recordingOutput) TypeText(_ context.Context, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.typed = append(o.typed, text)
	return nil
}

func (o *recordingOutput) PasteViaClipboard(_ context.Context, _ string) error {
	return nil
}

func (o *recordingOutput) snapshot() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.typed...)
}

type noopNotifier struct{}

func (noopNotifier) RecordingStarted()                  {}
func (noopNotifier) TranscriptionStarted()              {}
func (noopNotifier) TranscriptionComplete()             {}
func (noopNotifier) Error(_ domain.ErrorCode, _ string) {}

func TestDaemonTogglesDriveFullCycle(t *testing.T) {
	output := &recordingOutput{}
	pipeline := usecase.NewPipeline(
		state.New(),
		fakeCapture{},
		fakeTranscriber{},
		nil,
		output,
		noopNotifier{},
		zap.NewNop().Sugar(),
		usecase.Config{},
	)

	pidPath := filepath.Join(t.TempDir(), "sttd.pid")
	d := New(pipeline, zap.NewNop().Sugar(), pidPath)

	// Keep a handler registered for the whole test so a SIGUSR1 delivered
	// before Run installs its own never hits the default disposition.
	guard := make(chan os.Signal, 1)
	signal.Notify(guard, syscall.SIGUSR1)
	defer signal.Stop(guard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx)
	}()

	// Wait for the PID file so the signal handler is installed.
	require.Eventually(t, func() bool {
		_, err := os.Stat(pidPath)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))
	require.Eventually(t, func() bool {
		return pipeline.Machine().Current() == domain.StageRecording
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))
	require.Eventually(t, func() bool {
		return len(output.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"hello from the daemon"}, output.snapshot())
	require.Equal(t, domain.StageIdle, pipeline.Machine().Current())

	cancel()
	require.NoError(t, <-done)

	// PID file is cleaned up on shutdown.
	require.Eventually(t, func() bool {
		_, err := os.Stat(pidPath)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDaemonRefusesSecondInstance(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "sttd.pid")
	// Our own PID is guaranteed alive, so the file is not treated as stale.
	require.NoError(t, os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644))

	pipeline := usecase.NewPipeline(
		state.New(),
		fakeCapture{},
		fakeTranscriber{},
		nil,
		&recordingOutput{},
		noopNotifier{},
		zap.NewNop().Sugar(),
		usecase.Config{},
	)
	d := New(pipeline, zap.NewNop().Sugar(), pidPath)

	err := d.Run(context.Background())
	require.Error(t, err)
}
