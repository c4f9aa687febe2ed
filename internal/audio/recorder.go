// Package audio records microphone input with pw-record (PipeWire) or
// parecord (PulseAudio), whichever is installed.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sttd/internal/ports"
)

const (
	commandPipeWire   = "pw-record"
	commandPulseAudio = "parecord"

	startupGrace = 250 * time.Millisecond
	stopTimeout  = 5 * time.Second
)

var ErrNoRecorder = errors.New("no audio recorder found: install pipewire-utils or pulseaudio-utils")

// Config controls how recordings are captured.
type Config struct {
	Command    string // recorder binary override; autodetected when empty
	SampleRate int
	Channels   int
	TempDir    string
}

// Recorder starts one-shot WAV capture sessions.
type Recorder struct {
	command    string
	sampleRate int
	channels   int
	tempDir    string
	logger     *zap.SugaredLogger
}

// NewRecorder resolves the recorder binary and returns a Recorder.
func NewRecorder(cfg Config, logger *zap.SugaredLogger) (*Recorder, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}

	command := cfg.Command
	if command == "" {
		detected, err := detectRecorder()
		if err != nil {
			return nil, err
		}
		command = detected
	}
	logger.Infow("audio recorder resolved", "command", command)

	return &Recorder{
		command:    command,
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
		tempDir:    cfg.TempDir,
		logger:     logger,
	}, nil
}

func detectRecorder() (string, error) {
	for _, candidate := range []string{commandPipeWire, commandPulseAudio} {
		if _, err := exec.LookPath(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", ErrNoRecorder
}

// Start launches the recorder subprocess writing a fresh WAV file.
func (r *Recorder) Start(ctx context.Context) (ports.CaptureSession, error) {
	path := filepath.Join(r.tempDir, "sttd-"+uuid.NewString()+".wav")

	cmd := exec.CommandContext(ctx, r.command, recorderArgs(r.command, r.sampleRate, r.channels, path)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", r.command, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	// The recorder exiting immediately means capture never began, most
	// often a missing audio server.
	select {
	case err := <-waitErr:
		_ = os.Remove(path)
		detail := trimmedStderr(&stderr)
		if err != nil {
			return nil, fmt.Errorf("%s exited before capture started: %w: %s", r.command, err, detail)
		}
		return nil, fmt.Errorf("%s exited before capture started: %s", r.command, detail)
	case <-time.After(startupGrace):
	}

	r.logger.Infow("capture started", "path", path)
	return &captureSession{
		process: cmd.Process,
		waitErr: waitErr,
		stderr:  &stderr,
		path:    path,
	}, nil
}

func recorderArgs(command string, sampleRate, channels int, path string) []string {
	if command == commandPulseAudio || filepath.Base(command) == commandPulseAudio {
		return []string{
			"--rate=" + strconv.Itoa(sampleRate),
			"--channels=" + strconv.Itoa(channels),
			path,
		}
	}
	return []string{
		"--rate", strconv.Itoa(sampleRate),
		"--channels", strconv.Itoa(channels),
		path,
	}
}

type captureSession struct {
	process *os.Process
	waitErr <-chan error
	stderr  *bytes.Buffer
	path    string

	stopOnce sync.Once
	audio    []byte
	stopErr  error
}

// StopAndRetrieve terminates the recorder and returns the recorded WAV
// bytes. The temp file is removed regardless of outcome.
func (s *captureSession) StopAndRetrieve(_ context.Context) ([]byte, error) {
	s.stopOnce.Do(func() {
		defer os.Remove(s.path)

		if s.process == nil {
			s.stopErr = errors.New("capture session never initialized")
			return
		}

		_ = s.process.Signal(os.Interrupt)

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		case <-time.After(stopTimeout):
			_ = s.process.Kill()
			err, ok := <-s.waitErr
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		}

		if s.stopErr != nil {
			if detail := trimmedStderr(s.stderr); detail != "" {
				s.stopErr = fmt.Errorf("%w: %s", s.stopErr, detail)
			}
			return
		}

		audio, err := os.ReadFile(s.path)
		if err != nil {
			s.stopErr = fmt.Errorf("recording file not readable: %w", err)
			return
		}
		if len(audio) == 0 {
			s.stopErr = errors.New("recording file is empty")
			return
		}
		s.audio = audio
	})

	return s.audio, s.stopErr
}

// normalizeStopErr drops the exit error produced by terminating the
// recorder with a signal; that is the normal way a capture ends.
func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func trimmedStderr(buf *bytes.Buffer) string {
	if buf == nil {
		return ""
	}
	return string(bytes.TrimSpace(buf.Bytes()))
}
