// Package output injects text into the focused Wayland application, either
// by synthesized keystrokes (wtype) or through the clipboard plus a paste
// keystroke (wl-copy + wtype).
package output

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

const (
	defaultTypeCommand = "wtype"
	defaultCopyCommand = "wl-copy"

	// Cap injected text; wtype receives it all at once over stdin.
	maxTextBytes = 100 * 1024
)

var ErrTextTooLong = errors.New("text exceeds maximum length of 100KB")

// Wayland implements the text output port with wtype and wl-copy.
type Wayland struct {
	typeCommand string
	copyCommand string
	logger      *zap.SugaredLogger
}

func NewWayland(logger *zap.SugaredLogger) *Wayland {
	return &Wayland{
		typeCommand: defaultTypeCommand,
		copyCommand: defaultCopyCommand,
		logger:      logger,
	}
}

// TypeText injects text by synthesized keystrokes via wtype's stdin mode,
// which handles Unicode correctly.
func (w *Wayland) TypeText(ctx context.Context, text string) error {
	text, err := sanitize(text)
	if err != nil {
		return err
	}

	w.logger.Infow("typing text", "chars", len(text))
	if err := w.run(ctx, text, w.typeCommand, "-"); err != nil {
		return fmt.Errorf("wtype failed: %w", err)
	}
	return nil
}

// PasteViaClipboard places text on the Wayland clipboard and sends a
// Ctrl+V keystroke. Used for multi-line text, which many applications
// mangle when typed line by line.
func (w *Wayland) PasteViaClipboard(ctx context.Context, text string) error {
	text, err := sanitize(text)
	if err != nil {
		return err
	}

	w.logger.Infow("pasting text via clipboard", "chars", len(text))
	if err := w.run(ctx, text, w.copyCommand); err != nil {
		return fmt.Errorf("wl-copy failed: %w", err)
	}
	if err := w.run(ctx, "", w.typeCommand, "-M", "ctrl", "-k", "v", "-m", "ctrl"); err != nil {
		return fmt.Errorf("paste keystroke failed: %w", err)
	}
	return nil
}

func (w *Wayland) run(ctx context.Context, stdin string, command string, args ...string) error {
	if _, err := exec.LookPath(command); err != nil {
		return fmt.Errorf("%s not found: %w", command, err)
	}

	cmd := exec.CommandContext(ctx, command, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return fmt.Errorf("%w: %s", err, detail)
		}
		return err
	}
	return nil
}

// sanitize strips NUL bytes and enforces the length cap.
func sanitize(text string) (string, error) {
	text = strings.ReplaceAll(text, "\x00", "")
	if len(text) > maxTextBytes {
		return "", ErrTextTooLong
	}
	return text, nil
}
