// Package notify emits desktop notifications for cycle progress. All
// delivery failures are logged and swallowed: a missing notification
// daemon must never break a transcription cycle.
package notify

import (
	"github.com/gen2brain/beeep"
	"go.uber.org/zap"

	"sttd/internal/domain"
)

// Desktop sends notifications through the freedesktop notification bus.
type Desktop struct {
	logger *zap.SugaredLogger
}

func NewDesktop(logger *zap.SugaredLogger) *Desktop {
	beeep.AppName = "sttd"
	return &Desktop{logger: logger}
}

func (d *Desktop) RecordingStarted() {
	d.send("Recording", "Speech recording in progress")
}

func (d *Desktop) TranscriptionStarted() {
	d.send("Processing", "Transcribing audio...")
}

func (d *Desktop) TranscriptionComplete() {
	d.send("Transcription Complete", "Text typed successfully")
}

func (d *Desktop) Error(code domain.ErrorCode, message string) {
	if err := beeep.Alert("Dictation Error", message, ""); err != nil {
		d.logger.Warnw("failed to send error notification", "code", string(code), "error", err)
	}
}

func (d *Desktop) send(summary, body string) {
	if err := beeep.Notify(summary, body, ""); err != nil {
		d.logger.Warnw("failed to send notification", "summary", summary, "error", err)
	}
}
