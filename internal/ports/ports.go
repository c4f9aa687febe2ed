package ports

import (
	"context"

	"sttd/internal/domain"
)

// CaptureSession is one live recording started by an AudioCapture.
type CaptureSession interface {
	// StopAndRetrieve terminates the capture and returns the recorded
	// audio. It must tolerate a session that never fully initialized.
	StopAndRetrieve(ctx context.Context) ([]byte, error)
}

// AudioCapture starts microphone recording sessions.
type AudioCapture interface {
	Start(ctx context.Context) (CaptureSession, error)
}

// Transcriber converts captured audio to text and applies AI policies to it.
type Transcriber interface {
	// Transcribe returns the exact spoken words of the audio.
	Transcribe(ctx context.Context, audio []byte) (string, error)
	// AnswerQuestion treats the text as a question and returns the answer.
	AnswerQuestion(ctx context.Context, question string) (string, error)
	// Refine rewrites text. A non-empty instruction is applied to the
	// text; format requests structural (paragraph/line) formatting.
	Refine(ctx context.Context, text, instruction string, format bool) (string, error)
}

// TextOutput injects text into the focused application.
type TextOutput interface {
	// TypeText injects single-line text by synthesized keystrokes.
	TypeText(ctx context.Context, text string) error
	// PasteViaClipboard places text on the clipboard and sends a paste
	// keystroke; used for multi-line text.
	PasteViaClipboard(ctx context.Context, text string) error
}

// Notifier emits desktop notifications. Fire-and-forget: implementations
// swallow their own failures.
type Notifier interface {
	RecordingStarted()
	TranscriptionStarted()
	TranscriptionComplete()
	Error(code domain.ErrorCode, message string)
}

// RulesEngine applies deterministic substitutions to a raw transcript.
type RulesEngine interface {
	Apply(text string) (string, error)
}
