package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sttd/internal/domain"
	"sttd/internal/keyword"
	"sttd/internal/ports"
	"sttd/internal/state"
)

var ErrNoCaptureInProgress = errors.New("no capture in progress")

// Config controls pipeline decision policy and timeouts.
type Config struct {
	AskKeyword         string
	InstructionKeyword string
	Refine             bool
	Format             bool
	TranscribeTimeout  time.Duration
	DispatchTimeout    time.Duration
}

// Pipeline owns the state machine and turns toggle outcomes into the
// capture → transcribe → classify → dispatch sequence. All collaborator
// calls happen on the daemon loop goroutine; only the state machine is
// shared with the signal-delivery side.
type Pipeline struct {
	machine     *state.Machine
	audio       ports.AudioCapture
	transcriber ports.Transcriber
	rules       ports.RulesEngine
	output      ports.TextOutput
	notifier    ports.Notifier
	logger      *zap.SugaredLogger
	cfg         Config

	// current is owned exclusively by the loop goroutine between the
	// started and stopped outcomes of one cycle.
	current ports.CaptureSession
}

func NewPipeline(
	machine *state.Machine,
	audio ports.AudioCapture,
	transcriber ports.Transcriber,
	rules ports.RulesEngine,
	output ports.TextOutput,
	notifier ports.Notifier,
	logger *zap.SugaredLogger,
	cfg Config,
) *Pipeline {
	if cfg.TranscribeTimeout <= 0 {
		cfg.TranscribeTimeout = 60 * time.Second
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = 15 * time.Second
	}
	return &Pipeline{
		machine:     machine,
		audio:       audio,
		transcriber: transcriber,
		rules:       rules,
		output:      output,
		notifier:    notifier,
		logger:      logger,
		cfg:         cfg,
	}
}

// Machine exposes the state machine for the signal-delivery side.
func (p *Pipeline) Machine() *state.Machine {
	return p.machine
}

// HandleToggle reacts to one toggle outcome produced by the state machine.
func (p *Pipeline) HandleToggle(ctx context.Context, outcome domain.TransitionOutcome) {
	switch outcome {
	case domain.ToggleStartedRecording:
		p.startRecording(ctx)
	case domain.ToggleStoppedRecording:
		p.runCycle(ctx)
	}
}

// Abort stops a live capture without transcription; used on shutdown.
func (p *Pipeline) Abort(ctx context.Context) {
	session := p.current
	p.current = nil
	if session == nil {
		return
	}
	if _, err := session.StopAndRetrieve(ctx); err != nil {
		p.logger.Warnw("failed to stop capture on shutdown", "error", err)
	}
}

func (p *Pipeline) startRecording(ctx context.Context) {
	session, err := p.audio.Start(ctx)
	if err != nil {
		p.logger.Errorw("failed to start recording", "error", err)
		p.notifier.Error(domain.ErrorCodeCaptureStart, err.Error())
		// Compensating transition: the stage must not stay at recording
		// with no capture running. A lost CAS here means a second toggle
		// already moved the stage on; runCycle then fails on the missing
		// session and reverts from there.
		p.machine.Advance(domain.StageRecording, domain.StageIdle)
		return
	}

	p.current = session
	p.logger.Infow("recording started")
	p.notifier.RecordingStarted()
}

// runCycle drives one recording through transcription, classification and
// dispatch. Every failure reverts the stage to idle and produces exactly
// one error notification; no output is produced for a failed cycle.
func (p *Pipeline) runCycle(ctx context.Context) {
	cycleID := uuid.NewString()
	log := p.logger.With("cycle", cycleID)

	session := p.current
	p.current = nil
	if session == nil {
		p.failCycle(log, domain.ErrorCodeCaptureRetrieval, ErrNoCaptureInProgress)
		return
	}

	p.notifier.TranscriptionStarted()

	audio, err := session.StopAndRetrieve(ctx)
	if err != nil {
		p.failCycle(log, domain.ErrorCodeCaptureRetrieval, err)
		return
	}
	log.Infow("recording stopped", "bytes", len(audio))

	transcribeCtx, cancel := context.WithTimeout(ctx, p.cfg.TranscribeTimeout)
	defer cancel()

	utterance, err := p.transcriber.Transcribe(transcribeCtx, audio)
	if err != nil {
		p.failCycle(log, domain.ErrorCodeTranscription, err)
		return
	}
	log.Infow("transcribed", "chars", len(utterance))

	if p.rules != nil {
		cleaned, err := p.rules.Apply(utterance)
		if err != nil {
			// Local substitutions are best-effort cleanup; a bad rules
			// file must not discard a successful transcription.
			log.Warnw("substitution rules failed, using raw transcript", "error", err)
		} else {
			utterance = cleaned
		}
	}

	text, ok := p.resolveText(transcribeCtx, log, utterance)
	if !ok {
		return
	}

	if !p.machine.Advance(domain.StageTranscribing, domain.StageTyping) {
		log.Errorw("unexpected stage before dispatch", "stage", p.machine.Current())
		return
	}

	p.dispatch(ctx, log, text)

	if !p.machine.Advance(domain.StageTyping, domain.StageIdle) {
		log.Errorw("unexpected stage after dispatch", "stage", p.machine.Current())
	}
}

// resolveText applies the decision policy in fixed precedence: query, then
// instructed, then refinement, then verbatim. A false return means the
// cycle already ended (silently or with an error).
func (p *Pipeline) resolveText(ctx context.Context, log *zap.SugaredLogger, utterance string) (string, bool) {
	parsed := keyword.Classify(utterance, p.cfg.InstructionKeyword, p.cfg.AskKeyword)

	switch parsed.Kind {
	case domain.UtteranceQuery:
		if parsed.Query == "" {
			// The ask keyword alone produces nothing: no notification,
			// no typing, straight back to idle.
			log.Infow("empty query, ending cycle silently")
			p.machine.Advance(domain.StageTranscribing, domain.StageIdle)
			return "", false
		}
		answer, err := p.transcriber.AnswerQuestion(ctx, strings.TrimSpace(utterance))
		if err != nil {
			p.failCycle(log, domain.ErrorCodeTranscription, err)
			return "", false
		}
		return answer, true

	case domain.UtteranceInstructed:
		refined, err := p.transcriber.Refine(ctx, parsed.Content, parsed.Instruction, false)
		if err != nil {
			p.failCycle(log, domain.ErrorCodeRefinement, err)
			return "", false
		}
		return refined, true

	default:
		if p.cfg.Refine {
			refined, err := p.transcriber.Refine(ctx, parsed.Content, "", p.cfg.Format)
			if err != nil {
				p.failCycle(log, domain.ErrorCodeRefinement, err)
				return "", false
			}
			return refined, true
		}
		return parsed.Content, true
	}
}

// dispatch routes multi-line text through the clipboard-paste path and
// single-line text through direct typing.
func (p *Pipeline) dispatch(ctx context.Context, log *zap.SugaredLogger, text string) {
	dispatchCtx, cancel := context.WithTimeout(ctx, p.cfg.DispatchTimeout)
	defer cancel()

	var err error
	if strings.Contains(text, "\n") {
		log.Infow("dispatching via clipboard paste", "chars", len(text))
		err = p.output.PasteViaClipboard(dispatchCtx, text)
	} else {
		log.Infow("dispatching via direct typing", "chars", len(text))
		err = p.output.TypeText(dispatchCtx, text)
	}

	if err != nil {
		log.Errorw("output dispatch failed", "error", err)
		p.notifier.Error(domain.ErrorCodeOutputDispatch, err.Error())
		return
	}
	p.notifier.TranscriptionComplete()
}

// failCycle reports one error and reverts the stage to idle, skipping the
// typing stage entirely.
func (p *Pipeline) failCycle(log *zap.SugaredLogger, code domain.ErrorCode, err error) {
	log.Errorw("cycle failed", "code", string(code), "error", err)
	p.notifier.Error(code, err.Error())
	p.machine.Advance(domain.StageTranscribing, domain.StageIdle)
}
