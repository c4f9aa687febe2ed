// Package openai implements the transcription port against the OpenAI API:
// the audio transcription endpoint for speech-to-text and the Responses
// API for question answering and refinement.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"go.uber.org/zap"
)

const (
	noSpeechSentinel = "[NO_SPEECH]"

	transcriptionPrompt = "Transcribe the spoken words exactly as said, nothing else. " +
		"If the audio is silent or contains no speech, respond with exactly: " + noSpeechSentinel

	answerInstructions = "Answer the question concisely in plain text. " +
		"The answer will be typed into the user's focused application, so output only the answer itself."

	refineInstructions = "You receive text transcribed from speech. Fix typos, grammar and " +
		"punctuation without changing the meaning or wording more than necessary. Output only the corrected text."

	formatInstructions = " Structure the result into paragraphs and lines where the content naturally calls for it."

	applyInstructions = "You receive text transcribed from speech together with a spoken instruction. " +
		"Apply the instruction to the text and output only the result."
)

var (
	ErrNoSpeech           = errors.New("no speech detected in audio")
	ErrEmptyTranscription = errors.New("empty transcription response")
)

// Config controls model selection for the provider.
type Config struct {
	APIKey          string
	APIBaseURL      string
	TranscribeModel string
	ChatModel       string
}

// Provider talks to the OpenAI API.
type Provider struct {
	client openai.Client
	cfg    Config
	logger *zap.SugaredLogger
}

func NewProvider(cfg Config, logger *zap.SugaredLogger) *Provider {
	if cfg.TranscribeModel == "" {
		cfg.TranscribeModel = "gpt-4o-transcribe"
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = string(openai.ChatModelGPT4o)
	}

	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.APIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.APIBaseURL))
	}

	return &Provider{
		client: openai.NewClient(opts...),
		cfg:    cfg,
		logger: logger,
	}
}

// Transcribe returns the exact spoken words of the recorded audio.
// Silence and empty responses are errors: a failed cycle must produce no
// output rather than typing a sentinel.
func (p *Provider) Transcribe(ctx context.Context, audio []byte) (string, error) {
	p.logger.Infow("transcribing", "model", p.cfg.TranscribeModel, "bytes", len(audio))

	resp, err := p.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model:  openai.AudioModel(p.cfg.TranscribeModel),
		File:   openai.File(bytes.NewReader(audio), "recording.wav", "audio/wav"),
		Prompt: openai.String(transcriptionPrompt),
	})
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyTranscription
	}
	if text == noSpeechSentinel || strings.Contains(strings.ToLower(text), "cannot transcribe") {
		return "", ErrNoSpeech
	}
	return text, nil
}

// AnswerQuestion treats the utterance as a question and returns the answer.
func (p *Provider) AnswerQuestion(ctx context.Context, question string) (string, error) {
	p.logger.Infow("answering question", "model", p.cfg.ChatModel)
	return p.respond(ctx, answerInstructions, question)
}

// Refine rewrites transcribed text. A non-empty instruction is applied to
// the text; otherwise the text is corrected for typos and grammar, with
// optional structural formatting.
func (p *Provider) Refine(ctx context.Context, text, instruction string, format bool) (string, error) {
	if instruction != "" {
		p.logger.Infow("applying instruction", "model", p.cfg.ChatModel)
		input := fmt.Sprintf("Instruction: %s\n\nText: %s", instruction, text)
		return p.respond(ctx, applyInstructions, input)
	}

	instructions := refineInstructions
	if format {
		instructions += formatInstructions
	}
	p.logger.Infow("refining transcript", "model", p.cfg.ChatModel, "format", format)
	return p.respond(ctx, instructions, text)
}

func (p *Provider) respond(ctx context.Context, instructions, input string) (string, error) {
	resp, err := p.client.Responses.New(ctx, responses.ResponseNewParams{
		Model:        openai.ChatModel(p.cfg.ChatModel),
		Instructions: openai.String(instructions),
		Input:        responses.ResponseNewParamsInputUnion{OfString: openai.String(input)},
	})
	if err != nil {
		return "", fmt.Errorf("model request failed: %w", err)
	}

	out := strings.TrimSpace(resp.OutputText())
	if out == "" {
		return "", errors.New("empty model response")
	}
	return out, nil
}
