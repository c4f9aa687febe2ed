// Package bootstrap assembles the runtime dependency graph.
package bootstrap

import (
	"go.uber.org/zap"

	"sttd/internal/audio"
	"sttd/internal/config"
	"sttd/internal/daemon"
	"sttd/internal/notify"
	"sttd/internal/output"
	"sttd/internal/providers/openai"
	"sttd/internal/rules"
	"sttd/internal/state"
	"sttd/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Daemon   *daemon.Daemon
	Pipeline *usecase.Pipeline
	Config   *config.Config
}

// Build wires all backend dependencies for the current runtime. The
// config has already been loaded and validated by the caller so CLI
// flags can override it first.
func Build(cfg *config.Config, logger *zap.SugaredLogger) (Services, error) {
	rulesEngine, err := rules.NewEngine(cfg.Rules.Path, cfg.Rules.IterationLimit)
	if err != nil {
		return Services{}, err
	}

	recorder, err := audio.NewRecorder(audio.Config{
		Command:    cfg.Audio.RecorderCommand,
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
		TempDir:    cfg.Audio.TempDir,
	}, logger)
	if err != nil {
		return Services{}, err
	}

	pipeline := usecase.NewPipeline(
		state.New(),
		recorder,
		openai.NewProvider(openai.Config{
			APIKey:          cfg.OpenAI.APIKey,
			APIBaseURL:      cfg.OpenAI.APIBaseURL,
			TranscribeModel: cfg.OpenAI.TranscribeModel,
			ChatModel:       cfg.OpenAI.ChatModel,
		}, logger),
		rulesEngine,
		output.NewWayland(logger),
		notify.NewDesktop(logger),
		logger,
		usecase.Config{
			AskKeyword:         cfg.Pipeline.AskKeyword,
			InstructionKeyword: cfg.Pipeline.InstructionKeyword,
			Refine:             cfg.Pipeline.Refine,
			Format:             cfg.Pipeline.Format,
			TranscribeTimeout:  cfg.Pipeline.TranscribeTimeout,
			DispatchTimeout:    cfg.Pipeline.DispatchTimeout,
		},
	)

	return Services{
		Daemon:   daemon.New(pipeline, logger, cfg.PIDFile()),
		Pipeline: pipeline,
		Config:   cfg,
	}, nil
}
