package config

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var ErrMissingAPIKey = errors.New("OPENAI_API_KEY environment variable is required; set it in .env or export it")

// Config stores runtime configuration for the daemon.
type Config struct {
	OpenAI   OpenAIConfig
	Audio    AudioConfig
	Pipeline PipelineConfig
	Rules    RulesConfig

	RuntimeDir string `env:"XDG_RUNTIME_DIR"`
}

type OpenAIConfig struct {
	APIKey          string `env:"OPENAI_API_KEY"`
	APIBaseURL      string `env:"STTD_OPENAI_BASE_URL"`
	TranscribeModel string `env:"STTD_TRANSCRIBE_MODEL"`
	ChatModel       string `env:"STTD_CHAT_MODEL"`
}

type AudioConfig struct {
	RecorderCommand string `env:"STTD_RECORDER_COMMAND"`
	SampleRate      int    `env:"STTD_SAMPLE_RATE"`
	Channels        int    `env:"STTD_CHANNELS"`
	TempDir         string `env:"STTD_TEMP_DIR"`
}

type PipelineConfig struct {
	AskKeyword         string        `env:"STTD_ASK_KEYWORD"`
	InstructionKeyword string        `env:"STTD_INSTRUCTION_KEYWORD"`
	Refine             bool          `env:"STTD_REFINE"`
	Format             bool          `env:"STTD_FORMAT"`
	TranscribeTimeout  time.Duration `env:"STTD_TRANSCRIBE_TIMEOUT"`
	DispatchTimeout    time.Duration `env:"STTD_DISPATCH_TIMEOUT"`
}

type RulesConfig struct {
	Path           string `env:"STTD_RULES_FILE"`
	IterationLimit int    `env:"STTD_RULE_ITERATION_LIMIT"`
}

// Defaults returns the configuration with preset values; .env, environment
// variables and CLI flags override them in that order.
func Defaults() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			TranscribeModel: "gpt-4o-transcribe",
			ChatModel:       "gpt-4o",
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
		},
		Pipeline: PipelineConfig{
			TranscribeTimeout: 60 * time.Second,
			DispatchTimeout:   15 * time.Second,
		},
		Rules: RulesConfig{
			IterationLimit: 30,
		},
		RuntimeDir: "/tmp",
	}
}

// Load resolves configuration from an optional .env file and the
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Rules.IterationLimit <= 0 {
		cfg.Rules.IterationLimit = 30
	}
	if cfg.RuntimeDir == "" {
		cfg.RuntimeDir = "/tmp"
	}

	return cfg, nil
}

// Validate checks the settings the daemon cannot run without.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// PIDFile is the path of the daemon's PID file.
func (c *Config) PIDFile() string {
	return filepath.Join(c.RuntimeDir, "sttd.pid")
}
