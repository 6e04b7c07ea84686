package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/snarg/ttscribe/internal/transcribe"
)

type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8000"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30m"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`

	UploadDir      string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	StorageBaseURL string `env:"STORAGE_BASE_URL"`
	MaxVideosLimit int    `env:"MAX_VIDEOS_LIMIT" envDefault:"1000"`

	YtdlpPath  string `env:"YTDLP_PATH" envDefault:"yt-dlp"`
	PythonPath string `env:"PYTHON_PATH" envDefault:"python3"`

	// Speech engine defaults. Device and compute type accept "auto"; the
	// parameter resolver replaces those with concrete values per request.
	WhisperModel       string `env:"WHISPER_MODEL_NAME" envDefault:"base"`
	WhisperDevice      string `env:"WHISPER_DEVICE" envDefault:"auto"`
	WhisperComputeType string `env:"WHISPER_COMPUTE_TYPE" envDefault:"auto"`
	WhisperLanguage    string `env:"WHISPER_LANGUAGE"`
	WhisperBeamSize    int    `env:"WHISPER_BEAM_SIZE" envDefault:"5"`
	WhisperVADFilter   bool   `env:"WHISPER_VAD_FILTER" envDefault:"true"`
	WhisperCPUThreads  int    `env:"WHISPER_CPU_THREADS" envDefault:"0"`
	WhisperNumWorkers  int    `env:"WHISPER_NUM_WORKERS" envDefault:"4"`

	// Voice-activity pre-filter tuning. MaxSpeechDurationS 0 = unbounded.
	VADThreshold            float64 `env:"VAD_THRESHOLD" envDefault:"0.5"`
	VADMinSpeechDurationMs  int     `env:"VAD_MIN_SPEECH_DURATION_MS" envDefault:"250"`
	VADMaxSpeechDurationS   float64 `env:"VAD_MAX_SPEECH_DURATION_S" envDefault:"0"`
	VADMinSilenceDurationMs int     `env:"VAD_MIN_SILENCE_DURATION_MS" envDefault:"2000"`
	VADSpeechPadMs          int     `env:"VAD_SPEECH_PAD_MS" envDefault:"400"`

	// Decoding-stability parameters, applied to every run.
	CompressionRatioThreshold float64 `env:"WHISPER_COMPRESSION_RATIO_THRESHOLD" envDefault:"2.4"`
	LogProbThreshold          float64 `env:"WHISPER_LOG_PROB_THRESHOLD" envDefault:"-1.0"`
	NoSpeechThreshold         float64 `env:"WHISPER_NO_SPEECH_THRESHOLD" envDefault:"0.6"`
	Patience                  float64 `env:"WHISPER_PATIENCE" envDefault:"1.0"`
	LengthPenalty             float64 `env:"WHISPER_LENGTH_PENALTY" envDefault:"1.0"`
	RepetitionPenalty         float64 `env:"WHISPER_REPETITION_PENALTY" envDefault:"1.0"`
	NoRepeatNgramSize         int     `env:"WHISPER_NO_REPEAT_NGRAM_SIZE" envDefault:"0"`
	MaxInitialTimestamp       float64 `env:"WHISPER_MAX_INITIAL_TIMESTAMP" envDefault:"1.0"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile   string
	HTTPAddr  string
	LogLevel  string
	UploadDir string
}

// Load reads configuration from .env file, environment variables, and CLI
// overrides. Priority: CLI flags > environment variables > .env file >
// struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.UploadDir != "" {
		cfg.UploadDir = overrides.UploadDir
	}

	if cfg.StorageBaseURL == "" {
		cfg.StorageBaseURL = defaultStorageBaseURL(cfg.HTTPAddr)
	}

	return cfg, nil
}

// TranscribeDefaults maps the configured speech settings to resolver defaults.
func (c *Config) TranscribeDefaults() transcribe.Defaults {
	return transcribe.Defaults{
		Model:       c.WhisperModel,
		Device:      c.WhisperDevice,
		ComputeType: c.WhisperComputeType,
		Language:    c.WhisperLanguage,
		BeamSize:    c.WhisperBeamSize,
		VADFilter:   c.WhisperVADFilter,
		VAD: transcribe.VADParams{
			Threshold:            c.VADThreshold,
			MinSpeechDurationMs:  c.VADMinSpeechDurationMs,
			MaxSpeechDurationS:   c.VADMaxSpeechDurationS,
			MinSilenceDurationMs: c.VADMinSilenceDurationMs,
			SpeechPadMs:          c.VADSpeechPadMs,
		},
	}
}

// Stability maps the configured decoding-stability parameters.
func (c *Config) Stability() transcribe.StabilityParams {
	return transcribe.StabilityParams{
		CompressionRatioThreshold: c.CompressionRatioThreshold,
		LogProbThreshold:          c.LogProbThreshold,
		NoSpeechThreshold:         c.NoSpeechThreshold,
		Patience:                  c.Patience,
		LengthPenalty:             c.LengthPenalty,
		RepetitionPenalty:         c.RepetitionPenalty,
		NoRepeatNgramSize:         c.NoRepeatNgramSize,
		MaxInitialTimestamp:       c.MaxInitialTimestamp,
	}
}

// defaultStorageBaseURL derives the public storage URL from the listen
// address when none was configured.
func defaultStorageBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://localhost:8000/storage"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%s/storage", host, port)
}
