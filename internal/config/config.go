package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`

	AudioDir string `env:"AUDIO_DIR" envDefault:"./uploads"`
	S3       S3Config

	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8000"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10m"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	MaxUploadMB  int64         `env:"MAX_UPLOAD_MB" envDefault:"100"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" envSeparator:","`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`

	// WhisperModel, WhisperLanguage and WhisperTimeout apply to whichever
	// provider STTProvider selects. An empty model uses the provider default.
	STTProvider      string        `env:"STT_PROVIDER" envDefault:"whisper"`
	WhisperURL       string        `env:"WHISPER_URL"`
	WhisperModel     string        `env:"WHISPER_MODEL"`
	WhisperAPIKey    string        `env:"WHISPER_API_KEY"`
	WhisperLanguage  string        `env:"WHISPER_LANGUAGE"`
	WhisperTimeout   time.Duration `env:"WHISPER_TIMEOUT" envDefault:"5m"`
	DeepInfraAPIKey  string        `env:"DEEPINFRA_API_KEY"`
	ElevenLabsAPIKey string        `env:"ELEVENLABS_API_KEY"`
	STTKeyterms      string        `env:"STT_KEYTERMS"`
	PreprocessAudio  bool          `env:"PREPROCESS_AUDIO" envDefault:"false"`

	LLMURL     string        `env:"LLM_URL"`
	LLMModel   string        `env:"LLM_MODEL" envDefault:"gpt-4"`
	LLMAPIKey  string        `env:"LLM_API_KEY"`
	LLMTimeout time.Duration `env:"LLM_TIMEOUT" envDefault:"2m"`

	MQTTBrokerURL   string `env:"MQTT_BROKER_URL"`
	MQTTClientID    string `env:"MQTT_CLIENT_ID" envDefault:"clinic-engine"`
	MQTTUsername    string `env:"MQTT_USERNAME"`
	MQTTPassword    string `env:"MQTT_PASSWORD"`
	MQTTTopicPrefix string `env:"MQTT_TOPIC_PREFIX" envDefault:"clinic"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// S3Config configures the optional S3-compatible audio store.
type S3Config struct {
	Bucket     string `env:"S3_BUCKET"`
	Endpoint   string `env:"S3_ENDPOINT"`
	Region     string `env:"S3_REGION" envDefault:"us-east-1"`
	AccessKey  string `env:"S3_ACCESS_KEY"`
	SecretKey  string `env:"S3_SECRET_KEY"`
	Prefix     string `env:"S3_PREFIX"`
	LocalCache bool   `env:"S3_LOCAL_CACHE" envDefault:"false"`
}

// Enabled reports whether S3 storage is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile       string
	HTTPAddr      string
	LogLevel      string
	DatabaseURL   string
	AudioDir      string
	MQTTBrokerURL string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
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
	if overrides.DatabaseURL != "" {
		cfg.DatabaseURL = overrides.DatabaseURL
	}
	if overrides.AudioDir != "" {
		cfg.AudioDir = overrides.AudioDir
	}
	if overrides.MQTTBrokerURL != "" {
		cfg.MQTTBrokerURL = overrides.MQTTBrokerURL
	}

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	return cfg, nil
}

// TranscribeAPIKey returns the key for the configured speech-to-text provider.
func (c *Config) TranscribeAPIKey() string {
	switch c.STTProvider {
	case "deepinfra":
		return c.DeepInfraAPIKey
	case "elevenlabs":
		return c.ElevenLabsAPIKey
	}
	return c.WhisperAPIKey
}
