package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the reel-to-recipe server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Pipeline PipelineConfig
	Media    MediaConfig
	AI       AIConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// PipelineConfig tunes the coordinator. Defaults are deliberate, not magic:
// three attempts with a 2s base doubling to a 1m cap keeps a flaky download
// under five minutes end to end, and a 2m visibility timeout comfortably
// covers a stuck worker without stalling redelivery for long.
type PipelineConfig struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffCap        time.Duration
	VisibilityTimeout time.Duration
	DequeueWait       time.Duration
	DownloadWorkers   int
	MediaWorkers      int
	AIWorkers         int
	DataDir           string
}

// MediaConfig names the external tools the media-extract stage shells out to.
type MediaConfig struct {
	YTDLPBin     string
	FFmpegBin    string
	FFprobeBin   string
	TesseractBin string
	WhisperBin   string
	FrameCount   int
}

type AIConfig struct {
	Provider         string
	InferenceTimeout time.Duration
	Ollama           OllamaConfig
	OpenAI           OpenAIConfig
	Anthropic        AnthropicConfig
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

var validProviders = map[string]bool{
	"ollama":    true,
	"openai":    true,
	"anthropic": true,
	"mock":      true,
}

// Load reads configuration from environment variables and returns a validated
// Config. Returns an error with a descriptive message if any required value
// is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("REELRECIPE_PORT", 8080),
			Env:  envString("REELRECIPE_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Pipeline: PipelineConfig{
			MaxAttempts:       envInt("PIPELINE_MAX_ATTEMPTS", 3),
			BackoffBase:       envDuration("PIPELINE_BACKOFF_BASE", 2*time.Second),
			BackoffCap:        envDuration("PIPELINE_BACKOFF_CAP", time.Minute),
			VisibilityTimeout: envDuration("PIPELINE_VISIBILITY_TIMEOUT", 2*time.Minute),
			DequeueWait:       envDuration("PIPELINE_DEQUEUE_WAIT", 5*time.Second),
			DownloadWorkers:   envInt("PIPELINE_DOWNLOAD_WORKERS", 2),
			MediaWorkers:      envInt("PIPELINE_MEDIA_WORKERS", 2),
			AIWorkers:         envInt("PIPELINE_AI_WORKERS", 2),
			DataDir:           envString("PIPELINE_DATA_DIR", "/tmp/reel-to-recipe"),
		},
		Media: MediaConfig{
			YTDLPBin:     envString("YTDLP_BIN", "yt-dlp"),
			FFmpegBin:    envString("FFMPEG_BIN", "ffmpeg"),
			FFprobeBin:   envString("FFPROBE_BIN", "ffprobe"),
			TesseractBin: envString("TESSERACT_BIN", "tesseract"),
			WhisperBin:   envString("WHISPER_BIN", "whisper"),
			FrameCount:   envInt("MEDIA_FRAME_COUNT", 12),
		},
		AI: AIConfig{
			Provider:         os.Getenv("AI_PROVIDER"),
			InferenceTimeout: envDurationSecs("AI_INFERENCE_TIMEOUT_SECS", 90*time.Second),
			Ollama: OllamaConfig{
				BaseURL: envString("OLLAMA_BASE_URL", "http://localhost:11434"),
				Model:   envString("OLLAMA_MODEL", "llama3"),
			},
			OpenAI: OpenAIConfig{
				APIKey: os.Getenv("OPENAI_API_KEY"),
				Model:  envString("OPENAI_MODEL", "gpt-4o"),
			},
			Anthropic: AnthropicConfig{
				APIKey: os.Getenv("ANTHROPIC_API_KEY"),
				Model:  envString("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.AI.Provider == "" {
		return fmt.Errorf("AI_PROVIDER is required")
	}
	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of ollama, openai, anthropic, mock; got %q", c.AI.Provider)
	}

	if c.AI.Provider == "openai" && c.AI.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is openai")
	}
	if c.AI.Provider == "anthropic" && c.AI.Anthropic.APIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when AI_PROVIDER is anthropic")
	}

	if c.Pipeline.MaxAttempts < 1 {
		return fmt.Errorf("PIPELINE_MAX_ATTEMPTS must be at least 1, got %d", c.Pipeline.MaxAttempts)
	}
	if c.Pipeline.BackoffBase <= 0 {
		return fmt.Errorf("PIPELINE_BACKOFF_BASE must be positive")
	}
	if c.Pipeline.BackoffCap < c.Pipeline.BackoffBase {
		return fmt.Errorf("PIPELINE_BACKOFF_CAP must be >= PIPELINE_BACKOFF_BASE")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
