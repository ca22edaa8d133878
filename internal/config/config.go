package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the call-answering service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	LogLevel         string
	LogPretty        bool

	AllowAnyOrigin bool

	// PublicBaseURL is the externally reachable address Vonage uses to fetch
	// synthesized audio (e.g. an ngrok tunnel in development).
	PublicBaseURL string

	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAIMaxTokens   int
	OpenAITemperature float64
	LLMTimeout        time.Duration
	LLMMaxRetries     int

	AWSRegion       string
	PollyVoiceID    string
	PollySampleRate string
	TTSTimeout      time.Duration

	VonageApplicationID  string
	VonagePrivateKeyPath string
	VonageAPIBaseURL     string
	VonageTokenTTL       time.Duration
	CallControlTimeout   time.Duration

	DocumentPath    string
	ChunkSize       int
	ChunkOverlap    int
	RetrievalPolicy string

	AudioDir             string
	AudioRetention       time.Duration
	AudioJanitorInterval time.Duration

	DatabaseURL string

	ChatReplyCacheSize  int
	ChatResponseTimeout time.Duration

	MaxConcurrentPipelines int
}

// Load reads a local .env (if present) and environment variables, then
// applies defaults and validation.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		BindAddr:             envOrDefault("APP_BIND_ADDR", ":5001"),
		MetricsNamespace:     envOrDefault("APP_METRICS_NAMESPACE", "voicedesk"),
		LogLevel:             envOrDefault("APP_LOG_LEVEL", "info"),
		PublicBaseURL:        strings.TrimRight(trimmedEnv("PUBLIC_BASE_URL"), "/"),
		OpenAIAPIKey:         trimmedEnv("OPENAI_API_KEY"),
		OpenAIBaseURL:        trimmedEnv("OPENAI_BASE_URL"),
		OpenAIModel:          envOrDefault("OPENAI_MODEL", "gpt-3.5-turbo"),
		OpenAIMaxTokens:      500,
		OpenAITemperature:    1.0,
		AWSRegion:            envOrDefault("AWS_REGION", "ap-northeast-2"),
		PollyVoiceID:         envOrDefault("POLLY_VOICE_ID", "Seoyeon"),
		PollySampleRate:      envOrDefault("POLLY_SAMPLE_RATE", "16000"),
		VonageApplicationID:  trimmedEnv("VONAGE_APPLICATION_ID"),
		VonagePrivateKeyPath: trimmedEnv("VONAGE_APPLICATION_PRIVATE_KEY_PATH"),
		VonageAPIBaseURL:     envOrDefault("VONAGE_API_BASE_URL", "https://api.nexmo.com"),
		DocumentPath:         envOrDefault("POLICY_DOCUMENT_PATH", "data/policy.pdf"),
		ChunkSize:            4000,
		ChunkOverlap:         200,
		RetrievalPolicy:      envOrDefault("RETRIEVAL_POLICY", "first_chunk"),
		AudioDir:             envOrDefault("AUDIO_DIR", "audio"),
		DatabaseURL:          trimmedEnv("DATABASE_URL"),

		ShutdownTimeout:        15 * time.Second,
		LLMTimeout:             30 * time.Second,
		LLMMaxRetries:          2,
		TTSTimeout:             20 * time.Second,
		VonageTokenTTL:         10 * time.Minute,
		CallControlTimeout:     10 * time.Second,
		AudioRetention:         time.Hour,
		AudioJanitorInterval:   time.Minute,
		ChatReplyCacheSize:     128,
		ChatResponseTimeout:    45 * time.Second,
		MaxConcurrentPipelines: 16,
	}

	var err error
	if cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return Config{}, err
	}
	if cfg.LLMTimeout, err = durationFromEnv("LLM_TIMEOUT", cfg.LLMTimeout); err != nil {
		return Config{}, err
	}
	if cfg.TTSTimeout, err = durationFromEnv("TTS_TIMEOUT", cfg.TTSTimeout); err != nil {
		return Config{}, err
	}
	if cfg.VonageTokenTTL, err = durationFromEnv("VONAGE_TOKEN_TTL", cfg.VonageTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.CallControlTimeout, err = durationFromEnv("CALL_CONTROL_TIMEOUT", cfg.CallControlTimeout); err != nil {
		return Config{}, err
	}
	if cfg.AudioRetention, err = durationFromEnv("AUDIO_RETENTION", cfg.AudioRetention); err != nil {
		return Config{}, err
	}
	if cfg.AudioJanitorInterval, err = durationFromEnv("AUDIO_JANITOR_INTERVAL", cfg.AudioJanitorInterval); err != nil {
		return Config{}, err
	}
	if cfg.ChatResponseTimeout, err = durationFromEnv("CHAT_RESPONSE_TIMEOUT", cfg.ChatResponseTimeout); err != nil {
		return Config{}, err
	}
	if cfg.OpenAIMaxTokens, err = intFromEnv("OPENAI_MAX_TOKENS", cfg.OpenAIMaxTokens); err != nil {
		return Config{}, err
	}
	if cfg.LLMMaxRetries, err = intFromEnv("LLM_MAX_RETRIES", cfg.LLMMaxRetries); err != nil {
		return Config{}, err
	}
	if cfg.ChunkSize, err = intFromEnv("CHUNK_SIZE", cfg.ChunkSize); err != nil {
		return Config{}, err
	}
	if cfg.ChunkOverlap, err = intFromEnv("CHUNK_OVERLAP", cfg.ChunkOverlap); err != nil {
		return Config{}, err
	}
	if cfg.MaxConcurrentPipelines, err = intFromEnv("MAX_CONCURRENT_PIPELINES", cfg.MaxConcurrentPipelines); err != nil {
		return Config{}, err
	}
	if cfg.ChatReplyCacheSize, err = intFromEnv("CHAT_REPLY_CACHE_SIZE", cfg.ChatReplyCacheSize); err != nil {
		return Config{}, err
	}
	if cfg.OpenAITemperature, err = floatFromEnv("OPENAI_TEMPERATURE", cfg.OpenAITemperature); err != nil {
		return Config{}, err
	}
	if cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin); err != nil {
		return Config{}, err
	}
	if cfg.LogPretty, err = boolFromEnv("APP_LOG_PRETTY", cfg.LogPretty); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks invariants that hold regardless of how the Config was built.
func (c Config) Validate() error {
	if c.PublicBaseURL == "" {
		return fmt.Errorf("PUBLIC_BASE_URL is required")
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.VonageApplicationID == "" {
		return fmt.Errorf("VONAGE_APPLICATION_ID is required")
	}
	if c.VonagePrivateKeyPath == "" {
		return fmt.Errorf("VONAGE_APPLICATION_PRIVATE_KEY_PATH is required")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE)")
	}
	if c.VonageTokenTTL < time.Minute {
		return fmt.Errorf("VONAGE_TOKEN_TTL must be at least 1m")
	}
	if c.OpenAIMaxTokens <= 0 {
		return fmt.Errorf("OPENAI_MAX_TOKENS must be positive")
	}
	if c.LLMMaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES must be >= 0")
	}
	if c.MaxConcurrentPipelines <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_PIPELINES must be positive")
	}
	if c.AudioRetention <= 0 {
		return fmt.Errorf("AUDIO_RETENTION must be positive")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
