package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Config is the top-level unibot configuration.
type Config struct {
	Helpdesk   HelpdeskConfig  `json:"helpdesk"`
	Triage     TriageConfig    `json:"triage"`
	Speech     SpeechConfig    `json:"speech"`
	Sweep      SweepConfig     `json:"sweep"`
	Connectors ConnectorConfig `json:"connectors"`
	API        APIConfig       `json:"api"`
}

// HelpdeskConfig holds service-level settings.
type HelpdeskConfig struct {
	Name    string `json:"name"`     // assistant display name, default "UniBot"
	DataDir string `json:"data_dir"` // SQLite databases live here
}

// TriageConfig bounds the engine's simulated thinking time.
type TriageConfig struct {
	MinDelayMs int `json:"min_delay_ms,omitempty"` // default 800
	MaxDelayMs int `json:"max_delay_ms,omitempty"` // default 2000
}

// SpeechConfig holds the recognition and synthesis backends. A nil
// section means that capability is unavailable and callers should hide
// the corresponding voice controls.
type SpeechConfig struct {
	Recognition *RecognitionConfig `json:"recognition,omitempty"`
	Synthesis   *SynthesisConfig   `json:"synthesis,omitempty"`
}

// RecognitionConfig configures the transcription endpoint.
// Supports OpenAI-compatible audio transcription APIs.
type RecognitionConfig struct {
	URL    string `json:"url,omitempty"`   // default Whisper-compatible endpoint
	APIKey string `json:"api_key"`
	Model  string `json:"model,omitempty"` // default "whisper-large-v3-turbo"
}

// SynthesisConfig configures the speech synthesis endpoint.
type SynthesisConfig struct {
	URL    string `json:"url,omitempty"`
	APIKey string `json:"api_key"`
	Model  string `json:"model,omitempty"`
	// PlayerCommand reads audio on stdin and plays it. Defaults to
	// ffplay.
	PlayerCommand []string `json:"player_command,omitempty"`
}

// SweepConfig controls the stale-ticket sweep.
type SweepConfig struct {
	Schedule    string `json:"schedule,omitempty"`      // cron expression, default "@hourly"
	MaxAgeHours int    `json:"max_age_hours,omitempty"` // default 48
}

// ConnectorConfig holds settings for external chat front-ends.
type ConnectorConfig struct {
	Telegram *TelegramConfig          `json:"telegram,omitempty"`
	Webhook  map[string]WebhookSource `json:"webhook,omitempty"` // source name -> auth
}

// WebhookSource configures one webhook source's authentication. With
// both fields empty the source is open, which is only sensible in
// development.
type WebhookSource struct {
	Secret      string `json:"secret,omitempty"`
	BearerToken string `json:"bearer_token,omitempty"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token     string  `json:"token"`
	AllowFrom []int64 `json:"allow_from,omitempty"`
}

// APIConfig holds REST API server settings.
type APIConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	Key  string `json:"api_key"`
}

// Load reads configuration from a JSON file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds a minimal configuration from environment variables,
// for deployments without a config file.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Helpdesk: HelpdeskConfig{
			Name:    envOr("UNIBOT_NAME", "UniBot"),
			DataDir: envOr("UNIBOT_DATA_DIR", "./data"),
		},
		API: APIConfig{
			Host: envOr("UNIBOT_API_HOST", "127.0.0.1"),
			Port: envInt("UNIBOT_API_PORT", 8420),
			Key:  os.Getenv("UNIBOT_API_KEY"),
		},
	}
	if token := os.Getenv("UNIBOT_TELEGRAM_TOKEN"); token != "" {
		cfg.Connectors.Telegram = &TelegramConfig{Token: token}
	}
	if key := os.Getenv("UNIBOT_SPEECH_API_KEY"); key != "" {
		cfg.Speech.Recognition = &RecognitionConfig{APIKey: key}
		cfg.Speech.Synthesis = &SynthesisConfig{APIKey: key}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Helpdesk.Name == "" {
		c.Helpdesk.Name = "UniBot"
	}
	if c.Helpdesk.DataDir == "" {
		c.Helpdesk.DataDir = "./data"
	}
	if c.Triage.MinDelayMs == 0 {
		c.Triage.MinDelayMs = 800
	}
	if c.Triage.MaxDelayMs == 0 {
		c.Triage.MaxDelayMs = 2000
	}
	if c.Sweep.Schedule == "" {
		c.Sweep.Schedule = "@hourly"
	}
	if c.Sweep.MaxAgeHours == 0 {
		c.Sweep.MaxAgeHours = 48
	}
	if c.API.Host == "" {
		c.API.Host = "127.0.0.1"
	}
	if c.API.Port == 0 {
		c.API.Port = 8420
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Triage.MinDelayMs < 0 || c.Triage.MaxDelayMs < c.Triage.MinDelayMs {
		return fmt.Errorf("config: triage delay bounds invalid (min %d, max %d)",
			c.Triage.MinDelayMs, c.Triage.MaxDelayMs)
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("config: api port %d out of range", c.API.Port)
	}
	if c.Connectors.Telegram != nil && c.Connectors.Telegram.Token == "" {
		return fmt.Errorf("config: telegram connector requires a token")
	}
	if c.Speech.Recognition != nil && c.Speech.Recognition.APIKey == "" {
		return fmt.Errorf("config: speech recognition requires an api_key")
	}
	if c.Speech.Synthesis != nil && c.Speech.Synthesis.APIKey == "" {
		return fmt.Errorf("config: speech synthesis requires an api_key")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
