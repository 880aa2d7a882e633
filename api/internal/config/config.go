package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config: настройки сервиса. Ключ API может отсутствовать:
// это выясняется при запуске анализа, а не при старте.
type Config struct {
	Port string `yaml:"port"`

	Engine         string `yaml:"engine"`
	GeminiAPIKey   string `yaml:"gemini_api_key"`
	GeminiModel    string `yaml:"gemini_model"`
	ThinkingBudget int32  `yaml:"thinking_budget"`
	OpenAIAPIKey   string `yaml:"openai_api_key"`
	OpenAIModel    string `yaml:"openai_model"`
	PromptDir      string `yaml:"prompt_dir"`

	TelegramBotToken string `yaml:"telegram_bot_token"`
	WebhookURL       string `yaml:"webhook_url"`

	MaxUploadMB       int64 `yaml:"max_upload_mb"`
	RequestTimeoutSec int   `yaml:"request_timeout_sec"`
	SessionIdleMin    int   `yaml:"session_idle_min"`
}

const (
	DefaultPort              = "8000"
	DefaultEngine            = "gemini"
	DefaultGeminiModel       = "gemini-3-pro-preview"
	DefaultOpenAIModel       = "gpt-5-mini"
	DefaultThinkingBudget    = 4096
	DefaultMaxUploadMB       = 10
	DefaultRequestTimeoutSec = 300
	DefaultSessionIdleMin    = 60
)

// EnvConfigPath: переменная с путём к YAML-файлу.
const EnvConfigPath = "ENGDOC_CONFIG"

func Default() *Config {
	return &Config{
		Port:              DefaultPort,
		Engine:            DefaultEngine,
		GeminiModel:       DefaultGeminiModel,
		ThinkingBudget:    DefaultThinkingBudget,
		OpenAIModel:       DefaultOpenAIModel,
		MaxUploadMB:       DefaultMaxUploadMB,
		RequestTimeoutSec: DefaultRequestTimeoutSec,
		SessionIdleMin:    DefaultSessionIdleMin,
	}
}

// Load: значения по умолчанию → YAML (path или ENGDOC_CONFIG) → переменные окружения.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	get := func(k string) string { return strings.TrimSpace(getenv(k)) }

	c.Port = getEnv(get, "PORT", c.Port)
	c.Engine = getEnv(get, "AUDIT_ENGINE", c.Engine)
	// API_KEY: старое имя ключа Gemini
	c.GeminiAPIKey = getEnv(get, "API_KEY", c.GeminiAPIKey)
	c.GeminiAPIKey = getEnv(get, "GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiModel = getEnv(get, "GEMINI_MODEL", c.GeminiModel)
	c.OpenAIAPIKey = getEnv(get, "OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIModel = getEnv(get, "OPENAI_MODEL", c.OpenAIModel)
	c.PromptDir = getEnv(get, "PROMPT_DIR", c.PromptDir)
	c.TelegramBotToken = getEnv(get, "TELEGRAM_BOT_TOKEN", c.TelegramBotToken)
	c.WebhookURL = getEnv(get, "WEBHOOK_URL", c.WebhookURL)

	if v := get("THINKING_BUDGET"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("THINKING_BUDGET: %w", err)
		}
		c.ThinkingBudget = int32(n)
	}
	if v := get("MAX_UPLOAD_MB"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_MB: %w", err)
		}
		c.MaxUploadMB = n
	}
	for _, kv := range []struct {
		key string
		dst *int
	}{
		{"REQUEST_TIMEOUT_SEC", &c.RequestTimeoutSec},
		{"SESSION_IDLE_MIN", &c.SessionIdleMin},
	} {
		if v := get(kv.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", kv.key, err)
			}
			*kv.dst = n
		}
	}
	return nil
}

func getEnv(get func(string) string, k, def string) string {
	if v := get(k); v != "" {
		return v
	}
	return def
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.Port) == "" {
		c.Port = DefaultPort
	}
	if strings.TrimSpace(c.Engine) == "" {
		c.Engine = DefaultEngine
	}
	if c.GeminiModel == "" {
		c.GeminiModel = DefaultGeminiModel
	}
	if c.OpenAIModel == "" {
		c.OpenAIModel = DefaultOpenAIModel
	}
	if c.ThinkingBudget < 0 {
		c.ThinkingBudget = DefaultThinkingBudget
	}
	if c.MaxUploadMB <= 0 {
		c.MaxUploadMB = DefaultMaxUploadMB
	}
	if c.RequestTimeoutSec <= 0 {
		c.RequestTimeoutSec = DefaultRequestTimeoutSec
	}
	if c.SessionIdleMin <= 0 {
		c.SessionIdleMin = DefaultSessionIdleMin
	}
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMin) * time.Minute
}

func (c *Config) MaxUploadBytes() int64 { return c.MaxUploadMB << 20 }
