package cli

import (
	"fmt"

	"k8s.io/klog/v2"

	"engdoc-auditor/api/internal/audit"
	"engdoc-auditor/api/internal/audit/gemini"
	"engdoc-auditor/api/internal/audit/geminilegacy"
	"engdoc-auditor/api/internal/audit/gpt"
	"engdoc-auditor/api/internal/config"
)

// ConfigPath: значение флага --config.
var ConfigPath string

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func NewEngines(cfg *config.Config) *audit.Engines {
	return &audit.Engines{
		Gemini:       gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel),
		GeminiLegacy: geminilegacy.New(cfg.GeminiAPIKey, ""),
		OpenAI:       gpt.New(cfg.OpenAIAPIKey, cfg.OpenAIModel),
	}
}

// NewClient собирает клиента анализа. Отсутствие ключа здесь не ошибка:
// о нём узнают при запуске анализа.
func NewClient(cfg *config.Config, engineName string) (*audit.Client, error) {
	if engineName == "" {
		engineName = cfg.Engine
	}
	eng, err := NewEngines(cfg).GetEngine(engineName)
	if err != nil {
		return nil, err
	}
	if !eng.HasCredential() {
		klog.Warningf("engine %s: API key is not set; analyses will fail until it is configured", eng.Name())
	}
	klog.Infof("audit engine: %s (%s)", eng.Name(), eng.GetModel())
	return audit.NewClient(eng,
		audit.WithThinkingBudget(cfg.ThinkingBudget),
		audit.WithPromptDir(cfg.PromptDir),
	), nil
}
