package audit

import (
	"context"
	"fmt"
	"strings"

	"engdoc-auditor/api/internal/audit/types"
)

// Engine: внешний генеративный сервис. Generate делает ровно один вызов
// и возвращает текстовую часть ответа (может быть пустой).
type Engine interface {
	Name() string
	GetModel() string
	HasCredential() bool
	Generate(ctx context.Context, in types.GenerateRequest) (string, error)
}

type Engines struct {
	Gemini       Engine
	GeminiLegacy Engine
	OpenAI       Engine
}

func (e *Engines) GetEngine(name string) (Engine, error) {
	var eng Engine
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "gemini":
		eng = e.Gemini
	case "gemini-legacy", "legacy":
		eng = e.GeminiLegacy
	case "gpt", "openai":
		eng = e.OpenAI
	default:
		return nil, fmt.Errorf("unknown engine %q; use 'gemini', 'gemini-legacy' or 'gpt'", name)
	}
	if eng == nil {
		return nil, fmt.Errorf("engine %q is not configured", name)
	}
	return eng, nil
}

// Names lists configured engines.
func (e *Engines) Names() []string {
	var out []string
	if e.Gemini != nil {
		out = append(out, "gemini")
	}
	if e.GeminiLegacy != nil {
		out = append(out, "gemini-legacy")
	}
	if e.OpenAI != nil {
		out = append(out, "gpt")
	}
	return out
}
