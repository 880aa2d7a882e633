package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"engdoc-auditor/api/internal/audit/prompt"
	"engdoc-auditor/api/internal/audit/types"
	"engdoc-auditor/api/internal/util"
)

const DefaultModel = "gemini-3-pro-preview"

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  model,
	}
}

func (e *Engine) Name() string        { return "gemini" }
func (e *Engine) GetModel() string    { return e.Model }
func (e *Engine) HasCredential() bool { return e.APIKey != "" }

// Generate отправляет промпт и файлы одним запросом; ответ: JSON по audit.schema.json.
func (e *Engine) Generate(ctx context.Context, in types.GenerateRequest) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  e.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", err
	}

	parts, err := Parts(in)
	if err != nil {
		return "", err
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := cl.Models.GenerateContent(ctx, e.Model, contents, Config(in.ThinkingBudget))
	if err != nil {
		return "", err
	}
	return firstText(resp), nil
}

// Parts: текст инструкции, затем файлы в исходном порядке.
func Parts(in types.GenerateRequest) ([]*genai.Part, error) {
	parts := make([]*genai.Part, 0, 1+len(in.Files))
	parts = append(parts, genai.NewPartFromText(in.Prompt))
	for i, f := range in.Files {
		data, hint, err := util.DecodeBase64MaybeDataURL(f.Data)
		if err != nil {
			return nil, fmt.Errorf("gemini: file #%d (%s): bad base64: %w", i, f.Name, err)
		}
		parts = append(parts, genai.NewPartFromBytes(data, util.PickMIME(f.MIMEType, hint, data)))
	}
	return parts, nil
}

// Config: строго JSON по схеме и ограничение бюджета размышлений.
func Config(thinkingBudget int32) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   ResponseSchema(),
	}
	if thinkingBudget > 0 {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(thinkingBudget)}
	}
	return cfg
}

// ResponseSchema: audit.schema.json в типах SDK.
func ResponseSchema() *genai.Schema {
	summaryProps := map[string]*genai.Schema{}
	for _, f := range prompt.SummaryFields {
		summaryProps[f] = &genai.Schema{Type: genai.TypeInteger}
	}
	issueProps := map[string]*genai.Schema{}
	for _, f := range prompt.IssueFields {
		issueProps[f] = &genai.Schema{Type: genai.TypeString}
	}
	issueProps["type"].Enum = append([]string(nil), prompt.IssueTypes...)

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary": {
				Type:             genai.TypeObject,
				Properties:       summaryProps,
				Required:         append([]string(nil), prompt.SummaryFields...),
				PropertyOrdering: append([]string(nil), prompt.SummaryFields...),
			},
			"issues": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type:             genai.TypeObject,
					Properties:       issueProps,
					Required:         append([]string(nil), prompt.IssueFields...),
					PropertyOrdering: append([]string(nil), prompt.IssueFields...),
				},
			},
		},
		Required:         []string{"summary", "issues"},
		PropertyOrdering: []string{"summary", "issues"},
	}
}

// firstText склеивает текстовые части первого кандидата, пропуская «мысли».
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, p := range c.Content.Parts {
			if p == nil || p.Thought || p.Text == "" {
				continue
			}
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return ""
}
