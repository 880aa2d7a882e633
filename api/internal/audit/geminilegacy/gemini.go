package geminilegacy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"k8s.io/klog/v2"

	"engdoc-auditor/api/internal/audit/prompt"
	"engdoc-auditor/api/internal/audit/types"
	"engdoc-auditor/api/internal/util"
)

const DefaultModel = "gemini-2.5-pro"

// Engine: Gemini через github.com/google/generative-ai-go.
// Этот SDK не умеет thinkingConfig: бюджет игнорируется.
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

func (e *Engine) Name() string        { return "gemini-legacy" }
func (e *Engine) GetModel() string    { return e.Model }
func (e *Engine) HasCredential() bool { return e.APIKey != "" }

func (e *Engine) Generate(ctx context.Context, in types.GenerateRequest) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	// Возвращаем строго JSON
	m.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   ResponseSchema(),
	}
	if in.ThinkingBudget > 0 {
		klog.V(2).Infof("gemini-legacy: thinking budget %d is not supported by this SDK, using model default", in.ThinkingBudget)
	}

	parts, err := Parts(in)
	if err != nil {
		return "", err
	}
	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", err
	}
	return firstText(resp), nil
}

func Parts(in types.GenerateRequest) ([]genai.Part, error) {
	parts := []genai.Part{genai.Text(in.Prompt)}
	for i, f := range in.Files {
		data, hint, err := util.DecodeBase64MaybeDataURL(f.Data)
		if err != nil {
			return nil, fmt.Errorf("gemini: file #%d (%s): bad base64: %w", i, f.Name, err)
		}
		parts = append(parts, &genai.Blob{MIMEType: util.PickMIME(f.MIMEType, hint, data), Data: data})
	}
	return parts, nil
}

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
				Type:       genai.TypeObject,
				Properties: summaryProps,
				Required:   append([]string(nil), prompt.SummaryFields...),
			},
			"issues": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: issueProps,
					Required:   append([]string(nil), prompt.IssueFields...),
				},
			},
		},
		Required: []string{"summary", "issues"},
	}
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return ""
}
