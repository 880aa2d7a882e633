package gpt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"engdoc-auditor/api/internal/audit/prompt"
	"engdoc-auditor/api/internal/audit/types"
	"engdoc-auditor/api/internal/util"
)

const (
	DefaultModel   = "gpt-5-mini"
	DefaultBaseURL = "https://api.openai.com/v1"
)

type Engine struct {
	APIKey  string
	Model   string
	BaseURL string
	httpc   *http.Client
}

func New(key, model string) *Engine {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second, // TCP connect
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		// PDF-анализ с рассуждениями долго молчит до первых заголовков
		ResponseHeaderTimeout: 300 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}

	return &Engine{
		APIKey:  strings.TrimSpace(key),
		Model:   model,
		BaseURL: DefaultBaseURL,
		// Timeout=0: общий дедлайн задаёт контекст запроса
		httpc: &http.Client{
			Timeout:   0,
			Transport: tr,
		},
	}
}

// WithHTTPClient overrides the internal HTTP client (e.g., for custom timeouts or tracing).
func (e *Engine) WithHTTPClient(c *http.Client) *Engine {
	if c != nil {
		e.httpc = c
	}
	return e
}

// WithBaseURL points the engine at a compatible Responses API endpoint.
func (e *Engine) WithBaseURL(u string) *Engine {
	if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
		e.BaseURL = u
	}
	return e
}

func (e *Engine) Name() string        { return "gpt" }
func (e *Engine) GetModel() string    { return e.Model }
func (e *Engine) HasCredential() bool { return e.APIKey != "" }

func (e *Engine) Generate(ctx context.Context, in types.GenerateRequest) (string, error) {
	if e.APIKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY is empty")
	}
	body, err := e.RequestBody(in)
	if err != nil {
		return "", err
	}

	payload, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/responses", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai audit %d: %s", resp.StatusCode, apiErrorMessage(raw))
	}
	return extractResponsesText(raw), nil
}

// RequestBody собирает тело Responses API: текст, затем файлы data:URL в исходном порядке.
func (e *Engine) RequestBody(in types.GenerateRequest) (map[string]any, error) {
	schema, err := prompt.SchemaMap()
	if err != nil {
		return nil, err
	}
	util.FixJSONSchemaStrict(schema)
	delete(schema, "$schema")

	content := []any{
		map[string]any{"type": "input_text", "text": in.Prompt},
	}
	for i, f := range in.Files {
		data, hint, err := util.DecodeBase64MaybeDataURL(f.Data)
		if err != nil {
			return nil, fmt.Errorf("openai: file #%d (%s): bad base64: %w", i, f.Name, err)
		}
		name := f.Name
		if name == "" {
			name = fmt.Sprintf("document-%d.pdf", i+1)
		}
		content = append(content, map[string]any{
			"type":      "input_file",
			"filename":  name,
			"file_data": util.MakeDataURL(util.PickMIME(f.MIMEType, hint, data), f.Data),
		})
	}

	body := map[string]any{
		"model": e.Model,
		"input": []any{
			map[string]any{
				"type":    "message",
				"role":    "user",
				"content": content,
			},
		},
		"text": map[string]any{
			"format": map[string]any{
				"type":   "json_schema",
				"name":   prompt.AUDIT,
				"strict": true,
				"schema": schema,
			},
		},
	}
	if isReasoningModel(e.Model) && in.ThinkingBudget > 0 {
		body["reasoning"] = map[string]any{"effort": EffortForBudget(in.ThinkingBudget)}
	}
	return body, nil
}

// EffortForBudget переводит бюджет токенов рассуждений в reasoning.effort.
func EffortForBudget(budget int32) string {
	switch {
	case budget <= 2048:
		return "low"
	case budget <= 8192:
		return "medium"
	default:
		return "high"
	}
}

func isReasoningModel(m string) bool {
	m = strings.ToLower(m)
	return strings.HasPrefix(m, "gpt-5") || strings.HasPrefix(m, "o1") ||
		strings.HasPrefix(m, "o3") || strings.HasPrefix(m, "o4")
}

// extractResponsesText extracts model text from the Responses API envelope.
// It prefers `output_text`, and otherwise concatenates any text segments
// found in `output[i].content[j].text` where `type` is `output_text` or `text`.
func extractResponsesText(raw []byte) string {
	type content struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	type output struct {
		Type    string    `json:"type"`
		Content []content `json:"content"`
	}
	var env struct {
		Output     []output `json:"output"`
		OutputText string   `json:"output_text"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}

	if s := strings.TrimSpace(env.OutputText); s != "" {
		return s
	}

	var b strings.Builder
	for _, o := range env.Output {
		if o.Type == "reasoning" {
			continue
		}
		for _, c := range o.Content {
			if strings.TrimSpace(c.Text) == "" {
				continue
			}
			if c.Type == "output_text" || c.Type == "text" || c.Type == "" {
				b.WriteString(c.Text)
			}
		}
	}
	return b.String()
}

func apiErrorMessage(raw []byte) string {
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && strings.TrimSpace(env.Error.Message) != "" {
		return env.Error.Message
	}
	return truncateBytes(bytes.TrimSpace(raw), 1024)
}

func truncateBytes(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
