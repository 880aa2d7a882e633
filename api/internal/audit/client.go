package audit

import (
	"context"
	"strings"
	"time"

	"k8s.io/klog/v2"

	"engdoc-auditor/api/internal/audit/prompt"
	"engdoc-auditor/api/internal/audit/types"
	"engdoc-auditor/api/internal/util"
)

// DefaultThinkingBudget: лимит «размышлений» модели на один анализ.
const DefaultThinkingBudget int32 = 4096

// Analyzer: то, что вызывает состояние формы.
type Analyzer interface {
	Analyze(ctx context.Context, in types.AnalysisInput) (types.AnalysisResult, error)
}

// Client: оркестрация одного анализа: кодирование, промпт, вызов, разбор.
type Client struct {
	engine         Engine
	prompts        prompt.Builder
	thinkingBudget int32
}

type Option func(*Client)

func WithThinkingBudget(n int32) Option {
	return func(c *Client) { c.thinkingBudget = n }
}

func WithPromptDir(dir string) Option {
	return func(c *Client) { c.prompts.PromptDir = strings.TrimSpace(dir) }
}

func NewClient(engine Engine, opts ...Option) *Client {
	c := &Client{engine: engine, thinkingBudget: DefaultThinkingBudget}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) EngineName() string {
	if c.engine == nil {
		return ""
	}
	return c.engine.Name()
}

// Analyze выполняет ровно один внешний вызов. Повторов и кэша нет.
func (c *Client) Analyze(ctx context.Context, in types.AnalysisInput) (types.AnalysisResult, error) {
	if in.Primary == nil {
		return types.AnalysisResult{}, ErrNoPrimaryDocument
	}
	if c.engine == nil || !c.engine.HasCredential() {
		return types.AnalysisResult{}, ErrMissingCredential
	}

	files, err := util.EncodeAll(ctx, in.Documents())
	if err != nil {
		return types.AnalysisResult{}, err
	}

	req := types.GenerateRequest{
		Prompt:         c.prompts.Build(in.Options, in.Instructions, in.ProjectCode),
		Files:          files,
		ThinkingBudget: c.thinkingBudget,
	}

	started := time.Now()
	klog.Infof("audit: engine=%s model=%s files=%d checks=%d", c.engine.Name(), c.engine.GetModel(), len(files), len(in.Options.Enabled()))
	raw, err := c.engine.Generate(ctx, req)
	if err != nil {
		klog.Errorf("audit: %s failed after %v: %v", c.engine.Name(), time.Since(started), err)
		return types.AnalysisResult{}, &ServiceError{Engine: c.engine.Name(), Err: err}
	}
	if strings.TrimSpace(raw) == "" {
		klog.Errorf("audit: %s returned empty payload", c.engine.Name())
		return types.AnalysisResult{}, ErrNoResponse
	}

	res, err := ParseResult(raw)
	if err != nil {
		klog.Errorf("audit: %s output rejected: %v", c.engine.Name(), err)
		return types.AnalysisResult{}, err
	}
	klog.Infof("audit: done in %v: total=%d errors=%d warnings=%d issues=%d",
		time.Since(started), res.Summary.TotalChecks, res.Summary.Errors, res.Summary.Warnings, len(res.Issues))
	return res, nil
}
