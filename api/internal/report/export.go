package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"engdoc-auditor/api/internal/audit/types"
)

// Marshal сериализует результат: json | yaml.
func Marshal(r types.AnalysisResult, format string) ([]byte, error) {
	if r.Issues == nil {
		r.Issues = []types.Issue{}
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "yaml", "yml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q (supported: json, yaml)", format)
	}
}
