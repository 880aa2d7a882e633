package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"engdoc-auditor/api/internal/audit/types"
	"engdoc-auditor/api/internal/util"
)

// wire-структуры с указателями: отличаем отсутствующее поле от нулевого значения.
type wireSummary struct {
	TotalChecks *int `json:"total_checks"`
	Errors      *int `json:"errors"`
	Warnings    *int `json:"warnings"`
}

type wireIssue struct {
	Type        *string `json:"type"`
	Section     *string `json:"section"`
	Sheet       *string `json:"sheet"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
	Reference   *string `json:"reference"`
}

type wireResult struct {
	Summary *wireSummary `json:"summary"`
	Issues  *[]wireIssue `json:"issues"`
}

// ParseResult разбирает ответ модели строго по audit.schema.json.
// Никаких значений по умолчанию: любое отсутствующее поле: ошибка.
func ParseResult(raw string) (types.AnalysisResult, error) {
	txt := util.StripCodeFences(raw)
	if txt == "" {
		return types.AnalysisResult{}, ErrNoResponse
	}

	dec := json.NewDecoder(strings.NewReader(txt))
	var w wireResult
	if err := dec.Decode(&w); err != nil {
		return types.AnalysisResult{}, malformed("bad JSON", err)
	}
	if err := dec.Decode(&json.RawMessage{}); err != io.EOF {
		return types.AnalysisResult{}, malformed("лишние данные после JSON", err)
	}

	if w.Summary == nil {
		return types.AnalysisResult{}, missingField("summary")
	}
	if w.Summary.TotalChecks == nil {
		return types.AnalysisResult{}, missingField("summary.total_checks")
	}
	if w.Summary.Errors == nil {
		return types.AnalysisResult{}, missingField("summary.errors")
	}
	if w.Summary.Warnings == nil {
		return types.AnalysisResult{}, missingField("summary.warnings")
	}
	if w.Issues == nil {
		return types.AnalysisResult{}, missingField("issues")
	}

	out := types.AnalysisResult{
		Summary: types.AnalysisSummary{
			TotalChecks: *w.Summary.TotalChecks,
			Errors:      *w.Summary.Errors,
			Warnings:    *w.Summary.Warnings,
		},
		Issues: make([]types.Issue, 0, len(*w.Issues)),
	}
	for i, wi := range *w.Issues {
		is, err := wi.toIssue(i)
		if err != nil {
			return types.AnalysisResult{}, err
		}
		out.Issues = append(out.Issues, is)
	}
	return out, nil
}

func (wi wireIssue) toIssue(i int) (types.Issue, error) {
	fields := []struct {
		name string
		v    *string
	}{
		{"type", wi.Type},
		{"section", wi.Section},
		{"sheet", wi.Sheet},
		{"location", wi.Location},
		{"description", wi.Description},
		{"reference", wi.Reference},
	}
	for _, f := range fields {
		if f.v == nil {
			return types.Issue{}, missingField(fmt.Sprintf("issues[%d].%s", i, f.name))
		}
	}
	t := types.IssueType(*wi.Type)
	if !t.Valid() {
		return types.Issue{}, malformed(fmt.Sprintf("issues[%d].type=%q вне перечисления error|warning", i, *wi.Type), nil)
	}
	return types.Issue{
		Type:        t,
		Section:     *wi.Section,
		Sheet:       *wi.Sheet,
		Location:    *wi.Location,
		Description: *wi.Description,
		Reference:   *wi.Reference,
	}, nil
}

// MarshalResult: обратная сериализация (для JSON API и тестов).
func MarshalResult(r types.AnalysisResult) ([]byte, error) {
	if r.Issues == nil {
		r.Issues = []types.Issue{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}
