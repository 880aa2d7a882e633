package report

import (
	"bytes"
	"embed"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Funcs: функции шаблонов, общие с веб-страницей.
var Funcs = template.FuncMap{
	"issueLabel": IssueLabel,
	"checkMark": func(b bool) string {
		if b {
			return "✔"
		}
		return "—"
	},
}

var resultsTmpl = template.Must(template.New("report").Funcs(Funcs).ParseFS(templatesFS, "templates/*.html"))

type uiText struct {
	PendingTitle, PendingText                 string
	EmptyTitle, EmptyText                     string
	LabelTotal, LabelErrors, LabelWarnings    string
	TitleLog, NoFindingsText, LabelReference string
}

var text = uiText{
	PendingTitle:   PendingTitle,
	PendingText:    PendingText,
	EmptyTitle:     EmptyTitle,
	EmptyText:      EmptyText,
	LabelTotal:     LabelTotal,
	LabelErrors:    LabelErrors,
	LabelWarnings:  LabelWarnings,
	TitleLog:       TitleLog,
	NoFindingsText: NoFindingsText,
	LabelReference: LabelReference,
}

type htmlData struct {
	View
	Text    uiText
	Records string
}

// RenderHTML пишет фрагмент панели результатов.
func RenderHTML(w io.Writer, v View) error {
	d := htmlData{View: v, Text: text}
	if v.State == StatePopulated && v.Result != nil {
		d.Records = RecordsLabel(len(v.Result.Issues))
	} else if v.State == StatePopulated {
		d.State = StateEmpty
	}
	return resultsTmpl.ExecuteTemplate(w, "results", d)
}

// HTML: то же, для вставки в страницу.
func HTML(v View) (template.HTML, error) {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, v); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
