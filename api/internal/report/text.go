package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"engdoc-auditor/api/internal/audit/types"
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	okColor      = color.New(color.FgGreen, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
)

// RenderText печатает отчёт для терминала.
func RenderText(w io.Writer, v View) {
	switch v.State {
	case StatePending:
		titleColor.Fprintln(w, PendingTitle)
		fmt.Fprintln(w, PendingText)
		return
	case StateEmpty:
		if v.Error != "" {
			errorColor.Fprintf(w, "✖ %s\n", v.Error)
			return
		}
		fmt.Fprintln(w, EmptyTitle)
		dimColor.Fprintln(w, EmptyText)
		return
	}
	if v.Result == nil {
		fmt.Fprintln(w, EmptyTitle)
		return
	}

	r := v.Result
	fmt.Fprintln(w)
	titleColor.Fprintf(w, "📋 %s\n\n", strings.ToUpper(TitleReport))
	fmt.Fprintf(w, "   %s: %d\n", LabelTotal, r.Summary.TotalChecks)
	errorColor.Fprintf(w, "   %s: %d\n", LabelErrors, r.Summary.Errors)
	warningColor.Fprintf(w, "   %s: %d\n\n", LabelWarnings, r.Summary.Warnings)

	titleColor.Fprintf(w, "%s (%s)\n", TitleLog, RecordsLabel(len(r.Issues)))
	if len(r.Issues) == 0 {
		okColor.Fprintf(w, "✅ %s\n", NoFindingsText)
		return
	}
	for i, is := range r.Issues {
		c, icon := issueStyle(is.Type)
		fmt.Fprintln(w)
		c.Fprintf(w, "%d. %s %s", i+1, icon, strings.ToUpper(IssueLabel(is.Type)))
		fmt.Fprintf(w, "  %s — %s  [%s]\n", is.Section, is.Sheet, is.Location)
		fmt.Fprintf(w, "   %s\n", is.Description)
		dimColor.Fprintf(w, "   %s %s\n", LabelReference, is.Reference)
	}
}

func issueStyle(t types.IssueType) (*color.Color, string) {
	if t == types.IssueError {
		return errorColor, "✖"
	}
	return warningColor, "⚠"
}
