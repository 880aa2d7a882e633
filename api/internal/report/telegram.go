package report

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"engdoc-auditor/api/internal/audit/types"
)

// TelegramLimit: запас до лимита Telegram в 4096 символов.
const TelegramLimit = 3900

// RenderTelegram: отчёт в HTML-разметке Telegram, разбитый на сообщения.
func RenderTelegram(v View) []string {
	switch v.State {
	case StatePending:
		return []string{"⏳ <b>" + PendingTitle + "</b>\n" + html.EscapeString(PendingText)}
	case StateEmpty:
		if v.Error != "" {
			return []string{"⚠️ " + html.EscapeString(v.Error)}
		}
		return []string{EmptyTitle + "\n" + EmptyText}
	}
	if v.Result == nil {
		return []string{EmptyTitle}
	}

	r := v.Result
	var head strings.Builder
	fmt.Fprintf(&head, "📋 <b>%s</b>\n", TitleReport)
	fmt.Fprintf(&head, "%s: <b>%d</b>\n", LabelTotal, r.Summary.TotalChecks)
	fmt.Fprintf(&head, "🔴 %s: <b>%d</b>\n", LabelErrors, r.Summary.Errors)
	fmt.Fprintf(&head, "🟡 %s: <b>%d</b>\n", LabelWarnings, r.Summary.Warnings)
	fmt.Fprintf(&head, "\n<b>%s</b> (%s)", TitleLog, RecordsLabel(len(r.Issues)))

	if len(r.Issues) == 0 {
		return []string{head.String() + "\n\n✅ " + NoFindingsText}
	}

	blocks := make([]string, 0, len(r.Issues)+1)
	blocks = append(blocks, head.String())
	for i, is := range r.Issues {
		blocks = append(blocks, telegramIssue(i+1, is))
	}
	return chunk(blocks, TelegramLimit)
}

func telegramIssue(n int, is types.Issue) string {
	icon := "🟡"
	if is.Type == types.IssueError {
		icon = "🔴"
	}
	return fmt.Sprintf("%s <b>%d. %s</b> · %s — %s · <i>%s</i>\n%s\n%s <code>%s</code>",
		icon, n, IssueLabel(is.Type),
		html.EscapeString(is.Section), html.EscapeString(is.Sheet), html.EscapeString(is.Location),
		html.EscapeString(is.Description),
		LabelReference, html.EscapeString(is.Reference))
}

// chunk склеивает блоки в сообщения не длиннее limit символов; слишком длинный блок режется splitHTML.
func chunk(blocks []string, limit int) []string {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, b := range blocks {
		if utf8.RuneCountInString(b) > limit {
			flush()
			parts := splitHTML(b, limit)
			out = append(out, parts[:len(parts)-1]...)
			b = parts[len(parts)-1]
		}
		if cur.Len() > 0 && utf8.RuneCountInString(cur.String())+2+utf8.RuneCountInString(b) > limit {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(b)
	}
	flush()
	return out
}

// splitHTML режет HTML Telegram на куски не длиннее limit символов.
// Разрез никогда не попадает внутрь тега или сущности (&amp;); открытые теги
// закрываются в конце куска и открываются заново в начале следующего.
// Предпочитается разрез после пробела или перевода строки.
func splitHTML(s string, limit int) []string {
	var (
		out  []string
		open []string
	)
	for s != "" {
		prefix := openTags(open)
		n := utf8.RuneCountInString(prefix)
		if n+utf8.RuneCountInString(s) <= limit {
			out = append(out, prefix+s)
			break
		}

		stack := append([]string(nil), open...)
		cut, space := -1, -1
		var (
			cutStack, spStack []string
			inTag, inEntity   bool
			tagStart          int
			prev              rune
		)
		for i, c := range s {
			if n > limit {
				break
			}
			if i > 0 && !inTag && !inEntity && n+utf8.RuneCountInString(closeTags(stack)) <= limit {
				cut, cutStack = i, append([]string(nil), stack...)
				if prev == ' ' || prev == '\n' {
					space, spStack = i, cutStack
				}
			}
			switch {
			case inTag:
				if c == '>' {
					inTag = false
					stack = applyTag(stack, s[tagStart+1:i])
				}
			case inEntity:
				if c == ';' {
					inEntity = false
				}
			case c == '<':
				inTag, tagStart = true, i
			case c == '&':
				inEntity = true
			}
			prev = c
			n++
		}

		if space > 0 && space >= cut/2 {
			cut, cutStack = space, spStack
		}
		if cut <= 0 {
			// безопасного места нет: режем по символам
			r := []rune(s)
			k := limit - tagOverhead(prefix, open)
			if k < 1 {
				k = 1
			}
			if k > len(r) {
				k = len(r)
			}
			out = append(out, prefix+string(r[:k])+closeTags(open))
			s = string(r[k:])
			continue
		}
		out = append(out, prefix+s[:cut]+closeTags(cutStack))
		s, open = s[cut:], cutStack
	}
	return out
}

// tagOverhead: накладные символы на открытие и закрытие тегов куска.
func tagOverhead(prefix string, open []string) int {
	return utf8.RuneCountInString(prefix) + utf8.RuneCountInString(closeTags(open))
}

func applyTag(stack []string, tag string) []string {
	if strings.HasPrefix(tag, "/") {
		if len(stack) > 0 {
			stack = stack[:len(stack)-1]
		}
		return stack
	}
	if f := strings.Fields(tag); len(f) > 0 {
		stack = append(stack, f[0])
	}
	return stack
}

func openTags(stack []string) string {
	var b strings.Builder
	for _, t := range stack {
		b.WriteString("<" + t + ">")
	}
	return b.String()
}

func closeTags(stack []string) string {
	var b strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteString("</" + stack[i] + ">")
	}
	return b.String()
}
