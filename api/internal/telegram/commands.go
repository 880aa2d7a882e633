package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"k8s.io/klog/v2"

	"engdoc-auditor/api/internal/audit"
	"engdoc-auditor/api/internal/audit/prompt"
	"engdoc-auditor/api/internal/audit/types"
	"engdoc-auditor/api/internal/report"
	"engdoc-auditor/api/internal/session"
	"engdoc-auditor/api/internal/util"
)

const helpText = `EngDoc Auditor: нормоконтроль проектной документации (ОВ, ВК, ЭОМ).

1. Пришлите PDF проекта (первый документ).
2. Следующие PDF — дополнительные ГОСТы.
Команды:
/cipher <шифр> — шифр проекта (эталон)
/note <текст> — особые инструкции
/checks — опции проверки
/run — начать аудит
/status — текущее состояние
/reset — начать заново`

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	arg := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		r.send(cid, helpText)
	case "cipher":
		if arg == "" {
			r.awaiting.Store(cid, awaitCipher)
			r.send(cid, "Пришлите шифр проекта, напр. 2024-AB-123-OV")
			return
		}
		r.applyText(cid, awaitCipher, arg)
	case "note":
		if arg == "" {
			r.awaiting.Store(cid, awaitNote)
			r.send(cid, "Пришлите текст особых инструкций.")
			return
		}
		r.applyText(cid, awaitNote, arg)
	case "checks":
		kb := checksKeyboard(r.session(cid).Snapshot().Options)
		r.sendHTML(cid, "<b>Протокол проверки</b>", &kb)
	case "run":
		r.run(cid)
	case "status":
		r.sendHTML(cid, statusText(r.session(cid).Snapshot()), nil)
		r.sendOutcome(cid, r.session(cid).Snapshot().Outcome, false)
	case "reset":
		r.session(cid).Reset()
		r.send(cid, "Сессия сброшена. Пришлите PDF проекта.")
	default:
		r.send(cid, "Неизвестная команда. Справка: /start")
	}
}

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID
	ack := ""

	switch {
	case cb.Data == "run":
		r.run(cid)
	case strings.HasPrefix(cb.Data, "opt:"):
		name, err := types.ParseCheckName(strings.TrimPrefix(cb.Data, "opt:"))
		if err != nil {
			ack = err.Error()
			break
		}
		s := r.session(cid)
		if err := s.ToggleCheck(name); err != nil {
			ack = err.Error()
			break
		}
		kb := checksKeyboard(s.Snapshot().Options)
		if _, err := r.Bot.Send(tgbotapi.NewEditMessageReplyMarkup(cid, cb.Message.MessageID, kb)); err != nil {
			klog.Errorf("telegram edit keyboard: %v", err)
		}
	}
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, ack))
}

// run стартует анализ; результат придёт отдельным сообщением.
func (r *Router) run(cid int64) {
	s := r.session(cid)
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout())
	err := s.Start(ctx, r.Analyzer, func(o session.Outcome) {
		defer cancel()
		klog.Infof("chat %d: analysis #%d finished: %s", cid, o.RequestID, o.Phase)
		r.sendOutcome(cid, o, true)
	})
	if err != nil {
		cancel()
		if errors.Is(err, audit.ErrNoPrimaryDocument) {
			r.send(cid, audit.ErrNoPrimaryDocument.Error())
			return
		}
		r.send(cid, err.Error())
		return
	}
	r.sendOutcome(cid, session.Pending(0), false)
}

// sendOutcome отправляет отчёт; attach: приложить YAML с результатом.
func (r *Router) sendOutcome(cid int64, o session.Outcome, attach bool) {
	for _, part := range report.RenderTelegram(report.ViewOf(o)) {
		r.sendHTML(cid, part, nil)
	}
	if !attach || o.Phase != session.PhaseSucceeded || o.Result == nil {
		return
	}
	b, err := report.Marshal(*o.Result, "yaml")
	if err != nil {
		klog.Errorf("chat %d: marshal yaml: %v", cid, err)
		return
	}
	doc := tgbotapi.NewDocument(cid, tgbotapi.FileBytes{Name: "audit.yaml", Bytes: b})
	if _, err := r.Bot.Send(doc); err != nil {
		klog.Errorf("chat %d: send yaml: %v", cid, err)
	}
}

func checksKeyboard(opts types.ValidationOptions) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(types.AllChecks)+1)
	for _, c := range types.AllChecks {
		mark := "⬜"
		if opts.Get(c) {
			mark = "✅"
		}
		btn := tgbotapi.NewInlineKeyboardButtonData(mark+" "+prompt.LabelFor(c), "opt:"+string(c))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(btn))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("▶ "+report.StartButton, "run"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func statusText(s session.Snapshot) string {
	var b strings.Builder
	b.WriteString("<b>Данные проекта</b>\n")
	if s.Primary != nil {
		fmt.Fprintf(&b, "Проект: %s\n", html.EscapeString(s.Primary.Name))
	} else {
		b.WriteString("Проект: —\n")
	}
	fmt.Fprintf(&b, "ГОСТы: %d\n", len(s.References))
	for i, d := range s.References {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, html.EscapeString(d.Name))
	}
	if s.ProjectCode != "" {
		fmt.Fprintf(&b, "Шифр: <code>%s</code>\n", html.EscapeString(s.ProjectCode))
	}
	if s.Instructions != "" {
		fmt.Fprintf(&b, "Инструкции: %s\n", html.EscapeString(util.ClampRunes(s.Instructions, 300)))
	}
	enabled := s.Options.Enabled()
	labels := make([]string, 0, len(enabled))
	for _, c := range enabled {
		labels = append(labels, prompt.LabelFor(c))
	}
	if len(labels) == 0 {
		b.WriteString("Проверки: —")
	} else {
		b.WriteString("Проверки: " + html.EscapeString(strings.Join(labels, ", ")))
	}
	return b.String()
}
