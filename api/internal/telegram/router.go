package telegram

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"k8s.io/klog/v2"

	"engdoc-auditor/api/internal/audit"
	"engdoc-auditor/api/internal/session"
)

// BotAPI: часть *tgbotapi.BotAPI, которой пользуется роутер.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot      BotAPI
	Store    *session.Store
	Analyzer audit.Analyzer

	Timeout   time.Duration
	MaxUpload int64
	HTTP      *http.Client

	awaiting sync.Map // chatID -> awaitKind
}

type awaitKind string

const (
	awaitCipher awaitKind = "cipher"
	awaitNote   awaitKind = "note"
)

const (
	defaultTimeout   = 300 * time.Second
	defaultMaxUpload = 10 << 20
)

func (r *Router) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return defaultTimeout
}

func (r *Router) maxUpload() int64 {
	if r.MaxUpload > 0 {
		return r.MaxUpload
	}
	return defaultMaxUpload
}

func (r *Router) httpClient() *http.Client {
	if r.HTTP != nil {
		return r.HTTP
	}
	return &http.Client{Timeout: 60 * time.Second}
}

// SessionKey: ключ сессии чата в общем хранилище.
func SessionKey(chatID int64) string { return fmt.Sprintf("tg:%d", chatID) }

func (r *Router) session(chatID int64) *session.Session {
	return r.Store.Get(SessionKey(chatID))
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	if msg.IsCommand() {
		r.awaiting.Delete(cid)
		r.HandleCommand(msg)
		return
	}
	if msg.Document != nil {
		r.acceptDocument(cid, msg.Document)
		return
	}
	if text := strings.TrimSpace(msg.Text); text != "" {
		if v, ok := r.awaiting.LoadAndDelete(cid); ok {
			r.applyText(cid, v.(awaitKind), text)
			return
		}
		r.send(cid, "Пришлите PDF проекта или команду. Справка: /start")
	}
}

func (r *Router) applyText(cid int64, kind awaitKind, text string) {
	s := r.session(cid)
	switch kind {
	case awaitCipher:
		s.SetProjectCode(text)
		r.send(cid, "✅ Шифр проекта: "+text)
	case awaitNote:
		s.SetInstructions(text)
		r.send(cid, "✅ Особые инструкции сохранены.")
	}
}

func (r *Router) send(chatID int64, text string) {
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		klog.Errorf("telegram send to %d: %v", chatID, err)
	}
}

func (r *Router) sendHTML(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	if _, err := r.Bot.Send(msg); err != nil {
		klog.Errorf("telegram send to %d: %v", chatID, err)
	}
}
