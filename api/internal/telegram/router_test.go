package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engdoc-auditor/api/internal/audit"
	"engdoc-auditor/api/internal/audit/types"
	"engdoc-auditor/api/internal/session"
)

const chatID int64 = 42

type fakeBot struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	files    string // базовый URL файлового сервера
	fileErr  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) GetFileDirectURL(fileID string) (string, error) {
	if f.fileErr != nil {
		return "", f.fileErr
	}
	return f.files + "/" + fileID, nil
}

func (f *fakeBot) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeBot) last() string {
	t := f.texts()
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

func (f *fakeBot) documents() []tgbotapi.DocumentConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.DocumentConfig
	for _, c := range f.sent {
		if d, ok := c.(tgbotapi.DocumentConfig); ok {
			out = append(out, d)
		}
	}
	return out
}

type fakeAnalyzer struct {
	mu    sync.Mutex
	calls []types.AnalysisInput
	res   types.AnalysisResult
	err   error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, in types.AnalysisInput) (types.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, in)
	return f.res, f.err
}

// fileServer отдаёт PDF по /pdf-*, остальное: как картинку.
func fileServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/pdf-") {
			_, _ = w.Write([]byte("%PDF-1.4\n" + r.URL.Path))
			return
		}
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("\x89PNG\r\n\x1a\n"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newRouter(t *testing.T, a audit.Analyzer) (*Router, *fakeBot) {
	srv := fileServer(t)
	bot := &fakeBot{files: srv.URL}
	return &Router{Bot: bot, Store: session.NewStore(), Analyzer: a, HTTP: srv.Client()}, bot
}

func command(text string) tgbotapi.Update {
	cmd := text
	if i := strings.IndexByte(text, ' '); i > 0 {
		cmd = text[:i]
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func textMsg(text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: text}}
}

func document(fileID, name string, size int) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Document: &tgbotapi.Document{FileID: fileID, FileName: name, FileSize: size},
	}}
}

func callback(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "tg:42", SessionKey(42))
	assert.Equal(t, "tg:-100", SessionKey(-100))
}

func TestDocumentsPrimaryThenReferences(t *testing.T) {
	r, bot := newRouter(t, &fakeAnalyzer{})

	r.HandleUpdate(document("pdf-ov", "ov.pdf", 100))
	assert.Contains(t, bot.last(), "Проект: ov.pdf")
	r.HandleUpdate(document("pdf-g1", "g1.pdf", 100))
	r.HandleUpdate(document("pdf-g2", "", 100))
	assert.Contains(t, bot.last(), "всего 2")

	snap := r.session(chatID).Snapshot()
	require.NotNil(t, snap.Primary)
	assert.Equal(t, "ov.pdf", snap.Primary.Name)
	require.Len(t, snap.References, 2)
	assert.Equal(t, "g1.pdf", snap.References[0].Name)
	assert.Equal(t, "document.pdf", snap.References[1].Name)
}

func TestDocumentsRejected(t *testing.T) {
	r, bot := newRouter(t, &fakeAnalyzer{})

	r.HandleUpdate(document("scan", "scan.png", 100))
	assert.Equal(t, "Допускаются только PDF файлы.", bot.last())

	r.HandleUpdate(document("pdf-big", "big.pdf", 11<<20))
	assert.Contains(t, bot.last(), "10 MB")

	r.HandleUpdate(document("missing", "x.pdf", 100))
	assert.Contains(t, bot.last(), "Не смог скачать файл")

	assert.Nil(t, r.session(chatID).Snapshot().Primary)
}

// Ошибки скачивания не показывают пользователю URL с токеном бота.
func TestDownloadErrorHidesToken(t *testing.T) {
	const token = "123456:SECRET-TOKEN"
	r, bot := newRouter(t, &fakeAnalyzer{})
	bot.files = "http://127.0.0.1:1/file/bot" + token

	r.HandleUpdate(document("pdf-x", "x.pdf", 100))
	assert.Equal(t, errDownload, bot.last())

	bot.fileErr = errors.New(`Post "https://api.telegram.org/bot` + token + `/getFile": EOF`)
	r.HandleUpdate(document("pdf-y", "y.pdf", 100))
	assert.Equal(t, errGetFile, bot.last())

	for _, txt := range bot.texts() {
		assert.NotContains(t, txt, token)
	}
	assert.Nil(t, r.session(chatID).Snapshot().Primary)
}

func TestDownloadErrorWithoutURL(t *testing.T) {
	r := &Router{HTTP: http.DefaultClient}
	_, err := r.download("http://127.0.0.1:1/file/bot123456:SECRET-TOKEN/doc.pdf")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-TOKEN")
}

func TestCipherAndNote(t *testing.T) {
	r, bot := newRouter(t, &fakeAnalyzer{})

	r.HandleUpdate(command("/cipher 2024-AB-123-OV"))
	assert.Equal(t, "2024-AB-123-OV", r.session(chatID).Snapshot().ProjectCode)

	// без аргумента: ждём следующее сообщение
	r.HandleUpdate(command("/note"))
	assert.Contains(t, bot.last(), "особых инструкций")
	r.HandleUpdate(textMsg("Проверить даты в штампах"))
	assert.Equal(t, "Проверить даты в штампах", r.session(chatID).Snapshot().Instructions)

	// ожидание одноразовое
	r.HandleUpdate(textMsg("просто текст"))
	assert.Equal(t, "Проверить даты в штампах", r.session(chatID).Snapshot().Instructions)
	assert.Contains(t, bot.last(), "/start")

	// команда снимает ожидание
	r.HandleUpdate(command("/cipher"))
	r.HandleUpdate(command("/help"))
	r.HandleUpdate(textMsg("ABC"))
	assert.Equal(t, "2024-AB-123-OV", r.session(chatID).Snapshot().ProjectCode)
}

func TestChecksToggle(t *testing.T) {
	r, bot := newRouter(t, &fakeAnalyzer{})

	r.HandleUpdate(command("/checks"))
	msg, ok := bot.sent[len(bot.sent)-1].(tgbotapi.MessageConfig)
	require.True(t, ok)
	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, len(types.AllChecks)+1)

	r.HandleUpdate(callback("opt:checkSpelling"))
	assert.False(t, r.session(chatID).Snapshot().Options.CheckSpelling)

	edit, ok := bot.sent[len(bot.sent)-1].(tgbotapi.EditMessageReplyMarkupConfig)
	require.True(t, ok)
	assert.Equal(t, 7, edit.MessageID)
	require.Len(t, bot.requests, 1)
	assert.Equal(t, "", bot.requests[0].(tgbotapi.CallbackConfig).Text)

	r.HandleUpdate(callback("opt:checkBogus"))
	require.Len(t, bot.requests, 2)
	assert.Contains(t, bot.requests[1].(tgbotapi.CallbackConfig).Text, "checkBogus")
}

func TestChecksKeyboard(t *testing.T) {
	opts := types.DefaultOptions()
	opts.CheckCipher = false
	kb := checksKeyboard(opts)

	first := kb.InlineKeyboard[0][0]
	assert.True(t, strings.HasPrefix(first.Text, "✅"))
	require.NotNil(t, first.CallbackData)
	assert.Equal(t, "opt:checkGostOV", *first.CallbackData)

	cipher := kb.InlineKeyboard[len(types.AllChecks)-1][0]
	assert.True(t, strings.HasPrefix(cipher.Text, "⬜"))

	run := kb.InlineKeyboard[len(types.AllChecks)][0]
	assert.Equal(t, "run", *run.CallbackData)
}

func TestRunWithoutProject(t *testing.T) {
	fa := &fakeAnalyzer{}
	r, bot := newRouter(t, fa)
	r.HandleUpdate(command("/run"))
	assert.Equal(t, audit.ErrNoPrimaryDocument.Error(), bot.last())
	assert.Empty(t, fa.calls)
}

func TestRunSendsReportAndYAML(t *testing.T) {
	fa := &fakeAnalyzer{res: types.AnalysisResult{
		Summary: types.AnalysisSummary{TotalChecks: 7, Errors: 1},
		Issues: []types.Issue{
			{Type: types.IssueError, Section: "ВК", Sheet: "2", Location: "Штамп", Description: "Неверный шифр", Reference: "ГОСТ Р 21.101-2020"},
		},
	}}
	r, bot := newRouter(t, fa)
	r.HandleUpdate(document("pdf-ov", "ov.pdf", 100))
	r.HandleUpdate(command("/cipher 2024-AB-123-VK"))
	r.HandleUpdate(callback("run"))

	require.Eventually(t, func() bool { return len(bot.documents()) == 1 }, 2*time.Second, 10*time.Millisecond)

	doc := bot.documents()[0]
	fb, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, "audit.yaml", fb.Name)
	assert.Contains(t, string(fb.Bytes), "Неверный шифр")

	var report string
	for _, txt := range bot.texts() {
		if strings.Contains(txt, "Неверный шифр") {
			report = txt
		}
	}
	assert.Contains(t, report, "🔴")

	fa.mu.Lock()
	require.Len(t, fa.calls, 1)
	assert.Equal(t, "2024-AB-123-VK", fa.calls[0].ProjectCode)
	fa.mu.Unlock()
}

func TestRunFailureMessage(t *testing.T) {
	fa := &fakeAnalyzer{err: &audit.ServiceError{Engine: "gemini", Err: assert.AnError}}
	r, bot := newRouter(t, fa)
	r.HandleUpdate(document("pdf-ov", "ov.pdf", 100))
	r.HandleUpdate(command("/run"))

	require.Eventually(t, func() bool {
		return r.session(chatID).Snapshot().Outcome.Phase == session.PhaseFailed
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		for _, txt := range bot.texts() {
			if strings.Contains(txt, assert.AnError.Error()) {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, bot.documents())
}

func TestStatusAndReset(t *testing.T) {
	r, bot := newRouter(t, &fakeAnalyzer{})
	r.HandleUpdate(document("pdf-ov", "ov<1>.pdf", 100))
	r.HandleUpdate(command("/status"))

	texts := bot.texts()
	require.GreaterOrEqual(t, len(texts), 2)
	status := texts[len(texts)-2]
	assert.Contains(t, status, "ov&lt;1&gt;.pdf")
	assert.Contains(t, status, "ГОСТы: 0")

	r.HandleUpdate(command("/reset"))
	assert.Nil(t, r.session(chatID).Snapshot().Primary)
}

func TestStatusText(t *testing.T) {
	s := session.New("x")
	s.SetInstructions(strings.Repeat("я", 400))
	s.SetOptions(types.ValidationOptions{})
	out := statusText(s.Snapshot())
	assert.Contains(t, out, "Проект: —")
	assert.Contains(t, out, "Проверки: —")
	assert.NotContains(t, out, strings.Repeat("я", 301))
}
