package telegram

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"k8s.io/klog/v2"

	"engdoc-auditor/api/internal/audit/types"
	"engdoc-auditor/api/internal/util"
)

const (
	errGetFile  = "Не смог получить файл."
	errDownload = "Не смог скачать файл."
)

// acceptDocument: первый PDF в сессии: проект, следующие: ГОСТы.
func (r *Router) acceptDocument(cid int64, d *tgbotapi.Document) {
	if int64(d.FileSize) > r.maxUpload() {
		r.send(cid, fmt.Sprintf("Файл больше %d MB.", r.maxUpload()>>20))
		return
	}
	// в URL файла и в ошибках запросов к API есть токен бота: в чат только фиксированный текст
	fileURL, err := r.Bot.GetFileDirectURL(d.FileID)
	if err != nil {
		klog.Errorf("chat %d: get file %s: %v", cid, d.FileName, err)
		r.send(cid, errGetFile)
		return
	}
	b, err := r.download(fileURL)
	if err != nil {
		klog.Errorf("chat %d: download %s: %v", cid, d.FileName, err)
		r.send(cid, errDownload)
		return
	}
	if !util.IsPDF(b) {
		r.send(cid, "Допускаются только PDF файлы.")
		return
	}
	name := d.FileName
	if name == "" {
		name = "document.pdf"
	}
	doc := types.DocumentFromBytes(name, util.MIMEPDF, b)

	s := r.session(cid)
	if s.Snapshot().Primary == nil {
		s.SetPrimary(&doc)
		r.send(cid, "📄 Проект: "+name+"\nДополнительные ГОСТы — следующими PDF. Запуск: /run")
		return
	}
	s.AddReferences(doc)
	r.send(cid, fmt.Sprintf("📚 ГОСТ добавлен: %s (всего %d)", name, len(s.Snapshot().References)))
}

// download не возвращает URL в ошибке: в пути файла токен бота.
func (r *Router) download(fileURL string) ([]byte, error) {
	resp, err := r.httpClient().Get(fileURL)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			return nil, fmt.Errorf("%s file: %w", strings.ToLower(ue.Op), ue.Err)
		}
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, r.maxUpload()+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > r.maxUpload() {
		return nil, fmt.Errorf("file exceeds %d MB", r.maxUpload()>>20)
	}
	return b, nil
}
