package handle

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"engdoc-auditor/api/internal/audit/types"
	"engdoc-auditor/api/internal/util"
)

const multipartMemory = 32 << 20

var (
	errNoFile = errors.New("Файл не выбран.")
	errNotPDF = errors.New("Допускаются только PDF файлы.")
	errTooBig = errors.New("Слишком большой запрос: загружайте файлы частями.")
)

// readPDFs читает файлы поля в память: анализ идёт после ответа на запрос,
// а временные файлы multipart к тому моменту удалены.
func (h *Handle) readPDFs(w http.ResponseWriter, r *http.Request, field string) ([]types.Document, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload*maxAPIFiles)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, errTooBig
		}
		return nil, fmt.Errorf("bad multipart: %w", err)
	}
	fhs := r.MultipartForm.File[field]
	if len(fhs) == 0 {
		return nil, errNoFile
	}
	docs := make([]types.Document, 0, len(fhs))
	for _, fh := range fhs {
		doc, err := h.readPDF(fh)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (h *Handle) readPDF(fh *multipart.FileHeader) (types.Document, error) {
	if fh.Size > h.maxUpload {
		return types.Document{}, fmt.Errorf("Файл %s больше %d MB.", fh.Filename, h.maxUpload>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return types.Document{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	b, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		return types.Document{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	if int64(len(b)) > h.maxUpload {
		return types.Document{}, fmt.Errorf("Файл %s больше %d MB.", fh.Filename, h.maxUpload>>20)
	}
	if !util.IsPDF(b) {
		return types.Document{}, fmt.Errorf("%s: %w", fh.Filename, errNotPDF)
	}
	return types.DocumentFromBytes(fh.Filename, util.MIMEPDF, b), nil
}

// checkPDF: то же для синхронного API: файл не копируется, проверяется только сигнатура.
func (h *Handle) checkPDF(fh *multipart.FileHeader) (types.Document, error) {
	if fh.Size > h.maxUpload {
		return types.Document{}, fmt.Errorf("Файл %s больше %d MB.", fh.Filename, h.maxUpload>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return types.Document{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	head := make([]byte, 8)
	n, _ := io.ReadFull(f, head)
	_ = f.Close()
	if !util.IsPDF(head[:n]) {
		return types.Document{}, fmt.Errorf("%s: %w", fh.Filename, errNotPDF)
	}
	doc := types.DocumentFromMultipart(fh)
	doc.MIMEType = util.MIMEPDF
	return doc, nil
}
