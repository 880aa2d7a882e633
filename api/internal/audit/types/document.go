package types

import (
	"bytes"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// Document: ссылка на бинарный файл; содержимое читается только при кодировании.
type Document struct {
	Name     string
	MIMEType string // заявленный тип; пустой: определяется по содержимому
	Size     int64
	Open     func() (io.ReadCloser, error)
}

func DocumentFromBytes(name, mime string, b []byte) Document {
	return Document{
		Name:     name,
		MIMEType: mime,
		Size:     int64(len(b)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		},
	}
}

func DocumentFromPath(path string) Document {
	var size int64
	if st, err := os.Stat(path); err == nil {
		size = st.Size()
	}
	return Document{
		Name: filepath.Base(path),
		Size: size,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// DocumentFromMultipart keeps the header; the temp file behind it lives until the request ends.
func DocumentFromMultipart(fh *multipart.FileHeader) Document {
	return Document{
		Name:     fh.Filename,
		MIMEType: fh.Header.Get("Content-Type"),
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// EncodedFile: файл в транспортном виде (base64 + media type).
type EncodedFile struct {
	Name     string
	MIMEType string
	Data     string
}

// AnalysisInput: всё, что нужно для одного запуска анализа.
type AnalysisInput struct {
	Primary      *Document
	References   []Document
	Instructions string
	ProjectCode  string
	Options      ValidationOptions
}

// Documents returns primary first, then references in the supplied order.
func (in AnalysisInput) Documents() []Document {
	out := make([]Document, 0, 1+len(in.References))
	if in.Primary != nil {
		out = append(out, *in.Primary)
	}
	return append(out, in.References...)
}
