package util

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"engdoc-auditor/api/internal/audit/types"
)

// EncodeDocument читает файл целиком и возвращает base64 + media type.
func EncodeDocument(doc types.Document) (types.EncodedFile, error) {
	if doc.Open == nil {
		return types.EncodedFile{}, fmt.Errorf("read %s: no file handle", doc.Name)
	}
	rc, err := doc.Open()
	if err != nil {
		return types.EncodedFile{}, fmt.Errorf("open %s: %w", doc.Name, err)
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return types.EncodedFile{}, fmt.Errorf("read %s: %w", doc.Name, err)
	}
	return types.EncodedFile{
		Name:     doc.Name,
		MIMEType: PickMIME(doc.MIMEType, "", b),
		Data:     base64.StdEncoding.EncodeToString(b),
	}, nil
}

// EncodeAll кодирует файлы параллельно; результат в том же порядке, что и docs.
func EncodeAll(ctx context.Context, docs []types.Document) ([]types.EncodedFile, error) {
	out := make([]types.EncodedFile, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	for i, d := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ef, err := EncodeDocument(d)
			if err != nil {
				return err
			}
			out[i] = ef
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
