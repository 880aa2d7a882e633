package util

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engdoc-auditor/api/internal/audit/types"
)

func TestEncodeDocument(t *testing.T) {
	raw := []byte("%PDF-1.7 test")
	ef, err := EncodeDocument(types.DocumentFromBytes("p.pdf", "", raw))
	require.NoError(t, err)
	assert.Equal(t, "p.pdf", ef.Name)
	assert.Equal(t, MIMEPDF, ef.MIMEType, "тип определяется по сигнатуре")
	assert.Equal(t, base64.StdEncoding.EncodeToString(raw), ef.Data)
}

func TestEncodeDocumentKeepsDeclaredType(t *testing.T) {
	ef, err := EncodeDocument(types.DocumentFromBytes("x.bin", "application/pdf", []byte("abc")))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", ef.MIMEType)
}

func TestEncodeDocumentOpenError(t *testing.T) {
	doc := types.Document{
		Name: "broken.pdf",
		Open: func() (io.ReadCloser, error) { return nil, errors.New("permission denied") },
	}
	_, err := EncodeDocument(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.pdf")
	assert.Contains(t, err.Error(), "permission denied")
}

func TestEncodeAllPreservesOrder(t *testing.T) {
	names := []string{"project.pdf", "gost-1.pdf", "gost-2.pdf", "gost-3.pdf"}
	docs := make([]types.Document, 0, len(names))
	for _, n := range names {
		docs = append(docs, types.DocumentFromBytes(n, MIMEPDF, []byte("%PDF-"+n)))
	}
	out, err := EncodeAll(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, out, len(names))
	for i, n := range names {
		assert.Equal(t, n, out[i].Name)
		b, err := base64.StdEncoding.DecodeString(out[i].Data)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-"+n, string(b))
	}
}

func TestEncodeAllFailsOnUnreadable(t *testing.T) {
	docs := []types.Document{
		types.DocumentFromBytes("ok.pdf", MIMEPDF, []byte("%PDF-")),
		types.DocumentFromPath(filepath.Join(t.TempDir(), "missing.pdf")),
	}
	_, err := EncodeAll(context.Background(), docs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestEncodeAllEmpty(t *testing.T) {
	out, err := EncodeAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSniffMIME(t *testing.T) {
	assert.Equal(t, MIMEPDF, SniffMIME([]byte("%PDF-1.4")))
	assert.Equal(t, "image/jpeg", SniffMIME([]byte{0xFF, 0xD8, 0xFF}))
	assert.Equal(t, "image/png", SniffMIME([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}))
	assert.Equal(t, "application/octet-stream", SniffMIME(nil))
	assert.False(t, IsPDF([]byte("hello")))
}

func TestPickMIME(t *testing.T) {
	pdf := []byte("%PDF-1.4")
	assert.Equal(t, "application/pdf", PickMIME("application/pdf", "", nil))
	assert.Equal(t, MIMEPDF, PickMIME("application/octet-stream", "", pdf))
	assert.Equal(t, "image/png", PickMIME("", "image/png", pdf))
	assert.Equal(t, MIMEPDF, PickMIME("", "", pdf))
}

func TestDecodeBase64MaybeDataURL(t *testing.T) {
	b, mime, err := DecodeBase64MaybeDataURL(MakeDataURL("application/pdf", base64.StdEncoding.EncodeToString([]byte("x"))))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mime)
	assert.Equal(t, []byte("x"), b)

	b, mime, err = DecodeBase64MaybeDataURL(base64.StdEncoding.EncodeToString([]byte("y")))
	require.NoError(t, err)
	assert.Empty(t, mime)
	assert.Equal(t, []byte("y"), b)
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("  {\"a\":1}  "))
	assert.Equal(t, "", StripCodeFences("   "))
}

func TestClampRunes(t *testing.T) {
	assert.Equal(t, "абв", ClampRunes("абв", 3))
	assert.Equal(t, "аб…", ClampRunes("абв", 2))
}

func TestLoadPromptOverride(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadPromptOverride(dir, "audit", "system")
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "audit.system.txt"), []byte("  Роль: тест  \n"), 0o644))
	s, err := LoadPromptOverride(dir, "audit", "system")
	require.NoError(t, err)
	assert.Equal(t, "Роль: тест", s)

	_, err = LoadPromptOverride("", "audit", "system")
	assert.Error(t, err)
}

func TestFixJSONSchemaStrict(t *testing.T) {
	m, err := ParseSchema("t", `{"properties":{"a":{"type":"string"},"b":{"properties":{"c":{"type":"integer"}}}}}`)
	require.NoError(t, err)
	FixJSONSchemaStrict(m)

	assert.Equal(t, "object", m["type"])
	assert.Equal(t, false, m["additionalProperties"])
	assert.ElementsMatch(t, []any{"a", "b"}, m["required"])

	b := m["properties"].(map[string]any)["b"].(map[string]any)
	assert.Equal(t, false, b["additionalProperties"])
	assert.ElementsMatch(t, []any{"c"}, b["required"])
	assert.NotEmpty(t, m["$schema"])
}
