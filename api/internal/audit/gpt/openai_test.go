package gpt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engdoc-auditor/api/internal/audit/types"
)

func request() types.GenerateRequest {
	enc := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }
	return types.GenerateRequest{
		Prompt: "Роль: нормоконтролёр",
		Files: []types.EncodedFile{
			{Name: "project.pdf", MIMEType: "application/pdf", Data: enc("%PDF-project")},
			{Name: "gost.pdf", MIMEType: "application/pdf", Data: enc("%PDF-gost")},
		},
		ThinkingBudget: 4096,
	}
}

func TestRequestBody(t *testing.T) {
	e := New("sk-test", "gpt-5-mini")
	body, err := e.RequestBody(request())
	require.NoError(t, err)

	assert.Equal(t, "gpt-5-mini", body["model"])
	assert.Equal(t, map[string]any{"effort": "medium"}, body["reasoning"])

	msg := body["input"].([]any)[0].(map[string]any)
	content := msg["content"].([]any)
	require.Len(t, content, 3)
	assert.Equal(t, "input_text", content[0].(map[string]any)["type"])
	assert.Equal(t, "project.pdf", content[1].(map[string]any)["filename"], "проект идёт первым файлом")
	assert.Equal(t, "gost.pdf", content[2].(map[string]any)["filename"])
	assert.True(t, strings.HasPrefix(content[1].(map[string]any)["file_data"].(string), "data:application/pdf;base64,"))

	format := body["text"].(map[string]any)["format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, true, format["strict"])
	schema := format["schema"].(map[string]any)
	assert.NotContains(t, schema, "$schema")
	assert.Equal(t, false, schema["additionalProperties"])
}

func TestRequestBodyNoReasoningForChatModels(t *testing.T) {
	body, err := New("k", "gpt-4o-mini").RequestBody(request())
	require.NoError(t, err)
	assert.NotContains(t, body, "reasoning")
}

func TestEffortForBudget(t *testing.T) {
	assert.Equal(t, "low", EffortForBudget(1024))
	assert.Equal(t, "medium", EffortForBudget(4096))
	assert.Equal(t, "high", EffortForBudget(16384))
}

func TestGenerate(t *testing.T) {
	const answer = `{"summary":{"total_checks":7,"errors":0,"warnings":0},"issues":[]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		b, _ := io.ReadAll(r.Body)
		var got map[string]any
		assert.NoError(t, json.Unmarshal(b, &got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"output": []any{
				map[string]any{"type": "reasoning", "content": []any{map[string]any{"type": "text", "text": "думаю"}}},
				map[string]any{"type": "message", "content": []any{map[string]any{"type": "output_text", "text": answer}}},
			},
		})
	}))
	defer srv.Close()

	e := New("sk-test", "gpt-5-mini").WithBaseURL(srv.URL + "/").WithHTTPClient(srv.Client())
	out, err := e.Generate(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, answer, out)
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
	}))
	defer srv.Close()

	e := New("sk-test", "").WithBaseURL(srv.URL).WithHTTPClient(srv.Client())
	_, err := e.Generate(context.Background(), request())
	require.Error(t, err)
	assert.Equal(t, "openai audit 429: Rate limit reached", err.Error())
}

func TestGenerateNoKey(t *testing.T) {
	e := New("", "")
	assert.False(t, e.HasCredential())
	assert.Equal(t, DefaultModel, e.GetModel())
	_, err := e.Generate(context.Background(), request())
	assert.Error(t, err)
}

func TestExtractResponsesTextPrefersOutputText(t *testing.T) {
	assert.Equal(t, "x", extractResponsesText([]byte(`{"output_text":"x","output":[]}`)))
	assert.Equal(t, "", extractResponsesText([]byte(`not json`)))
}
