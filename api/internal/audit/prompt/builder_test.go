package prompt

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engdoc-auditor/api/internal/audit/types"
)

// Все опции включены: в промпте семь строк деталей, идентификаторы стандартов и шифр.
func TestBuildAllEnabled(t *testing.T) {
	p := Build(types.DefaultOptions(), "", "2024-AB-123-OV")

	for _, c := range types.AllChecks {
		assert.Contains(t, p, "- "+string(c)+": ", "нет строки деталей для %s", c)
	}
	for _, std := range []string{"ГОСТ 21.602-2016", "ГОСТ 21.704-2011", "ГОСТ 21.613-2014", "ГОСТ Р 21.101-2020"} {
		assert.Contains(t, p, std)
	}
	assert.Contains(t, p, `"2024-AB-123-OV"`)
	assert.Contains(t, p, "checkGostOV, checkGostVK, checkGostEOM, checkSPDS, checkSpelling, checkStamps, checkCipher")
	assert.NotContains(t, p, cipherPlaceholder)
}

func TestBuildNoneEnabled(t *testing.T) {
	p := Build(types.ValidationOptions{}, "", "")
	assert.NotContains(t, p, "Детали опций:")
	for _, c := range types.AllChecks {
		assert.NotContains(t, p, "- "+string(c)+": ")
	}
	assert.Contains(t, p, "Включенные опции проверки")
}

func TestBuildOnlyEnabledDetails(t *testing.T) {
	opts := types.OptionsFromSet([]types.CheckName{types.CheckSpelling, types.CheckCipher})
	p := Build(opts, "Сверить заголовки в Таблице 2.", "X-1")

	assert.Contains(t, p, "- checkSpelling: "+Catalog[types.CheckSpelling].Detail)
	assert.Contains(t, p, `- checkCipher: Сравнение шифра в штампе с эталонным "X-1".`)
	assert.NotContains(t, p, "ГОСТ 21.602-2016 (Отопление")
	assert.NotContains(t, p, "- checkStamps: ")
	assert.Contains(t, p, `"Сверить заголовки в Таблице 2."`)
}

// Шифр и инструкции попадают в промпт без escape-последовательностей.
func TestBuildUserValuesVerbatim(t *testing.T) {
	p := Build(types.DefaultOptions(), "1. Проверить лист 3\n2. Сверить \"Общие данные\"", `ОВ\2024-1`)
	assert.Contains(t, p, "4. Инструкции пользователя: \"1. Проверить лист 3\n2. Сверить \"Общие данные\"\"\n")
	assert.Contains(t, p, `3. Шифр проекта (Эталон): "ОВ\2024-1"`)
	assert.NotContains(t, p, `\n2.`)
	assert.NotContains(t, p, `\\`)
}

// Промпт описывает порядок файлов: первый: проект, остальные: стандарты.
func TestBuildDescribesFileOrder(t *testing.T) {
	p := Build(types.DefaultOptions(), "", "")
	first := strings.Index(p, "Первый файл")
	next := strings.Index(p, "Последующие файлы")
	require.True(t, first >= 0 && next > first)
	assert.Contains(t, p, "ВНУТРЕННЮЮ БАЗУ ЗНАНИЙ")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(p), "}"), "промпт заканчивается схемой")
}

func TestBuildDeterministic(t *testing.T) {
	opts := types.OptionsFromSet([]types.CheckName{types.CheckSPDS})
	assert.Equal(t, Build(opts, "a", "b"), Build(opts, "a", "b"))
}

func TestBuilderPromptOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "audit.system.txt"), []byte("Роль: тестовый нормоконтролёр."), 0o644))

	p := Builder{PromptDir: dir}.Build(types.DefaultOptions(), "", "")
	assert.True(t, strings.HasPrefix(p, "Роль: тестовый нормоконтролёр."))
	assert.NotContains(t, p, defaultPersona)

	// нет файла: стандартная роль
	p = Builder{PromptDir: t.TempDir()}.Build(types.DefaultOptions(), "", "")
	assert.True(t, strings.HasPrefix(p, defaultPersona))
}

func TestCatalogCoversAllChecks(t *testing.T) {
	for _, c := range types.AllChecks {
		info, ok := Catalog[c]
		require.True(t, ok, "нет описания для %s", c)
		assert.Equal(t, c, info.Name)
		assert.NotEmpty(t, info.Detail)
		assert.NotEmpty(t, LabelFor(c))
	}
	assert.Equal(t, "checkFoo", LabelFor("checkFoo"))
	assert.Empty(t, DetailFor("checkFoo", "x"))
}

func TestAnalysisSchemaIsValidJSON(t *testing.T) {
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(AnalysisSchema), &m))
	assert.ElementsMatch(t, []any{"summary", "issues"}, m["required"])

	sm, err := SchemaMap()
	require.NoError(t, err)
	sm["mutated"] = true
	again, err := SchemaMap()
	require.NoError(t, err)
	assert.NotContains(t, again, "mutated", "каждый вызов возвращает свежую копию")
}
