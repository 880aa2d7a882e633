package prompt

import (
	"fmt"
	"strings"

	"k8s.io/klog/v2"

	"engdoc-auditor/api/internal/audit/types"
	"engdoc-auditor/api/internal/util"
)

const AUDIT = "audit"

const defaultPersona = `Роль: Вы профессиональный эксперт по нормоконтролю проектной документации инженерных систем (ОВ, ВК, ЭОМ).

Задача: Проанализировать предоставленный PDF-файл проекта на соответствие стандартам ГОСТ и инструкциям пользователя.`

const procedure = `Логика работы:
1. АВТОМАТИЧЕСКИ ОПРЕДЕЛИТЬ тип проекта (ОВ, ВК или ЭОМ) на основе содержимого, если явно не указано иное.
2. Если файлы ГОСТ не загружены пользователем, использовать знания из ВНУТРЕННЕЙ БАЗЫ ЗНАНИЙ для соответствующего раздела (ОВ/ВК/ЭОМ) и СПДС.
3. Проанализировать структуру PDF (Титульный лист, Чертежи, Штампы, Таблицы).
4. Для каждого найденного несоответствия:
   - Определить точный Номер Листа.
   - Указать зону (Штамп, Таблица, Текст, Схема).
   - Четко описать суть ошибки на РУССКОМ ЯЗЫКЕ.
   - Указать ссылку на пункт ГОСТ или инструкцию.
5. Вывод должен быть строго в формате JSON по схеме audit.schema.json. Любой текст вне JSON — ошибка.`

// Builder собирает инструкцию для модели. PromptDir (необязательно) может
// содержать audit.system.txt, заменяющий вступление с ролью.
type Builder struct {
	PromptDir string
}

// Build: детерминированная сборка промпта со стандартным вступлением.
func Build(opts types.ValidationOptions, instructions, projectCode string) string {
	return Builder{}.Build(opts, instructions, projectCode)
}

func (b Builder) Build(opts types.ValidationOptions, instructions, projectCode string) string {
	persona := defaultPersona
	if b.PromptDir != "" {
		if s, err := util.LoadPromptOverride(b.PromptDir, AUDIT, "system"); err == nil {
			persona = s
		} else {
			klog.V(4).Infof("prompt override not used: %v", err)
		}
	}

	enabled := opts.Enabled()
	names := make([]string, 0, len(enabled))
	for _, c := range enabled {
		names = append(names, string(c))
	}

	var sb strings.Builder
	sb.WriteString(persona)
	sb.WriteString("\n\nВходные данные:\n")
	sb.WriteString("1. Первый файл — ПРОЕКТНАЯ ДОКУМЕНТАЦИЯ (PDF) для проверки.\n")
	sb.WriteString("2. Последующие файлы (если есть) — файлы стандартов ГОСТ (PDF). " +
		"Если файлы ГОСТ не предоставлены, используйте вашу ВНУТРЕННЮЮ БАЗУ ЗНАНИЙ актуальных стандартов РФ.\n")
	// без экранирования: переводы строк и кавычки как ввёл пользователь
	fmt.Fprintf(&sb, "3. Шифр проекта (Эталон): \"%s\"\n", projectCode)
	fmt.Fprintf(&sb, "4. Инструкции пользователя: \"%s\"\n", instructions)

	sb.WriteString("\nВключенные опции проверки (выполнять только эти проверки):\n")
	sb.WriteString(strings.Join(names, ", "))
	sb.WriteString("\n")

	if len(enabled) > 0 {
		sb.WriteString("\nДетали опций:\n")
		for _, c := range enabled {
			fmt.Fprintf(&sb, "- %s: %s\n", c, DetailFor(c, projectCode))
		}
	}

	sb.WriteString("\n")
	sb.WriteString(procedure)
	sb.WriteString("\n\naudit.schema.json:\n")
	sb.WriteString(AnalysisSchema)
	sb.WriteString("\n")
	return sb.String()
}
