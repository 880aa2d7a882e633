package report

import (
	"strconv"

	"engdoc-auditor/api/internal/audit/types"
	"engdoc-auditor/api/internal/session"
)

// State: что показывает панель результатов.
type State string

const (
	StatePending   State = "pending"
	StateEmpty     State = "empty"
	StatePopulated State = "populated"
)

// View: всё, что нужно рендерерам. Рендеринг не меняет модель данных.
type View struct {
	State  State
	Result *types.AnalysisResult
	Error  string
}

// Тексты интерфейса.
const (
	TitleReport      = "Отчет аудита"
	TitleLog         = "Журнал аудита"
	LabelTotal       = "Всего проверок"
	LabelErrors      = "Ошибки"
	LabelWarnings    = "Предупреждения"
	LabelError       = "Ошибка"
	LabelWarning     = "Предупреждение"
	LabelReference   = "Ссылка:"
	PendingTitle     = "Анализ документации..."
	PendingText      = "Модель проверяет чертежи на соответствие ГОСТ и СПДС. Это может занять некоторое время из-за сложности документов."
	EmptyTitle       = "Результаты анализа отсутствуют."
	EmptyText        = "Загрузите файлы и нажмите «Начать аудит»."
	NoFindingsText   = "Замечаний не выявлено. Документация соответствует выбранным критериям проверки."
	StartButton      = "Начать аудит"
	StartButtonBusy  = "Выполняется аудит..."
	PrintButtonLabel = "Печать"
)

func ViewOf(o session.Outcome) View {
	switch o.Phase {
	case session.PhasePending:
		return View{State: StatePending}
	case session.PhaseSucceeded:
		return View{State: StatePopulated, Result: o.Result}
	case session.PhaseFailed:
		return View{State: StateEmpty, Error: o.Error}
	default:
		return View{State: StateEmpty}
	}
}

// ResultView: готовый результат вне сессии (CLI, API).
func ResultView(r types.AnalysisResult) View {
	return View{State: StatePopulated, Result: &r}
}

func IssueLabel(t types.IssueType) string {
	if t == types.IssueError {
		return LabelError
	}
	return LabelWarning
}

// RecordsLabel: «N записей» с русским склонением.
func RecordsLabel(n int) string {
	word := "записей"
	switch {
	case n%100 >= 11 && n%100 <= 14:
	case n%10 == 1:
		word = "запись"
	case n%10 >= 2 && n%10 <= 4:
		word = "записи"
	}
	return strconv.Itoa(n) + " " + word
}
