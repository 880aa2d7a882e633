package types

// --- AUDIT RESULT --------------------------------------------------
// Соответствует audit.schema.json (summary + issues).

type IssueType string

const (
	IssueError   IssueType = "error"
	IssueWarning IssueType = "warning"
)

func (t IssueType) Valid() bool {
	return t == IssueError || t == IssueWarning
}

// AnalysisSummary: счётчики от модели, принимаются как есть.
type AnalysisSummary struct {
	TotalChecks int `json:"total_checks" yaml:"total_checks"`
	Errors      int `json:"errors" yaml:"errors"`
	Warnings    int `json:"warnings" yaml:"warnings"`
}

// Issue: одно замечание нормоконтроля.
type Issue struct {
	Type        IssueType `json:"type" yaml:"type"`
	Section     string    `json:"section" yaml:"section"`         // ОВ | ВК | ЭОМ | СПДС ...
	Sheet       string    `json:"sheet" yaml:"sheet"`             // номер листа
	Location    string    `json:"location" yaml:"location"`       // Штамп | Таблица | Текст | Схема
	Description string    `json:"description" yaml:"description"` // на русском
	Reference   string    `json:"reference" yaml:"reference"`     // пункт ГОСТ или инструкция
}

// AnalysisResult: порядок Issues совпадает с ответом модели.
type AnalysisResult struct {
	Summary AnalysisSummary `json:"summary" yaml:"summary"`
	Issues  []Issue         `json:"issues" yaml:"issues"`
}

// GenerateRequest: один вызов внешней модели.
type GenerateRequest struct {
	Prompt         string
	Files          []EncodedFile // первый: проверяемый документ
	ThinkingBudget int32         // 0: по умолчанию модели
}
