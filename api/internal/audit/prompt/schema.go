package prompt

import "engdoc-auditor/api/internal/util"

// AnalysisSchema: audit.schema.json: ответ модели целиком.
const AnalysisSchema = `{
  "type": "object",
  "properties": {
    "summary": {
      "type": "object",
      "properties": {
        "total_checks": { "type": "integer" },
        "errors":       { "type": "integer" },
        "warnings":     { "type": "integer" }
      },
      "required": ["total_checks", "errors", "warnings"]
    },
    "issues": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "type":        { "type": "string", "enum": ["error", "warning"] },
          "section":     { "type": "string" },
          "sheet":       { "type": "string" },
          "location":    { "type": "string" },
          "description": { "type": "string" },
          "reference":   { "type": "string" }
        },
        "required": ["type", "section", "sheet", "location", "description", "reference"]
      }
    }
  },
  "required": ["summary", "issues"]
}`

// Field names shared by the typed SDK schemas.
var (
	SummaryFields = []string{"total_checks", "errors", "warnings"}
	IssueFields   = []string{"type", "section", "sheet", "location", "description", "reference"}
	IssueTypes    = []string{"error", "warning"}
)

// SchemaMap возвращает новую копию схемы для движков, принимающих сырой JSON Schema.
func SchemaMap() (map[string]any, error) {
	return util.ParseSchema("audit", AnalysisSchema)
}
