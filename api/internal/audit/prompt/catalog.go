package prompt

import (
	"strings"

	"engdoc-auditor/api/internal/audit/types"
)

// CheckInfo: описание категории проверки.
type CheckInfo struct {
	Name     types.CheckName
	Standard string // идентификатор стандарта, пусто для нестандартных проверок
	Detail   string // строка для промпта; {{cipher}} подставляется эталонным шифром
	Label    string // короткая подпись для форм и клавиатур
}

const cipherPlaceholder = "{{cipher}}"

// Catalog: фиксированная таблица check → стандарт/описание.
var Catalog = map[types.CheckName]CheckInfo{
	types.CheckGostOV: {
		Name:     types.CheckGostOV,
		Standard: "ГОСТ 21.602-2016",
		Detail:   "Проверка по ГОСТ 21.602-2016 (Отопление, вентиляция и кондиционирование).",
		Label:    "ГОСТ 21.602-2016 (Отопление, вентиляция / ОВ)",
	},
	types.CheckGostVK: {
		Name:     types.CheckGostVK,
		Standard: "ГОСТ 21.704-2011",
		Detail:   "Проверка по ГОСТ 21.704-2011 (Водоснабжение и канализация).",
		Label:    "ГОСТ 21.704-2011 (Водоснабжение и канализация / ВК)",
	},
	types.CheckGostEOM: {
		Name:     types.CheckGostEOM,
		Standard: "ГОСТ 21.613-2014",
		Detail:   "Проверка по ГОСТ 21.613-2014 (Силовое электрооборудование).",
		Label:    "ГОСТ 21.613-2014 (Силовое электрооборудование / ЭОМ)",
	},
	types.CheckSPDS: {
		Name:     types.CheckSPDS,
		Standard: "ГОСТ Р 21.101-2020",
		Detail: "Проверка по ГОСТ Р 21.101-2020 (СПДС. Основные требования к проектной и рабочей документации). " +
			"Проверять оформление, основные надписи, обозначения, линии, шрифты.",
		Label: "СПДС (ГОСТ Р 21.101-2020)",
	},
	types.CheckSpelling: {
		Name:   types.CheckSpelling,
		Detail: "Проверка орфографии и опечаток в текстовых блоках.",
		Label:  "Орфография и опечатки",
	},
	types.CheckStamps: {
		Name:   types.CheckStamps,
		Detail: "Проверка заполнения основной надписи (штампа): наличие дат, подписей, стадий, наименований.",
		Label:  "Заполнение штампов и основных надписей",
	},
	types.CheckCipher: {
		Name:   types.CheckCipher,
		Detail: `Сравнение шифра в штампе с эталонным "` + cipherPlaceholder + `".`,
		Label:  "Соответствие шифра проекта",
	},
}

// DetailFor возвращает строку описания с подставленным шифром.
func DetailFor(name types.CheckName, projectCode string) string {
	info, ok := Catalog[name]
	if !ok {
		return ""
	}
	return strings.ReplaceAll(info.Detail, cipherPlaceholder, projectCode)
}

func LabelFor(name types.CheckName) string {
	if info, ok := Catalog[name]; ok {
		return info.Label
	}
	return string(name)
}
