package types

import "fmt"

// CheckName: идентификатор категории проверки (ключ ValidationOptions).
type CheckName string

const (
	CheckGostOV   CheckName = "checkGostOV"
	CheckGostVK   CheckName = "checkGostVK"
	CheckGostEOM  CheckName = "checkGostEOM"
	CheckSPDS     CheckName = "checkSPDS"
	CheckSpelling CheckName = "checkSpelling"
	CheckStamps   CheckName = "checkStamps"
	CheckCipher   CheckName = "checkCipher"
)

// AllChecks in display order. The order is also the order of the enabled list in the prompt.
var AllChecks = []CheckName{
	CheckGostOV,
	CheckGostVK,
	CheckGostEOM,
	CheckSPDS,
	CheckSpelling,
	CheckStamps,
	CheckCipher,
}

func ParseCheckName(s string) (CheckName, error) {
	for _, c := range AllChecks {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown check %q", s)
}

// ValidationOptions: семь независимых флагов проверки.
type ValidationOptions struct {
	CheckGostOV   bool `json:"checkGostOV" yaml:"checkGostOV"`
	CheckGostVK   bool `json:"checkGostVK" yaml:"checkGostVK"`
	CheckGostEOM  bool `json:"checkGostEOM" yaml:"checkGostEOM"`
	CheckSPDS     bool `json:"checkSPDS" yaml:"checkSPDS"`
	CheckSpelling bool `json:"checkSpelling" yaml:"checkSpelling"`
	CheckStamps   bool `json:"checkStamps" yaml:"checkStamps"`
	CheckCipher   bool `json:"checkCipher" yaml:"checkCipher"`
}

// DefaultOptions: все проверки включены.
func DefaultOptions() ValidationOptions {
	return ValidationOptions{
		CheckGostOV:   true,
		CheckGostVK:   true,
		CheckGostEOM:  true,
		CheckSPDS:     true,
		CheckSpelling: true,
		CheckStamps:   true,
		CheckCipher:   true,
	}
}

func (o *ValidationOptions) field(name CheckName) *bool {
	switch name {
	case CheckGostOV:
		return &o.CheckGostOV
	case CheckGostVK:
		return &o.CheckGostVK
	case CheckGostEOM:
		return &o.CheckGostEOM
	case CheckSPDS:
		return &o.CheckSPDS
	case CheckSpelling:
		return &o.CheckSpelling
	case CheckStamps:
		return &o.CheckStamps
	case CheckCipher:
		return &o.CheckCipher
	}
	return nil
}

func (o ValidationOptions) Get(name CheckName) bool {
	if p := o.field(name); p != nil {
		return *p
	}
	return false
}

func (o *ValidationOptions) Set(name CheckName, v bool) error {
	p := o.field(name)
	if p == nil {
		return fmt.Errorf("unknown check %q", name)
	}
	*p = v
	return nil
}

func (o *ValidationOptions) Toggle(name CheckName) error {
	p := o.field(name)
	if p == nil {
		return fmt.Errorf("unknown check %q", name)
	}
	*p = !*p
	return nil
}

// Enabled возвращает включённые проверки в порядке AllChecks.
func (o ValidationOptions) Enabled() []CheckName {
	out := make([]CheckName, 0, len(AllChecks))
	for _, c := range AllChecks {
		if o.Get(c) {
			out = append(out, c)
		}
	}
	return out
}

// OptionsFromSet builds options where exactly the listed checks are enabled.
func OptionsFromSet(names []CheckName) ValidationOptions {
	var o ValidationOptions
	for _, n := range names {
		_ = o.Set(n, true)
	}
	return o
}
