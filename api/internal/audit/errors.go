package audit

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoPrimaryDocument = errors.New("Пожалуйста, загрузите PDF файл проекта для анализа.")
	ErrMissingCredential = errors.New("API Key is missing. Please check your environment configuration.")
	ErrNoResponse        = errors.New("Не удалось получить ответ от Gemini.")
	ErrMalformedOutput   = errors.New("malformed model output")
)

// GenericFailureMessage показывается, когда у ошибки нет собственного текста.
const GenericFailureMessage = "Произошла непредвиденная ошибка во время анализа."

// ServiceError: сбой вызова внешнего сервиса; текст провайдера сохраняется как есть.
type ServiceError struct {
	Engine string
	Err    error
}

func (e *ServiceError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ServiceError) Unwrap() error { return e.Err }

// MalformedOutputError: ответ модели не соответствует audit.schema.json.
type MalformedOutputError struct {
	Reason string
	Err    error
}

func (e *MalformedOutputError) Error() string {
	msg := "Некорректный ответ модели: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedOutputError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedOutput, e.Err}
	}
	return []error{ErrMalformedOutput}
}

func malformed(reason string, err error) error {
	return &MalformedOutputError{Reason: reason, Err: err}
}

func missingField(path string) error {
	return malformed(fmt.Sprintf("нет обязательного поля %s", path), nil)
}

// UserMessage: текст ошибки для пользователя.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return GenericFailureMessage
}
