package models

import (
	"errors"
	"strings"
)

// Ошибки фронтенда. Проверяются через errors.Is.
var (
	ErrValidation  = errors.New("validation failed")
	ErrAuth        = errors.New("authentication failed")
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrNetwork     = errors.New("network error")
	ErrBackend     = errors.New("backend error")

	ErrRequestInFlight = errors.New("story request already in progress")
	ErrSessionNotFound = errors.New("session not found")
	ErrDraftNotFound   = errors.New("draft not found")
)

// Тексты, которые видит пользователь, если бэкенд ничего не прислал.
const (
	MsgLoginFailed        = "Login failed. Please check your credentials."
	MsgRegistrationFailed = "Registration failed. Please try again."
	MsgNetwork            = "Network error. Please try again."
	MsgGenerateFailed     = "Failed to generate story. Please try again."
	MsgReviseFailed       = "Failed to revise story. Please try again."
	MsgHistoryFailed      = "Failed to load your stories. Please try again."
	MsgDeleteFailed       = "Failed to delete story. Please try again."
	MsgSessionExpired     = "Your session has expired. Please sign in again."
	MsgRequestInFlight    = "Please wait for the current story request to finish."
	MsgUnexpected         = "Something went wrong. Please try again."
)

// AppError - ошибка с видом (Kind) и текстом для пользователя.
type AppError struct {
	Kind    error
	Message string
	// Fields - недостающие поля для ErrValidation.
	Fields []string
	Err    error
}

func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *AppError) Unwrap() error { return e.Err }

func (e *AppError) Is(target error) bool { return target == e.Kind }

func NewAppError(kind error, message string, cause error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: cause}
}

// NewValidationError перечисляет недостающие поля в порядке формы.
func NewValidationError(fields ...string) *AppError {
	return &AppError{
		Kind:    ErrValidation,
		Message: "Missing required fields: " + strings.Join(fields, ", "),
		Fields:  fields,
	}
}

// UserMessage возвращает строку для показа в интерфейсе.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	switch {
	case errors.Is(err, ErrNetwork):
		return MsgNetwork
	case errors.Is(err, ErrAuth):
		return MsgSessionExpired
	case errors.Is(err, ErrRequestInFlight):
		return MsgRequestInFlight
	}
	return MsgUnexpected
}
