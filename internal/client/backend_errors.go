package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"storyweaver/internal/models"
)

var rateLimitPattern = regexp.MustCompile(`Rate limit exceeded: [^.]+`)

const msgRateLimitedDefault = "Rate limit exceeded. Please try again later."

// errorBody - тело ошибки бэкенда. detail может быть не строкой
// (например, список ошибок валидации).
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func parseErrorBody(body []byte) errorBody {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return errorBody{}
	}
	return eb
}

// detailText возвращает detail как текст: строку как есть, остальное компактным JSON.
func (e errorBody) detailText() string {
	raw := bytes.TrimSpace(e.Detail)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// text - первое непустое из detail, error, message.
func (e errorBody) text() string {
	if d := e.detailText(); d != "" {
		return d
	}
	if s := strings.TrimSpace(e.Error); s != "" {
		return s
	}
	return strings.TrimSpace(e.Message)
}

// extractRateLimit вырезает из текста фразу "Rate limit exceeded: ..." без финальной точки.
func extractRateLimit(text string) (string, bool) {
	m := rateLimitPattern.FindString(text)
	if m == "" {
		return "", false
	}
	return strings.TrimSpace(m), true
}

// storyError строит ошибку для генерации и ревизии.
// verbatim=false заменяет текст бэкенда общим сообщением fallback.
func storyError(status int, body []byte, fallback string, verbatim bool) *models.AppError {
	text := parseErrorBody(body).text()
	cause := statusError(status)
	if clause, ok := extractRateLimit(text); ok {
		return models.NewAppError(models.ErrRateLimited, clause, cause)
	}
	if status == http.StatusTooManyRequests {
		return models.NewAppError(models.ErrRateLimited, msgRateLimitedDefault, cause)
	}
	if status == http.StatusUnauthorized {
		return models.NewAppError(models.ErrAuth, models.MsgSessionExpired, cause)
	}
	if verbatim && text != "" {
		return models.NewAppError(models.ErrBackend, text, cause)
	}
	return models.NewAppError(models.ErrBackend, fallback, cause)
}

func statusError(status int) error {
	return fmt.Errorf("backend responded with status %d", status)
}
