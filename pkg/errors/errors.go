package errors

import (
	"errors"
	"net/http"
)

// Таксономия отказов relay. Сервисы оборачивают причину через %w,
// транспорт и REST решают по сентинелу, что отдать клиенту.
var (
	ErrForbidden       = errors.New("forbidden")
	ErrValidation      = errors.New("validation failed")
	ErrStorage         = errors.New("storage unavailable")
	ErrResolution      = errors.New("recipient resolution failed")
	ErrProfileNotFound = errors.New("profile not found")
)

// APIError - тело ошибки REST-ответа
type APIError struct {
	Message string `json:"error"`
	Code    int    `json:"code"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(message string, code int) *APIError {
	return &APIError{
		Message: message,
		Code:    code,
	}
}

func HTTPStatusFromError(err error) int {
	switch {
	case errors.Is(err, ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrStorage), errors.Is(err, ErrResolution):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
