package utils

import (
	"errors"
	"net/http"
)

// Pipeline error taxonomy. Callers test with errors.Is; messages are wrapped with context.
var (
	ErrNotFound              = errors.New("not found")
	ErrExtractionUnavailable = errors.New("extraction unavailable")
	ErrInferenceUnavailable  = errors.New("inference unavailable")
	ErrPersistenceFailed     = errors.New("persistence failed")
)

// AppError is the error shape returned across the HTTP edge.
type AppError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewBadRequestError(message string) *AppError {
	return &AppError{StatusCode: http.StatusBadRequest, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{StatusCode: http.StatusNotFound, Message: message, Err: ErrNotFound}
}

func NewUnprocessableError(message string, err error) *AppError {
	return &AppError{StatusCode: http.StatusUnprocessableEntity, Message: message, Err: err}
}

func NewInternalError(message string) *AppError {
	return &AppError{StatusCode: http.StatusInternalServerError, Message: message}
}

// ToAppError maps pipeline sentinel errors onto HTTP-facing errors.
func ToAppError(err error) *AppError {
	var appErr *AppError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, ErrNotFound):
		return NewNotFoundError(err.Error())
	case errors.Is(err, ErrExtractionUnavailable):
		return NewUnprocessableError("Text could not be extracted from the document", err)
	default:
		return &AppError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", Err: err}
	}
}
