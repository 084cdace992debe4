package api

import (
	"fmt"
	"net/http"
	"strings"
)

type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func newApiError(statusCode int, message string) *ApiError {
	if message == "" {
		message = strings.ToLower(http.StatusText(statusCode))
	}

	return &ApiError{
		StatusCode: statusCode,
		Message:    message,
	}
}

func NewBadRequestError(message string) *ApiError {
	return newApiError(http.StatusBadRequest, message)
}

func NewNotFoundError() *ApiError {
	return newApiError(http.StatusNotFound, "")
}

func NewUnauthorizedError() *ApiError {
	return newApiError(http.StatusUnauthorized, "")
}

func NewForbiddenError(message string) *ApiError {
	return newApiError(http.StatusForbidden, message)
}

func NewConflictError(message string) *ApiError {
	return newApiError(http.StatusConflict, message)
}

func NewInternalServerError(err error) *ApiError {
	apiErr := newApiError(http.StatusInternalServerError, "")
	apiErr.Err = err

	return apiErr
}
