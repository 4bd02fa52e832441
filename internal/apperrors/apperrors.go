package apperrors

import (
	"errors"
	"net/http"
)

// Code clasifica fallas de dominio para mapearlas a HTTP en el borde.
type Code string

const (
	CodeValidation   Code = "VALIDATION"
	CodeAuth         Code = "AUTH"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeInvalidState Code = "INVALID_STATE"
	CodeInvalidGeo   Code = "INVALID_COORDINATES"
	CodeDuplicate    Code = "DUPLICATE"
	CodeMismatch     Code = "MISMATCHED_TARGET"
	CodeInternal     Code = "INTERNAL"
)

// Error es el error de dominio tipado que cruza capas de servicio.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New crea un error de dominio con código y mensaje.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// As extrae el error de dominio si lo hay.
func As(err error) (*Error, bool) {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// CodeOf extrae el código de un error; CodeInternal si no es de dominio.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// HTTPStatus traduce un código de dominio a status HTTP.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeInvalidGeo:
		return http.StatusBadRequest
	case CodeAuth:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidState, CodeDuplicate, CodeMismatch:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
