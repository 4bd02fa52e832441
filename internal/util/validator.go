package util

import (
	"errors"
	"net/mail"
	"strconv"
	"strings"
)

// ValidateEmail retorna error para e-mails inválidos.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email obligatorio")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("email inválido")
	}
	return nil
}

// RequireString garantiza string no vacío.
func RequireString(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(field + " obligatorio")
	}
	return nil
}

// ParseCoord interpreta una coordenada enviada como string o número.
// Retorna ok=false cuando el valor no es numérico.
func ParseCoord(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	coord, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return coord, true
}
