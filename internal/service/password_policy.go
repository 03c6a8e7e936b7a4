package service

import (
	"errors"
	"unicode"
)

const minPasswordLength = 8

var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordNumeric  = errors.New("password entirely numeric")
)

// validatePassword aplica la política mínima de contraseñas.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	numeric := true
	for _, r := range password {
		if !unicode.IsDigit(r) {
			numeric = false
			break
		}
	}
	if numeric {
		return ErrPasswordNumeric
	}
	return nil
}
