package api

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	ErrInvalidEmail = errors.New("invalid email")
	ErrInvalidDate  = errors.New("invalid date")
)

// emailRegex valida formato de e-mail (uma @ e domínio com ponto).
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEmailRegex valida formato de e-mail com o regex padrão do backend.
func ValidateEmailRegex(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrInvalidEmail
	}
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateDate aceita só YYYY-MM-DD.
func ValidateDate(s string) error {
	if _, err := time.Parse("2006-01-02", strings.TrimSpace(s)); err != nil {
		return ErrInvalidDate
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// validPhone aceita de 10 a 13 dígitos (DDD + número, com ou sem 55).
func validPhone(s string) bool {
	n := len(onlyDigits(s))
	return n >= 10 && n <= 13
}
