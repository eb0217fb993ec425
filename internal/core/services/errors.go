package services

import (
	"errors"
	"net/mail"
	"strings"

	"dimos-fixit/internal/core/domain"

	"gorm.io/gorm"
)

// lookupErr maps a repository lookup failure to the notFound sentinel or Internal
func lookupErr(err error, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return domain.Internal(err)
}

// internalErr wraps non-domain failures, passing AppErrors through
func internalErr(err error) error {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return domain.Internal(err)
}

// fieldErrors accumulates per-field validation messages
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, exists := f[field]; !exists {
		f[field] = msg
	}
}

func (f fieldErrors) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		f.add(field, field+" is required")
	}
}

func (f fieldErrors) maxLen(field, value string, n int) {
	if len([]rune(value)) > n {
		f.add(field, field+" is too long")
	}
}

func (f fieldErrors) email(field, value string) {
	if strings.TrimSpace(value) == "" {
		f.add(field, field+" is required")
		return
	}
	if addr, err := mail.ParseAddress(value); err != nil || addr.Address != value {
		f.add(field, "invalid email address")
	}
}

// err returns a ValidationFailed error when any message was recorded
func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	msg := "Validation failed"
	if len(f) == 1 {
		for _, m := range f {
			msg = m
		}
	}
	return domain.Validation(msg, f)
}
