package model

import (
	"errors"
	"time"
	"unicode/utf8"
)

// User is an account that owns containers.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidatePassword checks password strength requirements.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// ValidateUsername checks that a username is usable as a login name.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n == 0 {
		return errors.New("username can't be blank")
	}
	if n > 64 {
		return errors.New("username must be at most 64 characters")
	}
	return nil
}
