package inventory

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a record does not exist, does not belong to
// the acting user, or there is no acting user at all.
var ErrNotFound = errors.New("not found")

// ValidationError lists human-readable problems with a submitted record.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// fieldErrors collects messages keyed by field so each field reports once.
type fieldErrors struct {
	seen     map[string]bool
	messages []string
}

func (f *fieldErrors) add(field, message string) {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[field] {
		return
	}
	f.seen[field] = true
	f.messages = append(f.messages, message)
}

func (f *fieldErrors) has(field string) bool {
	return f.seen[field]
}

func (f *fieldErrors) err() error {
	if len(f.messages) == 0 {
		return nil
	}
	return &ValidationError{Errors: f.messages}
}
