package library

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrBookNotFound           = errors.New("book not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrBookBorrowed           = errors.New("book is currently borrowed")
	ErrBookNotBorrowed        = errors.New("book is not borrowed")
	ErrUserBanned             = errors.New("user is banned")
	ErrDuplicateStudentNumber = errors.New("student number already exists")
)

// ValidationError rejects input before it reaches storage.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err (or anything it wraps) is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrConstraint && se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
