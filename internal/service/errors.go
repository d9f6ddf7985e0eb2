package service

import (
	"errors"
	"fmt"
)

var (
	ErrPostNotFound       = errors.New("post not found")
	ErrFileNotFound       = errors.New("file not found")
	ErrForbidden          = errors.New("requester does not own this post")
	ErrNoUpcomingIssue    = errors.New("no upcoming issue accepts submissions")
	ErrMissingFilter      = errors.New("feed filter is missing a required key")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// ValidationError reports a rejected input field. Nothing is written when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalidField(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// PersistenceError wraps a storage failure raised inside a write unit.
// The unit has been rolled back when a caller sees it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// wrapPersistence keeps domain errors intact and wraps everything else.
func wrapPersistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		return err
	}
	var persistence *PersistenceError
	if errors.As(err, &persistence) {
		return err
	}
	switch {
	case errors.Is(err, ErrPostNotFound),
		errors.Is(err, ErrFileNotFound),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrNoUpcomingIssue),
		errors.Is(err, ErrCategoryNotFound):
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
