package genai

import (
	"context"
	"errors"
	"fmt"

	domainerrors "github.com/inkwellpress/inkwell/internal/errors"
)

// Sentinel errors for backend operations.
var (
	ErrRateLimited   = errors.New("genai: rate limited by server")
	ErrInvalidInput  = errors.New("genai: request rejected")
	ErrUnauthorized  = errors.New("genai: unauthorized")
	ErrServer        = errors.New("genai: server error")
	ErrEmptyResponse = errors.New("genai: empty response")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op     string // generate, edit, text
	Status int    // HTTP status, 0 when the request never completed
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("genai %s [%d]: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("genai %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op string, status int, err error) error {
	return &Error{Op: op, Status: status, Err: err}
}

// DomainError maps a backend failure onto a coded domain error with msg.
// Cancellation passes through unchanged and an empty response becomes
// NO_RESULT.
func DomainError(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, ErrRateLimited):
		return domainerrors.Wrap(err, domainerrors.CodeRateLimited, msg)
	case errors.Is(err, ErrInvalidInput):
		return domainerrors.Wrap(err, domainerrors.CodeInvalidInput, msg)
	case errors.Is(err, ErrEmptyResponse):
		return domainerrors.Wrap(err, domainerrors.CodeNoResult, msg)
	default:
		return domainerrors.Wrap(err, domainerrors.CodeInternal, msg)
	}
}
