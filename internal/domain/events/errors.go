package events

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("event not found")

var ErrConflict = errors.New("event overlaps with another event")

var ErrTimeOrder = errors.New("from time is after to time")

// ValidationKind classifies user-correctable input failures.
type ValidationKind string

const (
	KindOrder      ValidationKind = "order"
	KindFilter     ValidationKind = "filter"
	KindPagination ValidationKind = "pagination"
	KindID         ValidationKind = "id"
	KindDateTime   ValidationKind = "datetime"
	KindPayload    ValidationKind = "payload"
	KindFormat     ValidationKind = "format"
)

// ValidationError carries the message shown to API callers in Message.
type ValidationError struct {
	Kind    ValidationKind
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

type NotFoundError struct {
	ID int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("Event %d not found", e.ID)
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

type ConflictError struct {
	Message string
}

func (e ConflictError) Error() string {
	return e.Message
}

func (e ConflictError) Is(target error) bool {
	return target == ErrConflict
}

const (
	createConflictMessage = "The event overlaps with another event."
	updateConflictMessage = "Invalid time input. The event will overlap with another event."
	timeOrderMessage      = "From time is after to time!"
)

// Message returns the caller-facing text for a domain error, or "" when err
// is not one the API should explain.
func Message(err error) string {
	var validation ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}
	var notFound NotFoundError
	if errors.As(err, &notFound) {
		return notFound.Error()
	}
	var conflict ConflictError
	if errors.As(err, &conflict) {
		return conflict.Message
	}
	switch {
	case errors.Is(err, ErrConflict):
		return createConflictMessage
	case errors.Is(err, ErrTimeOrder):
		return timeOrderMessage
	}
	return ""
}

// IsValidation reports whether err should be answered with 400.
func IsValidation(err error) bool {
	var validation ValidationError
	return errors.As(err, &validation) || errors.Is(err, ErrTimeOrder) || errors.Is(err, ErrConflict)
}
