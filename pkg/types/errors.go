package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for matching the error taxonomy with errors.Is.
var (
	ErrUnauthorized = errors.New("not authorized")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("entity not found")
	ErrPersistence  = errors.New("persistence failure")
)

// AuthorizationError reports that the actor's capability set lacks a required
// flag, or that an ownership rule failed. It is never retried.
type AuthorizationError struct {
	Op         string
	Capability string
	Reason     string
}

func (e *AuthorizationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": not authorized")
	if e.Capability != "" {
		b.WriteString(": missing capability ")
		b.WriteString(e.Capability)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

func (e *AuthorizationError) Is(target error) bool { return target == ErrUnauthorized }

// ValidationError reports missing or invalid fields.
type ValidationError struct {
	Op     string
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	msg := e.Op + ": validation failed"
	if len(e.Fields) > 0 {
		msg += " on " + strings.Join(e.Fields, ", ")
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// HasField reports whether field is among the rejected fields.
func (e *ValidationError) HasField(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// ConflictError reports a structurally invalid request: a duplicate link,
// a cyclic parent assignment, a nested reply or a stale version.
type ConflictError struct {
	Op     string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: conflict: %s", e.Op, e.Reason)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// NotFoundError reports a reference to a deleted or nonexistent record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// PersistenceError wraps a storage failure. The transaction that produced it
// has been rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Constructors used across packages.

// Unauthorized returns an AuthorizationError for a missing capability.
func Unauthorized(op, capability string) error {
	return &AuthorizationError{Op: op, Capability: capability}
}

// Forbidden returns an AuthorizationError for a failed ownership rule.
func Forbidden(op, reason string) error {
	return &AuthorizationError{Op: op, Reason: reason}
}

// Invalid returns a ValidationError naming the rejected fields.
func Invalid(op, reason string, fields ...string) error {
	return &ValidationError{Op: op, Fields: fields, Reason: reason}
}

// Conflict returns a ConflictError.
func Conflict(op, reason string) error {
	return &ConflictError{Op: op, Reason: reason}
}

// NotFound returns a NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}
