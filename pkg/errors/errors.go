// Package errors provides the unified, typed error vocabulary used across
// the entity store, module runtime and registry service.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies one of the error kinds enumerated in the system design.
type Kind string

const (
	NotFound           Kind = "NotFound"
	AlreadyExists      Kind = "AlreadyExists"
	NameTaken          Kind = "NameTaken"
	VersionExists      Kind = "VersionExists"
	AuthRequired       Kind = "AuthRequired"
	KeyringDenied      Kind = "KeyringDenied"
	FilterSyntax       Kind = "FilterSyntax"
	MetadataUnknownKey Kind = "MetadataUnknownKey"
	MetadataVersion    Kind = "MetadataVersion"
	WorkspaceLocked    Kind = "WorkspaceLocked"
	Timeout            Kind = "Timeout"
	NetworkError       Kind = "NetworkError"
	StorageError       Kind = "StorageError"
	ScriptError        Kind = "ScriptError"
	Internal           Kind = "Internal"
)

// httpStatus maps each kind to the status code the registry HTTP layer
// should use when the error reaches the transport boundary.
var httpStatus = map[Kind]int{
	NotFound:           http.StatusNotFound,
	AlreadyExists:      http.StatusConflict,
	NameTaken:          http.StatusConflict,
	VersionExists:      http.StatusConflict,
	AuthRequired:       http.StatusUnauthorized,
	KeyringDenied:      http.StatusForbidden,
	FilterSyntax:       http.StatusBadRequest,
	MetadataUnknownKey: http.StatusBadRequest,
	MetadataVersion:    http.StatusBadRequest,
	WorkspaceLocked:    http.StatusLocked,
	Timeout:            http.StatusGatewayTimeout,
	NetworkError:       http.StatusBadGateway,
	StorageError:       http.StatusInternalServerError,
	ScriptError:        http.StatusUnprocessableEntity,
	Internal:           http.StatusInternalServerError,
}

// Error is a typed error carrying a Kind, a message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus returns the status code this error should surface as over the
// registry's HTTP transport.
func (e *Error) HTTPStatus() int {
	if status, ok := httpStatus[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind around a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is (or wraps) an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to Internal for untyped
// errors. Only Internal errors should ever be logged with full detail at
// the server without echoing that detail back to the caller (spec §7).
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return Internal
}
