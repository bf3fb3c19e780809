package client

import "fmt"

// ErrorKind classifies API failures. The store reacts differently per kind:
// authorization and not-found failures trigger a full refetch because the
// local projection has drifted from the server; every other failed write
// rolls the optimistic change back.
type ErrorKind string

const (
	ErrKindNetwork       ErrorKind = "network"
	ErrKindNotAuthorized ErrorKind = "not_authorized"
	ErrKindNotFound      ErrorKind = "not_found"
	ErrKindValidation    ErrorKind = "validation"
	ErrKindServer        ErrorKind = "server"
)

// APIError is a classified failure from the server API
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
}

// KindOf extracts the error kind; unknown errors count as network failures
// because nothing is known about server state.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Kind
	}
	return ErrKindNetwork
}

// needsRollback reports whether a failed write is repaired by restoring the
// local snapshot. Authorization and not-found failures are repaired by a
// full refetch instead.
func needsRollback(err error) bool {
	kind := KindOf(err)
	return kind != ErrKindNotAuthorized && kind != ErrKindNotFound
}
