package article

import (
	"errors"
	"fmt"

	"innovate-ink/internal/policy"
)

// Kind is the stable category of a service error.
type Kind string

const (
	KindValidation          Kind = "validation_failure"
	KindUnauthenticated     Kind = "unauthenticated"
	KindForbidden           Kind = "forbidden"
	KindNotFound            Kind = "not_found"
	KindNotFoundOrForbidden Kind = "not_found_or_forbidden"
	KindStorage             Kind = "storage_failure"
)

// Error is returned by every Service operation.
type Error struct {
	Kind    Kind
	Message string

	// Field is the first invalid field; Fields holds a reason per invalid field.
	Field  string
	Fields map[string]string

	// Action is set on authorization failures.
	Action policy.Action

	// Err is the underlying storage error, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, ErrNotFound)
// works for every not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation          = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrUnauthenticated     = &Error{Kind: KindUnauthenticated, Message: "authentication required"}
	ErrForbidden           = &Error{Kind: KindForbidden, Message: "access denied: writers only"}
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "article not found"}
	ErrNotFoundOrForbidden = &Error{Kind: KindNotFoundOrForbidden, Message: "article not found or not yours"}
	ErrStorage             = &Error{Kind: KindStorage, Message: "storage failure"}
)

// KindOf returns the Kind of err. Errors that did not come from the
// service are treated as storage failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

func storageFailure(op string, err error) *Error {
	return &Error{Kind: KindStorage, Message: op + " failed", Err: err}
}

func notFound() *Error {
	return &Error{Kind: KindNotFound, Message: ErrNotFound.Message}
}

func denied(action policy.Action, d policy.Decision) *Error {
	switch d.Reason {
	case policy.ReasonUnauthenticated:
		return &Error{Kind: KindUnauthenticated, Action: action, Message: ErrUnauthenticated.Message}
	case policy.ReasonNotFoundOrForbidden:
		return notFoundOrForbidden(action)
	default:
		return &Error{Kind: KindForbidden, Action: action, Message: ErrForbidden.Message}
	}
}

func notFoundOrForbidden(action policy.Action) *Error {
	verb := "edit"
	if action == policy.ActionDelete {
		verb = "delete"
	}
	return &Error{
		Kind:    KindNotFoundOrForbidden,
		Action:  action,
		Message: "article not found or you are not authorized to " + verb + " it",
	}
}
