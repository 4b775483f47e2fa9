package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an Error so adapters can map it onto their own status
// space without string matching.
type Kind uint8

// Error kinds.
const (
	KindInternal Kind = iota
	KindInvalidArgument
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindInvalidToken
	KindAlreadyVerified
	KindInvalidCredentials
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindInvalidToken:
		return "invalid token"
	case KindAlreadyVerified:
		return "already verified"
	case KindInvalidCredentials:
		return "invalid credentials"
	default:
		return "internal"
	}
}

// Error is a classified business error. Two Errors match under errors.Is
// when their kinds are equal, so callers compare against the sentinels below.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Msg
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	// ErrInvalidArgument matches malformed or out-of-range input.
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	// ErrUnauthenticated matches a missing, expired or unknown session.
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	// ErrForbidden matches an authenticated caller lacking permission.
	ErrForbidden = &Error{Kind: KindForbidden}
	// ErrNotFound matches a missing user or listing.
	ErrNotFound = &Error{Kind: KindNotFound}
	// ErrConflict matches a uniqueness violation such as a duplicate email.
	ErrConflict = &Error{Kind: KindConflict}
	// ErrInvalidToken matches a malformed, expired or unknown verification token.
	ErrInvalidToken = &Error{Kind: KindInvalidToken}
	// ErrAlreadyVerified matches verification of an already verified user.
	ErrAlreadyVerified = &Error{Kind: KindAlreadyVerified}
	// ErrInvalidCredentials matches a failed login.
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
)

func newError(k Kind, format string, args ...any) error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// InvalidArgument returns a KindInvalidArgument error with a formatted message.
func InvalidArgument(format string, args ...any) error {
	return newError(KindInvalidArgument, format, args...)
}

// Forbidden returns a KindForbidden error with a formatted message.
func Forbidden(format string, args ...any) error {
	return newError(KindForbidden, format, args...)
}

// NotFound returns a KindNotFound error with a formatted message.
func NotFound(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

// Conflict returns a KindConflict error with a formatted message.
func Conflict(format string, args ...any) error {
	return newError(KindConflict, format, args...)
}

// Unauthenticated returns a KindUnauthenticated error with a formatted message.
func Unauthenticated(format string, args ...any) error {
	return newError(KindUnauthenticated, format, args...)
}

// InvalidToken returns a KindInvalidToken error with a formatted message.
func InvalidToken(format string, args ...any) error {
	return newError(KindInvalidToken, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
