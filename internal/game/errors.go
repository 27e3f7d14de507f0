package game

import "errors"

// Kind classifies a rejected operation
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindCapacity
	KindInvalidState
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation error"
	case KindNotFound:
		return "not found"
	case KindCapacity:
		return "capacity error"
	case KindInvalidState:
		return "invalid state"
	case KindAuth:
		return "not authorized"
	}
	return "internal error"
}

// Error is a rejection with a reason meant for the caller
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// Is matches sentinels by kind, so errors.Is(err, ErrCapacity) holds for any capacity error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Kind == e.Kind
}

var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrCapacity     = &Error{Kind: KindCapacity}
	ErrInvalidState = &Error{Kind: KindInvalidState}
	ErrAuth         = &Error{Kind: KindAuth}
)

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// NewError builds a rejection of the given kind for callers outside the engine
func NewError(kind Kind, msg string) error {
	return newError(kind, msg)
}

// KindOf returns the kind of err, KindInternal for anything that is not a game error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
