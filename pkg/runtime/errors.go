package runtime

import (
	"errors"
	"fmt"
)

// ErrorKind classifies runtime failures.
type ErrorKind int

const (
	ErrNameNotFound ErrorKind = iota + 1
	ErrAlreadyDefined
	ErrTableFull
	ErrTypeMismatch
	ErrUnsupportedType
	ErrDivisionByZero
	ErrInvalidPin
	ErrHardwareInit
	ErrHardwareIO
	ErrInvalidCondition
	ErrImmutableTarget
	ErrArityMismatch
	ErrInvalidArgument
	ErrInternal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNameNotFound:
		return "NameNotFoundError"
	case ErrAlreadyDefined:
		return "AlreadyDefinedError"
	case ErrTableFull:
		return "TableFullError"
	case ErrTypeMismatch:
		return "TypeMismatchError"
	case ErrUnsupportedType:
		return "UnsupportedTypeError"
	case ErrDivisionByZero:
		return "DivisionByZeroError"
	case ErrInvalidPin:
		return "InvalidPinError"
	case ErrHardwareInit:
		return "HardwareInitError"
	case ErrHardwareIO:
		return "HardwareIOError"
	case ErrInvalidCondition:
		return "InvalidConditionError"
	case ErrImmutableTarget:
		return "ImmutableTargetError"
	case ErrArityMismatch:
		return "ArityMismatchError"
	case ErrInvalidArgument:
		return "InvalidArgumentError"
	case ErrInternal:
		return "InternalError"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Fatal reports whether errors of this kind stop the whole program.
func (k ErrorKind) Fatal() bool {
	return k == ErrTableFull || k == ErrInternal
}

// Error is the single error type produced by the runtime and interpreter.
// Line is 0 until the evaluator attributes the error to a source line.
type Error struct {
	Kind    ErrorKind
	Message string
	Line    int
	cause   error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error of the same kind, so errors.Is(err, ErrorOf(kind))
// and the exported sentinels work regardless of message or line.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind && other.Message == "" && other.cause == nil
}

// Fatal reports whether the error stops the whole program.
func (e *Error) Fatal() bool { return e.Kind.Fatal() }

// Errorf builds a runtime error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a runtime error of the given kind around cause.
func Wrap(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// ErrorOf returns the sentinel for kind, usable as an errors.Is target.
func ErrorOf(kind ErrorKind) error {
	return &Error{Kind: kind}
}

// Sentinels for errors.Is.
var (
	NameNotFound     = ErrorOf(ErrNameNotFound)
	AlreadyDefined   = ErrorOf(ErrAlreadyDefined)
	TableFull        = ErrorOf(ErrTableFull)
	TypeMismatch     = ErrorOf(ErrTypeMismatch)
	UnsupportedType  = ErrorOf(ErrUnsupportedType)
	DivisionByZero   = ErrorOf(ErrDivisionByZero)
	InvalidPin       = ErrorOf(ErrInvalidPin)
	HardwareInit     = ErrorOf(ErrHardwareInit)
	HardwareIO       = ErrorOf(ErrHardwareIO)
	InvalidCondition = ErrorOf(ErrInvalidCondition)
	ImmutableTarget  = ErrorOf(ErrImmutableTarget)
	ArityMismatch    = ErrorOf(ErrArityMismatch)
	InvalidArgument  = ErrorOf(ErrInvalidArgument)
	Internal         = ErrorOf(ErrInternal)
)

// KindOf extracts the error kind from err, or 0 when err is not a runtime error.
func KindOf(err error) ErrorKind {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Kind
	}
	return 0
}

// IsFatal reports whether err must stop the program.
func IsFatal(err error) bool {
	return KindOf(err).Fatal()
}

// WithLine stamps line onto err if it is a runtime error that has no line yet.
func WithLine(err error, line int) error {
	if err == nil || line <= 0 {
		return err
	}
	var rerr *Error
	if errors.As(err, &rerr) && rerr.Line == 0 {
		rerr.Line = line
	}
	return err
}

// LineOf reports the source line attached to err, or 0.
func LineOf(err error) int {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Line
	}
	return 0
}
