package aop

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorCode uint16

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeConfig
	ErrCodeNotAnAspect
	ErrCodeUnsupportedAdvice
	ErrCodeUnknownAdviceType
	ErrCodeNoDefaultImpl
	ErrCodeScopeMismatch
	ErrCodeNoHandlers
	ErrCodeInvocationFailed
	ErrCodeNoSuchMethod
	ErrCodeNoStub
	ErrCodeIllegalState
	ErrCodeUndeclared
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:           "UNKNOWN",
	ErrCodeConfig:            "AOP_CONFIG",
	ErrCodeNotAnAspect:       "NOT_AN_ASPECT",
	ErrCodeUnsupportedAdvice: "UNSUPPORTED_ADVICE",
	ErrCodeUnknownAdviceType: "UNKNOWN_ADVICE_TYPE",
	ErrCodeNoDefaultImpl:     "NO_DEFAULT_IMPL",
	ErrCodeScopeMismatch:     "SCOPE_MISMATCH",
	ErrCodeNoHandlers:        "NO_HANDLERS",
	ErrCodeInvocationFailed:  "INVOCATION_FAILED",
	ErrCodeNoSuchMethod:      "NO_SUCH_METHOD",
	ErrCodeNoStub:            "NO_STUB",
	ErrCodeIllegalState:      "ILLEGAL_STATE",
	ErrCodeUndeclared:        "UNDECLARED",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

// Error is the error type returned by the engine. Subject names the offending
// aspect, method, advice or bean when one is known.
type Error struct {
	Code    ErrorCode
	Message string
	Subject string
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]", e.Code))

	if e.Subject != "" {
		b.WriteString(fmt.Sprintf(" %s:", e.Subject))
	}

	b.WriteString(" ")
	b.WriteString(e.Message)

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func (e *Error) WithSubject(subject string) *Error {
	e.Subject = subject
	return e
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func errConfig(subject, format string, args ...any) *Error {
	return newError(ErrCodeConfig, fmt.Sprintf(format, args...), nil).WithSubject(subject)
}

func errNotAnAspect(typeName, reason string) *Error {
	return newError(ErrCodeNotAnAspect, reason, nil).WithSubject(typeName)
}

func errUnsupportedAdvice(subject, reason string) *Error {
	return newError(ErrCodeUnsupportedAdvice, reason, nil).WithSubject(subject)
}

func errUnknownAdviceType(v any) *Error {
	return newError(
		ErrCodeUnknownAdviceType,
		fmt.Sprintf("advice object [%T] is neither a supported advice nor an advisor", v),
		nil,
	)
}

func errNoDefaultImpl(aspect, field string) *Error {
	return newError(
		ErrCodeNoDefaultImpl,
		fmt.Sprintf("declareParents field %s has no defaultImpl", field),
		nil,
	).WithSubject(aspect)
}

func errScopeMismatch(beanName, reason string) *Error {
	return newError(ErrCodeScopeMismatch, reason, nil).WithSubject(beanName)
}

func errInvocation(method string, cause error) *Error {
	return newError(ErrCodeInvocationFailed, "reflective invocation failed", cause).WithSubject(method)
}

func errIllegalState(message string) *Error {
	return newError(ErrCodeIllegalState, message, nil)
}

func IsConfigError(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Code {
	case ErrCodeConfig, ErrCodeNotAnAspect, ErrCodeUnsupportedAdvice,
		ErrCodeNoDefaultImpl, ErrCodeScopeMismatch, ErrCodeNoHandlers:
		return true
	}
	return false
}

func IsUnknownAdviceType(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeUnknownAdviceType
}

func IsNotAnAspect(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeNotAnAspect
}

func IsScopeMismatch(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeScopeMismatch
}

func IsInvocationFailed(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeInvocationFailed
}

func IsNoStub(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeNoStub
}
