package stitch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danpasecinic/stitch/bean"
	"github.com/danpasecinic/stitch/internal/container"
)

type ErrorCode uint16

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeServiceNotFound
	ErrCodeCircularDependency
	ErrCodeDuplicateService
	ErrCodeResolutionFailed
	ErrCodeProviderFailed
	ErrCodeStartupFailed
	ErrCodeShutdownFailed
	ErrCodeScopeNotFound
	ErrCodeValidationFailed
	ErrCodeDecoratorFailed
	ErrCodeContainerAlreadyStarted
	ErrCodeAOPConfig
	ErrCodeInvalidConfig
	ErrCodeModuleApplyFailed
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:                 "UNKNOWN",
	ErrCodeServiceNotFound:         "SERVICE_NOT_FOUND",
	ErrCodeCircularDependency:      "CIRCULAR_DEPENDENCY",
	ErrCodeDuplicateService:        "DUPLICATE_SERVICE",
	ErrCodeResolutionFailed:        "RESOLUTION_FAILED",
	ErrCodeProviderFailed:          "PROVIDER_FAILED",
	ErrCodeStartupFailed:           "STARTUP_FAILED",
	ErrCodeShutdownFailed:          "SHUTDOWN_FAILED",
	ErrCodeScopeNotFound:           "SCOPE_NOT_FOUND",
	ErrCodeValidationFailed:        "VALIDATION_FAILED",
	ErrCodeDecoratorFailed:         "DECORATOR_FAILED",
	ErrCodeContainerAlreadyStarted: "CONTAINER_ALREADY_STARTED",
	ErrCodeAOPConfig:               "AOP_CONFIG",
	ErrCodeInvalidConfig:           "INVALID_CONFIG",
	ErrCodeModuleApplyFailed:       "MODULE_APPLY_FAILED",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

type Error struct {
	Code    ErrorCode
	Message string
	Service string
	Cause   error
	Stack   []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]", e.Code))

	if e.Service != "" {
		b.WriteString(fmt.Sprintf(" service=%q:", e.Service))
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

func (e *Error) WithService(service string) *Error {
	e.Service = service
	return e
}

func (e *Error) WithStack(stack []string) *Error {
	e.Stack = stack
	return e
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// errRegister maps a registration failure of the internal container.
func errRegister(key string, cause error) *Error {
	switch {
	case errors.Is(cause, container.ErrDuplicate):
		return newError(
			ErrCodeDuplicateService,
			fmt.Sprintf("provider already registered for type %s", key),
			cause,
		).WithService(key)
	case errors.Is(cause, container.ErrCircular):
		return newError(ErrCodeCircularDependency, "circular dependency detected", cause).WithService(key)
	default:
		return newError(ErrCodeUnknown, "registration failed", cause).WithService(key)
	}
}

// errResolutionFailed classifies a resolution failure by its cause. A cycle
// found while creating beans carries the resolution path as its stack.
func errResolutionFailed(serviceType string, cause error) *Error {
	if ice, ok := bean.InCreationCause(cause); ok {
		return newError(
			ErrCodeCircularDependency,
			fmt.Sprintf("circular dependency detected: %s", strings.Join(ice.Path, " -> ")),
			cause,
		).WithService(serviceType).WithStack(ice.Path)
	}

	code := ErrCodeResolutionFailed
	switch {
	case errors.Is(cause, container.ErrNotFound):
		code = ErrCodeServiceNotFound
	case errors.Is(cause, container.ErrNoRequestScope):
		code = ErrCodeScopeNotFound
	}
	return newError(code, fmt.Sprintf("failed to resolve %s", serviceType), cause).WithService(serviceType)
}

func errProviderFailed(key string, cause error) *Error {
	return newError(ErrCodeProviderFailed, "provider failed", cause).WithService(key)
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", container.ErrNotFound, key)
}

func errTypeMismatch(serviceType string, instance any) *Error {
	return newError(
		ErrCodeResolutionFailed,
		fmt.Sprintf("bean is a %T, not a %s", instance, serviceType),
		nil,
	).WithService(serviceType)
}

func errStartupFailed(cause error) *Error {
	if errors.Is(cause, container.ErrAlreadyStarted) {
		return newError(ErrCodeContainerAlreadyStarted, "container already started", nil)
	}
	return newError(ErrCodeStartupFailed, "failed to start container", cause)
}

func errShutdownFailed(cause error) *Error {
	return newError(ErrCodeShutdownFailed, "failed to stop container", cause)
}

func errValidationFailed(cause error) *Error {
	return newError(ErrCodeValidationFailed, "container validation failed", cause)
}

func errDecoratorTypeMismatch(typeName string) *Error {
	return newError(
		ErrCodeDecoratorFailed,
		"decorator type mismatch for "+typeName,
		nil,
	)
}

func errAOPConfig(message string, cause error) *Error {
	return newError(ErrCodeAOPConfig, message, cause)
}

func errInvalidConfig(message string, cause error) *Error {
	return newError(ErrCodeInvalidConfig, message, cause)
}

func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeServiceNotFound
}

func IsCircularDependency(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeCircularDependency
}

func IsDuplicateService(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeDuplicateService
}

func IsResolutionFailed(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeResolutionFailed
}

func IsStartupFailed(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeStartupFailed
}

func IsShutdownFailed(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeShutdownFailed
}

func IsScopeNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeScopeNotFound
}

// IsProviderFailed reports whether a provider error is anywhere in err's
// chain, including under a resolution failure of a dependent bean.
func IsProviderFailed(err error) bool {
	return errors.Is(err, &Error{Code: ErrCodeProviderFailed})
}

func IsAOPConfig(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeAOPConfig
}
