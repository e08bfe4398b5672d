// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for loopws.

package api

import "fmt"

// Usage faults and transport conditions shared across packages.
var (
	ErrTransportClosed      = fmt.Errorf("transport is closed")
	ErrListenerClosed       = fmt.Errorf("listener is closed")
	ErrConnectionClosed     = fmt.Errorf("connection is not open")
	ErrServerAlreadyStarted = fmt.Errorf("server already started")
	ErrServerNotStarted     = fmt.Errorf("server not started")
	ErrExecutorStopped      = fmt.Errorf("executor stopped")
	ErrInvalidArgument      = fmt.Errorf("invalid argument")
)

// ErrorCode classifies a structured Error.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeUsage
	ErrCodeTransport
	ErrCodeProtocol
	ErrCodeHandshake
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeUsage:
		return "usage"
	case ErrCodeTransport:
		return "transport"
	case ErrCodeProtocol:
		return "protocol"
	case ErrCodeHandshake:
		return "handshake"
	default:
		return "internal"
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code and message so sentinel-style
// comparisons keep working after WithContext.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == e.Message
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a structured error around cause.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// WithContext returns a copy of the error carrying an extra context value.
func (e *Error) WithContext(key string, value any) *Error {
	cp := *e
	cp.Context = make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		cp.Context[k] = v
	}
	cp.Context[key] = value
	return &cp
}

// CodeOf extracts the ErrorCode of err, or ErrCodeInternal when err is not
// a structured error.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return ErrCodeInternal
}
