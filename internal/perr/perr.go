// Package perr defines the error taxonomy adapters and pipeline stages use
// to decide retry/recovery behavior.
package perr

import (
	"errors"
	"fmt"
)

// Kind is the closed set of error categories the pipeline distinguishes.
type Kind string

const (
	KindRateLimit    Kind = "rate_limit"
	KindServerError  Kind = "server_error"
	KindNetwork      Kind = "network"
	KindAuth         Kind = "auth"
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindDatabase     Kind = "database"
	KindCircuitOpen  Kind = "circuit_open"
	KindCancelled    Kind = "cancelled"
	KindTimeout      Kind = "timeout"
)

// Error wraps an underlying error with a taxonomy Kind and retry hint.
type Error struct {
	Kind       Kind
	Retryable  bool
	RetryAfter float64 // seconds; 0 if not specified
	Err        error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, retryable bool, err error) *Error {
	return &Error{Kind: kind, Retryable: retryable, Err: err}
}

func RateLimit(retryAfterSeconds float64, err error) *Error {
	return &Error{Kind: KindRateLimit, Retryable: true, RetryAfter: retryAfterSeconds, Err: err}
}

func ServerError(err error) *Error   { return New(KindServerError, true, err) }
func Network(err error) *Error       { return New(KindNetwork, true, err) }
func Auth(err error) *Error          { return New(KindAuth, false, err) }
func NotFound(err error) *Error      { return New(KindNotFound, false, err) }
func Validation(err error) *Error    { return New(KindValidation, false, err) }
func Database(err error) *Error      { return New(KindDatabase, true, err) }
func CircuitOpen(err error) *Error   { return New(KindCircuitOpen, false, err) }
func Cancelled(err error) *Error     { return New(KindCancelled, false, err) }
func Timeout(err error) *Error       { return New(KindTimeout, true, err) }

// IsRetryable reports whether err (or any error it wraps) is a retryable
// *Error. A plain, untyped error is treated as retryable by default — the
// conservative choice for unexpected transport failures.
func IsRetryable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return err != nil
}

// KindOf extracts the Kind of err, or "" if err is not a tagged *Error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// AsStruct is the structured JSON-able view returned to API/CLI callers:
// {error, code, retryable}.
type AsStruct struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}

func ToResponse(err error) AsStruct {
	if err == nil {
		return AsStruct{}
	}
	var pe *Error
	if errors.As(err, &pe) {
		return AsStruct{Error: pe.Error(), Code: string(pe.Kind), Retryable: pe.Retryable}
	}
	return AsStruct{Error: err.Error(), Code: "unknown", Retryable: true}
}
