package apperror

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure so the pipeline and the transport can react to it
// without inspecting messages.
type Kind string

const (
	KindIntentParse      Kind = "INTENT_PARSE"
	KindDataUnavailable  Kind = "DATA_UNAVAILABLE"
	KindSnapshotNotFound Kind = "SNAPSHOT_NOT_FOUND"
	KindParameterMissing Kind = "PARAMETER_MISSING"
	KindTimeout          Kind = "TIMEOUT"
	KindLowConfidence    Kind = "LOW_CONFIDENCE"
	KindRender           Kind = "RENDER"
	KindNotFound         Kind = "NOT_FOUND"
	KindValidation       Kind = "VALIDATION"
	KindInternal         Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, so errors.Is(err, apperror.Timeout) works
// against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	IntentParse      = &Error{Kind: KindIntentParse}
	DataUnavailable  = &Error{Kind: KindDataUnavailable}
	SnapshotNotFound = &Error{Kind: KindSnapshotNotFound}
	ParameterMissing = &Error{Kind: KindParameterMissing}
	Timeout          = &Error{Kind: KindTimeout}
	LowConfidence    = &Error{Kind: KindLowConfidence}
	Render           = &Error{Kind: KindRender}
	NotFound         = &Error{Kind: KindNotFound}
	Validation       = &Error{Kind: KindValidation}
)

func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// FromExternal classifies an error returned by an external collaborator call.
// Deadline overruns become KindTimeout; everything else gets the fallback kind.
func FromExternal(op string, err error, fallback Kind) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(KindTimeout, op, err)
	}
	return Wrap(fallback, op, err)
}

// KindOf returns the kind carried by err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsRetryable reports whether the bounded EVAL retry may handle err.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindLowConfidence:
		return true
	}
	return false
}
