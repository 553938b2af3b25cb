package ai

import (
	"errors"
	"fmt"
)

type ModelErrorKind string

const (
	ModelErrorTransport ModelErrorKind = "transport"
	ModelErrorAuth      ModelErrorKind = "auth"
	ModelErrorQuota     ModelErrorKind = "quota"
	ModelErrorBlocked   ModelErrorKind = "blocked"
	ModelErrorEmpty     ModelErrorKind = "empty"
)

// ModelError is returned when the model call itself fails.
type ModelError struct {
	Kind ModelErrorKind
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("model %s error", e.Kind)
	}
	return fmt.Sprintf("model %s error: %v", e.Kind, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying the same call may succeed.
func (e *ModelError) Temporary() bool {
	return e.Kind == ModelErrorTransport || e.Kind == ModelErrorQuota
}

type ParseErrorKind string

const (
	ParseErrorSyntax     ParseErrorKind = "syntax"
	ParseErrorNotObject  ParseErrorKind = "not_object"
	ParseErrorMissingKey ParseErrorKind = "missing_key"
	ParseErrorBadScore   ParseErrorKind = "bad_score"
)

// ParseError is returned when a model reply cannot be turned into an Assessment.
type ParseError struct {
	Kind   ParseErrorKind
	Detail string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse model response (%s)", e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func IsModelError(err error) bool {
	var me *ModelError
	return errors.As(err, &me)
}

func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
