// Package errors defines the error kinds surfaced by the alert engine and how
// they map onto HTTP responses.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError is a classified engine error. Two AppErrors match under errors.Is
// when their codes are equal, so callers can test the kind of a wrapped copy.
type AppError struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Fields     []string `json:"fields,omitempty"`
	StatusCode int      `json:"-"`
	Internal   error    `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	msg := e.Message
	if len(e.Fields) > 0 {
		msg = fmt.Sprintf("%s [%s]", msg, strings.Join(e.Fields, ", "))
	}
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", msg, e.Internal)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) || other == nil || e == nil {
		return false
	}
	return e.Code == other.Code
}

// WithInternal returns a copy carrying err as its cause.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}
	cpy := *e
	cpy.Internal = err
	return &cpy
}

// WithMessage returns a copy with a more specific message.
func (e *AppError) WithMessage(format string, args ...any) *AppError {
	if e == nil {
		return nil
	}
	cpy := *e
	cpy.Message = fmt.Sprintf(format, args...)
	return &cpy
}

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeEvaluation        = "EVALUATION_ERROR"
	CodeCooldownRaceLost  = "COOLDOWN_RACE_LOST"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeDeliveryFailure   = "DELIVERY_FAILURE"
	CodeNotFound          = "NOT_FOUND"
	CodeRateLimit         = "RATE_LIMIT_EXCEEDED"
	CodeInternal          = "INTERNAL_SERVER_ERROR"
)

var (
	ErrValidation = &AppError{
		Code:       CodeValidation,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
	}

	ErrEvaluation = &AppError{
		Code:       CodeEvaluation,
		Message:    "Condition evaluation failed",
		StatusCode: http.StatusUnprocessableEntity,
	}

	// ErrCooldownRaceLost never reaches API callers; the engine counts it as a suppression.
	ErrCooldownRaceLost = &AppError{
		Code:       CodeCooldownRaceLost,
		Message:    "Rule is cooling down",
		StatusCode: http.StatusConflict,
	}

	ErrInvalidTransition = &AppError{
		Code:       CodeInvalidTransition,
		Message:    "Invalid lifecycle transition",
		StatusCode: http.StatusConflict,
	}

	ErrDeliveryFailure = &AppError{
		Code:       CodeDeliveryFailure,
		Message:    "Delivery failed",
		StatusCode: http.StatusBadGateway,
	}

	ErrNotFound = &AppError{
		Code:       CodeNotFound,
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrRateLimit = &AppError{
		Code:       CodeRateLimit,
		Message:    "Too many requests, please slow down",
		StatusCode: http.StatusTooManyRequests,
	}

	ErrInternalServer = &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

// NewValidation reports the offending fields of a rejected record.
func NewValidation(message string, fields ...string) *AppError {
	cpy := *ErrValidation
	cpy.Message = message
	cpy.Fields = fields
	return &cpy
}

// NewInvalidTransition describes a refused lifecycle move.
func NewInvalidTransition(from, action string) *AppError {
	return ErrInvalidTransition.WithMessage("cannot %s a notification in status %q", action, from)
}

// NewEvaluation wraps a per-rule evaluation failure.
func NewEvaluation(ruleID string, err error) *AppError {
	return ErrEvaluation.WithMessage("rule %s: condition evaluation failed", ruleID).WithInternal(err)
}

// NewDeliveryFailure wraps a channel send error.
func NewDeliveryFailure(channelID string, err error) *AppError {
	return ErrDeliveryFailure.WithMessage("channel %s: delivery failed", channelID).WithInternal(err)
}

// FromError converts any error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServer.WithInternal(err)
}
