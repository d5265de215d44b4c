// Package apperr defines the error taxonomy shared by the interview service
// and its transport. Every error that reaches a caller is either one of the
// typed errors below or an internal failure wrapped with fmt.Errorf.
package apperr

import (
	"errors"
	"fmt"
)

// Capabilities reported by UpstreamError.
const (
	CapabilityComplete   = "complete"
	CapabilityChat       = "chat"
	CapabilityTranscribe = "transcribe"
	CapabilitySynthesize = "synthesize"
	CapabilityHealth     = "health"
)

// Categories exposed to API clients.
const (
	CategoryValidation   = "validation"
	CategoryNotFound     = "not_found"
	CategoryConnectivity = "connectivity"
	CategoryServer       = "server"
)

// ValidationError reports caller input that cannot be accepted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validation builds a *ValidationError.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports a missing session, role or evaluation.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// NotFound builds a *NotFoundError.
func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// UpstreamError wraps any failure of the model or speech services.
type UpstreamError struct {
	Capability string
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed: %v", e.Capability, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream builds an *UpstreamError. A nil err yields nil.
func Upstream(capability string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Capability: capability, Err: err}
}

// ParseError reports model output that could not be turned into a structured result.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse model output: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var v *NotFoundError
	return errors.As(err, &v)
}

func IsUpstream(err error) bool {
	var v *UpstreamError
	return errors.As(err, &v)
}

func IsParse(err error) bool {
	var v *ParseError
	return errors.As(err, &v)
}

// Category maps err to the stable category reported by the API.
func Category(err error) string {
	switch {
	case IsValidation(err):
		return CategoryValidation
	case IsNotFound(err):
		return CategoryNotFound
	case IsUpstream(err):
		return CategoryConnectivity
	default:
		return CategoryServer
	}
}
