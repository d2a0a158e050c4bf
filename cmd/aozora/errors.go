// cmd/aozora/errors.go
package main

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeFeed      ErrorType = "feed"
	ErrorTypeCompose   ErrorType = "compose"
	ErrorTypeImage     ErrorType = "image"
	ErrorTypePublish   ErrorType = "publish"
	ErrorTypeConfig    ErrorType = "config"
	ErrorTypeScheduler ErrorType = "scheduler"
	ErrorTypeInternal  ErrorType = "internal"
)

// AozoraError is the custom error type for the application
type AozoraError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Inner   error     `json:"inner,omitempty"`
}

func (e *AozoraError) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("[%s-%s] %s: %v", e.Type, e.Code, e.Message, e.Inner)
	}
	return fmt.Sprintf("[%s-%s] %s", e.Type, e.Code, e.Message)
}

func (e *AozoraError) Unwrap() error {
	return e.Inner
}

// NewError creates a new AozoraError
func NewError(errType ErrorType, code string, message string, inner error) *AozoraError {
	return &AozoraError{
		Type:    errType,
		Code:    code,
		Message: message,
		Inner:   inner,
	}
}

// Common error constructors
func NewFeedError(code string, message string, inner error) *AozoraError {
	return NewError(ErrorTypeFeed, code, message, inner)
}

func NewComposeError(code string, message string, inner error) *AozoraError {
	return NewError(ErrorTypeCompose, code, message, inner)
}

func NewImageError(code string, message string, inner error) *AozoraError {
	return NewError(ErrorTypeImage, code, message, inner)
}

func NewPublishError(code string, message string, inner error) *AozoraError {
	return NewError(ErrorTypePublish, code, message, inner)
}

func NewConfigError(code string, message string, inner error) *AozoraError {
	return NewError(ErrorTypeConfig, code, message, inner)
}

func NewSchedulerError(code string, message string, inner error) *AozoraError {
	return NewError(ErrorTypeScheduler, code, message, inner)
}

// Error codes
const (
	// Feed error codes
	ErrFeedFetch = "FEED_001"
	ErrFeedEmpty = "FEED_002"

	// Compose error codes
	ErrComposeAPI   = "COMPOSE_001"
	ErrComposeEmpty = "COMPOSE_002"

	// Image error codes
	ErrImageSearch = "IMAGE_001"
	ErrImageFetch  = "IMAGE_002"

	// Publish error codes
	ErrPublishUpload    = "PUBLISH_001"
	ErrPublishPost      = "PUBLISH_002"
	ErrPublishSession   = "PUBLISH_003"
	ErrPublishRateLimit = "PUBLISH_004"

	// Config error codes
	ErrConfigMissing    = "CONFIG_001"
	ErrConfigValidation = "CONFIG_002"
	ErrConfigSources    = "CONFIG_003"

	// Scheduler error codes
	ErrSchedulerInterval = "SCHED_001"
)

// ErrorCode extracts the application error code, or "" for foreign errors
func ErrorCode(err error) string {
	var ae *AozoraError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// IsErrorType reports whether err belongs to the given category
func IsErrorType(err error, t ErrorType) bool {
	var ae *AozoraError
	if errors.As(err, &ae) {
		return ae.Type == t
	}
	return false
}

// IsTransient determines if an error is likely temporary
func IsTransient(err error) bool {
	switch ErrorCode(err) {
	case ErrPublishRateLimit, ErrPublishSession, ErrFeedFetch:
		return true
	}
	return false
}
