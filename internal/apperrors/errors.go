// Package apperrors defines the closed set of error kinds shared by the
// order and payment services. Handlers translate these into HTTP responses;
// everything else is treated as an internal error.
package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError indicates malformed or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// NewValidationError creates a validation error for a specific field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError indicates the requested resource does not exist.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// NewNotFoundError creates a not-found error for a resource type.
func NewNotFoundError(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

// ForbiddenError indicates the caller is neither the owner nor an admin.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

// NewForbiddenError creates a forbidden error.
func NewForbiddenError(message string) *ForbiddenError {
	return &ForbiddenError{Message: message}
}

// ConflictError indicates the operation conflicts with current state:
// duplicate payment, already-paid order, non-cancellable order, or a lost
// optimistic-concurrency race.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NewConflictError creates a conflict error.
func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

// UpstreamError indicates a downstream collaborator was unreachable or
// reported a failure. StatusCode carries the collaborator's reported status
// when available, zero otherwise.
type UpstreamError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Service, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Service, e.Message)
}

// NewUpstreamError creates an upstream error for a named collaborator.
func NewUpstreamError(service string, statusCode int, message string) *UpstreamError {
	return &UpstreamError{Service: service, StatusCode: statusCode, Message: message}
}

// OutOfStockItem identifies a product the stock reservation could not cover.
type OutOfStockItem struct {
	ProductID string `json:"productId"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// StockError indicates specific items were out of stock during reservation.
// Distinct from UpstreamError so callers can tell "some items unavailable"
// apart from "stock service unreachable".
type StockError struct {
	OutOfStockItems []OutOfStockItem
}

func (e *StockError) Error() string {
	return fmt.Sprintf("some items are out of stock (%d items)", len(e.OutOfStockItems))
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsForbidden reports whether err is a ForbiddenError.
func IsForbidden(err error) bool {
	var f *ForbiddenError
	return errors.As(err, &f)
}
