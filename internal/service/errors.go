package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors. Every error a service returns on purpose wraps one of these,
// so callers can branch with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrUnauthorized       = errors.New("not authorized")
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrFeatureUnavailable = errors.New("feature unavailable")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError is malformed or out-of-range input.
type ValidationError struct {
	Err     error
	Details string
}

func (e *ValidationError) Error() string {
	if e.Details != "" {
		return e.Details
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Err: ErrValidation, Details: fmt.Sprintf(format, args...)}
}

// AuthorizationError is a tenant mismatch or a role lacking a capability.
type AuthorizationError struct {
	Details string
}

func (e *AuthorizationError) Error() string {
	if e.Details != "" {
		return e.Details
	}
	return ErrUnauthorized.Error()
}

func (e *AuthorizationError) Unwrap() error {
	return ErrUnauthorized
}

func forbidden(details string) error {
	return &AuthorizationError{Details: details}
}

// NotFoundError is a reference to an id that does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Entity)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func notFound(entity string, id uuid.UUID) error {
	return &NotFoundError{Entity: entity, ID: id.String()}
}

// InsufficientStockError carries the quantity actually available.
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = e.ProductID.String()
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", name, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// ExternalDependencyError is an optional subsystem (table, bucket) that is not provisioned.
type ExternalDependencyError struct {
	Feature string
	Err     error
}

func (e *ExternalDependencyError) Error() string {
	return fmt.Sprintf("%s is currently unavailable", e.Feature)
}

// Is matches ErrFeatureUnavailable; Unwrap exposes the provider error for logging.
func (e *ExternalDependencyError) Is(target error) bool {
	return target == ErrFeatureUnavailable
}

func (e *ExternalDependencyError) Unwrap() error {
	return e.Err
}

func unavailable(feature string, err error) error {
	return &ExternalDependencyError{Feature: feature, Err: err}
}
