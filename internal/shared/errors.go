package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation groups input validation failures.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate indicates a unique key collision.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrInsufficientStock indicates a decrement below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrMissingIMEI indicates an operation that needs an IMEI received none.
	ErrMissingIMEI = errors.New("imei missing")
	// ErrTransaction indicates the store aborted the transaction; safe to retry.
	ErrTransaction = errors.New("transaction aborted")
)

// ProductNotFoundError reports a product id that does not resolve. Line is the
// 1-based sale line when the lookup happened inside a sale, 0 otherwise.
type ProductNotFoundError struct {
	ProductID string
	Line      int
}

func (e *ProductNotFoundError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("product %q not found (line %d)", e.ProductID, e.Line)
	}
	return fmt.Sprintf("product %q not found", e.ProductID)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *ProductNotFoundError) Is(target error) bool { return target == ErrNotFound }

// InsufficientStockError reports a decrement that would drive stock negative.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", name, e.Available, e.Requested)
}

// Is lets errors.Is(err, ErrInsufficientStock) match.
func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// ValidationError carries per-field messages.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// DuplicateKeyError reports a unique collision on a named field.
type DuplicateKeyError struct {
	Field string
	Value string
}

func (e *DuplicateKeyError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s already exists", e.Field)
	}
	return fmt.Sprintf("%s %q already exists", e.Field, e.Value)
}

// Is lets errors.Is(err, ErrDuplicate) match.
func (e *DuplicateKeyError) Is(target error) bool { return target == ErrDuplicate }

// MissingImeiError is returned when a sale link is requested without an IMEI.
type MissingImeiError struct {
	InvoiceID string
}

func (e *MissingImeiError) Error() string {
	if e.InvoiceID != "" {
		return fmt.Sprintf("invoice %s carries no imei", e.InvoiceID)
	}
	return "imei is required"
}

// Is lets errors.Is(err, ErrMissingIMEI) match.
func (e *MissingImeiError) Is(target error) bool { return target == ErrMissingIMEI }

// DeviceNotFoundError reports that no showcase item matches an IMEI.
type DeviceNotFoundError struct {
	IMEI string
}

func (e *DeviceNotFoundError) Error() string {
	return fmt.Sprintf("no showcase device found for imei %q", e.IMEI)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *DeviceNotFoundError) Is(target error) bool { return target == ErrNotFound }

// TransactionError wraps contention, timeout and commit failures from the store.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, ErrTransaction)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrTransaction, e.Err)
}

// Unwrap exposes the store error.
func (e *TransactionError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrTransaction) match.
func (e *TransactionError) Is(target error) bool { return target == ErrTransaction }
