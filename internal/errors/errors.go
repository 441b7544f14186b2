package errors

import (
	stderrors "errors"
	"fmt"
)

type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Message string
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, details ...ValidationDetail) *ValidationError {
	return &ValidationError{
		Message: message,
		Details: details,
	}
}

func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

func IsNotFoundError(err error) (*NotFoundError, bool) {
	var nfe *NotFoundError
	if stderrors.As(err, &nfe) {
		return nfe, true
	}
	return nil, false
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

func IsConflictError(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	return e.Message
}

func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{Message: message}
}

func IsUnauthorizedError(err error) (*UnauthorizedError, bool) {
	var ue *UnauthorizedError
	if stderrors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

type DeadlockError struct {
	Message string
}

func (e *DeadlockError) Error() string {
	return e.Message
}

func NewDeadlockError(message string) *DeadlockError {
	return &DeadlockError{Message: message}
}

func IsDeadlockError(err error) (*DeadlockError, bool) {
	var de *DeadlockError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{
		Message: message,
		Cause:   cause,
	}
}

// Checkout rejections. These are caused by the request itself and carry
// enough detail for the buyer to correct the cart and resubmit.

type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

func NewProductNotFoundError(productID string) *ProductNotFoundError {
	return &ProductNotFoundError{ProductID: productID}
}

func IsProductNotFoundError(err error) (*ProductNotFoundError, bool) {
	var pe *ProductNotFoundError
	if stderrors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

type InsufficientStockError struct {
	ProductID    string
	ProductTitle string
	Available    int
	Requested    int
}

func (e *InsufficientStockError) Error() string {
	name := e.ProductTitle
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("Out of Stock: %s (available %d, requested %d)", name, e.Available, e.Requested)
}

func NewInsufficientStockError(productID, title string, available, requested int) *InsufficientStockError {
	return &InsufficientStockError{
		ProductID:    productID,
		ProductTitle: title,
		Available:    available,
		Requested:    requested,
	}
}

func IsInsufficientStockError(err error) (*InsufficientStockError, bool) {
	var ie *InsufficientStockError
	if stderrors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

type InvalidAddressError struct {
	Message string
}

func (e *InvalidAddressError) Error() string {
	return e.Message
}

func NewInvalidAddressError(message string) *InvalidAddressError {
	return &InvalidAddressError{Message: message}
}

func IsInvalidAddressError(err error) (*InvalidAddressError, bool) {
	var ae *InvalidAddressError
	if stderrors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// PersistenceError means the order could not be written. Nothing was
// mutated, so the caller may retry.
type PersistenceError struct {
	Message string
	Cause   error
}

func (e *PersistenceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

func NewPersistenceError(message string, cause error) *PersistenceError {
	return &PersistenceError{Message: message, Cause: cause}
}

func IsPersistenceError(err error) (*PersistenceError, bool) {
	var pe *PersistenceError
	if stderrors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

type AppliedDecrement struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type FailedDecrement struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"`
	Err       error  `json:"-"`
}

// PartialCommitError is returned when the order exists but at least one
// stock decrement did not apply. It must never be retried by replaying the
// whole checkout.
type PartialCommitError struct {
	OrderID string
	Applied []AppliedDecrement
	Failed  []FailedDecrement
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("order %s committed partially: %d decrements applied, %d failed", e.OrderID, len(e.Applied), len(e.Failed))
}

// Unwrap exposes the per-item causes, so a decrement lost to a concurrent
// buyer still matches IsInsufficientStockError.
func (e *PartialCommitError) Unwrap() []error {
	var errs []error
	for _, f := range e.Failed {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

func NewPartialCommitError(orderID string, applied []AppliedDecrement, failed []FailedDecrement) *PartialCommitError {
	return &PartialCommitError{
		OrderID: orderID,
		Applied: applied,
		Failed:  failed,
	}
}

func IsPartialCommitError(err error) (*PartialCommitError, bool) {
	var pe *PartialCommitError
	if stderrors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsRejection reports whether err is a buyer-correctable checkout rejection.
// A partial commit never is, whatever its causes.
func IsRejection(err error) bool {
	if _, ok := IsPartialCommitError(err); ok {
		return false
	}
	if _, ok := IsValidationError(err); ok {
		return true
	}
	if _, ok := IsProductNotFoundError(err); ok {
		return true
	}
	if _, ok := IsInsufficientStockError(err); ok {
		return true
	}
	_, ok := IsInvalidAddressError(err)
	return ok
}
