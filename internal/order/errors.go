package order

import "errors"

// Validation and invariant failures surfaced to callers. These are
// input errors, never retried; anything else coming out of the store
// is an infrastructure failure and is wrapped instead, so handlers can
// tell "fix your input" from "try again".
var (
	ErrEmptyCart           = errors.New("cart is invalid or empty")
	ErrItemUnavailable     = errors.New("item is not available")
	ErrInsufficientStock   = errors.New("insufficient stock to place this order")
	ErrSelfPurchase        = errors.New("a user cannot purchase their own item")
	ErrInvalidTransition   = errors.New("invalid order status transition")
	ErrInvalidDeliveryCode = errors.New("delivery code does not match")
	ErrOrderNotFound       = errors.New("order not found")
	ErrPermissionDenied    = errors.New("order does not belong to this user")
)
