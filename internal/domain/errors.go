package domain

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrTrackerNotFound   = errors.New("delivery tracker not found")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidState      = errors.New("operation not allowed in current state")
	ErrAlreadyAssigned   = errors.New("delivery already assigned for order")
	ErrPaymentInProgress = errors.New("a payment is already in progress for order")

	// Gateway errors. Validation means the provider rejected the request
	// before anything was committed; unavailable means the call never
	// resolved and local state was left untouched.
	ErrGatewayValidation  = errors.New("payment gateway rejected the request")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)
