package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInsufficientStock is returned when a stock decrement races another
	// buyer and availability dropped below the requested quantity at commit.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStockChanged is returned by order finalization when re-checking the
	// cart against current stock adjusted at least one line item.
	ErrStockChanged = errors.New("stock changed")
	// ErrMissingShippingAddress guards finalize against submissions that
	// skipped the shipping step.
	ErrMissingShippingAddress = errors.New("order has no shipping address")
	// ErrMissingPaymentMethod guards finalize against submissions that
	// skipped the payment step.
	ErrMissingPaymentMethod = errors.New("order has no payment method")
	// ErrCardDeclined indicates the payment provider rejected a new card.
	ErrCardDeclined = errors.New("card declined")
	// ErrChargeDeclined indicates the payment provider rejected a charge.
	ErrChargeDeclined = errors.New("charge declined")
	// ErrOrderCompleted is returned when mutating an order that already
	// completed; the transition is one-way.
	ErrOrderCompleted = errors.New("order already completed")
	// ErrInvalidCredentials is returned on a failed login without revealing
	// whether the email exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmptyCart rejects checkout for a cart with no line items.
	ErrEmptyCart = errors.New("cart is empty")
)
