package order

import "errors"

var (
	ErrInvalidRequest    = errors.New("invalid order request")
	ErrInsufficientStock = errors.New("insufficient stock for product")
	ErrAmountTooLow      = errors.New("amount below online minimum")
	ErrOrderNotFound     = errors.New("order not found")
	ErrForbidden         = errors.New("not authorized for this order")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrGatewayFailed     = errors.New("payment gateway unavailable")
)
