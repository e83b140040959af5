package cart

import "errors"

var (
	ErrInvalidQuantity = errors.New("invalid cart quantity")
	ErrFailedClearCart = errors.New("failed to clear cart")
)
