package product

import "errors"

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidProduct  = errors.New("name, category, price and stock are required")
	ErrNothingToUpdate = errors.New("no fields to update")
)
