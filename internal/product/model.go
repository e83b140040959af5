package product

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       int64     `json:"price"`
	OfferPrice  int64     `json:"offerPrice"`
	Stock       int       `json:"stockNumber"`
	InStock     bool      `json:"inStock"`
	Images      []string  `json:"image"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CreateParams struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       int64    `json:"price"`
	OfferPrice  int64    `json:"offerPrice"`
	Stock       int      `json:"stockNumber"`
	Images      []string `json:"image"`
}

// UpdateParams carries the operator-editable fields; nil means unchanged.
type UpdateParams struct {
	Name       *string `json:"name"`
	Category   *string `json:"category"`
	OfferPrice *int64  `json:"offerPrice"`
	Stock      *int    `json:"stockNumber"`
}

func (p UpdateParams) Empty() bool {
	return p.Name == nil && p.Category == nil && p.OfferPrice == nil && p.Stock == nil
}
