package order

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"storefront-be/internal/product"

	"github.com/google/uuid"
)

type PaymentType string

const (
	PaymentCOD    PaymentType = "COD"
	PaymentOnline PaymentType = "Online"
)

func (p PaymentType) Valid() bool {
	return p == PaymentCOD || p == PaymentOnline
}

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "UNPAID"
	PaymentPending PaymentStatus = "PENDING_PAYMENT"
	PaymentPaid    PaymentStatus = "PAID"
)

// Address is stored as a JSON snapshot on the order.
type Address struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zipcode   string `json:"zipcode"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

func (a *Address) Complete() bool {
	if a == nil {
		return false
	}
	for _, v := range []string{a.FirstName, a.Street, a.City, a.State, a.Zipcode, a.Country, a.Phone} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *Address) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	case nil:
		*a = Address{}
		return nil
	}
	return errors.New("order: unsupported address column type")
}

// LineItem is what a customer asks for.
type LineItem struct {
	ProductID uuid.UUID `json:"product"`
	Quantity  int       `json:"quantity"`
}

// OrderItem is a placed line with the name and unit price frozen at
// placement. Product is the live record, attached for listings.
type OrderItem struct {
	ProductID   uuid.UUID        `json:"productId"`
	ProductName string           `json:"productName"`
	UnitPrice   int64            `json:"unitPrice"`
	Quantity    int              `json:"quantity"`
	Product     *product.Product `json:"product,omitempty"`
}

type Order struct {
	ID            uuid.UUID     `json:"id"`
	UserID        uint          `json:"userId"`
	UserEmail     string        `json:"-"`
	UserName      string        `json:"-"`
	Items         []OrderItem   `json:"items"`
	Amount        int64         `json:"amount"`
	Address       Address       `json:"address"`
	PaymentType   PaymentType   `json:"paymentType"`
	IsPaid        bool          `json:"isPaid"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Status        Status        `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type PlaceOrderInput struct {
	UserID    uint
	UserEmail string
	UserName  string
	Items     []LineItem
	Address   *Address
	Method    PaymentType
}

type PlaceResult struct {
	Order       *Order
	RedirectURL string
}
