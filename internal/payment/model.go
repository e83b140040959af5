package payment

import "time"

const ProviderStripe = "STRIPE"

// Payment statuses in the payments table.
const (
	StatusPending = "PENDING"
	StatusPaid    = "PAID"
	StatusFailed  = "FAILED"
)

// Correlation metadata keys on the checkout session.
const (
	MetaOrderID = "orderId"
	MetaUserID  = "userId"
)

type Payment struct {
	ID        int64
	OrderID   string
	SessionID string
	Amount    int64
	Currency  string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LineItem is priced in whole currency units; the gateway converts to
// minor units.
type LineItem struct {
	Name      string
	UnitPrice int64
	Quantity  int64
}

type CheckoutRequest struct {
	OrderID    string
	UserID     uint
	Items      []LineItem
	SuccessURL string
	CancelURL  string
}

type CheckoutSession struct {
	ID  string
	URL string
}

type Correlation struct {
	OrderID string
	UserID  uint
}

type EventKind int

const (
	EventIgnored EventKind = iota
	EventPaymentSucceeded
	EventPaymentFailed
)

type Event struct {
	ID              string
	Type            string
	Kind            EventKind
	PaymentIntentID string
	Payload         []byte
}
