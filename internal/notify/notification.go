package notify

import (
	"context"
	"errors"
	"strings"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

type Kind string

// Kinds double as routing keys on the notification exchange.
const (
	KindOrderPlaced    Kind = "order.placed"
	KindOrderCancelled Kind = "order.cancelled"
	KindOrderDelivered Kind = "order.delivered"
	KindContactMessage Kind = "contact.message"
)

var (
	ErrUnknownKind      = errors.New("unknown notification kind")
	ErrMissingRecipient = errors.New("notification has no recipient")
	ErrUnsafeHeader     = errors.New("mail header contains a line break")
)

type Item struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

type Notification struct {
	Kind        Kind   `json:"kind"`
	To          string `json:"to,omitempty"`
	Name        string `json:"name,omitempty"`
	OrderID     string `json:"orderId,omitempty"`
	Amount      int64  `json:"amount,omitempty"`
	PaymentType string `json:"paymentType,omitempty"`
	Items       []Item `json:"items,omitempty"`

	// contact form
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message,omitempty"`
}

func (n Notification) Validate() error {
	if strings.ContainsAny(n.To+n.Email, "\r\n") {
		return ErrUnsafeHeader
	}
	switch n.Kind {
	case KindOrderPlaced, KindOrderCancelled, KindOrderDelivered:
		if n.To == "" {
			return ErrMissingRecipient
		}
	case KindContactMessage:
		if n.Email == "" {
			return ErrMissingRecipient
		}
	default:
		return ErrUnknownKind
	}
	return nil
}

type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

type DispatcherFunc func(ctx context.Context, n Notification) error

func (f DispatcherFunc) Dispatch(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// LogOnly records notifications without delivering them. Used when neither
// a broker nor an SMTP relay is configured.
var LogOnly Dispatcher = DispatcherFunc(func(ctx context.Context, n Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	logger.FromCtx(ctx).Info("notification not delivered, no transport configured",
		zap.String("kind", string(n.Kind)),
		zap.String("order_id", n.OrderID),
	)
	return nil
})
