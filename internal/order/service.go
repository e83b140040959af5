package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/notify"
	"storefront-be/internal/payment"
	"storefront-be/internal/product"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceResult, error)
	CancelByCustomer(ctx context.Context, orderID uuid.UUID, userID uint) (*Order, error)
	CancelByOperator(ctx context.Context, orderID uuid.UUID) (*Order, error)
	MarkDelivered(ctx context.Context, orderID uuid.UUID) (*Order, error)
	ListForUser(ctx context.Context, userID uint) ([]*Order, error)
	ListAll(ctx context.Context) ([]*Order, error)
	MarkPaymentSucceeded(ctx context.Context, orderID uuid.UUID) error
	MarkPaymentFailed(ctx context.Context, orderID uuid.UUID) error
}

// discardTimeout bounds the compensation that undoes a provisional order.
const discardTimeout = 10 * time.Second

type Options struct {
	ClientOrigin string
	Currency     string
	Stats        *metrics.Stats
}

type service struct {
	repo        Repository
	products    product.Repository
	paymentRepo payment.Repository
	paymentGate payment.Gateway
	notifier    notify.Dispatcher
	opts        Options
}

func NewService(
	repo Repository,
	products product.Repository,
	payRepo payment.Repository,
	payGate payment.Gateway,
	notifier notify.Dispatcher,
	opts Options,
) Service {
	opts.ClientOrigin = strings.TrimRight(opts.ClientOrigin, "/")
	if opts.Stats == nil {
		opts.Stats = metrics.NewStats()
	}
	return &service{
		repo:        repo,
		products:    products,
		paymentRepo: payRepo,
		paymentGate: payGate,
		notifier:    notifier,
		opts:        opts,
	}
}

// mergeItems sums duplicate products and sorts by id so concurrent
// placements lock rows in the same order.
func mergeItems(items []LineItem) ([]LineItem, error) {
	qty := make(map[uuid.UUID]int, len(items))
	for _, it := range items {
		if it.ProductID == uuid.Nil || it.Quantity <= 0 {
			return nil, ErrInvalidRequest
		}
		qty[it.ProductID] += it.Quantity
	}

	merged := make([]LineItem, 0, len(qty))
	for id, q := range qty {
		merged = append(merged, LineItem{ProductID: id, Quantity: q})
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ProductID.String() < merged[j].ProductID.String()
	})
	return merged, nil
}

func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "PlaceOrder"),
		zap.Uint("user_id", input.UserID),
		zap.String("payment_type", string(input.Method)),
	)

	if !input.Method.Valid() || !input.Address.Complete() || len(input.Items) == 0 {
		return nil, ErrInvalidRequest
	}
	if input.Method == PaymentOnline && s.paymentGate == nil {
		log.Error("online placement without a configured gateway")
		return nil, ErrGatewayFailed
	}

	items, err := mergeItems(input.Items)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		log.Error("failed to load products", zap.Error(err))
		return nil, fmt.Errorf("load products: %w", err)
	}

	// Validate everything before anything is written.
	var subtotal int64
	orderItems := make([]OrderItem, len(items))
	for i, it := range items {
		p, ok := products[it.ProductID]
		if !ok || p.Stock < it.Quantity {
			return nil, ErrInsufficientStock
		}
		subtotal += p.OfferPrice * int64(it.Quantity)
		orderItems[i] = OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			UnitPrice:   p.OfferPrice,
			Quantity:    it.Quantity,
		}
	}

	amount := ComputeAmount(subtotal)
	if input.Method == PaymentOnline && amount < MinOnlineAmount {
		return nil, ErrAmountTooLow
	}

	o := &Order{
		ID:            uuid.New(),
		UserID:        input.UserID,
		UserEmail:     input.UserEmail,
		UserName:      input.UserName,
		Items:         orderItems,
		Amount:        amount,
		Address:       *input.Address,
		PaymentType:   input.Method,
		PaymentStatus: PaymentUnpaid,
		Status:        StatusPlaced,
	}
	if input.Method == PaymentOnline {
		o.PaymentStatus = PaymentPending
	}

	if err := s.repo.CreateWithStock(ctx, o); err != nil {
		if !errors.Is(err, ErrInsufficientStock) {
			log.Error("failed to persist order", zap.Error(err))
		}
		return nil, err
	}

	result := &PlaceResult{Order: o}
	if input.Method == PaymentOnline {
		url, err := s.openCheckout(ctx, o)
		if err != nil {
			log.Error("checkout session failed, discarding provisional order",
				zap.String("order_id", o.ID.String()), zap.Error(err))
			s.discard(ctx, log, o.ID)
			return nil, fmt.Errorf("%w: %v", ErrGatewayFailed, err)
		}
		result.RedirectURL = url
	}

	s.opts.Stats.OrdersPlaced.Inc()
	log.Info("order placed", zap.String("order_id", o.ID.String()), zap.Int64("amount", amount))
	if o.UserName == "" {
		s.resolveUserName(ctx, log, o)
	}
	s.dispatch(ctx, notify.KindOrderPlaced, o)
	return result, nil
}

// discard runs even when the caller has gone away; the stock taken by the
// provisional order must come back.
func (s *service) discard(ctx context.Context, log *zap.Logger, id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()

	if _, err := s.repo.DiscardProvisional(ctx, id); err != nil {
		log.Error("failed to discard provisional order", zap.String("order_id", id.String()), zap.Error(err))
	}
}

// resolveUserName reads the customer name back through the stored order,
// which joins the user directory. A failed lookup leaves the name empty.
func (s *service) resolveUserName(ctx context.Context, log *zap.Logger, o *Order) {
	stored, err := s.repo.GetByID(ctx, o.ID)
	if err != nil {
		log.Warn("failed to look up customer name", zap.String("order_id", o.ID.String()), zap.Error(err))
		return
	}
	o.UserName = stored.UserName
}

func (s *service) openCheckout(ctx context.Context, o *Order) (string, error) {
	lines := make([]payment.LineItem, len(o.Items))
	for i, it := range o.Items {
		lines[i] = payment.LineItem{
			Name:      it.ProductName,
			UnitPrice: ChargeUnitPrice(it.UnitPrice),
			Quantity:  int64(it.Quantity),
		}
	}

	session, err := s.paymentGate.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		OrderID:    o.ID.String(),
		UserID:     o.UserID,
		Items:      lines,
		SuccessURL: s.opts.ClientOrigin + "/loader?next=my-orders",
		CancelURL:  s.opts.ClientOrigin + "/cart",
	})
	if err != nil {
		return "", err
	}

	if s.paymentRepo != nil {
		err := s.paymentRepo.SavePayment(ctx, &payment.Payment{
			OrderID:   o.ID.String(),
			SessionID: session.ID,
			Amount:    o.Amount,
			Currency:  s.opts.Currency,
			Status:    payment.StatusPending,
		})
		if err != nil {
			logger.FromCtx(ctx).Warn("failed to record checkout session",
				zap.String("order_id", o.ID.String()), zap.Error(err))
		}
	}
	return session.URL, nil
}

func (s *service) CancelByCustomer(ctx context.Context, orderID uuid.UUID, userID uint) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return o, ErrForbidden
	}
	return s.transition(ctx, o, StatusCancelled, ActorCustomer, notify.KindOrderCancelled)
}

func (s *service) CancelByOperator(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, o, StatusCancelled, ActorOperator, notify.KindOrderCancelled)
}

func (s *service) MarkDelivered(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, o, StatusDelivered, ActorOperator, notify.KindOrderDelivered)
}

func (s *service) transition(ctx context.Context, o *Order, to Status, actor Actor, kind notify.Kind) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Transition"),
		zap.String("order_id", o.ID.String()),
		zap.String("from", string(o.Status)),
		zap.String("to", string(to)),
	)

	if !CanTransition(o.Status, to, actor) {
		return o, ErrIllegalTransition
	}

	if err := s.repo.Transition(ctx, o.ID, o.Status, to); err != nil {
		if errors.Is(err, ErrIllegalTransition) {
			log.Warn("order changed concurrently")
		} else {
			log.Error("failed to update order status", zap.Error(err))
		}
		return o, err
	}

	o.Status = to
	if to == StatusDelivered {
		o.IsPaid = true
		o.PaymentStatus = PaymentPaid
	}
	o.UpdatedAt = time.Now()

	if to == StatusDelivered {
		s.opts.Stats.OrdersDelivered.Inc()
	} else {
		s.opts.Stats.OrdersCancelled.Inc()
	}
	log.Info("order status changed")
	s.dispatch(ctx, kind, o)
	return o, nil
}

func (s *service) ListForUser(ctx context.Context, userID uint) ([]*Order, error) {
	orders, err := s.repo.ListVisible(ctx, &userID)
	if err != nil {
		return nil, err
	}
	return orders, s.attachProducts(ctx, orders)
}

func (s *service) ListAll(ctx context.Context) ([]*Order, error) {
	orders, err := s.repo.ListVisible(ctx, nil)
	if err != nil {
		return nil, err
	}
	return orders, s.attachProducts(ctx, orders)
}

// attachProducts embeds the live product next to each frozen line. Lines
// whose product was deleted keep only their snapshot.
func (s *service) attachProducts(ctx context.Context, orders []*Order) error {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, o := range orders {
		for _, it := range o.Items {
			if !seen[it.ProductID] {
				seen[it.ProductID] = true
				ids = append(ids, it.ProductID)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	for _, o := range orders {
		for i := range o.Items {
			o.Items[i].Product = products[o.Items[i].ProductID]
		}
	}
	return nil
}

func (s *service) MarkPaymentSucceeded(ctx context.Context, orderID uuid.UUID) error {
	if err := s.repo.MarkPaid(ctx, orderID); err != nil {
		return err
	}
	s.recordPayment(ctx, orderID, payment.StatusPaid)
	s.opts.Stats.PaymentsSucceeded.Inc()
	logger.FromCtx(ctx).Info("order paid", zap.String("order_id", orderID.String()))
	return nil
}

func (s *service) MarkPaymentFailed(ctx context.Context, orderID uuid.UUID) error {
	discarded, err := s.repo.DiscardProvisional(ctx, orderID)
	if err != nil {
		return err
	}
	s.recordPayment(ctx, orderID, payment.StatusFailed)
	s.opts.Stats.PaymentsFailed.Inc()
	logger.FromCtx(ctx).Info("payment failed",
		zap.String("order_id", orderID.String()),
		zap.Bool("discarded", discarded),
	)
	return nil
}

func (s *service) recordPayment(ctx context.Context, orderID uuid.UUID, status string) {
	if s.paymentRepo == nil {
		return
	}
	if err := s.paymentRepo.UpdatePaymentStatus(ctx, orderID.String(), status); err != nil {
		logger.FromCtx(ctx).Warn("failed to update payment record",
			zap.String("order_id", orderID.String()), zap.Error(err))
	}
}

// dispatch never fails the caller; delivery problems are logged.
func (s *service) dispatch(ctx context.Context, kind notify.Kind, o *Order) {
	if s.notifier == nil || o.UserEmail == "" {
		return
	}

	items := make([]notify.Item, len(o.Items))
	for i, it := range o.Items {
		items[i] = notify.Item{Name: it.ProductName, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}

	n := notify.Notification{
		Kind:        kind,
		To:          o.UserEmail,
		Name:        o.UserName,
		OrderID:     o.ID.String(),
		Amount:      o.Amount,
		PaymentType: string(o.PaymentType),
		Items:       items,
	}
	if err := s.notifier.Dispatch(ctx, n); err != nil {
		logger.FromCtx(ctx).Warn("notification dispatch failed",
			zap.String("kind", string(kind)),
			zap.String("order_id", o.ID.String()),
			zap.Error(err),
		)
	}
}
