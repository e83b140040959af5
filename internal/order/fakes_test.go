package order

import (
	"context"
	"errors"
	"sort"
	"sync"

	"storefront-be/internal/notify"
	"storefront-be/internal/payment"
	"storefront-be/internal/product"

	"github.com/google/uuid"
)

// memStore keeps products and orders behind one lock so stock checks and
// decrements behave like the conditional UPDATE inside a transaction.
type memStore struct {
	mu       sync.Mutex
	products map[uuid.UUID]*product.Product
	orders   map[uuid.UUID]*Order
	users    map[uint]string
}

func newMemStore() *memStore {
	return &memStore{
		products: map[uuid.UUID]*product.Product{},
		orders:   map[uuid.UUID]*Order{},
		users:    map[uint]string{},
	}
}

func (s *memStore) addProduct(name string, offer int64, stock int) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.products[id] = &product.Product{ID: id, Name: name, Price: offer, OfferPrice: offer, Stock: stock, InStock: stock > 0}
	return id
}

func (s *memStore) stock(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *memStore) addOrder(o *Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[o.ID] = &cp
}

func (s *memStore) order(id uuid.UUID) (*Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, false
	}
	cp := *o
	return &cp, true
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

type fakeProducts struct {
	s *memStore
}

var errNotUsed = errors.New("not used by order service")

func (f fakeProducts) Create(ctx context.Context, p *product.Product) error { return errNotUsed }

func (f fakeProducts) GetByID(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	return nil, errNotUsed
}

func (f fakeProducts) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*product.Product, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := map[uuid.UUID]*product.Product{}
	for _, id := range ids {
		if p, ok := f.s.products[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (f fakeProducts) List(ctx context.Context) ([]*product.Product, error) { return nil, errNotUsed }

func (f fakeProducts) Update(ctx context.Context, id uuid.UUID, params product.UpdateParams) error {
	return errNotUsed
}

func (f fakeProducts) SetInStock(ctx context.Context, id uuid.UUID, inStock bool) error {
	return errNotUsed
}

func (f fakeProducts) Delete(ctx context.Context, id uuid.UUID) error { return errNotUsed }

type fakeOrders struct {
	s *memStore
}

func (f fakeOrders) CreateWithStock(ctx context.Context, o *Order) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	for _, it := range o.Items {
		p, ok := f.s.products[it.ProductID]
		if !ok || p.Stock < it.Quantity {
			return ErrInsufficientStock
		}
	}
	for _, it := range o.Items {
		p := f.s.products[it.ProductID]
		p.Stock -= it.Quantity
		p.InStock = p.Stock > 0
	}

	cp := *o
	cp.Items = append([]OrderItem(nil), o.Items...)
	f.s.orders[o.ID] = &cp
	return nil
}

func (f fakeOrders) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	o, ok := f.s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	cp.Items = append([]OrderItem(nil), o.Items...)
	if name, ok := f.s.users[o.UserID]; ok {
		cp.UserName = name
	}
	return &cp, nil
}

func (f fakeOrders) ListVisible(ctx context.Context, userID *uint) ([]*Order, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := []*Order{}
	for _, o := range f.s.orders {
		if o.PaymentType != PaymentCOD && !o.IsPaid {
			continue
		}
		if userID != nil && o.UserID != *userID {
			continue
		}
		cp := *o
		cp.Items = append([]OrderItem(nil), o.Items...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f fakeOrders) Transition(ctx context.Context, id uuid.UUID, from, to Status) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	o, ok := f.s.orders[id]
	if !ok || o.Status != from {
		return ErrIllegalTransition
	}
	o.Status = to
	if to == StatusDelivered {
		o.IsPaid = true
		o.PaymentStatus = PaymentPaid
	}
	return nil
}

func (f fakeOrders) MarkPaid(ctx context.Context, id uuid.UUID) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	o, ok := f.s.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.IsPaid = true
	o.PaymentStatus = PaymentPaid
	return nil
}

func (f fakeOrders) DiscardProvisional(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	o, ok := f.s.orders[id]
	if !ok || o.PaymentStatus != PaymentPending {
		return false, nil
	}
	for _, it := range o.Items {
		if p, ok := f.s.products[it.ProductID]; ok {
			p.Stock += it.Quantity
			p.InStock = true
		}
	}
	delete(f.s.orders, id)
	return true, nil
}

type fakeGateway struct {
	mu   sync.Mutex
	reqs []payment.CheckoutRequest
	err  error
	// onCreate runs before the session is answered.
	onCreate func()
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reqs = append(g.reqs, req)
	if g.onCreate != nil {
		g.onCreate()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	if g.err != nil {
		return nil, g.err
	}
	return &payment.CheckoutSession{ID: "cs_" + req.OrderID, URL: "https://checkout.stripe.com/" + req.OrderID}, nil
}

func (g *fakeGateway) ResolvePaymentIntent(ctx context.Context, intentID string) (*payment.Correlation, error) {
	return nil, errNotUsed
}

func (g *fakeGateway) ParseEvent(payload []byte, signature string) (*payment.Event, error) {
	return nil, errNotUsed
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.reqs)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (r *recordingNotifier) Dispatch(ctx context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func (r *recordingNotifier) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Kind
	for _, n := range r.sent {
		out = append(out, n.Kind)
	}
	return out
}
