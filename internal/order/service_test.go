package order

import (
	"context"
	"errors"
	"sync"
	"testing"

	"storefront-be/internal/metrics"
	"storefront-be/internal/notify"
	"storefront-be/internal/payment"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc      Service
	store    *memStore
	gateway  *fakeGateway
	notifier *recordingNotifier
	stats    *metrics.Stats
}

func newFixture(t *testing.T, withGateway bool) *fixture {
	t.Helper()
	f := &fixture{
		store:    newMemStore(),
		gateway:  &fakeGateway{},
		notifier: &recordingNotifier{},
		stats:    metrics.NewStats(),
	}
	f.store.users[7] = "Ann"
	var gw payment.Gateway
	if withGateway {
		gw = f.gateway
	}
	f.svc = NewService(
		fakeOrders{f.store}, fakeProducts{f.store}, nil, gw, f.notifier,
		Options{ClientOrigin: "http://shop.local/", Currency: "inr", Stats: f.stats},
	)
	return f
}

func placeInput(method PaymentType, items ...LineItem) PlaceOrderInput {
	return PlaceOrderInput{
		UserID:    7,
		UserEmail: "ann@example.com",
		Items:     items,
		Address:   validAddress(),
		Method:    method,
	}
}

func TestPlaceOrder_COD(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, false)
		tea := f.store.addProduct("Tea", 120, 10)
		rice := f.store.addProduct("Rice", 75, 4)

		res, err := f.svc.PlaceOrder(ctx, placeInput(PaymentCOD,
			LineItem{ProductID: tea, Quantity: 2},
			LineItem{ProductID: rice, Quantity: 3},
		))
		require.NoError(t, err)

		o := res.Order
		assert.Equal(t, int64(474), o.Amount) // 465 + 9
		assert.Equal(t, StatusPlaced, o.Status)
		assert.Equal(t, PaymentUnpaid, o.PaymentStatus)
		assert.False(t, o.IsPaid)
		assert.Empty(t, res.RedirectURL)
		assert.Equal(t, 8, f.store.stock(tea))
		assert.Equal(t, 1, f.store.stock(rice))
		assert.Equal(t, []notify.Kind{notify.KindOrderPlaced}, f.notifier.kinds())
		assert.Equal(t, "Ann", f.notifier.sent[0].Name)
		assert.Equal(t, uint64(1), f.stats.OrdersPlaced.Load())
	})

	t.Run("AmountIsFlooredTax", func(t *testing.T) {
		f := newFixture(t, false)
		for _, price := range []int64{1, 49, 50, 99, 333, 1001} {
			id := f.store.addProduct("Item", price, 5)
			res, err := f.svc.PlaceOrder(ctx, placeInput(PaymentCOD, LineItem{ProductID: id, Quantity: 3}))
			require.NoError(t, err)
			sub := price * 3
			assert.Equal(t, sub+sub*2/100, res.Order.Amount, "price %d", price)
		}
	})

	t.Run("MergesDuplicateLines", func(t *testing.T) {
		f := newFixture(t, false)
		id := f.store.addProduct("Tea", 100, 5)

		res, err := f.svc.PlaceOrder(ctx, placeInput(PaymentCOD,
			LineItem{ProductID: id, Quantity: 2},
			LineItem{ProductID: id, Quantity: 1},
		))
		require.NoError(t, err)
		require.Len(t, res.Order.Items, 1)
		assert.Equal(t, 3, res.Order.Items[0].Quantity)
		assert.Equal(t, 2, f.store.stock(id))
	})

	t.Run("SnapshotsNameAndPrice", func(t *testing.T) {
		f := newFixture(t, false)
		id := f.store.addProduct("Tea", 100, 5)

		res, err := f.svc.PlaceOrder(ctx, placeInput(PaymentCOD, LineItem{ProductID: id, Quantity: 1}))
		require.NoError(t, err)
		assert.Equal(t, "Tea", res.Order.Items[0].ProductName)
		assert.Equal(t, int64(100), res.Order.Items[0].UnitPrice)
	})

	t.Run("InsufficientStock", func(t *testing.T) {
		f := newFixture(t, false)
		id := f.store.addProduct("Tea", 100, 3)

		_, err := f.svc.PlaceOrder(ctx, placeInput(PaymentCOD, LineItem{ProductID: id, Quantity: 5}))
		assert.ErrorIs(t, err, ErrInsufficientStock)
		assert.Equal(t, 3, f.store.stock(id))
		assert.Zero(t, f.store.orderCount())
		assert.Empty(t, f.notifier.kinds())
	})

	t.Run("UnknownProduct", func(t *testing.T) {
		f := newFixture(t, false)
		_, err := f.svc.PlaceOrder(ctx, placeInput(PaymentCOD, LineItem{ProductID: uuid.New(), Quantity: 1}))
		assert.ErrorIs(t, err, ErrInsufficientStock)
	})

	t.Run("ShortLineLeavesOtherStockAlone", func(t *testing.T) {
		f := newFixture(t, false)
		plenty := f.store.addProduct("Tea", 100, 10)
		short := f.store.addProduct("Rice", 100, 1)

		_, err := f.svc.PlaceOrder(ctx, placeInput(PaymentCOD,
			LineItem{ProductID: plenty, Quantity: 2},
			LineItem{ProductID: short, Quantity: 2},
		))
		assert.ErrorIs(t, err, ErrInsufficientStock)
		assert.Equal(t, 10, f.store.stock(plenty))
		assert.Equal(t, 1, f.store.stock(short))
	})

	t.Run("NotificationFailureDoesNotFailPlacement", func(t *testing.T) {
		f := newFixture(t, false)
		f.notifier.err = errors.New("smtp down")
		id := f.store.addProduct("Tea", 100, 1)

		_, err := f.svc.PlaceOrder(ctx, placeInput(PaymentCOD, LineItem{ProductID: id, Quantity: 1}))
		assert.NoError(t, err)
		assert.Equal(t, 1, f.store.orderCount())
	})
}

func TestPlaceOrder_InvalidRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	id := f.store.addProduct("Tea", 100, 5)
	good := LineItem{ProductID: id, Quantity: 1}

	cases := map[string]PlaceOrderInput{
		"NoItems":       placeInput(PaymentCOD),
		"ZeroQuantity":  placeInput(PaymentCOD, LineItem{ProductID: id, Quantity: 0}),
		"NilProduct":    placeInput(PaymentCOD, LineItem{Quantity: 1}),
		"UnknownMethod": placeInput("Cheque", good),
	}
	noAddress := placeInput(PaymentCOD, good)
	noAddress.Address = nil
	cases["NoAddress"] = noAddress
	partial := placeInput(PaymentCOD, good)
	partial.Address.Phone = ""
	cases["PartialAddress"] = partial

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.PlaceOrder(ctx, input)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
	assert.Equal(t, 5, f.store.stock(id))
	assert.Zero(t, f.gateway.calls())
}

func TestPlaceOrder_Online(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, true)
		id := f.store.addProduct("Tea", 200, 5)

		res, err := f.svc.PlaceOrder(ctx, placeInput(PaymentOnline, LineItem{ProductID: id, Quantity: 2}))
		require.NoError(t, err)

		assert.Equal(t, "https://checkout.stripe.com/"+res.Order.ID.String(), res.RedirectURL)
		assert.Equal(t, PaymentPending, res.Order.PaymentStatus)
		assert.Equal(t, 3, f.store.stock(id))

		require.Equal(t, 1, f.gateway.calls())
		req := f.gateway.reqs[0]
		assert.Equal(t, res.Order.ID.String(), req.OrderID)
		assert.Equal(t, uint(7), req.UserID)
		assert.Equal(t, "http://shop.local/loader?next=my-orders", req.SuccessURL)
		assert.Equal(t, "http://shop.local/cart", req.CancelURL)
		require.Len(t, req.Items, 1)
		assert.Equal(t, int64(204), req.Items[0].UnitPrice)
		assert.Equal(t, int64(2), req.Items[0].Quantity)
	})

	t.Run("AmountTooLow", func(t *testing.T) {
		f := newFixture(t, true)
		id := f.store.addProduct("Candy", 20, 5)

		_, err := f.svc.PlaceOrder(ctx, placeInput(PaymentOnline, LineItem{ProductID: id, Quantity: 2}))
		assert.ErrorIs(t, err, ErrAmountTooLow)
		assert.Zero(t, f.store.orderCount())
		assert.Equal(t, 5, f.store.stock(id))
		assert.Zero(t, f.gateway.calls())
	})

	t.Run("Boundary", func(t *testing.T) {
		f := newFixture(t, true)
		below := f.store.addProduct("Candy", 49, 5)
		at := f.store.addProduct("Candy", 50, 5)

		_, err := f.svc.PlaceOrder(ctx, placeInput(PaymentOnline, LineItem{ProductID: below, Quantity: 1}))
		assert.ErrorIs(t, err, ErrAmountTooLow)

		res, err := f.svc.PlaceOrder(ctx, placeInput(PaymentOnline, LineItem{ProductID: at, Quantity: 1}))
		require.NoError(t, err)
		assert.Equal(t, int64(51), res.Order.Amount)
	})

	t.Run("GatewayFailureDiscardsOrder", func(t *testing.T) {
		f := newFixture(t, true)
		f.gateway.err = errors.New("stripe unavailable")
		id := f.store.addProduct("Tea", 200, 5)

		_, err := f.svc.PlaceOrder(ctx, placeInput(PaymentOnline, LineItem{ProductID: id, Quantity: 2}))
		assert.ErrorIs(t, err, ErrGatewayFailed)
		assert.Zero(t, f.store.orderCount())
		assert.Equal(t, 5, f.store.stock(id))
		assert.Empty(t, f.notifier.kinds())
	})

	t.Run("CallerGoneStillDiscardsOrder", func(t *testing.T) {
		f := newFixture(t, true)
		id := f.store.addProduct("Tea", 200, 5)

		reqCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		f.gateway.onCreate = cancel

		_, err := f.svc.PlaceOrder(reqCtx, placeInput(PaymentOnline, LineItem{ProductID: id, Quantity: 2}))
		assert.ErrorIs(t, err, ErrGatewayFailed)
		assert.ErrorContains(t, err, context.Canceled.Error())
		assert.Zero(t, f.store.orderCount())
		assert.Equal(t, 5, f.store.stock(id))
	})

	t.Run("NoGatewayConfigured", func(t *testing.T) {
		f := newFixture(t, false)
		id := f.store.addProduct("Tea", 200, 5)

		_, err := f.svc.PlaceOrder(ctx, placeInput(PaymentOnline, LineItem{ProductID: id, Quantity: 1}))
		assert.ErrorIs(t, err, ErrGatewayFailed)
		assert.Equal(t, 5, f.store.stock(id))
	})

	t.Run("PendingOrderIsHiddenFromListings", func(t *testing.T) {
		f := newFixture(t, true)
		id := f.store.addProduct("Tea", 200, 5)

		_, err := f.svc.PlaceOrder(ctx, placeInput(PaymentOnline, LineItem{ProductID: id, Quantity: 1}))
		require.NoError(t, err)

		mine, err := f.svc.ListForUser(ctx, 7)
		require.NoError(t, err)
		assert.Empty(t, mine)
	})
}

func TestPlaceOrder_ConcurrentLastUnit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	id := f.store.addProduct("Last one", 100, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.PlaceOrder(ctx, placeInput(PaymentCOD, LineItem{ProductID: id, Quantity: 1}))
		}(i)
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientStock):
			short++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, short)
	assert.Equal(t, 0, f.store.stock(id))
	assert.Equal(t, 1, f.store.orderCount())
}

func seedOrder(f *fixture, status Status, userID uint) *Order {
	o := &Order{
		ID:            uuid.New(),
		UserID:        userID,
		UserEmail:     "ann@example.com",
		Amount:        102,
		Address:       *validAddress(),
		PaymentType:   PaymentCOD,
		PaymentStatus: PaymentUnpaid,
		Status:        status,
	}
	f.store.addOrder(o)
	return o
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("CustomerCancelsOwnOrder", func(t *testing.T) {
		f := newFixture(t, false)
		o := seedOrder(f, StatusPlaced, 7)

		got, err := f.svc.CancelByCustomer(ctx, o.ID, 7)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got.Status)

		stored, _ := f.store.order(o.ID)
		assert.Equal(t, StatusCancelled, stored.Status)
		assert.Equal(t, []notify.Kind{notify.KindOrderCancelled}, f.notifier.kinds())
	})

	t.Run("CustomerCannotCancelOthersOrder", func(t *testing.T) {
		f := newFixture(t, false)
		o := seedOrder(f, StatusPlaced, 7)

		_, err := f.svc.CancelByCustomer(ctx, o.ID, 8)
		assert.ErrorIs(t, err, ErrForbidden)
		stored, _ := f.store.order(o.ID)
		assert.Equal(t, StatusPlaced, stored.Status)
	})

	t.Run("CustomerCannotCancelShipped", func(t *testing.T) {
		f := newFixture(t, false)
		o := seedOrder(f, StatusShipped, 7)

		got, err := f.svc.CancelByCustomer(ctx, o.ID, 7)
		assert.ErrorIs(t, err, ErrIllegalTransition)
		assert.Equal(t, StatusShipped, got.Status)
	})

	t.Run("DeliveredCannotBeCancelled", func(t *testing.T) {
		f := newFixture(t, false)
		o := seedOrder(f, StatusDelivered, 7)

		_, err := f.svc.CancelByCustomer(ctx, o.ID, 7)
		assert.ErrorIs(t, err, ErrIllegalTransition)
		_, err = f.svc.CancelByOperator(ctx, o.ID)
		assert.ErrorIs(t, err, ErrIllegalTransition)

		stored, _ := f.store.order(o.ID)
		assert.Equal(t, StatusDelivered, stored.Status)
		assert.Empty(t, f.notifier.kinds())
	})

	t.Run("OperatorCancelsShipped", func(t *testing.T) {
		f := newFixture(t, false)
		o := seedOrder(f, StatusShipped, 7)

		got, err := f.svc.CancelByOperator(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got.Status)
	})

	t.Run("DeliverMarksPaid", func(t *testing.T) {
		f := newFixture(t, false)
		o := seedOrder(f, StatusPlaced, 7)

		got, err := f.svc.MarkDelivered(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusDelivered, got.Status)
		assert.True(t, got.IsPaid)
		assert.Equal(t, PaymentPaid, got.PaymentStatus)
		assert.Equal(t, []notify.Kind{notify.KindOrderDelivered}, f.notifier.kinds())
		assert.Equal(t, uint64(1), f.stats.OrdersDelivered.Load())
	})

	t.Run("CancelledCannotBeDelivered", func(t *testing.T) {
		f := newFixture(t, false)
		o := seedOrder(f, StatusCancelled, 7)

		_, err := f.svc.MarkDelivered(ctx, o.ID)
		assert.ErrorIs(t, err, ErrIllegalTransition)
	})

	t.Run("NotFound", func(t *testing.T) {
		f := newFixture(t, false)
		_, err := f.svc.CancelByOperator(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrOrderNotFound)
		_, err = f.svc.MarkDelivered(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestPaymentOutcome(t *testing.T) {
	ctx := context.Background()

	place := func(t *testing.T, f *fixture, id uuid.UUID) *Order {
		t.Helper()
		res, err := f.svc.PlaceOrder(ctx, placeInput(PaymentOnline, LineItem{ProductID: id, Quantity: 2}))
		require.NoError(t, err)
		return res.Order
	}

	t.Run("SucceededOnlyTouchesPayment", func(t *testing.T) {
		f := newFixture(t, true)
		id := f.store.addProduct("Tea", 200, 5)
		placed := place(t, f, id)
		before, _ := f.store.order(placed.ID)

		require.NoError(t, f.svc.MarkPaymentSucceeded(ctx, placed.ID))

		after, _ := f.store.order(placed.ID)
		assert.True(t, after.IsPaid)
		assert.Equal(t, PaymentPaid, after.PaymentStatus)
		assert.Equal(t, before.Amount, after.Amount)
		assert.Equal(t, before.Items, after.Items)
		assert.Equal(t, before.Address, after.Address)
		assert.Equal(t, before.Status, after.Status)
		assert.Equal(t, 3, f.store.stock(id))

		mine, err := f.svc.ListForUser(ctx, 7)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		require.NotNil(t, mine[0].Items[0].Product)
		assert.Equal(t, "Tea", mine[0].Items[0].Product.Name)
	})

	t.Run("SucceededForMissingOrder", func(t *testing.T) {
		f := newFixture(t, true)
		assert.ErrorIs(t, f.svc.MarkPaymentSucceeded(ctx, uuid.New()), ErrOrderNotFound)
	})

	t.Run("FailedDiscardsAndRestocks", func(t *testing.T) {
		f := newFixture(t, true)
		id := f.store.addProduct("Tea", 200, 5)
		placed := place(t, f, id)

		require.NoError(t, f.svc.MarkPaymentFailed(ctx, placed.ID))
		_, exists := f.store.order(placed.ID)
		assert.False(t, exists)
		assert.Equal(t, 5, f.store.stock(id))

		// a redelivered failure is a no-op
		require.NoError(t, f.svc.MarkPaymentFailed(ctx, placed.ID))
		assert.Equal(t, 5, f.store.stock(id))
		assert.Equal(t, uint64(2), f.stats.PaymentsFailed.Load())
	})

	t.Run("FailedAfterPaidKeepsOrder", func(t *testing.T) {
		f := newFixture(t, true)
		id := f.store.addProduct("Tea", 200, 5)
		placed := place(t, f, id)
		require.NoError(t, f.svc.MarkPaymentSucceeded(ctx, placed.ID))

		require.NoError(t, f.svc.MarkPaymentFailed(ctx, placed.ID))
		_, exists := f.store.order(placed.ID)
		assert.True(t, exists)
		assert.Equal(t, 3, f.store.stock(id))
	})
}

func TestListAll(t *testing.T) {
	f := newFixture(t, false)
	seedOrder(f, StatusPlaced, 7)
	seedOrder(f, StatusPlaced, 8)

	all, err := f.svc.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := f.svc.ListForUser(context.Background(), 8)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, uint(8), mine[0].UserID)
}
