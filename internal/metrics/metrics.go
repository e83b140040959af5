package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Stats are the process counters reported on /health. They reset on restart.
type Stats struct {
	OrdersPlaced      Counter
	OrdersCancelled   Counter
	OrdersDelivered   Counter
	PaymentsSucceeded Counter
	PaymentsFailed    Counter
	WebhooksRejected  Counter

	uptime *Timer
}

func NewStats() *Stats {
	return &Stats{uptime: StartTimer()}
}

func (s *Stats) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"ordersPlaced":      s.OrdersPlaced.Load(),
		"ordersCancelled":   s.OrdersCancelled.Load(),
		"ordersDelivered":   s.OrdersDelivered.Load(),
		"paymentsSucceeded": s.PaymentsSucceeded.Load(),
		"paymentsFailed":    s.PaymentsFailed.Load(),
		"webhooksRejected":  s.WebhooksRejected.Load(),
	}
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

const pingTimeout = 2 * time.Second

// Handler answers 200 with the counters while the database responds and
// 503 otherwise. A nil db skips the check.
func (s *Stats) Handler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "OK", http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				status, code = "DEGRADED", http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":   status,
			"uptime":   s.uptime.Duration().Round(time.Second).String(),
			"counters": s.Snapshot(),
		})
	}
}
