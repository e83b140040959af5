package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"storefront-be/internal/utils"

	"golang.org/x/time/rate"
)

// Rate Limit Tiers
const (
	// Login / register / payment callback
	limitStrict = rate.Limit(2)
	burstStrict = 5

	// Placement and lifecycle writes
	limitWrite = rate.Limit(5)
	burstWrite = 10

	// Catalog browsing and listings
	limitGeneral = rate.Limit(10)
	burstGeneral = 20

	visitorTTL      = 3 * time.Minute
	cleanupInterval = time.Minute
)

// StrictPaths get the strict tier regardless of method.
var StrictPaths = map[string]bool{
	"/stripe":            true,
	"/api/user/login":    true,
	"/api/user/register": true,
	"/api/contact":       true,
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per identity and tier.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
}

// NewRateLimiter starts the eviction loop, which stops when ctx is done.
func NewRateLimiter(ctx context.Context) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
	go rl.cleanupLoop(ctx)
	return rl
}

func (rl *RateLimiter) getVisitor(key string, r rate.Limit, b int) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(r, b)
		rl.visitors[key] = &visitor{limiter, rl.now()}
		return limiter
	}

	v.lastSeen = rl.now()
	return v.limiter
}

func (rl *RateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evict()
		}
	}
}

func (rl *RateLimiter) evict() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, v := range rl.visitors {
		if rl.now().Sub(v.lastSeen) > visitorTTL {
			delete(rl.visitors, key)
		}
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, burst, tier := resolveRateTier(r)

		// e.g. "user:1:strict"; the same caller has separate quotas per tier.
		key := fmt.Sprintf("%s:%s", identity(r), tier)

		if !rl.getVisitor(key, limit, burst).Allow() {
			utils.WriteJSONError(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func identity(r *http.Request) string {
	if userID, ok := utils.GetUserIDFromContext(r.Context()); ok {
		return fmt.Sprintf("user:%d", userID)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}

func resolveRateTier(r *http.Request) (rate.Limit, int, string) {
	if StrictPaths[r.URL.Path] {
		return limitStrict, burstStrict, "strict"
	}

	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return limitWrite, burstWrite, "write"
	}

	return limitGeneral, burstGeneral, "general"
}
