package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit throttles requests per client address with a token bucket.
type RateLimit struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimit allows requests per window for every client, with bursts of
// up to requests. A non-positive requests disables limiting.
func NewRateLimit(requests int, window time.Duration) *RateLimit {
	limit := rate.Inf
	if requests > 0 && window > 0 {
		limit = rate.Limit(float64(requests) / window.Seconds())
	}
	idle := 2 * window
	if idle < time.Minute {
		idle = time.Minute
	}
	return &RateLimit{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    max(requests, 1),
		idleTTL:  idle,
		now:      time.Now,
	}
}

func (l *RateLimit) Handle(next http.Handler) http.Handler {
	if l.limit == rate.Inf {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reservation := l.reserve(clientIP(r))
		if delay := reservation.DelayFrom(l.now()); delay > 0 {
			reservation.CancelAt(l.now())
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(math.Ceil(delay.Seconds()))))
			writeTooManyRequests(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimit) reserve(key string) *rate.Reservation {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.idleTTL {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.idleTTL {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.ReserveN(now, 1)
}

func writeTooManyRequests(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"rate_limited","message":"too many requests"}` + "\n"))
}

// clientIP uses RemoteAddr only. Proxy headers are honored through
// chi's RealIP middleware when the router trusts the proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
