package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = addr
	return req
}

func TestRateLimit_Handle(t *testing.T) {
	t.Parallel()

	rl := NewRateLimit(2, time.Minute)
	now := time.Date(2026, 4, 20, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Handle(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, requestFrom("10.0.0.1:5000"))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limited")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("10.0.0.2:5000"))
	assert.Equal(t, http.StatusOK, rec.Code, "other clients keep their own bucket")

	now = now.Add(30 * time.Second)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("10.0.0.1:5000"))
	assert.Equal(t, http.StatusOK, rec.Code, "bucket refills over time")
}

func TestRateLimit_Disabled(t *testing.T) {
	t.Parallel()

	rl := NewRateLimit(0, time.Minute)
	h := rl.Handle(okHandler())

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, requestFrom("10.0.0.1:5000"))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimit_SweepsIdleVisitors(t *testing.T) {
	t.Parallel()

	rl := NewRateLimit(5, time.Minute)
	now := time.Date(2026, 4, 20, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Handle(okHandler())

	h.ServeHTTP(httptest.NewRecorder(), requestFrom("10.0.0.1:1"))
	h.ServeHTTP(httptest.NewRecorder(), requestFrom("10.0.0.2:1"))
	assert.Len(t, rl.visitors, 2)

	now = now.Add(3 * time.Minute)
	h.ServeHTTP(httptest.NewRecorder(), requestFrom("10.0.0.3:1"))
	assert.Len(t, rl.visitors, 1)
}

func TestRateLimit_Concurrent(t *testing.T) {
	t.Parallel()

	rl := NewRateLimit(10, time.Hour)
	h := rl.Handle(okHandler())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, requestFrom("10.0.0.9:1"))
			if rec.Code == http.StatusOK {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, allowed)
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "10.0.0.1", clientIP(requestFrom("10.0.0.1:5000")))
	assert.Equal(t, "::1", clientIP(requestFrom("[::1]:5000")))
	assert.Equal(t, "203.0.113.7", clientIP(requestFrom("203.0.113.7")))
}
