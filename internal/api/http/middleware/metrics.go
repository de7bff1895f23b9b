package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/nhangara/identity-server/internal/metrics"
)

// Instrument records request counts and latencies labelled by route pattern.
type Instrument struct {
	metrics *metrics.Metrics
}

// NewInstrument creates a new Instrument middleware.
func NewInstrument(m *metrics.Metrics) *Instrument {
	return &Instrument{metrics: m}
}

func (i *Instrument) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		i.metrics.RequestStarted()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		i.metrics.RequestFinished(r.Method, routePattern(r), strconv.Itoa(status), time.Since(start).Seconds())
	})
}

// routePattern keeps label cardinality bounded by never using the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
