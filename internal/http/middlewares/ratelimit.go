package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/dropDatabas3/teamgate/internal/metrics"
	"github.com/dropDatabas3/teamgate/internal/observability/logger"
	"github.com/dropDatabas3/teamgate/internal/rate"
)

// WithRateLimit limita requests por path+IP usando el limiter dado. Con
// limiter nil es un no-op, así las rutas no cambian según la config.
// Si Redis falla dejamos pasar: el límite protege contra fuerza bruta,
// no puede volverse un single point of failure del login.
func WithRateLimit(limiter rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.URL.Path + ":" + remoteIP(r)
			res, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter unavailable", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				metrics.RateLimited.WithLabelValues(r.URL.Path).Inc()
				w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
				http.Error(w, "Too many requests, try again later.", http.StatusTooManyRequests)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			next.ServeHTTP(w, r)
		})
	}
}

// remoteIP extrae la IP del cliente, prefiriendo el primer hop de
// X-Forwarded-For cuando existe.
func remoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
