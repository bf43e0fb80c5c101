package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pribylovaa/site-comments/internal/transport/http/apierrors"
	logctx "github.com/pribylovaa/site-comments/pkg/log"
	"github.com/pribylovaa/site-comments/pkg/redact"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterSweepEvery = time.Minute
)

// ipLimiter — token bucket на каждый адрес отправителя.
type ipLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(perMinute float64, burst int) *ipLimiter {
	return &ipLimiter{
		limit:   rate.Limit(perMinute / 60),
		burst:   burst,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (l *ipLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > limiterSweepEvery {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > limiterIdleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	return b.lim.AllowN(now, 1)
}

// RateLimit ограничивает частоту запросов с одного адреса.
// Ключ бакета — PeerIP; ClientIP (заголовки прокси) используется только при
// trustProxy, когда сервис стоит за прокси, перезаписывающим X-Forwarded-For.
// perMinute <= 0 делает мидлвар no-op. Превышение даёт 429.
func RateLimit(perMinute float64, burst int, trustProxy bool) Middleware {
	key := PeerIP
	if trustProxy {
		key = ClientIP
	}


	return func(next http.Handler) http.Handler {
		if perMinute <= 0 {
			return next
		}

		if burst < 1 {
			burst = 1
		}
		lim := newIPLimiter(perMinute, burst)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := key(r)
			if !lim.allow(ip) {
				logctx.From(r.Context()).Warn("rate limit exceeded", "ip", redact.IP(ip), "path", r.URL.Path)
				apierrors.WriteError(w, r, apierrors.ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
