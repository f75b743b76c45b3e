package kit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateStore records a hit for key and reports whether it is still within
// limit for the given window.
type RateStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (bool, error)
}

// MemoryRateStore is a per-process sliding window. Keys whose hits have all
// expired are dropped at most once per window.
type MemoryRateStore struct {
	mu        sync.Mutex
	hits      map[string][]time.Time
	lastSweep time.Time
}

func NewMemoryRateStore() *MemoryRateStore {
	return &MemoryRateStore{hits: make(map[string][]time.Time)}
}

func (s *MemoryRateStore) Allow(_ context.Context, key string, limit int, window time.Duration, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	if now.Sub(s.lastSweep) >= window {
		s.sweep(cutoff)
		s.lastSweep = now
	}

	ts := prune(s.hits[key], cutoff)
	if len(ts) >= limit {
		s.hits[key] = ts
		return false, nil
	}

	s.hits[key] = append(ts, now)
	return true, nil
}

// Len reports how many keys are currently tracked.
func (s *MemoryRateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hits)
}

func (s *MemoryRateStore) sweep(cutoff time.Time) {
	for k, ts := range s.hits {
		if ts = prune(ts, cutoff); len(ts) == 0 {
			delete(s.hits, k)
		} else {
			s.hits[k] = ts
		}
	}
}

func prune(ts []time.Time, cutoff time.Time) []time.Time {
	n := 0
	for _, t := range ts {
		if t.After(cutoff) {
			ts[n] = t
			n++
		}
	}
	return ts[:n]
}

// RedisRateStore is a fixed window shared by every instance pointing at the
// same Redis.
type RedisRateStore struct {
	client *redis.Client
	prefix string
}

func NewRedisRateStore(client *redis.Client, prefix string) *RedisRateStore {
	return &RedisRateStore{client: client, prefix: prefix}
}

func (s *RedisRateStore) Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (bool, error) {
	if window <= 0 {
		return false, fmt.Errorf("rate window must be positive, got %s", window)
	}

	slot := now.UnixNano() / int64(window)
	k := s.prefix + key + ":" + strconv.FormatInt(slot, 10)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.PExpire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return incr.Val() <= int64(limit), nil
}

func (s *RedisRateStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

type IPRateLimiter struct {
	store  RateStore
	scope  string
	limit  int
	window time.Duration
	rs     Responder
	log    *zap.Logger
	now    func() time.Time
}

// NewIPRateLimiter limits each client IP to limit requests per window within
// scope. Limiters sharing a store must use distinct scopes.
func NewIPRateLimiter(store RateStore, scope string, limit int, window time.Duration, rs Responder, log *zap.Logger) *IPRateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &IPRateLimiter{
		store:  store,
		scope:  scope,
		limit:  limit,
		window: window,
		rs:     rs,
		log:    log,
		now:    time.Now,
	}
}

func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		ok, err := l.store.Allow(r.Context(), l.scope+":"+ip, l.limit, l.window, l.now())
		if err != nil {
			// fail open
			l.log.Warn("rate limiter unavailable", zap.Error(err), zap.String("scope", l.scope))
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			l.rs.Error(w, r, http.StatusTooManyRequests, "too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP keys on the connection peer. Deployments behind a trusted proxy
// rewrite RemoteAddr upstream (chi middleware.RealIP) before the limiter runs.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
