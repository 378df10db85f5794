package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"pywr/internal/apperror"
	"pywr/internal/config"
)

// ErrRateLimitExceeded is returned by Limiter.Allow once a key's request
// budget for the current window is spent.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// Limiter caps how many run submissions a single client can make per
// window. Allow/Close is the whole surface `pywr serve` needs — no
// Wait/Reset/GetInfo, since this engine has no per-method rate limit
// catalog, just the one run-submission endpoint worth guarding.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Close() error
}

// NewLimiter builds a memory or Redis-backed Limiter from cfg. A nil or
// disabled cfg returns a no-op limiter that always allows.
func NewLimiter(cfg config.RateLimitConfig, redisAddr string) (Limiter, error) {
	if !cfg.Enabled {
		return noopLimiter{}, nil
	}
	if redisAddr != "" {
		return newRedisLimiter(cfg, redisAddr)
	}
	return newMemoryLimiter(cfg), nil
}

type noopLimiter struct{}

func (noopLimiter) Allow(ctx context.Context, key string) (bool, error) { return true, nil }
func (noopLimiter) Close() error                                       { return nil }

// memoryLimiter is a sliding-window limiter over a single process's
// in-memory request log per key.
type memoryLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

func newMemoryLimiter(cfg config.RateLimitConfig) *memoryLimiter {
	limit := cfg.RequestsPerMinute
	if limit <= 0 {
		limit = 60
	}
	return &memoryLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   time.Minute,
	}
}

func (l *memoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)
	kept := l.requests[key][:0]
	for _, t := range l.requests[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= l.limit {
		l.requests[key] = kept
		return false, nil
	}
	l.requests[key] = append(kept, now)
	return true, nil
}

func (l *memoryLimiter) Close() error { return nil }

// redisLimiter shares its sliding-window key space across every pywr
// serve process behind the same Redis, via a ZSET-based atomic
// check-and-increment script.
type redisLimiter struct {
	client *redis.Client
	script *redis.Script
	limit  int
	window time.Duration
}

var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window_ms = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window_ms)
	local current = redis.call('ZCARD', key)
	if current >= limit then
		return 0
	end
	redis.call('ZADD', key, now, now .. ':' .. math.random())
	redis.call('PEXPIRE', key, window_ms)
	return 1
`)

func newRedisLimiter(cfg config.RateLimitConfig, addr string) (*redisLimiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("rate limiter redis ping: %w", err)
	}
	limit := cfg.RequestsPerMinute
	if limit <= 0 {
		limit = 60
	}
	return &redisLimiter{client: client, script: slidingWindowScript, limit: limit, window: time.Minute}, nil
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now().UnixMilli()
	result, err := l.script.Run(ctx, l.client, []string{"pywr:ratelimit:" + key}, l.limit, l.window.Milliseconds(), now).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check: %w", err)
	}
	return result == 1, nil
}

func (l *redisLimiter) Close() error { return l.client.Close() }

// rateLimit wraps next with a per-client-IP check, rejecting over-budget
// requests with a 400 (CodeInvalidArgument) before they reach the handler.
func rateLimit(limiter Limiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		allowed, err := limiter.Allow(r.Context(), key)
		if err != nil {
			writeError(w, apperror.Wrap(err, apperror.CodeBuildError, "rate limit check"))
			return
		}
		if !allowed {
			writeError(w, apperror.New(apperror.CodeInvalidArgument, ErrRateLimitExceeded.Error()).WithField("client").WithSeverity(apperror.SeverityWarning))
			return
		}
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
