package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	burstCapacityMultiplier    int     = 2
	defaultMaxClients          int     = 10000
	defaultGlobalRPS           int     = 100
	defaultClientRPS           int     = 20
	thresholdMultiplier        float64 = 0.8
	rateLimiterCleanupInterval         = 5 * time.Minute
	rateLimiterIdleTimeout             = 1 * time.Hour
)

type (
	// RateLimiter decides whether a request from clientKey may proceed.
	RateLimiter interface {
		Allow(clientKey string) bool
	}

	// InMemoryRateLimiter implements RateLimiter with golang.org/x/time/rate token
	// buckets: one global bucket plus one bucket per client key.
	//
	// Client buckets idle longer than IdleTimeout are dropped by a background
	// cleanup. Once MaxClients buckets exist, unseen clients share one overflow
	// bucket until cleanup frees room.
	InMemoryRateLimiter struct {
		global    *rate.Limiter
		overflow  *rate.Limiter
		perClient map[string]*clientLimiter
		mu        sync.RWMutex
		ticker    *time.Ticker
		done      chan struct{}
		closeOnce sync.Once

		clientRPS   int
		clientBurst int
		idleTimeout time.Duration
		maxClients  int
	}

	clientLimiter struct {
		limiter    *rate.Limiter
		lastAccess time.Time
		mu         sync.Mutex
	}
)

// NewInMemoryRateLimiter creates a limiter and starts its cleanup goroutine.
// Call Close to stop it.
func NewInMemoryRateLimiter(cfg *Config) *InMemoryRateLimiter {
	clientBurst := computeBurstCapacity(cfg.ClientRPS, cfg.ClientBurst)

	maxClients := cfg.MaxClients
	if maxClients <= 0 {
		maxClients = defaultMaxClients
	}

	idleTimeout := cfg.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = rateLimiterIdleTimeout
	}

	rl := &InMemoryRateLimiter{
		global:      rate.NewLimiter(rate.Limit(cfg.GlobalRPS), computeBurstCapacity(cfg.GlobalRPS, cfg.GlobalBurst)),
		overflow:    rate.NewLimiter(rate.Limit(cfg.ClientRPS), clientBurst),
		perClient:   make(map[string]*clientLimiter),
		done:        make(chan struct{}),
		clientRPS:   cfg.ClientRPS,
		clientBurst: clientBurst,
		idleTimeout: idleTimeout,
		maxClients:  maxClients,
	}

	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = rateLimiterCleanupInterval
	}

	rl.startCleanup(interval)

	return rl
}

// computeBurstCapacity returns burstOverride when set, otherwise 2 × rate.
func computeBurstCapacity(rate, burstOverride int) int {
	if burstOverride > 0 {
		return burstOverride
	}

	return rate * burstCapacityMultiplier
}

// Allow checks the global bucket first, then the bucket of clientKey.
func (rl *InMemoryRateLimiter) Allow(clientKey string) bool {
	if !rl.global.Allow() {
		return false
	}

	cl := rl.clientLimiter(clientKey)
	if cl == nil {
		return rl.overflow.Allow()
	}

	cl.mu.Lock()
	cl.lastAccess = time.Now()
	cl.mu.Unlock()

	return cl.limiter.Allow()
}

// clientLimiter returns the bucket for key, creating it lazily. It returns nil when
// the table is full.
func (rl *InMemoryRateLimiter) clientLimiter(key string) *clientLimiter {
	rl.mu.RLock()
	cl, ok := rl.perClient[key]
	rl.mu.RUnlock()

	if ok {
		return cl
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if cl, ok = rl.perClient[key]; ok {
		return cl
	}

	count := len(rl.perClient)
	if count >= rl.maxClients {
		return nil
	}

	cl = &clientLimiter{
		limiter:    rate.NewLimiter(rate.Limit(rl.clientRPS), rl.clientBurst),
		lastAccess: time.Now(),
	}
	rl.perClient[key] = cl

	if count+1 == int(float64(rl.maxClients)*thresholdMultiplier) {
		slog.Warn("Rate limiter approaching max clients limit",
			slog.Int("current_clients", count+1),
			slog.Int("max_clients", rl.maxClients))
	}

	return cl
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (rl *InMemoryRateLimiter) Close() error {
	rl.closeOnce.Do(func() {
		rl.ticker.Stop()
		close(rl.done)
	})

	return nil
}

func (rl *InMemoryRateLimiter) startCleanup(interval time.Duration) {
	rl.ticker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-rl.ticker.C:
				rl.cleanup()
			case <-rl.done:
				return
			}
		}
	}()
}

// cleanup drops client buckets idle longer than idleTimeout.
func (rl *InMemoryRateLimiter) cleanup() {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, cl := range rl.perClient {
		cl.mu.Lock()
		lastAccess := cl.lastAccess
		cl.mu.Unlock()

		if now.Sub(lastAccess) > rl.idleTimeout {
			delete(rl.perClient, key)
		}
	}
}

// RateLimit returns a middleware that answers 429 problem+json once the caller's
// bucket is empty. Clients are keyed by ClientIP.
func RateLimit(limiter RateLimiter, logger *slog.Logger, opts ...RateLimitOption) func(http.Handler) http.Handler {
	settings := rateLimitSettings{}
	for _, opt := range opts {
		opt(&settings)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter.Allow(ClientIP(r, settings.trustProxy)) {
				next.ServeHTTP(w, r)

				return
			}

			w.Header().Set("Retry-After", "1")

			detail := "Rate limit exceeded. Please retry after some time."
			if err := writeProblem(w, r, http.StatusTooManyRequests, detail); err != nil {
				logger.Error("Failed to write rate limit response",
					slog.String("correlation_id", GetCorrelationID(r.Context())),
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
			}
		})
	}
}

type (
	// RateLimitOption configures RateLimit.
	RateLimitOption func(*rateLimitSettings)

	rateLimitSettings struct {
		trustProxy bool
	}
)

// TrustProxy keys clients by the first X-Forwarded-For hop.
func TrustProxy(trust bool) RateLimitOption {
	return func(s *rateLimitSettings) {
		s.trustProxy = trust
	}
}

// ClientIP returns the caller address used as rate limit key. With trustProxy the
// first X-Forwarded-For entry wins; otherwise the host part of RemoteAddr.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
