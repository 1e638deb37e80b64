package gateway

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// paths that should be rate limited
var limited = map[string]bool{
	"/auth/login":    true,
	"/auth/register": true,
}

// limiter throttles credential submissions from this client so a stuck loop
// or an impatient user does not trip the server's own limiter.
type limiter struct {
	mu    sync.Mutex
	lims  map[string]*rate.Limiter
	r     rate.Limit
	burst int
}

func newLimiter(rps float64, burst int) *limiter {
	return &limiter{
		lims:  make(map[string]*rate.Limiter),
		r:     rate.Limit(rps),
		burst: burst,
	}
}

func (l *limiter) get(path string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.lims[path]; ok {
		return lim
	}
	lim := rate.NewLimiter(l.r, l.burst)
	l.lims[path] = lim
	return lim
}

// wait blocks until path may be called or ctx is done.
func (l *limiter) wait(ctx context.Context, path string) error {
	if !limited[path] {
		return nil
	}
	return l.get(path).Wait(ctx)
}
