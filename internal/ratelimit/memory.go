package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// MemoryGuard is a fixed-window counter held in process memory. It is the
// default guard when no Redis address is configured. Close stops the
// background sweep that drops windows long past their reset.
type MemoryGuard struct {
	limit  int
	period time.Duration
	nowF   func() time.Time

	mu      sync.Mutex
	windows map[string]*window

	stop chan struct{}
	done chan struct{}
}

// NewMemoryGuard returns a guard allowing limit requests per period for each
// (ip, endpoint) pair and starts its sweep loop.
func NewMemoryGuard(limit int, period time.Duration) *MemoryGuard {
	g := &MemoryGuard{
		limit:   limit,
		period:  period,
		nowF:    time.Now,
		windows: make(map[string]*window),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go g.sweepLoop()
	return g
}

// Allow counts the request and reports whether it is within the limit. The
// window is fixed: the first request after a reset restarts the count at one.
func (g *MemoryGuard) Allow(ctx context.Context, ip, endpoint string) bool {
	now := g.nowF()
	k := key(ip, endpoint)

	g.mu.Lock()
	defer g.mu.Unlock()
	w, ok := g.windows[k]
	if !ok || now.Sub(w.start) >= g.period {
		g.windows[k] = &window{start: now, count: 1}
		return g.limit >= 1
	}
	w.count++
	return w.count <= g.limit
}

// Close stops the sweep loop. Safe to call once.
func (g *MemoryGuard) Close() {
	close(g.stop)
	<-g.done
}

func (g *MemoryGuard) sweepLoop() {
	defer close(g.done)
	ticker := time.NewTicker(g.period)
	defer ticker.Stop()
	for {
		select {
		case <-g.stop:
			return
		case <-ticker.C:
			g.sweep()
		}
	}
}

func (g *MemoryGuard) sweep() {
	now := g.nowF()
	g.mu.Lock()
	defer g.mu.Unlock()
	for k, w := range g.windows {
		if now.Sub(w.start) >= g.period {
			delete(g.windows, k)
		}
	}
}
