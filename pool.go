package texsnap

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"

	"github.com/alnah/go-texsnap/internal/metrics"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one render can run.
	MinPoolSize = 1

	// MaxPoolSize caps concurrent renders; a pdflatex run with fonts loaded
	// plus a 300 dpi rasterization is memory-heavy.
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for the helpers each compiler run forks.
	cpuDivisor = 2
)

// Limiter is admission control in front of the Renderer: at most Size
// renders hold a slot at once.
type Limiter struct {
	sem  *semaphore.Weighted
	size int
}

// NewLimiter creates a Limiter with n slots (minimum one).
func NewLimiter(n int) *Limiter {
	if n < MinPoolSize {
		n = MinPoolSize
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n)), size: n}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	metrics.RendersInFlight.Inc()
	return nil
}

// TryAcquire takes a slot without blocking.
func (l *Limiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	metrics.RendersInFlight.Inc()
	return true
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *Limiter) Release() {
	metrics.RendersInFlight.Dec()
	l.sem.Release(1)
}

// Size returns the number of slots.
func (l *Limiter) Size() int {
	return l.size
}

// ResolvePoolSize determines the number of concurrent renders.
// Priority: explicit workers > GOMAXPROCS-based calculation.
// Exported for use by servers and CLIs.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is container-aware once automaxprocs has run in main.
	n := runtime.GOMAXPROCS(0) / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
