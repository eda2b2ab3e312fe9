package httputil

import "context"

// Semaphore caps in-flight external lookups so a burst of analyses
// cannot stampede the reputation provider.
type Semaphore struct {
	sem chan struct{}
}

// NewSemaphore creates a semaphore with the given capacity.
func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		capacity = 8
	}
	return &Semaphore{sem: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is available or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot. Must follow a successful acquire.
func (s *Semaphore) Release() {
	select {
	case <-s.sem:
	default:
	}
}
