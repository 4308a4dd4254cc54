package cache

import (
	"context"
	"time"
)

// Cache defines a generic keyed cache
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically purges expired entries from registered caches.
type Janitor struct {
	caches   []Cleaner
	interval time.Duration
	onClean  func(removed int)
}

// NewJanitor creates a janitor that sweeps every interval.
// onClean, if non-nil, is called after each sweep that removed something.
func NewJanitor(interval time.Duration, onClean func(removed int)) *Janitor {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Janitor{interval: interval, onClean: onClean}
}

// Register adds a cache to the sweep list. Not safe to call after Run.
func (j *Janitor) Register(c Cleaner) {
	j.caches = append(j.caches, c)
}

// Sweep cleans all registered caches once and returns the number of removed entries.
func (j *Janitor) Sweep() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	if total > 0 && j.onClean != nil {
		j.onClean(total)
	}
	return total
}

// Run sweeps until ctx is cancelled. It always returns nil so it can be used
// directly as an errgroup function.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.Sweep()
		case <-ctx.Done():
			return nil
		}
	}
}
