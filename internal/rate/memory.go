package rate

import (
	"context"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter es la misma ventana fija que RedisLimiter pero local al proceso.
type MemoryLimiter struct {
	c      *gocache.Cache
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		c:      gocache.New(window, 2*window),
		max:    int64(max),
		window: window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now().UTC()
	winStart := now.Truncate(l.window)
	ttl := winStart.Add(l.window).Sub(now)
	k := key + ":" + strconv.FormatInt(winStart.Unix(), 10)

	hits := int64(1)
	if err := l.c.Add(k, hits, ttl); err != nil {
		// ya existe: Increment es atómico dentro de go-cache
		n, err := l.c.IncrementInt64(k, 1)
		if err != nil {
			return Result{}, err
		}
		hits = n
	}
	return evaluate(hits, l.max, l.window, ttl), nil
}
