package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// TTL is an in-memory cache. Values are []byte (JSON).
type TTL struct {
	mu         sync.RWMutex
	items      map[string]item
	defaultTTL time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

type item struct {
	data []byte
	exp  time.Time
}

// New returns a TTL cache; entries without explicit ttl live defaultTTL.
// Call Close to stop the cleanup goroutine.
func New(defaultTTL time.Duration) *TTL {
	c := &TTL{items: make(map[string]item), defaultTTL: defaultTTL, stop: make(chan struct{})}
	go c.cleanup()
	return c
}

func (c *TTL) cleanup() {
	every := c.defaultTTL / 2
	if every <= 0 {
		every = time.Second
	}
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-tick.C:
			c.mu.Lock()
			now := time.Now()
			for k, v := range c.items {
				if v.exp.Before(now) {
					delete(c.items, k)
				}
			}
			c.mu.Unlock()
		}
	}
}

func (c *TTL) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *TTL) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || it.exp.Before(time.Now()) {
		return nil, false
	}
	return it.data, true
}

func (c *TTL) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	c.items[key] = item{data: value, exp: time.Now().Add(ttl)}
	c.mu.Unlock()
}

func (c *TTL) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *TTL) DeletePrefix(_ context.Context, prefix string) {
	c.mu.Lock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}
